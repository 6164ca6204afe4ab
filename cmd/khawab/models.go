package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"imaginationai/khawab/pkg/cli"
	"imaginationai/khawab/pkg/interpret"
)

// modelTable renders a model listing.
type modelTable []interpret.ModelInfo

func (t modelTable) Header() []string {
	return []string{"NAME", "SIZE", "MODIFIED"}
}

func (t modelTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, m := range t {
		rows = append(rows, []string{m.Name, strconv.FormatInt(m.Size, 10), m.ModifiedAt})
	}
	return rows
}

func newModelsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models served by the upstream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			formatter, err := outputFormatter(flags)
			if err != nil {
				return err
			}

			client, err := interpret.NewClient(clientConfig(cfg))
			if err != nil {
				return cli.NewConfigError("client", err.Error())
			}
			models, err := client.Models(cmd.Context())
			if err != nil {
				return cli.NewCommandError("models", err)
			}
			if len(models) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No models available.")
				return nil
			}
			return formatter.FormatTo(cmd.OutOrStdout(), modelTable(models))
		},
	}
}
