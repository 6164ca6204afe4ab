package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file and environment overrides",
		Long: `Load the configuration exactly as serve would and report every
validation error.

Examples:
  khawab config validate --config khawab.yaml
  KHAWAB_PROXY_MOUNT=api khawab config validate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Configuration valid (%s)\n", configSource(flags.configFile))
			fmt.Fprintf(out, "  upstream: %s (model %s)\n", cfg.Upstream.BaseURL, cfg.Upstream.Model)
			fmt.Fprintf(out, "  proxy:    %s%s\n", cfg.Proxy.ListenAddress, cfg.Proxy.Mount)
			fmt.Fprintf(out, "  history:  %s\n", cfg.History.Backend)
			fmt.Fprintf(out, "  access:   %t\n", cfg.Upstream.Access.Enabled())
			return nil
		},
	})
	return cmd
}
