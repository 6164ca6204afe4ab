package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"imaginationai/khawab/pkg/cli"
	"imaginationai/khawab/pkg/history"
	"imaginationai/khawab/pkg/interpret"
)

// previewLength is the number of dream characters shown in listings.
const previewLength = 48

// entryTable renders history entries.
type entryTable []history.Entry

func (t entryTable) Header() []string {
	return []string{"ID", "SAVED", "LANG", "DREAM"}
}

func (t entryTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		rows = append(rows, []string{
			e.ID,
			e.Timestamp.Local().Format(time.DateTime),
			string(e.Language),
			preview(e.Dream, previewLength),
		})
	}
	return rows
}

// preview shortens s to n runes on a single line.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage saved interpretations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved interpretations, newest first",
			Args:  cobra.NoArgs,
			RunE: withStore(flags, func(cmd *cobra.Command, store history.Store, args []string) error {
				formatter, err := outputFormatter(flags)
				if err != nil {
					return err
				}
				entries, err := store.List(cmd.Context())
				if err != nil {
					return cli.NewCommandError("history list", err)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.ErrOrStderr(), "No saved interpretations.")
					return nil
				}
				return formatter.FormatTo(cmd.OutOrStdout(), entryTable(entries))
			}),
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one saved interpretation",
			Args:  cobra.ExactArgs(1),
			RunE: withStore(flags, func(cmd *cobra.Command, store history.Store, args []string) error {
				entry, err := store.Get(cmd.Context(), args[0])
				if errors.Is(err, history.ErrNotFound) {
					return cli.NewCommandError("history show", fmt.Errorf("no entry with id %q", args[0]))
				}
				if err != nil {
					return cli.NewCommandError("history show", err)
				}
				if flags.output == string(cli.FormatJSON) {
					return cli.NewFormatter(cli.FormatJSON).FormatTo(cmd.OutOrStdout(), entry)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s  (%s, %s)\n\n", entry.ID, entry.Language, entry.Timestamp.Local().Format(time.DateTime))
				fmt.Fprintf(out, "%s\n\n%s\n", strings.TrimSpace(entry.Dream), strings.TrimSpace(entry.Interpretation))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete <id>...",
			Short: "Delete saved interpretations",
			Args:  cobra.MinimumNArgs(1),
			RunE: withStore(flags, func(cmd *cobra.Command, store history.Store, args []string) error {
				for _, id := range args {
					if err := store.Delete(cmd.Context(), id); err != nil {
						return cli.NewCommandError("history delete", err)
					}
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Deleted %d entries\n", len(args))
				return nil
			}),
		},
		newHistoryClearCmd(flags),
		&cobra.Command{
			Use:   "language [en|ur]",
			Short: "Show or set the preferred interpretation language",
			Args:  cobra.MaximumNArgs(1),
			RunE: withStore(flags, func(cmd *cobra.Command, store history.Store, args []string) error {
				if len(args) == 1 {
					lang := interpret.Language(strings.ToLower(args[0]))
					if !lang.Valid() {
						return cli.NewConfigError("language", fmt.Sprintf("unsupported language %q (valid: en, ur)", args[0]))
					}
					if err := store.SetLanguage(cmd.Context(), lang); err != nil {
						return cli.NewCommandError("history language", err)
					}
				}
				lang, err := store.Language(cmd.Context())
				if err != nil {
					return cli.NewCommandError("history language", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), lang)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show history statistics",
			Args:  cobra.NoArgs,
			RunE: withStore(flags, func(cmd *cobra.Command, store history.Store, args []string) error {
				count, err := store.Count(cmd.Context())
				if err != nil {
					return cli.NewCommandError("history stats", err)
				}
				total, err := store.InterpretationCount(cmd.Context())
				if err != nil {
					return cli.NewCommandError("history stats", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Saved entries:   %d\n", count)
				fmt.Fprintf(out, "Interpretations: %d\n", total)
				return nil
			}),
		},
	)
	return cmd
}

func newHistoryClearCmd(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved interpretation",
		Args:  cobra.NoArgs,
		RunE: withStore(flags, func(cmd *cobra.Command, store history.Store, args []string) error {
			if !yes {
				return cli.NewConfigError("yes", "clearing the history requires --yes")
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return cli.NewCommandError("history clear", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "✓ History cleared")
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm clearing the history")
	return cmd
}

// withStore loads the configuration and opens the history store around fn.
func withStore(flags *globalFlags, fn func(cmd *cobra.Command, store history.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(flags)
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return cli.NewCommandError("history", fmt.Errorf("open history: %w", err))
		}
		defer store.Close()
		return fn(cmd, store, args)
	}
}
