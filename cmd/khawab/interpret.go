package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"imaginationai/khawab/pkg/cli"
	"imaginationai/khawab/pkg/history"
	"imaginationai/khawab/pkg/interpret"
)

var waitingMessages = map[interpret.Language]string{
	interpret.English: "Interpreting your dream...",
	interpret.Urdu:    "آپ کے خواب کی تعبیر کی جا رہی ہے...",
}

type interpretFlags struct {
	lang string
	save bool
	sync bool
}

func newInterpretCmd(flags *globalFlags) *cobra.Command {
	opts := &interpretFlags{}

	cmd := &cobra.Command{
		Use:   "interpret [dream...]",
		Short: "Interpret a dream",
		Long: `Interpret a dream and stream the interpretation to stdout.

The dream is taken from the arguments or, when none are given, from stdin.
Press Ctrl+C to cancel a running interpretation.

Examples:
  khawab interpret "I was flying over a river"
  khawab interpret --lang ur --save < dream.txt
  khawab interpret --sync "a house with many doors"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			dream := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return cli.NewCommandError("interpret", fmt.Errorf("read dream from stdin: %w", err))
				}
				dream = string(data)
			}

			client, err := interpret.NewClient(clientConfig(cfg))
			if err != nil {
				return cli.NewConfigError("client", err.Error())
			}

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				if opts.save {
					return cli.NewCommandError("interpret", fmt.Errorf("open history: %w", err))
				}
				slog.Warn("history unavailable, continuing without it", "error", err)
				store = nil
			} else {
				defer store.Close()
			}

			return runInterpret(cmd.Context(), cmd, client, store, dream, opts)
		},
	}

	cmd.Flags().StringVar(&opts.lang, "lang", "", "interpretation language: en or ur (saved preference when empty)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "save the interpretation to the history")
	cmd.Flags().BoolVar(&opts.sync, "sync", false, "wait for the complete interpretation instead of streaming")
	return cmd
}

// interpreter is the part of *interpret.Client used by the command.
type interpreter interface {
	Interpret(ctx context.Context, req interpret.Request, onChunk func(interpret.Chunk)) (interpret.Result, error)
	InterpretSync(ctx context.Context, req interpret.Request) (interpret.Result, error)
}

func runInterpret(ctx context.Context, cmd *cobra.Command, client interpreter, store history.Store, dream string, opts *interpretFlags) error {
	lang, err := resolveLanguage(ctx, store, opts.lang)
	if err != nil {
		return err
	}

	printer := cli.NewStreamPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	printer.Start(waitingMessages[lang])

	req := interpret.Request{Dream: dream, Language: lang}
	var result interpret.Result
	if opts.sync {
		result, err = client.InterpretSync(ctx, req)
		if err == nil {
			printer.OnChunk(interpret.Chunk{Text: result.Text, Final: true})
		}
	} else {
		result, err = client.Interpret(ctx, req, printer.OnChunk)
	}

	if err != nil {
		if msg := interpret.UserMessage(err, lang); msg != "" {
			printer.Error(msg)
		} else {
			printer.Finish()
		}
		return cli.NewCommandError("interpret", err)
	}
	printer.Finish()

	chunks, first, total := printer.Stats()
	slog.Debug("interpretation complete",
		"language", lang,
		"chunks", chunks,
		"first_chunk", first,
		"duration", total,
		"interpretation", result.Text,
	)

	if store == nil {
		return nil
	}
	if _, err := store.IncrementInterpretationCount(ctx); err != nil {
		slog.Warn("updating interpretation count failed", "error", err)
	}
	if opts.save {
		entry, err := store.Save(ctx, strings.TrimSpace(dream), result.Text, lang)
		if err != nil {
			return cli.NewCommandError("interpret", fmt.Errorf("save interpretation: %w", err))
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Saved as %s\n", entry.ID)
	}
	return nil
}

// resolveLanguage returns the --lang value or, when empty, the saved
// preference.
func resolveLanguage(ctx context.Context, store history.Store, flag string) (interpret.Language, error) {
	if flag != "" {
		lang := interpret.Language(strings.ToLower(flag))
		if !lang.Valid() {
			return "", cli.NewConfigError("lang", fmt.Sprintf("unsupported language %q (valid: en, ur)", flag))
		}
		return lang, nil
	}
	if store == nil {
		return interpret.English, nil
	}
	lang, err := store.Language(ctx)
	if err != nil {
		slog.Warn("reading language preference failed", "error", err)
		return interpret.English, nil
	}
	return lang, nil
}
