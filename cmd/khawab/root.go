package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"imaginationai/khawab/pkg/cli"
	"imaginationai/khawab/pkg/config"
	"imaginationai/khawab/pkg/interpret"
	"imaginationai/khawab/pkg/telemetry/logging"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configFile string
	envFile    string
	logLevel   string
	logFormat  string
	output     string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "khawab",
		Short: "Khawab - dream interpretation client and edge proxy",
		Long: `Khawab interprets dreams in English or Urdu using a remote language model.

It provides:
  - A streaming interpretation client with cancellation and rate limiting
  - An edge proxy that adds access credentials and CORS headers
  - A local history of saved interpretations`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", os.Getenv("KHAWAB_CONFIG"), "config file path (defaults when empty)")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before environment overrides")
	pf.StringVar(&flags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "override log format (json, text)")
	pf.StringVarP(&flags.output, "output", "o", "text", "output format (text, json, csv)")

	cmd.AddCommand(
		newServeCmd(flags),
		newInterpretCmd(flags),
		newHistoryCmd(flags),
		newModelsCmd(flags),
		newVersionCmd(),
		newConfigCmd(flags),
	)
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
	return execute(ctx, newRootCmd(), os.Args[1:], os.Stderr)
}

func execute(ctx context.Context, cmd *cobra.Command, args []string, stderr io.Writer) int {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil && !interpret.IsUserCancel(err) {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

// loadConfig loads the dotenv file and the configuration, applies the log
// flag overrides and installs the default logger.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	explicitEnv := flags.envFile != ".env"
	if err := config.LoadEnvFile(flags.envFile, explicitEnv); err != nil {
		return nil, cli.NewConfigError("env-file", err.Error())
	}

	cfg, err := config.LoadConfigWithEnvOverrides(flags.configFile)
	if err != nil {
		return nil, cli.NewConfigError(configSource(flags.configFile), err.Error())
	}

	if flags.logLevel != "" {
		cfg.Telemetry.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Telemetry.Logging.Format = flags.logFormat
	}
	if _, err := logging.Setup(logging.ConfigFromSettings(cfg.Telemetry.Logging)); err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return cfg, nil
}

func configSource(path string) string {
	if path == "" {
		return "defaults"
	}
	return path
}

func outputFormatter(flags *globalFlags) (cli.Formatter, error) {
	format, err := cli.ParseOutputFormat(flags.output)
	if err != nil {
		return nil, cli.NewConfigError("output", err.Error())
	}
	return cli.NewFormatter(format), nil
}
