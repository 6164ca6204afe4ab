package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"imaginationai/khawab/pkg/cli"
	"imaginationai/khawab/pkg/config"
	"imaginationai/khawab/pkg/history"
	"imaginationai/khawab/pkg/interpret"
	"imaginationai/khawab/pkg/proxy"
	"imaginationai/khawab/pkg/proxy/handlers"
	"imaginationai/khawab/pkg/server"
	"imaginationai/khawab/pkg/telemetry/health"
	"imaginationai/khawab/pkg/telemetry/metrics"
	"imaginationai/khawab/pkg/telemetry/tracing"
)

// readinessTimeout bounds each /ready check.
const readinessTimeout = 5 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var listen string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the edge proxy",
		Long: `Run the edge proxy in front of the inference server.

Requests under the configured mount are forwarded to the upstream with the
access gateway headers attached and CORS headers added to every reply.

Examples:
  # Start with defaults
  khawab serve

  # Custom config, reloaded when the file changes
  khawab serve --config /etc/khawab/khawab.yaml --watch

  # Override listen address
  khawab serve --listen 0.0.0.0:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Proxy.ListenAddress = listen
			}
			return runServe(cmd.Context(), cfg, flags.configFile, watch)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "override listen address")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload the config file when it changes")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, configFile string, watch bool) error {
	logger := slog.Default().With("component", "serve")

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("open history: %w", err))
	}
	defer store.Close()

	if count, err := store.Count(ctx); err == nil {
		collector.ObserveHistoryEntries(count)
	}

	pruner := history.NewPruner(store, history.RetentionFromConfig(cfg.History), collector)
	scheduler := history.NewScheduler(pruner)
	if cfg.History.Retention.Schedule != "" {
		if err := scheduler.Start(ctx); err != nil {
			logger.Warn("history retention disabled", "error", err)
		} else {
			defer scheduler.Stop()
			if next := scheduler.NextRun(); next != nil {
				logger.Debug("history retention scheduled", "next_run", next)
			}
		}
	}

	client, err := interpret.NewClient(clientConfig(cfg), interpret.WithObserver(collector))
	if err != nil {
		return cli.NewConfigError("client", err.Error())
	}

	opts := proxy.OptionsFromConfig(cfg)
	opts.Observer = collector
	forwarder, err := proxy.NewForwarder(opts)
	if err != nil {
		return cli.NewConfigError("proxy", err.Error())
	}

	checker := health.New(readinessTimeout)
	checker.RegisterCheck("upstream", handlers.UpstreamCheck(client))
	checker.RegisterCheck("history", store.Ping)
	logger.Debug("readiness checks registered", "checks", checker.ListChecks())

	srvOpts := server.Options{
		Forwarder: forwarder,
		Checker:   checker,
		Tracer:    tracer,
		Version:   versionInfo(),
		CORS:      opts.CORS,
	}
	if collector.Enabled() {
		srvOpts.Metrics = collector.Handler()
		srvOpts.MetricsPath = cfg.Telemetry.Metrics.Path
	}

	srv, err := server.New(&cfg.Proxy, srvOpts)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	if watch && configFile != "" {
		watcher, err := config.NewWatcher(configFile, 0)
		if err != nil {
			logger.Warn("config hot reload disabled", "error", err)
		} else {
			go func() {
				err := watcher.Watch(ctx, func(next *config.Config) {
					if err := srv.Reload(next); err != nil {
						logger.Error("applying reloaded configuration failed", "error", err)
					}
				})
				if err != nil {
					logger.Error("config watcher stopped", "error", err)
				}
			}()
		}
	}

	logger.Info("khawab edge proxy starting",
		"version", Version,
		"listen", cfg.Proxy.ListenAddress,
		"mount", cfg.Proxy.Mount,
		"upstream", cfg.Upstream.BaseURL,
		"inject_access", cfg.Proxy.InjectAccessHeaders && cfg.Upstream.Access.Enabled(),
		"history", cfg.History.Backend,
		"tracing", tracer.Enabled(),
	)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}
