package main

import (
	"context"
	"log/slog"

	"imaginationai/khawab/pkg/config"
	"imaginationai/khawab/pkg/history"
	"imaginationai/khawab/pkg/interpret"
)

// clientConfig maps the configuration onto the interpretation client.
func clientConfig(cfg *config.Config) interpret.Config {
	c := interpret.Config{
		BaseURL:            cfg.Client.BaseURL,
		Model:              cfg.Upstream.Model,
		MaxDreamLength:     cfg.Client.MaxDreamLength,
		RequestTimeout:     cfg.Client.RequestTimeout,
		MinRequestInterval: cfg.Client.MinRequestInterval,
	}
	if cfg.Client.SendAccessHeaders && cfg.Upstream.Access.Enabled() {
		c.AccessClientID = cfg.Upstream.Access.ClientID
		c.AccessClientSecret = cfg.Upstream.Access.ClientSecret
	}
	return c
}

// openStore opens the configured history backend and verifies it.
func openStore(ctx context.Context, cfg *config.Config) (history.Store, error) {
	store, err := history.Open(cfg.History)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, err
	}
	slog.Debug("history store opened", "backend", cfg.History.Backend)
	return store, nil
}
