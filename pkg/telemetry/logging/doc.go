// Package logging configures the process-wide structured logger.
//
// Components log through slog.Default().With("component", ...); Setup
// installs a JSON or text handler at the configured level as the default.
//
// # Redaction
//
// Access credentials never appear in logs: attributes named like secrets
// are masked, and dream or interpretation text is replaced by its length.
//
//	logger, err := logging.Setup(logging.ConfigFromSettings(cfg.Telemetry.Logging))
package logging
