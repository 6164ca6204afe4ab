package cli

import (
	"errors"
	"fmt"

	"imaginationai/khawab/pkg/interpret"
)

// Exit codes returned by the khawab command.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitConfig    = 2
	ExitCancelled = 130
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to a process exit code.
// A user cancellation exits with 130 like an interrupted shell command.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if interpret.IsUserCancel(err) {
		return ExitCancelled
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return ExitConfig
	}
	return ExitFailure
}
