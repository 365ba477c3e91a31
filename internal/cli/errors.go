// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for the CLI commands.
//
// Handlers always return errors; main displays them and picks the exit
// code.

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/megabot/internal/chat"
	"github.com/jeranaias/megabot/internal/config"
	"github.com/jeranaias/megabot/internal/provider"
	"github.com/jeranaias/megabot/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // e.g. "history"
	Action  string // e.g. "export"
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents invalid user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// NewCommandError wraps err with the command and action that failed.
func NewCommandError(command, action string, err error) error {
	return &CommandError{Command: command, Action: action, Err: err}
}

// ErrMissingArgument reports a required argument that was not given.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{
		Field:   argName,
		Reason:  "required argument missing",
		Example: usage,
	}
}

// ErrUnknownSubcommand reports a subcommand the command does not have.
func ErrUnknownSubcommand(command, sub, usage string) error {
	return &ValidationError{
		Field:   command + " subcommand",
		Value:   sub,
		Reason:  "unknown subcommand",
		Example: usage,
	}
}

// ErrUnknownCommand reports an unknown command word, suggesting the
// closest match.
func ErrUnknownCommand(word string) error {
	e := &ValidationError{Field: "command", Value: word, Reason: "unknown command"}
	if s := SuggestCommand(word); s != "" {
		e.Example = "megabot " + s
	} else {
		e.Example = "megabot help"
	}
	return e
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w in the error style.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", RenderConditional(ErrorStyle, "[ERROR]"), err.Error())
}

// GetExitCode determines the exit code for err.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var configErrs config.ValidateErrors
	var ttyErr *TTYRequiredError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &ttyErr):
		return ExitUsageError
	case errors.As(err, &configErrs):
		return ExitConfigError
	case errors.Is(err, provider.ErrInvalidAPIKey),
		errors.Is(err, chat.ErrNoSession),
		errors.Is(err, chat.ErrCredentialRequired),
		errors.Is(err, chat.ErrInitFailed):
		return ExitAuthError
	case errors.Is(err, provider.ErrTransport), errors.Is(err, provider.ErrRateLimited):
		return ExitNetworkError
	case errors.Is(err, storage.ErrNotFound):
		return ExitNotFoundError
	}
	return ExitGeneralError
}
