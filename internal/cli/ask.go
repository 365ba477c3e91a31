// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - The "megabot ask" command.
//
// Command: ask
// Short:   Ask a single question
// Aliases: a
//
// Examples:
//   megabot ask "How should I price a SaaS product?"
//   megabot ask --file plan.md "Review this business plan"
//   cat notes.txt | megabot ask
//
// The reply streams to stdout. On a terminal with ui.markdown enabled it
// is rendered as markdown once complete.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/megabot/internal/chat"
)

const askUsage = `megabot ask "How should I price a SaaS product?"`

// RunAsk handles the "ask" command.
func RunAsk(ctx context.Context, app *App, args Args, in io.Reader) error {
	query := strings.TrimSpace(args.Query)
	if (query == "" || query == "-") && in != nil && !IsTTY() {
		data, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("failed to read question from stdin: %w", err)
		}
		query = strings.TrimSpace(string(data))
	}
	if query == "" || query == "-" {
		return ErrMissingArgument("question", askUsage)
	}

	if err := requireSession(app); err != nil {
		return err
	}
	if err := app.AttachFiles(args.Files); err != nil {
		return err
	}
	if !args.Quiet && !app.Files.IsEmpty() {
		fmt.Fprintln(app.Err, RenderConditional(DimStyle, app.Files.Summary()))
	}

	_, err := app.send(ctx, query, sendOptions{
		markdown: app.markdownFor(),
		label:    !args.Quiet && IsStdoutTTY(),
	})
	return err
}

// requireSession explains how to get a session when there is none.
func requireSession(app *App) error {
	if app.Controller.HasSession() {
		return nil
	}
	if app.InitErr != nil && !errors.Is(app.InitErr, chat.ErrCredentialRequired) {
		return fmt.Errorf("%w; run 'megabot key set' to enter a new key", app.InitErr)
	}
	return fmt.Errorf("%w; run 'megabot key set' first", chat.ErrNoSession)
}
