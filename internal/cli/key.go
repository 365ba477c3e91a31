// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// key.go - The "megabot key" and "megabot theme" commands.

package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/megabot/internal/gemini"
	"github.com/jeranaias/megabot/internal/prefs"
	"github.com/jeranaias/megabot/internal/ui/components"
)

const keyUsage = "megabot key [set [KEY]|clear|status]"

// RunKey handles the "key" command.
//
//	megabot key status     Show whether a key is stored (default)
//	megabot key set [KEY]  Store a key; prompts without echo when omitted
//	megabot key clear      Delete the stored key
func RunKey(app *App, args Args) error {
	p := NewArgParser(args.Raw)

	switch sub := p.Subcommand(); sub {
	case "", "status", "show":
		return keyStatus(app)

	case "set":
		key := p.Positional(1)
		if key == "" {
			fmt.Fprintf(app.Err, "Get a key at %s\n", components.APIKeyURL)
			var err error
			key, err = app.ReadSecret("Gemini API key: ")
			if err != nil {
				return err
			}
		}
		if strings.TrimSpace(key) == "" {
			return ErrMissingArgument("key", "megabot key set")
		}
		if err := app.Controller.SetCredential(key); err != nil {
			return NewCommandError("key", "set", err)
		}
		fmt.Fprintf(app.Out, "%s API key saved (%s).\n",
			RenderConditional(SuccessStyle, "[OK]"), gemini.MaskKey(key))
		return nil

	case "clear", "delete", "forget":
		if _, ok := app.Prefs.APIKey(); !ok {
			fmt.Fprintln(app.Out, "No API key is stored.")
			return nil
		}
		if err := app.Controller.ClearCredential(); err != nil {
			return NewCommandError("key", "clear", err)
		}
		fmt.Fprintf(app.Out, "%s API key deleted.\n", RenderConditional(SuccessStyle, "[OK]"))
		return nil

	default:
		return ErrUnknownSubcommand("key", sub, keyUsage)
	}
}

func keyStatus(app *App) error {
	key, ok := app.Prefs.APIKey()
	if !ok {
		fmt.Fprintf(app.Out, "%s %s\n", RenderLabel("API key:"), RenderConditional(WarningStyle, "not set"))
		fmt.Fprintf(app.Out, "Run 'megabot key set' (get a key at %s).\n", components.APIKeyURL)
		return nil
	}

	state := RenderConditional(SuccessStyle, "ready")
	if !app.Controller.HasSession() {
		state = RenderConditional(ErrorStyle, "rejected")
	}
	fmt.Fprintf(app.Out, "%s %s\n", RenderLabel("API key:"), gemini.MaskKey(key))
	fmt.Fprintf(app.Out, "%s %s\n", RenderLabel("Fingerprint:"), gemini.KeyFingerprint(key))
	fmt.Fprintf(app.Out, "%s %s\n", RenderLabel("Session:"), state)
	fmt.Fprintf(app.Out, "%s %s\n", RenderLabel("Model:"), app.ModelName)
	return nil
}

const themeUsage = "megabot theme [light|dark|toggle]"

// RunTheme handles the "theme" command.
func RunTheme(app *App, args Args) error {
	p := NewArgParser(args.Raw)

	var (
		theme prefs.Theme
		err   error
	)
	switch sub := p.Subcommand(); sub {
	case "":
		fmt.Fprintf(app.Out, "%s %s\n", RenderLabel("Theme:"), app.Prefs.Theme())
		return nil
	case "toggle":
		theme, err = app.Prefs.ToggleTheme()
	default:
		theme, err = prefs.ParseTheme(sub)
		if err != nil {
			return &ValidationError{Field: "theme", Value: sub, Reason: "must be light or dark", Example: themeUsage}
		}
		err = app.Prefs.SetTheme(theme)
	}
	if err != nil {
		return NewCommandError("theme", "set", err)
	}
	ApplyTheme(theme)
	fmt.Fprintf(app.Out, "%s Switched to %s mode.\n", RenderConditional(SuccessStyle, "[OK]"), theme)
	return nil
}
