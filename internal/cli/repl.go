// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl.go - Interactive chat command handler.
//
// Handles the "megabot chat" command, a line-edited REPL sharing the slash
// commands of the TUI.
//
// Command: chat
// Short:   Start an interactive chat session
// Aliases: repl
//
// Examples:
//   megabot chat                      Start interactive chat
//   megabot chat --file plan.md       Start with a file attached
//
// Interactive Commands (during chat):
//   /help               Show available commands
//   /attach <path>...   Attach files to the next messages
//   /reset              Start a new conversation
//   /quit               Exit chat
//   1-4                 Ask a starter question on an empty conversation
//   Tab                 Complete commands and paths
//   Ctrl+C              Cancel the current reply, or exit at the prompt
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/megabot/internal/chat"
	"github.com/jeranaias/megabot/internal/commands"
	"github.com/jeranaias/megabot/internal/config"
	"github.com/jeranaias/megabot/internal/prefs"
	"github.com/jeranaias/megabot/internal/ui/components"
	"github.com/jeranaias/megabot/internal/ui/styles"
)

const historyFileName = "chat_history"

// =============================================================================
// LINE INPUT
// =============================================================================

// LinePrompter reads lines from the user. *liner.State implements it.
type LinePrompter interface {
	Prompt(prompt string) (string, error)
	PasswordPrompt(prompt string) (string, error)
	AppendHistory(item string)
}

// isExit reports whether err from a prompt means the user wants out.
func isExit(err error) bool {
	return errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF)
}

// =============================================================================
// REPL
// =============================================================================

// REPL is the state of an interactive chat.
type REPL struct {
	app      *App
	env      *commands.Env
	line     LinePrompter
	theme    *styles.Theme
	markdown *components.MarkdownRenderer
	quiet    bool
}

// NewREPL creates a REPL reading from line.
func NewREPL(app *App, line LinePrompter, quiet bool) *REPL {
	r := &REPL{
		app:   app,
		env:   app.Env(),
		line:  line,
		quiet: quiet,
	}
	r.setTheme(app.Prefs.Theme())
	return r
}

// RunChat handles the "chat" command.
func RunChat(ctx context.Context, app *App, args Args) error {
	if err := app.AttachFiles(args.Files); err != nil {
		return err
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)

	completer := commands.NewCompleter(app.Registry)
	completer.AttachedFn = app.Files.Names
	line.SetWordCompleter(completer.LineCompleter)

	historyFile := replHistoryPath()
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer saveHistory(line, historyFile)

	return NewREPL(app, line, args.Quiet).Run(ctx)
}

func replHistoryPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, historyFileName)
}

func saveHistory(line *liner.State, path string) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		log.Printf("REPL_HISTORY_SAVE_FAILED | error=%v", err)
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}

// Run reads and handles lines until the user quits.
func (r *REPL) Run(ctx context.Context) error {
	if !r.quiet {
		r.printWelcome()
	}

	if !r.app.Controller.HasSession() {
		if errors.Is(r.app.InitErr, chat.ErrInitFailed) {
			r.printErr(chat.InitFailedText)
		}
		if !r.promptKey() {
			return nil
		}
	}

	prompt := RenderConditional(PromptStyle, "you> ")
	for {
		input, err := r.line.Prompt(prompt)
		if err != nil {
			if isExit(err) {
				fmt.Fprintln(r.app.Out)
				return nil
			}
			return err
		}

		quit, err := r.Handle(ctx, input)
		if err != nil {
			DisplayError(r.app.Err, err)
		}
		if quit {
			return nil
		}
	}
}

// Handle processes one line of input and reports whether to quit.
func (r *REPL) Handle(ctx context.Context, input string) (bool, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return false, nil
	}
	r.line.AppendHistory(input)

	if res, ok := r.app.Registry.Execute(r.env, input); ok {
		return r.apply(res), nil
	}
	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		return true, nil
	}

	if s, ok := r.suggestion(input); ok {
		input = s
		fmt.Fprintln(r.app.Out, RenderConditional(DimStyle, s))
	}

	if !r.app.Controller.HasSession() {
		r.printErr(chat.NeedKeyText)
		return !r.promptKey(), nil
	}

	fmt.Fprintln(r.app.Out)
	outcome, err := r.app.send(ctx, input, sendOptions{
		markdown:   r.markdown,
		label:      !r.quiet,
		showErrors: true,
	})
	fmt.Fprintln(r.app.Out)

	switch {
	case outcome == chat.OutcomeNeedCredential:
		return !r.promptKey(), nil
	case outcome == chat.OutcomeFailed:
		// Already shown as the reply.
		return false, nil
	}
	return false, err
}

// suggestion maps "1".."4" to a starter prompt on an empty conversation.
func (r *REPL) suggestion(input string) (string, bool) {
	if len(input) != 1 || !r.app.Controller.Timeline().IsEmpty() || !r.app.Controller.HasSession() {
		return "", false
	}
	n := int(input[0] - '1')
	if n < 0 || n >= len(chat.Suggestions) {
		return "", false
	}
	return chat.Suggestions[n], true
}

// =============================================================================
// COMMAND RESULTS
// =============================================================================

// apply carries out a command result and reports whether to quit.
func (r *REPL) apply(res commands.Result) bool {
	switch res.Action {
	case commands.ActionQuit:
		return true

	case commands.ActionConfirmReset:
		if r.confirm(res.Message) {
			return r.apply(commands.ConfirmReset(r.env))
		}
		return false

	case commands.ActionConfirmForgetKey:
		if r.confirm(res.Message) {
			return r.apply(commands.ConfirmForgetKey(r.env))
		}
		return false
	}

	r.printResult(res)

	switch res.Action {
	case commands.ActionPromptKey:
		return !r.promptKey()
	case commands.ActionThemeChanged:
		r.setTheme(res.Theme)
	case commands.ActionPreviewFile:
		preview := components.NewFilePreview(res.File, r.theme)
		preview.Width = GetTerminalWidth()
		fmt.Fprintln(r.app.Out, preview.View())
	}
	return false
}

func (r *REPL) printResult(res commands.Result) {
	if res.Err != nil {
		DisplayError(r.app.Err, res.Err)
		return
	}
	if res.Message != "" {
		fmt.Fprintln(r.app.Out, res.Message)
	}
}

// confirm asks a yes/no question, defaulting to no.
func (r *REPL) confirm(question string) bool {
	answer, err := r.line.Prompt(RenderConditional(WarningStyle, question) + " [y/N] ")
	if err != nil {
		fmt.Fprintln(r.app.Out)
		return false
	}
	yes, err := ParseBoolString(answer)
	return err == nil && yes
}

// promptKey asks for the API key until one is accepted. It returns false
// when the user gave up.
func (r *REPL) promptKey() bool {
	fmt.Fprintf(r.app.Out, "Enter your Gemini API key (get one at %s).\n", components.APIKeyURL)
	for {
		key, err := r.line.PasswordPrompt("API key: ")
		if errors.Is(err, liner.ErrNotTerminalOutput) {
			key, err = r.app.ReadSecret("API key: ")
		}
		if err != nil {
			if !isExit(err) {
				DisplayError(r.app.Err, err)
			}
			return false
		}

		if strings.TrimSpace(key) == "" {
			r.printErr(chat.ErrCredentialRequired.Error())
			continue
		}
		res := commands.SetKey(r.env, key)
		if res.Err != nil {
			DisplayError(r.app.Err, res.Err)
			continue
		}
		fmt.Fprintln(r.app.Out, RenderConditional(SuccessStyle, res.Message))
		return true
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *REPL) setTheme(mode prefs.Theme) {
	ApplyTheme(mode)
	r.theme = styles.NewTheme(mode)
	r.theme.SetSize(GetTerminalWidth(), 0)
	if r.markdown != nil {
		r.markdown.SetMode(mode)
	} else {
		r.markdown = r.app.markdownFor()
	}
}

func (r *REPL) printErr(text string) {
	fmt.Fprintln(r.app.Err, RenderConditional(ErrorStyle, text))
}

func (r *REPL) printWelcome() {
	out := r.app.Out
	greeting := chat.Greeting
	if ColorsEnabled() {
		greeting = r.theme.GradientText(greeting)
	}
	fmt.Fprintln(out, greeting)
	fmt.Fprintln(out, RenderConditional(DimStyle, chat.Subheading))
	fmt.Fprintln(out)

	if r.app.Controller.HasSession() {
		for i, s := range chat.Suggestions {
			fmt.Fprintf(out, "  %s %s\n", RenderConditional(PromptStyle, fmt.Sprintf("%d", i+1)), s)
		}
		fmt.Fprintln(out)
	}
	if !r.app.Files.IsEmpty() {
		fmt.Fprintln(out, RenderConditional(DimStyle, r.app.Files.Summary()))
	}
	fmt.Fprintln(out, RenderConditional(DimStyle, "Type a message, 1-4 for a suggestion, or /help. Ctrl+D exits."))
	fmt.Fprintln(out, RenderSeparator())
}
