// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// reply.go - Printing streamed replies to a plain terminal.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/jeranaias/megabot/internal/chat"
	"github.com/jeranaias/megabot/internal/model"
	"github.com/jeranaias/megabot/internal/ui/components"
)

// replyPrinter writes a reply as it streams. With a markdown renderer the
// reply is held back and rendered once it is complete.
type replyPrinter struct {
	w        io.Writer
	markdown *components.MarkdownRenderer

	// showErrors prints a failed reply in the error style.
	showErrors bool

	printed int
	last    model.Message
}

// observe receives the BOT message after every change.
func (p *replyPrinter) observe(msg model.Message) {
	p.last = msg
	if msg.IsError || p.markdown != nil {
		return
	}
	if len(msg.Text) > p.printed {
		fmt.Fprint(p.w, msg.Text[p.printed:])
		p.printed = len(msg.Text)
	}
}

// finish ends the reply.
func (p *replyPrinter) finish() {
	switch {
	case p.last.IsError:
		if p.printed > 0 {
			fmt.Fprintln(p.w)
		}
		if p.showErrors {
			fmt.Fprintln(p.w, RenderConditional(ErrorStyle, p.last.Text))
		}
	case p.markdown != nil:
		fmt.Fprintln(p.w, p.markdown.Render(p.last.Text))
	case p.printed > 0 && !strings.HasSuffix(p.last.Text, "\n"):
		fmt.Fprintln(p.w)
	}
}

// sendOptions controls how App.send prints.
type sendOptions struct {
	markdown   *components.MarkdownRenderer
	label      bool
	showErrors bool
}

// send delivers text and prints the reply to a.Out. An interrupt signal
// cancels the request.
func (a *App) send(ctx context.Context, text string, opts sendOptions) (chat.Outcome, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if opts.label {
		fmt.Fprintln(a.Out, RenderConditional(BotLabelStyle, model.SenderBot.DisplayName()))
	}
	p := &replyPrinter{w: a.Out, markdown: opts.markdown, showErrors: opts.showErrors}
	outcome, err := a.Controller.SendMessage(ctx, text, p.observe)
	if err != nil && outcome == chat.OutcomeStale {
		// Rejected before a turn started: nothing was printed.
		return outcome, err
	}
	p.finish()
	return outcome, err
}

// markdownFor returns a renderer when replies should be rendered as
// markdown, nil otherwise.
func (a *App) markdownFor() *components.MarkdownRenderer {
	if !a.Config.UI.Markdown || !IsStdoutTTY() {
		return nil
	}
	width := min(GetTerminalWidth(), a.Config.UI.WordWrap)
	return components.NewMarkdownRenderer(a.Prefs.Theme(), width, true)
}
