// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - The "megabot history" command.
//
// Command: history
// Short:   Manage transcripts saved with /save
// Aliases: transcripts
//
// Examples:
//   megabot history                         List saved transcripts
//   megabot history show 3f2a               Print a transcript
//   megabot history export 3f2a -o plan.md  Export as markdown
//   megabot history delete 3f2a             Delete a transcript

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/megabot/internal/model"
	"github.com/jeranaias/megabot/internal/storage"
	"github.com/jeranaias/megabot/internal/util"
)

const historyUsage = "megabot history [list|show <id>|export <id> [--output FILE]|delete <id>]"

// RunHistory handles the "history" command.
func RunHistory(ctx context.Context, app *App, args Args) error {
	if app.Archive == nil {
		return ErrHistoryDisabled
	}
	p := NewArgParser(args.Raw)

	switch sub := p.Subcommand(); sub {
	case "", "list", "ls":
		metas, err := app.Archive.List(ctx)
		if err != nil {
			return NewCommandError("history", "list", err)
		}
		fmt.Fprint(app.Out, storage.FormatList(metas))
		if len(metas) == 0 {
			fmt.Fprintln(app.Out)
		}
		return nil

	case "show", "view":
		id, err := p.Require(1, "id", "megabot history show <id>")
		if err != nil {
			return err
		}
		t, err := app.Archive.Load(ctx, id)
		if err != nil {
			return NewCommandError("history", "show", err)
		}
		printTranscript(app, t)
		return nil

	case "export":
		id, err := p.Require(1, "id", "megabot history export <id> [--output FILE]")
		if err != nil {
			return err
		}
		t, err := app.Archive.Load(ctx, id)
		if err != nil {
			return NewCommandError("history", "export", err)
		}
		doc := t.ExportMarkdown()

		out := p.Flag("output")
		if out == "" {
			out = p.Flag("o")
		}
		if out == "" || out == "-" {
			fmt.Fprint(app.Out, doc)
			return nil
		}
		if err := util.AtomicWriteFile(out, []byte(doc), 0600); err != nil {
			return NewCommandError("history", "export", err)
		}
		fmt.Fprintf(app.Out, "%s Exported %s to %s\n",
			RenderConditional(SuccessStyle, "[OK]"), storage.ShortID(t.ID), out)
		return nil

	case "delete", "rm":
		id, err := p.Require(1, "id", "megabot history delete <id>")
		if err != nil {
			return err
		}
		full, err := app.Archive.Delete(ctx, id)
		if err != nil {
			return NewCommandError("history", "delete", err)
		}
		fmt.Fprintf(app.Out, "%s Deleted transcript %s\n",
			RenderConditional(SuccessStyle, "[OK]"), storage.ShortID(full))
		return nil

	default:
		return ErrUnknownSubcommand("history", sub, historyUsage)
	}
}

// printTranscript writes t with the same labels the chat uses.
func printTranscript(app *App, t *storage.Transcript) {
	md := app.markdownFor()

	fmt.Fprintln(app.Out, RenderConditional(TitleStyle, t.Title))
	meta := fmt.Sprintf("%s  saved %s", storage.ShortID(t.ID), t.UpdatedAt.Format("2006-01-02 15:04"))
	if t.Model != "" {
		meta += "  " + t.Model
	}
	fmt.Fprintln(app.Out, RenderConditional(DimStyle, meta))

	for _, m := range t.Messages {
		fmt.Fprintln(app.Out)
		label := UserLabelStyle
		if m.Sender == model.SenderBot {
			label = BotLabelStyle
		}
		fmt.Fprintln(app.Out, RenderConditional(label, m.Sender.DisplayName()))

		switch {
		case m.IsError:
			fmt.Fprintln(app.Out, RenderConditional(ErrorStyle, m.Text))
		case m.Sender == model.SenderBot && md != nil:
			fmt.Fprintln(app.Out, md.Render(m.Text))
		default:
			fmt.Fprintln(app.Out, strings.TrimRight(m.Text, "\n"))
		}
	}
}
