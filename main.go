// megabot - A terminal chat client for Google Gemini.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/megabot/internal/cli"
	"github.com/jeranaias/megabot/internal/filectx"
	chatui "github.com/jeranaias/megabot/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference for file watcher callbacks
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	closeLog, err := cli.SetupLogging(args.Verbose, cmd == cli.CmdTUI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: debug log unavailable: %v\n", err)
	}

	err = run(cmd, args)
	closeLog()
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}

// run dispatches cmd. Commands that need no provider session are handled
// before the app is bootstrapped.
func run(cmd cli.Command, args cli.Args) error {
	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return nil
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return nil
	case cli.CmdUnknown:
		return cli.ErrUnknownCommand(args.Unknown)
	case cli.CmdConfig:
		return cli.RunConfig(os.Stdout, args)
	}

	app, err := cli.Bootstrap(args)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	switch cmd {
	case cli.CmdAsk:
		return cli.RunAsk(ctx, app, args, os.Stdin)
	case cli.CmdChat:
		return cli.RunChat(ctx, app, args)
	case cli.CmdKey:
		return cli.RunKey(app, args)
	case cli.CmdTheme:
		return cli.RunTheme(app, args)
	case cli.CmdHistory:
		return cli.RunHistory(ctx, app, args)
	default:
		return runTUI(app, args)
	}
}

// =============================================================================
// TUI
// =============================================================================

// runTUI runs the full-screen chat until the user quits.
func runTUI(app *cli.App, args cli.Args) error {
	if err := cli.RequiresTTY("start the chat interface"); err != nil {
		return err
	}
	if err := app.AttachFiles(args.Files); err != nil {
		return err
	}

	opts := chatui.Options{
		Controller:      app.Controller,
		Registry:        app.Registry,
		ModelName:       app.ModelName,
		Markdown:        app.Config.UI.Markdown,
		WordWrap:        app.Config.UI.WordWrap,
		ShowSuggestions: app.Config.UI.ShowSuggestions,
		InitErr:         app.InitErr,
	}
	if app.Archive != nil {
		opts.Archive = app.Archive
	}

	if app.Config.Files.Watch {
		watcher, err := filectx.NewWatcher(app.Files, func(c filectx.Change) {
			programMu.Lock()
			p := programRef
			programMu.Unlock()
			if p != nil {
				p.Send(chatui.FileChangedMsg{Change: c})
			}
		})
		if err != nil {
			log.Printf("WATCH_UNAVAILABLE | error=%v", err)
		} else {
			defer watcher.Close()
			for _, f := range app.Files.Files() {
				if f.Path == "" {
					continue
				}
				if err := watcher.Track(f.Path); err != nil {
					log.Printf("WATCH_TRACK_FAILED | path=%s error=%v", f.Path, err)
				}
			}
			opts.Watch = watcher.Track
		}
	}

	p := tea.NewProgram(
		chatui.New(opts),
		tea.WithAltScreen(),
	)

	programMu.Lock()
	programRef = p
	programMu.Unlock()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running megabot: %w", err)
	}
	return nil
}
