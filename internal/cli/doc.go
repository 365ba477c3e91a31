// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI front ends of
// megabot.
//
// # Key Types
//
//   - Command: Enumeration of the available subcommands
//   - Args: Parsed command-line arguments
//   - App: The wired application shared by every front end
//   - REPL: The line-edited chat loop behind "megabot chat"
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	app, err := cli.Bootstrap(args)
//	if err != nil {
//	    cli.DisplayError(os.Stderr, err)
//	    os.Exit(cli.GetExitCode(err))
//	}
//	defer app.Close()
//	switch cmd {
//	case cli.CmdAsk:
//	    err = cli.RunAsk(ctx, app, args)
//	case cli.CmdChat:
//	    err = cli.RunChat(ctx, app, args)
//	}
//
// # Commands Overview
//
//   - ask: One question, streamed or rendered as markdown
//   - chat: Interactive REPL sharing the TUI slash commands
//   - key: Store, clear or inspect the Gemini API key
//   - theme: Show or change the stored theme
//   - history: List, show, export and delete saved transcripts
//   - config: Show and edit config.toml
package cli
