// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command-line parsing for megabot.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdKey
	CmdTheme
	CmdHistory
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command word.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdKey:
		return "key"
	case CmdTheme:
		return "theme"
	case CmdHistory:
		return "history"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	}
	return "unknown"
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	Model   string

	// Files are attached before the first message. Repeatable.
	Files []string

	// Command-specific
	Query      string
	Subcommand string

	// Raw holds the arguments after the command word.
	Raw []string

	// Unknown is the command word when Parse returns CmdUnknown.
	Unknown string
}

const usageText = `megabot - Mega-Bot, a Gemini business assistant for the terminal

Usage:
  megabot                         Start the TUI (default)
  megabot chat                    Line-edited chat in the current terminal
  megabot ask "question"          Ask a single question
  megabot key [set|clear|status]  Manage the Gemini API key
  megabot theme [light|dark|toggle]
                                  Show or change the theme
  megabot history [subcommand]    Saved transcripts
  megabot config [subcommand]     Configuration
  megabot version                 Show version information
  megabot help                    Show this help

History Commands:
  megabot history list            List saved transcripts (default)
  megabot history show <id>       Print a transcript
  megabot history export <id>     Export a transcript as markdown
    --output FILE                 Write to FILE instead of stdout
  megabot history delete <id>     Delete a transcript
  IDs may be shortened to any unique prefix of 4 or more characters.

Config Commands:
  megabot config show             Print the effective configuration (default)
  megabot config get <key>        Print one setting (e.g. provider.model)
  megabot config set <key> <val>  Change a setting in config.toml
  megabot config keys             List the setting names
  megabot config path             Show where megabot keeps its files

Global Flags:
  -m, --model NAME                Gemini model for this run
  -f, --file PATH                 Attach a file (repeatable; ask, chat, tui)
  -q, --quiet                     Minimal output
  -v, --verbose                   Write debug logs (TUI: ~/.megabot/debug.log)

Chat Commands (TUI and chat):
  /help, /attach, /detach, /files, /reset, /key, /forget-key,
  /theme, /copy, /save, /quit

Environment:
  MEGABOT_HOME                    Directory for config, preferences and history
  MEGABOT_MODEL, MEGABOT_BASE_URL, MEGABOT_MARKDOWN, ...
                                  Override config.toml (a .env file is read too)

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "megabot version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
}

// Parse parses command-line arguments (without the program name) and
// returns the command and args.
func Parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining
	if len(remaining) > 0 {
		parsedArgs.Subcommand = strings.ToLower(remaining[0])
	}

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "chat", "repl":
		return CmdChat, parsedArgs

	case "ask", "a":
		parsedArgs.Subcommand = ""
		parsedArgs.Query = strings.Join(remaining, " ")
		return CmdAsk, parsedArgs

	case "key":
		return CmdKey, parsedArgs

	case "theme":
		return CmdTheme, parsedArgs

	case "history", "transcripts":
		return CmdHistory, parsedArgs

	case "config":
		return CmdConfig, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		parsedArgs.Unknown = cmd
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
// Everything after "--" is positional.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "--":
			return append(remaining, args[i+1:]...), parsedArgs
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "-m", "--model":
			if i+1 < len(args) {
				i++
				parsedArgs.Model = args[i]
			}
		case "-f", "--file":
			if i+1 < len(args) {
				i++
				parsedArgs.Files = append(parsedArgs.Files, args[i])
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--model="):
				parsedArgs.Model = strings.TrimPrefix(arg, "--model=")
			case strings.HasPrefix(arg, "--file="):
				parsedArgs.Files = append(parsedArgs.Files, strings.TrimPrefix(arg, "--file="))
			default:
				remaining = append(remaining, arg)
			}
		}
	}

	return remaining, parsedArgs
}
