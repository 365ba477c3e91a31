// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/megabot/internal/config"
)

// SetupLogging routes the standard logger. Without --verbose logs are
// discarded. The TUI owns the terminal, so it logs to debug.log; the other
// commands log to stderr. The returned function closes the log file.
func SetupLogging(verbose, tui bool) (func(), error) {
	noop := func() {}
	if !verbose {
		log.SetOutput(io.Discard)
		return noop, nil
	}
	if !tui {
		log.SetOutput(os.Stderr)
		return noop, nil
	}

	if err := config.EnsureConfigDir(); err != nil {
		return noop, err
	}
	path, err := config.LogPath()
	if err != nil {
		return noop, err
	}
	f, err := tea.LogToFile(path, "megabot")
	if err != nil {
		return noop, err
	}
	return func() { f.Close() }, nil
}
