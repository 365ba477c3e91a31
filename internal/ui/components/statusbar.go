// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/megabot/internal/ui/styles"
	"github.com/jeranaias/megabot/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar shows the model, the attached-file summary, the busy state and
// the key hints on one line.
type StatusBar struct {
	Width int
	Model string

	// Files is the aggregator summary, "" when nothing is attached.
	Files string

	Busy    bool
	Spinner string

	theme *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) StatusBar {
	return StatusBar{Width: 80, theme: theme}
}

// View renders the bar. Sections are dropped from the right when the
// terminal is narrow.
func (s StatusBar) View() string {
	t := s.theme
	sep := t.ShortcutDesc.Render(" | ")

	left := []string{t.StatusModel.Render(s.Model)}
	if s.Files != "" {
		left = append(left, t.StatusFiles.Render(s.Files))
	}
	if s.Busy {
		left = append(left, t.StatusBusy.Render(strings.TrimSpace(s.Spinner+" thinking")))
	}
	leftStr := strings.Join(left, sep)

	var hints []string
	if s.Busy {
		hints = append(hints, s.hint("esc", "cancel"))
	}
	hints = append(hints, s.hint("/help", "commands"), s.hint("ctrl+c", "quit"))

	inner := s.Width - 2
	for len(hints) > 0 {
		right := strings.Join(hints, t.ShortcutDesc.Render("  "))
		gap := inner - lipgloss.Width(leftStr) - lipgloss.Width(right)
		if gap >= 1 {
			return t.StatusBar.Width(s.Width).Render(leftStr + t.ShortcutDesc.Render(strings.Repeat(" ", gap)) + right)
		}
		hints = hints[:len(hints)-1]
	}

	if lipgloss.Width(leftStr) > inner {
		leftStr = t.StatusModel.Render(util.TruncateWidth(s.Model, inner))
	}
	return t.StatusBar.Width(s.Width).Render(leftStr)
}

func (s StatusBar) hint(key, desc string) string {
	return s.theme.ShortcutKey.Render(key) + s.theme.ShortcutDesc.Render(" "+desc)
}
