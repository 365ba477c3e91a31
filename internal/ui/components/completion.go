// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/megabot/internal/commands"
	"github.com/jeranaias/megabot/internal/ui/styles"
	"github.com/jeranaias/megabot/internal/util"
)

// defaultMaxVisible is the number of completions shown at once.
const defaultMaxVisible = 8

// =============================================================================
// COMPLETION POPUP
// =============================================================================

// CompletionPopup renders a commands.CompletionState above the input.
type CompletionPopup struct {
	State      *commands.CompletionState
	Width      int
	MaxVisible int
	theme      *styles.Theme
}

// NewCompletionPopup creates a popup for state.
func NewCompletionPopup(theme *styles.Theme, state *commands.CompletionState) CompletionPopup {
	return CompletionPopup{
		State:      state,
		Width:      60,
		MaxVisible: defaultMaxVisible,
		theme:      theme,
	}
}

// View renders the visible window of completions, or "" when hidden.
func (c CompletionPopup) View() string {
	if c.State == nil || !c.State.Visible || len(c.State.Completions) == 0 {
		return ""
	}
	t := c.theme
	items := c.State.Completions

	// Keep the selection inside the window.
	start := 0
	if c.State.Selected >= c.MaxVisible {
		start = c.State.Selected - c.MaxVisible + 1
	}
	end := start + c.MaxVisible
	if end > len(items) {
		end = len(items)
	}

	nameWidth := 0
	for _, comp := range items[start:end] {
		if w := util.StringWidth(comp.Display); w > nameWidth {
			nameWidth = w
		}
	}
	if nameWidth > c.Width/2 {
		nameWidth = c.Width / 2
	}

	lines := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		comp := items[i]
		name := util.PadRight(util.TruncateWidth(comp.Display, nameWidth), nameWidth)
		desc := ""
		if comp.Description != "" {
			desc = "  " + util.TruncateWidth(comp.Description, c.Width-nameWidth-6)
		}
		if i == c.State.Selected {
			lines = append(lines, t.CompletionSelected.Render(name+desc))
		} else {
			lines = append(lines, t.CompletionItem.Render(name)+t.CompletionDesc.Render(desc))
		}
	}
	if len(items) > c.MaxVisible {
		lines = append(lines, t.CompletionDesc.Render(fmt.Sprintf("%d/%d", c.State.Selected+1, len(items))))
	}
	return t.CompletionPopup.Render(strings.Join(lines, "\n"))
}
