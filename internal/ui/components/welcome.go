// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/megabot/internal/chat"
	"github.com/jeranaias/megabot/internal/ui/styles"
)

// =============================================================================
// WELCOME SCREEN
// =============================================================================

// Welcome is shown while the conversation is empty. Without a session it
// asks for a key instead of offering suggestions.
type Welcome struct {
	Width       int
	Height      int
	HasSession  bool
	Suggestions []string
	theme       *styles.Theme
}

// NewWelcome creates the welcome screen with the default suggestions.
func NewWelcome(theme *styles.Theme) Welcome {
	return Welcome{
		Width:       80,
		Height:      24,
		Suggestions: chat.Suggestions,
		theme:       theme,
	}
}

// SetSize sets the available area.
func (w *Welcome) SetSize(width, height int) {
	w.Width = width
	w.Height = height
}

// View renders the greeting and either the suggestions or the key notice.
func (w Welcome) View() string {
	if !w.HasSession {
		return w.renderNeedKey()
	}

	t := w.theme
	var sb strings.Builder
	sb.WriteString(t.GradientText(chat.Greeting))
	sb.WriteString("\n")
	sb.WriteString(t.Subheading.Render(chat.Subheading))
	sb.WriteString("\n\n")

	cardWidth := w.Width - 8
	if cardWidth > 72 {
		cardWidth = 72
	}
	if cardWidth < 24 {
		cardWidth = 24
	}
	for i, s := range w.Suggestions {
		key := t.SuggestionKey.Render(fmt.Sprintf("%d", i+1))
		card := t.Suggestion.Width(cardWidth).Render(wordwrap.String(s, cardWidth-4))
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, key+" ", card))
		sb.WriteString("\n")
	}
	sb.WriteString(t.ModalHint.Render("Press 1-4 to ask a suggestion, or type below. /help lists commands."))

	return lipgloss.NewStyle().PaddingLeft(2).PaddingTop(1).Render(sb.String())
}

func (w Welcome) renderNeedKey() string {
	t := w.theme
	box := t.WelcomeBox.Render(
		t.WelcomeTitle.Render(chat.WelcomeText) + "\n\n" +
			t.WelcomeMessage.Render(chat.NeedKeyText) + "\n\n" +
			t.ModalHint.Render("Type /key to enter it."),
	)
	return lipgloss.Place(w.Width, w.Height, lipgloss.Center, lipgloss.Center, box)
}

// SuggestionAt returns the suggestion for a 1-based number key.
func (w Welcome) SuggestionAt(n int) (string, bool) {
	if n < 1 || n > len(w.Suggestions) {
		return "", false
	}
	return w.Suggestions[n-1], true
}
