// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/megabot/internal/ui/styles"
)

// APIKeyURL is where Gemini keys are issued.
const APIKeyURL = "https://aistudio.google.com/app/apikey"

// maxModalWidth caps modal boxes on wide terminals.
const maxModalWidth = 64

// =============================================================================
// MODALS
// =============================================================================

// Modal is a centered box with a title, a body and a hint line.
type Modal struct {
	Title string
	Body  string
	Hint  string

	// Buttons are rendered under the body; Focus indexes the active one.
	Buttons []string
	Focus   int

	Width  int
	Height int
	theme  *styles.Theme
}

// NewConfirmModal asks a yes/no question. "Cancel" is focused.
func NewConfirmModal(theme *styles.Theme, title, question string) Modal {
	return Modal{
		Title:   title,
		Body:    question,
		Hint:    "y confirm  n/esc cancel  tab switch",
		Buttons: []string{"Confirm", "Cancel"},
		Focus:   1,
		Width:   80,
		Height:  24,
		theme:   theme,
	}
}

// NewKeyModal frames the masked key input. input is the rendered
// textinput.
func NewKeyModal(theme *styles.Theme, input, errText string) Modal {
	body := theme.ModalText.Render("Mega-Bot uses the Gemini API. Paste your key below; it is stored only on this machine.") +
		"\n" + theme.Link.Render(APIKeyURL) + "\n\n" + input
	if errText != "" {
		body += "\n" + theme.RenderError(errText)
	}
	return Modal{
		Title:  "Enter your Gemini API key",
		Body:   body,
		Hint:   "enter save  esc close",
		Width:  80,
		Height: 24,
		theme:  theme,
	}
}

// SetSize sets the area the modal is centered in.
func (m *Modal) SetSize(width, height int) {
	m.Width = width
	m.Height = height
}

// Confirmed reports whether the confirm button has focus.
func (m Modal) Confirmed() bool {
	return len(m.Buttons) > 0 && m.Focus == 0
}

// NextButton moves focus to the next button.
func (m *Modal) NextButton() {
	if len(m.Buttons) > 0 {
		m.Focus = (m.Focus + 1) % len(m.Buttons)
	}
}

// View renders the modal centered in its area.
func (m Modal) View() string {
	t := m.theme
	width := m.Width - 8
	if width > maxModalWidth {
		width = maxModalWidth
	}
	if width < 24 {
		width = 24
	}

	var sb strings.Builder
	sb.WriteString(t.ModalTitle.Render(m.Title))
	sb.WriteString("\n")
	sb.WriteString(wordwrap.String(m.Body, width-4))

	if len(m.Buttons) > 0 {
		buttons := make([]string, len(m.Buttons))
		for i, label := range m.Buttons {
			if i == m.Focus {
				buttons[i] = t.ButtonFocus.Render(label)
			} else {
				buttons[i] = t.Button.Render(label)
			}
		}
		sb.WriteString("\n\n")
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	}
	if m.Hint != "" {
		sb.WriteString("\n")
		sb.WriteString(t.ModalHint.Render(m.Hint))
	}

	box := t.Modal.Width(width).Render(sb.String())
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, box)
}
