// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/megabot/internal/model"
	"github.com/jeranaias/megabot/internal/ui/components"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m Model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	status := m.renderStatusBar()
	area := m.height - 1

	switch m.modal {
	case modalKey:
		modal := components.NewKeyModal(m.theme, m.keyInput.View(), m.keyErr)
		modal.SetSize(m.width, area)
		return modal.View() + "\n" + status

	case modalConfirmReset, modalConfirmForgetKey:
		modal := m.confirm
		modal.SetSize(m.width, area)
		return modal.View() + "\n" + status

	case modalPreview:
		hint := m.theme.ModalHint.Render("esc close  up/down scroll")
		return m.previewVP.View() + "\n" + hint + "\n" + status
	}

	var sb strings.Builder
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	if popup := m.renderPopup(); popup != "" {
		sb.WriteString(popup)
		sb.WriteString("\n")
	}
	sb.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	sb.WriteString("\n")
	sb.WriteString(status)
	return sb.String()
}

func (m Model) renderStatusBar() string {
	bar := components.NewStatusBar(m.theme)
	bar.Width = m.width
	bar.Model = m.opts.ModelName
	bar.Files = m.ctrl.Files().Summary()
	bar.Busy = m.ctrl.Busy()
	if bar.Busy {
		bar.Spinner = m.spinner.View()
	}
	return bar.View()
}

func (m Model) renderPopup() string {
	popup := components.NewCompletionPopup(m.theme, m.completion)
	popup.Width = m.width - 4
	return popup.View()
}

func (m Model) popupHeight() int {
	if popup := m.renderPopup(); popup != "" {
		return lipgloss.Height(popup)
	}
	return 0
}

// =============================================================================
// TIMELINE
// =============================================================================

// refresh re-renders the timeline into the viewport. The view follows the
// newest message when follow is set or the user was already at the bottom.
func (m *Model) refresh(follow bool) {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderContent())
	if follow || atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderContent() string {
	msgs := m.ctrl.Timeline().Messages()
	m.cache.prune(msgs)
	width := m.theme.ContentWidth(m.opts.WordWrap)

	notesAfter := make(map[int64][]string)
	var trailing []string
	known := make(map[int64]bool, len(msgs))
	for _, msg := range msgs {
		known[msg.ID] = true
	}
	gen := m.ctrl.Generation()
	for _, n := range m.notes {
		if n.generation != gen {
			continue
		}
		rendered := components.RenderNote(m.theme, n.text, n.isErr, width)
		if n.afterID == 0 || !known[n.afterID] {
			trailing = append(trailing, rendered)
			continue
		}
		notesAfter[n.afterID] = append(notesAfter[n.afterID], rendered)
	}

	var blocks []string
	if len(msgs) == 0 {
		w := components.NewWelcome(m.theme)
		w.HasSession = m.ctrl.HasSession()
		if !m.opts.ShowSuggestions {
			w.Suggestions = nil
		}
		w.SetSize(m.viewport.Width, m.viewport.Height-len(trailing))
		blocks = append(blocks, w.View())
	}

	for _, msg := range msgs {
		blocks = append(blocks, m.renderMessage(msg, width))
		blocks = append(blocks, notesAfter[msg.ID]...)
	}
	blocks = append(blocks, trailing...)
	return strings.Join(blocks, "\n\n")
}

// renderMessage renders msg, reusing the cached output of finished
// messages.
func (m *Model) renderMessage(msg model.Message, width int) string {
	streaming := msg.IsAwaitingFirstFragment() || (m.ctrl.Busy() && m.isPending(msg))
	if !streaming {
		if out, ok := m.cache.get(msg); ok {
			return out
		}
	}

	v := components.NewMessageView(msg, m.theme, m.markdown)
	v.Width = width
	v.Spinner = m.spinner.View()
	out := v.View()
	if !streaming {
		m.cache.put(msg, out)
	}
	return out
}

// isPending reports whether msg is the reply currently streaming.
func (m *Model) isPending(msg model.Message) bool {
	last, ok := m.ctrl.Timeline().Last()
	return ok && last.ID == msg.ID && msg.Sender == model.SenderBot
}
