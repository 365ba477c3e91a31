// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/megabot/internal/model"
	"github.com/jeranaias/megabot/internal/ui/styles"
)

// loadingBarWidth is the width of the longest placeholder bar.
const loadingBarWidth = 36

// =============================================================================
// MESSAGE VIEW
// =============================================================================

// MessageView renders one timeline message: the sender label, then the body.
type MessageView struct {
	Message model.Message
	Width   int

	// Spinner is the current spinner frame, shown while a bot message waits
	// for its first fragment.
	Spinner string

	markdown *MarkdownRenderer
	theme    *styles.Theme
}

// NewMessageView creates a view of msg. markdown may be nil to show bot
// replies as plain text.
func NewMessageView(msg model.Message, theme *styles.Theme, markdown *MarkdownRenderer) MessageView {
	return MessageView{
		Message:  msg,
		Width:    80,
		markdown: markdown,
		theme:    theme,
	}
}

// View renders the message.
func (v MessageView) View() string {
	return v.renderLabel() + "\n" + v.renderBody()
}

func (v MessageView) renderLabel() string {
	name := v.Message.Sender.DisplayName()
	if v.Message.Sender == model.SenderUser {
		return v.theme.UserLabel.Render(name)
	}
	label := v.theme.BotLabel.Render(name)
	if v.Message.IsAwaitingFirstFragment() && v.Spinner != "" {
		label += " " + v.theme.Spinner.Render(v.Spinner)
	}
	return label
}

func (v MessageView) renderBody() string {
	width := v.Width - 2
	if width < 20 {
		width = 20
	}
	msg := v.Message

	switch {
	case msg.IsAwaitingFirstFragment():
		return v.renderLoading(width)
	case msg.IsError:
		return v.theme.ErrorMessage.Render(wordwrap.String(msg.Text, width))
	case msg.Sender == model.SenderBot && v.markdown != nil:
		return v.markdown.Render(msg.Text)
	default:
		return v.theme.MessageBody.Render(wordwrap.String(msg.Text, width))
	}
}

// renderLoading draws three shrinking bars.
func (v MessageView) renderLoading(width int) string {
	full := loadingBarWidth
	if full > width {
		full = width
	}
	bars := make([]string, 0, 3)
	for _, pct := range []int{100, 80, 60} {
		bars = append(bars, v.theme.Loading.Render(strings.Repeat("━", full*pct/100)))
	}
	return strings.Join(bars, "\n")
}

// =============================================================================
// NOTES
// =============================================================================

// RenderNote renders command output shown between messages.
func RenderNote(theme *styles.Theme, text string, isErr bool, width int) string {
	if width < 20 {
		width = 20
	}
	wrapped := wordwrap.String(text, width-2)
	if isErr {
		return theme.ErrorMessage.Render(wrapped)
	}
	return theme.SystemNote.Render(wrapped)
}
