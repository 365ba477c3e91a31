// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// TIMELINE
// =============================================================================

// Timeline is the ordered list of chat messages. It only grows, except for
// Clear, and the only in-place mutation allowed is on bot messages through
// SetText and SetError. Timeline is not safe for concurrent use; callers
// keep it on a single goroutine.
type Timeline struct {
	messages []Message
	index    map[int64]int
	ids      *IDSource
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return NewTimelineWithIDs(NewIDSource())
}

// NewTimelineWithIDs creates an empty timeline that draws IDs from ids.
func NewTimelineWithIDs(ids *IDSource) *Timeline {
	return &Timeline{
		index: make(map[int64]int),
		ids:   ids,
	}
}

// AppendTurn appends a user message with text followed by an empty bot
// placeholder. Both are added together and the bot ID is always greater
// than the user ID.
func (t *Timeline) AppendTurn(text string) (user, bot Message) {
	now := time.Now()
	user = Message{
		ID:        t.ids.Next(),
		Sender:    SenderUser,
		Text:      text,
		CreatedAt: now,
	}
	bot = Message{
		ID:        t.ids.Next(),
		Sender:    SenderBot,
		CreatedAt: now,
	}
	t.append(user)
	t.append(bot)
	return user, bot
}

func (t *Timeline) append(m Message) {
	t.index[m.ID] = len(t.messages)
	t.messages = append(t.messages, m)
}

// SetText replaces the text of bot message id. It returns false if the
// message is gone or is not a bot message.
func (t *Timeline) SetText(id int64, text string) bool {
	m := t.botMessage(id)
	if m == nil {
		return false
	}
	m.Text = text
	m.IsError = false
	return true
}

// SetError replaces the text of bot message id and flags it as an error.
func (t *Timeline) SetError(id int64, text string) bool {
	m := t.botMessage(id)
	if m == nil {
		return false
	}
	m.Text = text
	m.IsError = true
	return true
}

func (t *Timeline) botMessage(id int64) *Message {
	i, ok := t.index[id]
	if !ok || t.messages[i].Sender != SenderBot {
		return nil
	}
	return &t.messages[i]
}

// Get returns the message with the given id.
func (t *Timeline) Get(id int64) (Message, bool) {
	i, ok := t.index[id]
	if !ok {
		return Message{}, false
	}
	return t.messages[i], true
}

// Has reports whether a message with id is still in the timeline.
func (t *Timeline) Has(id int64) bool {
	_, ok := t.index[id]
	return ok
}

// Last returns the most recent message.
func (t *Timeline) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// LastBot returns the most recent bot message that has text.
func (t *Timeline) LastBot() (Message, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if m := t.messages[i]; m.Sender == SenderBot && m.Text != "" {
			return m, true
		}
	}
	return Message{}, false
}

// Messages returns a copy of the timeline in order.
func (t *Timeline) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Timeline) Len() int {
	return len(t.messages)
}

// IsEmpty reports whether the timeline has no messages.
func (t *Timeline) IsEmpty() bool {
	return len(t.messages) == 0
}

// Clear removes every message. IDs keep increasing afterwards.
func (t *Timeline) Clear() {
	t.messages = nil
	t.index = make(map[int64]int)
}
