// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"time"
)

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "USER"
	SenderBot  Sender = "BOT"
)

// DisplayName returns the label shown next to a message.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderBot:
		return "Mega-Bot"
	default:
		return string(s)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one entry of the timeline.
type Message struct {
	ID        int64     `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	IsError   bool      `json:"is_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAwaitingFirstFragment reports whether m is a bot placeholder that has
// not received any text yet.
func (m Message) IsAwaitingFirstFragment() bool {
	return m.Sender == SenderBot && m.Text == "" && !m.IsError
}

// =============================================================================
// ID GENERATION
// =============================================================================

// IDSource mints message IDs from the wall clock in milliseconds. IDs are
// strictly increasing: two IDs minted in the same millisecond, or after the
// clock stepped backwards, continue from the previous value.
type IDSource struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDSource returns an IDSource backed by time.Now.
func NewIDSource() *IDSource {
	return &IDSource{now: time.Now}
}

// Next returns the next ID.
func (s *IDSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	id := now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}
