// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"errors"
	"sync"

	"github.com/jeranaias/megabot/internal/provider"
)

// ErrSendInProgress is returned when a second message is sent before the
// previous reply finished streaming.
var ErrSendInProgress = errors.New("a reply is still streaming")

// Session is one conversation with the model.
type Session struct {
	client *Client
	apiKey string
	system *Content

	mu      sync.Mutex
	history []Content
	busy    bool
}

// SendAndStream sends text as the next user turn.
func (s *Session) SendAndStream(ctx context.Context, text string) (provider.Stream, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrSendInProgress
	}
	s.busy = true
	user := textContent(RoleUser, text)
	contents := make([]Content, 0, len(s.history)+1)
	contents = append(contents, s.history...)
	contents = append(contents, user)
	s.mu.Unlock()

	resp, err := s.client.openStream(ctx, s.apiKey, generateRequest{
		Contents:          contents,
		SystemInstruction: s.system,
	})
	if err != nil {
		s.release()
		return nil, err
	}
	return newStream(ctx, resp.Body, func(reply string) { s.commit(user, reply) }, s.release), nil
}

// History returns a copy of the recorded turns.
func (s *Session) History() []Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Content, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) commit(user Content, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, user, textContent(RoleModel, reply))
}

func (s *Session) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}
