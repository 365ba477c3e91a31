// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jeranaias/megabot/internal/provider"
)

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader reads server-sent events.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader wraps r.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent returns the data of the next event, joining multi-line data
// fields with "\n". It returns io.EOF at the end of the body.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil && !(err == io.EOF && len(line) > 0) {
			if err == io.EOF && len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			if err == io.EOF {
				return nil, io.EOF
			}
			continue
		}

		// id:, event:, retry: and ":" comments are not used by the API.
		if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[len("data:"):]))
		}
	}
}

// =============================================================================
// STREAM
// =============================================================================

// Stream is the reply to one message.
type Stream struct {
	ctx    context.Context
	body   io.ReadCloser
	events *SSEReader

	reply    strings.Builder
	onDone   func(reply string)
	onClose  func()
	err      error
	closeOne sync.Once
}

func newStream(ctx context.Context, body io.ReadCloser, onDone func(string), onClose func()) *Stream {
	return &Stream{
		ctx:     ctx,
		body:    body,
		events:  NewSSEReader(body),
		onDone:  onDone,
		onClose: onClose,
	}
}

// Recv returns the next non-empty fragment. After the last fragment it
// returns io.EOF and records the turn in the session history. Once Recv
// has returned an error it keeps returning it.
func (s *Stream) Recv() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	for {
		data, err := s.events.ReadEvent()
		if err == io.EOF {
			return "", s.finish()
		}
		if err != nil {
			return "", s.fail(contextError(s.ctx, err))
		}
		if bytes.Equal(data, []byte("[DONE]")) {
			return "", s.finish()
		}

		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return "", s.fail(fmt.Errorf("%w: malformed stream event: %v", provider.ErrTransport, err))
		}
		if chunk.Error != nil {
			return "", s.fail(classify(&provider.ProviderError{
				Status:  chunk.Error.Code,
				Code:    chunk.Error.Status,
				Message: chunk.Error.Message,
			}, chunk.Error.reason()))
		}
		if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
			return "", s.fail(&provider.ProviderError{
				Code:    chunk.PromptFeedback.BlockReason,
				Message: "prompt was blocked",
			})
		}

		text := chunk.text()
		if reason := chunk.finishReason(); blockedFinishReasons[reason] && text == "" {
			return "", s.fail(&provider.ProviderError{
				Code:    reason,
				Message: "response was blocked",
			})
		}
		if text == "" {
			continue
		}
		s.reply.WriteString(text)
		return text, nil
	}
}

// Close releases the connection.
func (s *Stream) Close() error {
	var err error
	s.closeOne.Do(func() {
		err = s.body.Close()
		if s.onClose != nil {
			s.onClose()
		}
		if s.err == nil {
			s.err = errors.New("stream closed")
		}
	})
	return err
}

func (s *Stream) finish() error {
	s.err = io.EOF
	if s.onDone != nil {
		s.onDone(s.reply.String())
		s.onDone = nil
	}
	s.Close()
	return io.EOF
}

func (s *Stream) fail(err error) error {
	s.err = err
	s.onDone = nil
	s.Close()
	return err
}
