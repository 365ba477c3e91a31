// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	convo "github.com/jeranaias/megabot/internal/chat"
)

// streamFPS is the render rate while a reply streams.
const streamFPS = 30

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer coalesces fragment events between ticks. Events carry
// the whole reply so far, so only the latest one is kept.
//
// Write is called from the streaming goroutine and Flush from the Bubble
// Tea loop, so all operations take the mutex.
type StreamingBuffer struct {
	mu        sync.Mutex
	latest    convo.Event
	has       bool
	fragments int
}

// NewStreamingBuffer creates an empty buffer.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{}
}

// Write records a fragment event, replacing any unflushed one.
func (sb *StreamingBuffer) Write(ev convo.Event) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.latest = ev
	sb.has = true
	sb.fragments++
}

// Flush returns the latest unflushed event, if any.
func (sb *StreamingBuffer) Flush() (convo.Event, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if !sb.has {
		return convo.Event{}, false
	}
	ev := sb.latest
	sb.latest = convo.Event{}
	sb.has = false
	sb.fragments = 0
	return ev, true
}

// Reset drops any unflushed event.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.latest = convo.Event{}
	sb.has = false
	sb.fragments = 0
}

// Pending returns the number of fragments since the last flush.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.fragments
}

// =============================================================================
// STREAM RUN
// =============================================================================

// streamRun connects one Consume goroutine to the model.
type streamRun struct {
	buffer *StreamingBuffer
	end    chan convo.Event
}

func newStreamRun() *streamRun {
	return &streamRun{
		buffer: NewStreamingBuffer(),
		end:    make(chan convo.Event, 1),
	}
}

// emit is passed to Controller.Consume.
func (r *streamRun) emit(ev convo.Event) {
	if ev.Kind == convo.EventFragment {
		r.buffer.Write(ev)
		return
	}
	r.end <- ev
}

// waitForEnd delivers the terminal event as a StreamEndMsg.
func (r *streamRun) waitForEnd() tea.Cmd {
	return func() tea.Msg {
		return StreamEndMsg{Event: <-r.end, run: r}
	}
}

// tick schedules the run's next StreamTickMsg.
func (r *streamRun) tick() tea.Cmd {
	return tea.Tick(time.Second/streamFPS, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t, run: r}
	})
}
