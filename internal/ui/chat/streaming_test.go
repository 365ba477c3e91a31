// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"testing"
	"time"

	convo "github.com/jeranaias/megabot/internal/chat"
	"github.com/jeranaias/megabot/internal/model"
)

func fragment(text string) convo.Event {
	return convo.Event{Kind: convo.EventFragment, Text: text}
}

// =============================================================================
// STREAMING BUFFER TESTS
// =============================================================================

func TestStreamingBufferKeepsLatest(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write(fragment("a"))
	sb.Write(fragment("ab"))
	if sb.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", sb.Pending())
	}
	sb.Write(fragment("abc"))

	ev, ok := sb.Flush()
	if !ok {
		t.Fatal("Flush() should return the buffered event")
	}
	if ev.Text != "abc" {
		t.Errorf("Flush() text = %q, want the latest accumulation", ev.Text)
	}
	if sb.Pending() != 0 {
		t.Errorf("Pending() after flush = %d", sb.Pending())
	}
	if _, ok := sb.Flush(); ok {
		t.Error("second Flush() should have nothing to return")
	}
}

func TestStreamingBufferEmpty(t *testing.T) {
	sb := NewStreamingBuffer()
	if _, ok := sb.Flush(); ok {
		t.Error("empty buffer should not flush")
	}
}

func TestStreamingBufferReset(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write(fragment("dropped"))
	sb.Reset()
	if _, ok := sb.Flush(); ok {
		t.Error("Reset() should drop the pending event")
	}
	if sb.Pending() != 0 {
		t.Errorf("Pending() after Reset() = %d", sb.Pending())
	}
}

func TestStreamingBufferConcurrentWrites(t *testing.T) {
	sb := NewStreamingBuffer()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sb.Write(fragment("x"))
			}
		}()
	}
	wg.Wait()

	if sb.Pending() != 1000 {
		t.Errorf("Pending() = %d, want 1000", sb.Pending())
	}
}

// =============================================================================
// STREAM RUN TESTS
// =============================================================================

func TestStreamRunRoutesEvents(t *testing.T) {
	run := newStreamRun()

	run.emit(fragment("he"))
	run.emit(convo.Event{Kind: convo.EventDone, Text: "hello"})

	if run.buffer.Pending() != 1 {
		t.Errorf("fragments should go to the buffer, pending = %d", run.buffer.Pending())
	}

	msg := run.waitForEnd()()
	end, ok := msg.(StreamEndMsg)
	if !ok {
		t.Fatalf("waitForEnd() produced %T", msg)
	}
	if end.Event.Kind != convo.EventDone || end.Event.Text != "hello" || end.run != run {
		t.Errorf("unexpected end message %+v", end)
	}
}

func TestStreamRunTickCarriesRun(t *testing.T) {
	run := newStreamRun()
	start := time.Now()

	msg := run.tick()()
	tick, ok := msg.(StreamTickMsg)
	if !ok {
		t.Fatalf("tick() produced %T", msg)
	}
	if tick.run != run {
		t.Error("tick should belong to its run")
	}
	if elapsed := time.Since(start); elapsed < time.Second/streamFPS/2 {
		t.Errorf("tick fired after %v", elapsed)
	}
}

// =============================================================================
// RENDER CACHE TESTS
// =============================================================================

func TestRenderCache(t *testing.T) {
	c := newRenderCache()
	msg := model.Message{ID: 1, Sender: model.SenderBot, Text: "hello"}

	if _, ok := c.get(msg); ok {
		t.Fatal("empty cache should miss")
	}
	c.put(msg, "rendered")
	if out, ok := c.get(msg); !ok || out != "rendered" {
		t.Errorf("get() = %q, %v", out, ok)
	}

	msg.Text = "hello again"
	if _, ok := c.get(msg); ok {
		t.Error("changed text should miss")
	}

	msg.Text = "hello"
	msg.IsError = true
	if _, ok := c.get(msg); ok {
		t.Error("error flag should change the key")
	}

	hits, misses := c.stats()
	if hits != 1 || misses != 3 {
		t.Errorf("stats = %d hits, %d misses", hits, misses)
	}
}

func TestRenderCachePrune(t *testing.T) {
	c := newRenderCache()
	a := model.Message{ID: 1, Text: "a"}
	b := model.Message{ID: 2, Text: "b"}
	c.put(a, "A")
	c.put(b, "B")

	c.prune([]model.Message{b})
	if _, ok := c.get(a); ok {
		t.Error("pruned entry should miss")
	}
	if _, ok := c.get(b); !ok {
		t.Error("live entry should survive prune")
	}

	c.reset()
	if _, ok := c.get(b); ok {
		t.Error("reset should drop everything")
	}
}
