// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeranaias/megabot/internal/provider"
)

// EventKind distinguishes stream events.
type EventKind int

const (
	// EventFragment carries the accumulated reply so far.
	EventFragment EventKind = iota
	// EventDone carries the complete reply.
	EventDone
	// EventFailed carries the error that ended the send.
	EventFailed
)

// Event is one step of a send, produced by Consume.
type Event struct {
	Turn Turn
	Kind EventKind

	// Text is the full accumulated reply, not the latest fragment.
	Text string

	Err error
}

// Consume sends the turn's payload and reports the reply through emit:
// one EventFragment per fragment, then exactly one EventDone or
// EventFailed. It blocks until the stream ends and may run on any
// goroutine; emit is called on the calling goroutine.
//
// A watchdog fails the send with provider.ErrStreamStalled when no
// fragment arrives within the stall timeout. Each fragment re-arms it.
func (c *Controller) Consume(turn Turn, emit func(Event)) {
	parent := turn.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	var watchdog *time.Timer
	if stall := c.stallTimeout; stall > 0 {
		stalled := fmt.Errorf("%w: no data received for %s", provider.ErrStreamStalled, stall)
		watchdog = time.AfterFunc(stall, func() { cancel(stalled) })
		defer watchdog.Stop()
	}

	fail := func(err error) {
		emit(Event{Turn: turn, Kind: EventFailed, Err: streamError(ctx, err)})
	}

	if turn.session == nil {
		fail(ErrNoSession)
		return
	}
	stream, err := turn.session.SendAndStream(ctx, turn.Payload)
	if err != nil {
		fail(err)
		return
	}
	defer stream.Close()

	var reply strings.Builder
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			emit(Event{Turn: turn, Kind: EventDone, Text: reply.String()})
			return
		}
		if err != nil {
			fail(err)
			return
		}
		// A fragment that raced the watchdog still loses.
		if ctx.Err() != nil {
			fail(ctx.Err())
			return
		}
		if watchdog != nil {
			watchdog.Reset(c.stallTimeout)
		}
		reply.WriteString(fragment)
		emit(Event{Turn: turn, Kind: EventFragment, Text: reply.String()})
	}
}

// streamError reports why ctx ended in preference to the error the
// cancellation surfaced as.
func streamError(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return err
}
