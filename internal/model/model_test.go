// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
	"time"
)

// =============================================================================
// ID SOURCE TESTS
// =============================================================================

func TestIDSource_SameMillisecond(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	ids := &IDSource{now: func() time.Time { return fixed }}

	a, b, c := ids.Next(), ids.Next(), ids.Next()
	if a != fixed.UnixMilli() {
		t.Errorf("first id = %d, want %d", a, fixed.UnixMilli())
	}
	if b != a+1 || c != b+1 {
		t.Errorf("ids not strictly increasing: %d %d %d", a, b, c)
	}
}

func TestIDSource_ClockStepsBack(t *testing.T) {
	clock := time.UnixMilli(2_000)
	ids := &IDSource{now: func() time.Time { return clock }}

	first := ids.Next()
	clock = time.UnixMilli(1_000)
	second := ids.Next()
	if second <= first {
		t.Errorf("id went backwards: %d then %d", first, second)
	}
}

// =============================================================================
// TIMELINE TESTS
// =============================================================================

func TestTimeline_AppendTurn(t *testing.T) {
	tl := NewTimeline()
	user, bot := tl.AppendTurn("Hello")

	if tl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tl.Len())
	}
	msgs := tl.Messages()
	if msgs[0].Sender != SenderUser || msgs[1].Sender != SenderBot {
		t.Errorf("order = %s, %s; want USER, BOT", msgs[0].Sender, msgs[1].Sender)
	}
	if user.ID == bot.ID || bot.ID <= user.ID {
		t.Errorf("ids not distinct and increasing: user=%d bot=%d", user.ID, bot.ID)
	}
	if user.Text != "Hello" {
		t.Errorf("user text = %q", user.Text)
	}
	if !bot.IsAwaitingFirstFragment() {
		t.Error("bot placeholder should be awaiting its first fragment")
	}
}

func TestTimeline_SetTextOverwrites(t *testing.T) {
	tl := NewTimeline()
	_, bot := tl.AppendTurn("q")

	for _, text := range []string{"Hi", "Hi there"} {
		if !tl.SetText(bot.ID, text) {
			t.Fatalf("SetText(%q) returned false", text)
		}
	}
	got, _ := tl.Get(bot.ID)
	if got.Text != "Hi there" || got.IsError {
		t.Errorf("bot = %+v", got)
	}
}

func TestTimeline_SetTextRejectsUserAndUnknown(t *testing.T) {
	tl := NewTimeline()
	user, _ := tl.AppendTurn("q")

	if tl.SetText(user.ID, "edited") {
		t.Error("user messages must not be mutable")
	}
	if tl.SetText(12345, "x") {
		t.Error("unknown id must not be mutable")
	}
}

func TestTimeline_SetError(t *testing.T) {
	tl := NewTimeline()
	_, bot := tl.AppendTurn("q")
	tl.SetText(bot.ID, "partial")

	if !tl.SetError(bot.ID, "Error: boom") {
		t.Fatal("SetError returned false")
	}
	got, _ := tl.Get(bot.ID)
	if !got.IsError || got.Text != "Error: boom" {
		t.Errorf("bot = %+v", got)
	}
	if got.IsAwaitingFirstFragment() {
		t.Error("an errored message is not a placeholder")
	}
}

func TestTimeline_ClearKeepsIDsUnique(t *testing.T) {
	tl := NewTimeline()
	_, before := tl.AppendTurn("one")
	tl.Clear()

	if !tl.IsEmpty() {
		t.Fatal("timeline not empty after Clear")
	}
	if tl.Has(before.ID) {
		t.Error("cleared message still reachable")
	}
	if tl.SetText(before.ID, "late fragment") {
		t.Error("SetText on a cleared message must fail")
	}

	user, _ := tl.AppendTurn("two")
	if user.ID <= before.ID {
		t.Errorf("id reused after clear: %d <= %d", user.ID, before.ID)
	}
}

func TestTimeline_LastBot(t *testing.T) {
	tl := NewTimeline()
	if _, ok := tl.LastBot(); ok {
		t.Error("LastBot on empty timeline")
	}
	_, b1 := tl.AppendTurn("a")
	tl.SetText(b1.ID, "first answer")
	tl.AppendTurn("b")

	got, ok := tl.LastBot()
	if !ok || got.ID != b1.ID {
		t.Errorf("LastBot = %+v, %v; want the answered message", got, ok)
	}
}

func TestTimeline_MessagesIsCopy(t *testing.T) {
	tl := NewTimeline()
	_, bot := tl.AppendTurn("a")
	msgs := tl.Messages()
	msgs[1].Text = "tampered"

	got, _ := tl.Get(bot.ID)
	if got.Text != "" {
		t.Error("Messages() must return a copy")
	}
}
