// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the conversation controller: the state machine
// that turns a user message into a streamed bot reply while the user is
// free to reset the conversation or forget the API key.
//
// # Threading
//
// A Controller is not safe for concurrent use. Every method except Consume
// must be called from one goroutine (the bubbletea update loop or the REPL
// loop). Consume talks to the provider and may run on any goroutine; it
// reports back through Events, which the owning goroutine hands to Handle.
//
// # Sending
//
// The TUI drives a send in steps:
//
//	turn, err := ctrl.Begin(ctx, text)   // USER + placeholder BOT appended
//	go ctrl.Consume(turn, emit)           // fragments, then done or failed
//	outcome := ctrl.Handle(event)         // on the update loop, per event
//
// SendMessage runs the same steps synchronously for the REPL and tests.
//
// Every reset or credential change bumps a generation counter. Events for
// a turn of an older generation are dropped, so a reply that was in flight
// when the user reset the chat never reaches the new conversation.
package chat
