// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the chat message types and the message timeline.
//
// # Key Types
//
//   - Message: one chat entry (ID, sender, text, error flag)
//   - Sender: USER or BOT
//   - Timeline: append-only message list with in-place updates for the
//     bot reply that is currently streaming
//   - IDSource: monotonic, clock-derived message IDs
//
// # Usage
//
//	tl := model.NewTimeline()
//	_, bot := tl.AppendTurn("Hello")
//	tl.SetText(bot.ID, "Hi")
//	tl.SetText(bot.ID, "Hi there")
package model
