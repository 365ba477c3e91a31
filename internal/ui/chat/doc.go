// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea model for the interactive Mega-Bot UI.

The model owns the conversation controller: every controller call happens
inside Update, so the controller needs no locking. A send runs
Controller.Consume on its own goroutine; fragments land in a
StreamingBuffer and are applied on the next 30fps StreamTickMsg, while the
final EventDone or EventFailed arrives as a StreamEndMsg.

# Layout

	+--------------------------------------+
	| welcome screen or message timeline   |  viewport
	|                                      |
	+--------------------------------------+
	| completion popup (when typing /...)  |
	| > input                              |  textarea
	+--------------------------------------+
	| model | N file(s) in context | keys  |  status bar
	+--------------------------------------+

Modals (API key, confirmations, file preview) replace the whole screen
while open.

# Keys

	Enter        send / run command
	Ctrl+J       newline
	Esc          cancel the reply in progress, close modal
	Tab          accept completion
	Up/Down      move in the completion popup
	PgUp/PgDn    scroll
	Ctrl+T       toggle light/dark
	1-4          ask a suggestion (empty conversation)
	Ctrl+C       quit
*/
package chat
