// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	convo "github.com/jeranaias/megabot/internal/chat"
	"github.com/jeranaias/megabot/internal/filectx"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamTickMsg is sent at 30fps while a reply streams. Each send has its
// own tick chain, which stops once the send is no longer current.
type StreamTickMsg struct {
	Time time.Time
	run  *streamRun
}

// StreamEndMsg carries the EventDone or EventFailed that ended a send.
type StreamEndMsg struct {
	Event convo.Event
	run   *streamRun
}

// =============================================================================
// FILE MESSAGES
// =============================================================================

// FileChangedMsg reports that an attached file was reloaded from disk.
// Send it from the watcher callback with tea.Program.Send.
type FileChangedMsg struct {
	Change filectx.Change
}
