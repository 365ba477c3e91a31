// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/jeranaias/megabot/internal/model"
)

// =============================================================================
// RENDER CACHE
// =============================================================================

// renderCache keeps the rendered form of finished messages so markdown is
// not re-rendered for the whole timeline on every streaming tick. Entries
// are keyed by message ID and checked against a hash of the text, so an
// edited message misses. Reset drops everything; call it when the width or
// theme changes.
type renderCache struct {
	entries map[int64]cacheEntry
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	hash     string
	rendered string
}

func newRenderCache() *renderCache {
	return &renderCache{entries: make(map[int64]cacheEntry)}
}

func (c *renderCache) get(msg model.Message) (string, bool) {
	entry, ok := c.entries[msg.ID]
	if !ok || entry.hash != hashMessage(msg) {
		c.misses++
		return "", false
	}
	c.hits++
	return entry.rendered, true
}

func (c *renderCache) put(msg model.Message, rendered string) {
	c.entries[msg.ID] = cacheEntry{hash: hashMessage(msg), rendered: rendered}
}

// prune drops entries for messages no longer in the timeline.
func (c *renderCache) prune(msgs []model.Message) {
	if len(c.entries) <= len(msgs) {
		return
	}
	live := make(map[int64]bool, len(msgs))
	for _, m := range msgs {
		live[m.ID] = true
	}
	for id := range c.entries {
		if !live[id] {
			delete(c.entries, id)
		}
	}
}

func (c *renderCache) reset() {
	c.entries = make(map[int64]cacheEntry)
}

// stats returns hit and miss counts.
func (c *renderCache) stats() (hits, misses uint64) {
	return c.hits, c.misses
}

func hashMessage(msg model.Message) string {
	h := sha256.New()
	h.Write([]byte(msg.Text))
	if msg.IsError {
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
