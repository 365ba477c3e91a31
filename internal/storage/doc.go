// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage archives chat transcripts in a local SQLite database.
//
// The live conversation only exists in memory; /save and the history
// command copy it here so it can be listed, shown, exported as markdown or
// deleted later. Transcripts are never fed back into a session.
//
// # Usage
//
//	store, err := storage.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	id, err := store.Save(ctx, storage.FromTimeline(timeline.Messages(), model))
//	metas, err := store.List(ctx)
//
// # Storage Location
//
// ~/.megabot/history.db by default (history.path in config.toml).
package storage
