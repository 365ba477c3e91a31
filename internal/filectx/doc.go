// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package filectx holds the files a user attached to the conversation and
// renders them as the context block sent ahead of the next message.
//
// Files are keyed by name; attaching a file whose name is already present
// replaces the earlier content. Files larger than MaxFileSize are refused
// before they are read. Content is decoded as UTF-8, or UTF-16 when the file
// starts with a byte order mark.
//
// A Watcher can keep path-backed files in sync with the disk.
package filectx
