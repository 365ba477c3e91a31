// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prefs persists the user's preferences: the colour theme and the
// Gemini API key.
//
// Values live in a small key/value Store. FileStore keeps them in
// ~/.megabot/preferences.toml (mode 0600) and writes the file on every
// change, so a crash never loses a saved key. When no theme was saved the
// terminal's background colour decides between light and dark.
package prefs
