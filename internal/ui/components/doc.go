// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual building blocks of the Mega-Bot
// TUI: message rendering, the welcome screen, the status bar, modals, the
// completion popup and the file preview.
//
// Components are plain values with a View method. They hold no application
// state of their own; the chat model copies what they need before rendering.
package components
