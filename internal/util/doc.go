// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared across megabot.
//
// File Operations:
//   - AtomicWriteFile: crash-safe writes for config, preferences and history
//
// String Utilities:
//   - TruncateWidth, PadRight, StringWidth: column-aware text fitting
//   - FirstLine: summary line for transcript listings
//   - FormatBytes: human readable sizes for attached files
package util
