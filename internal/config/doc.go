// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and saves the megabot configuration.
//
// # Configuration Precedence
//
// Settings are resolved in this order, later entries winning:
//   - Built-in defaults
//   - ~/.megabot/config.toml (or $MEGABOT_HOME/config.toml)
//   - A .env file in the working directory
//   - Environment variables (MEGABOT_*)
//
// The API key and theme are not configuration; they live in the
// preferences store (package prefs).
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stall := cfg.Provider.StallTimeout()
package config
