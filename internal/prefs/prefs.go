// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prefs

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// Keys used in the Store.
const (
	KeyTheme  = "theme"
	KeyAPIKey = "apiKey"
)

// =============================================================================
// THEME
// =============================================================================

// Theme is the colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme parses "light" or "dark".
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("unknown theme %q (want light or dark)", s)
	}
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// IsDark reports whether t is the dark theme.
func (t Theme) IsDark() bool {
	return t == ThemeDark
}

// DetectTheme picks a theme from the terminal background colour.
func DetectTheme() Theme {
	if termenv.HasDarkBackground() {
		return ThemeDark
	}
	return ThemeLight
}

// =============================================================================
// PREFERENCES
// =============================================================================

// Preferences reads and writes the user's preferences.
type Preferences struct {
	store  Store
	detect func() Theme
}

// New wraps store. detect supplies the theme when none is stored; nil
// means DetectTheme.
func New(store Store, detect func() Theme) *Preferences {
	if detect == nil {
		detect = DetectTheme
	}
	return &Preferences{store: store, detect: detect}
}

// Theme returns the stored theme, or the detected one when none is stored
// or the stored value is not recognised.
func (p *Preferences) Theme() Theme {
	if v, ok := p.store.Get(KeyTheme); ok {
		if t, err := ParseTheme(v); err == nil {
			return t
		}
	}
	return p.detect()
}

// SetTheme stores t.
func (p *Preferences) SetTheme(t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	return p.store.Set(KeyTheme, string(t))
}

// ToggleTheme switches between light and dark and returns the new theme.
func (p *Preferences) ToggleTheme() (Theme, error) {
	next := p.Theme().Toggle()
	if err := p.SetTheme(next); err != nil {
		return "", err
	}
	return next, nil
}

// APIKey returns the stored API key.
func (p *Preferences) APIKey() (string, bool) {
	key, ok := p.store.Get(KeyAPIKey)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// SetAPIKey stores key.
func (p *Preferences) SetAPIKey(key string) error {
	return p.store.Set(KeyAPIKey, key)
}

// ClearAPIKey removes the stored key.
func (p *Preferences) ClearAPIKey() error {
	return p.store.Remove(KeyAPIKey)
}
