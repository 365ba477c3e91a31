// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"log"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	glamourstyles "github.com/charmbracelet/glamour/styles"

	"github.com/jeranaias/megabot/internal/prefs"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// MarkdownRenderer renders bot replies with glamour. The underlying
// TermRenderer is rebuilt lazily when the width or theme changes.
// It is safe for concurrent use.
type MarkdownRenderer struct {
	mu      sync.Mutex
	mode    prefs.Theme
	width   int
	enabled bool
	tr      *glamour.TermRenderer
	stale   bool
}

// NewMarkdownRenderer creates a renderer. With enabled=false Render returns
// its input unchanged.
func NewMarkdownRenderer(mode prefs.Theme, width int, enabled bool) *MarkdownRenderer {
	return &MarkdownRenderer{mode: mode, width: width, enabled: enabled, stale: true}
}

// SetWidth sets the wrap width.
func (r *MarkdownRenderer) SetWidth(width int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width != r.width {
		r.width = width
		r.stale = true
	}
}

// SetMode switches between the light and dark glamour styles.
func (r *MarkdownRenderer) SetMode(mode prefs.Theme) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mode != r.mode {
		r.mode = mode
		r.stale = true
	}
}

// Render renders markdown. The input is returned as-is when rendering is
// disabled or fails.
func (r *MarkdownRenderer) Render(text string) string {
	if text == "" {
		return ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return text
	}
	if r.stale {
		r.rebuild()
	}
	if r.tr == nil {
		return text
	}

	out, err := r.tr.Render(text)
	if err != nil {
		log.Printf("MARKDOWN_RENDER_FAILED | error=%v", err)
		return text
	}
	return strings.Trim(out, "\n")
}

func (r *MarkdownRenderer) rebuild() {
	r.stale = false

	style := glamourstyles.LightStyle
	if r.mode.IsDark() {
		style = glamourstyles.DarkStyle
	}
	opts := []glamour.TermRendererOption{
		glamour.WithStandardStyle(style),
		glamour.WithEmoji(),
	}
	if r.width > 0 {
		opts = append(opts, glamour.WithWordWrap(r.width))
	}

	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		log.Printf("MARKDOWN_INIT_FAILED | style=%s error=%v", style, err)
		r.tr = nil
		return
	}
	r.tr = tr
}
