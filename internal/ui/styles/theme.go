// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/megabot/internal/prefs"
)

// Theme holds all the styled components for the application.
type Theme struct {
	Mode         prefs.Theme
	ColorProfile termenv.Profile

	renderer *lipgloss.Renderer

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// WELCOME SCREEN STYLES
	// ==========================================================================

	Greeting       lipgloss.Style
	Subheading     lipgloss.Style
	Suggestion     lipgloss.Style
	SuggestionKey  lipgloss.Style
	WelcomeBox     lipgloss.Style
	WelcomeTitle   lipgloss.Style
	WelcomeMessage lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel    lipgloss.Style
	BotLabel     lipgloss.Style
	MessageBody  lipgloss.Style
	ErrorMessage lipgloss.Style
	SystemNote   lipgloss.Style
	Loading      lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	StatusModel  lipgloss.Style
	StatusFiles  lipgloss.Style
	StatusBusy   lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// MODAL STYLES
	// ==========================================================================

	Modal       lipgloss.Style
	ModalTitle  lipgloss.Style
	ModalText   lipgloss.Style
	ModalHint   lipgloss.Style
	Link        lipgloss.Style
	Button      lipgloss.Style
	ButtonFocus lipgloss.Style

	// ==========================================================================
	// COMPLETION POPUP STYLES
	// ==========================================================================

	CompletionPopup    lipgloss.Style
	CompletionItem     lipgloss.Style
	CompletionSelected lipgloss.Style
	CompletionDesc     lipgloss.Style

	// ==========================================================================
	// FILE PREVIEW STYLES
	// ==========================================================================

	FileHeader  lipgloss.Style
	CodeBlock   lipgloss.Style
	CodeLineNum lipgloss.Style

	Spinner lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
}

// NewTheme creates a theme for mode. Colors resolve against mode rather than
// the detected terminal background.
func NewTheme(mode prefs.Theme) *Theme {
	r := lipgloss.NewRenderer(os.Stdout)
	r.SetHasDarkBackground(mode.IsDark())

	t := &Theme{
		Mode:         mode,
		ColorProfile: r.ColorProfile(),
		renderer:     r,
	}
	t.initStyles()
	return t
}

// Renderer returns the renderer the styles were built with.
func (t *Theme) Renderer() *lipgloss.Renderer {
	return t.renderer
}

// NewStyle returns a style bound to the theme's renderer.
func (t *Theme) NewStyle() lipgloss.Style {
	return t.renderer.NewStyle()
}

func (t *Theme) initStyles() {
	s := t.renderer.NewStyle

	// Welcome
	t.Greeting = s().Bold(true).Foreground(Pink)
	t.Subheading = s().Foreground(TextSecondary)
	t.Suggestion = s().
		Foreground(TextPrimary).
		Background(SurfaceDim).
		Padding(0, 1).
		MarginBottom(1)
	t.SuggestionKey = s().Foreground(Pink).Bold(true)

	t.WelcomeBox = s().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Pink).
		Padding(1, 4).
		Align(lipgloss.Center)
	t.WelcomeTitle = s().Bold(true).Foreground(Pink)
	t.WelcomeMessage = s().Foreground(TextSecondary)

	// Messages
	t.UserLabel = s().Bold(true).Foreground(Pink)
	t.BotLabel = s().Bold(true).Foreground(Purple)
	t.MessageBody = s().Foreground(TextPrimary).PaddingLeft(2)
	t.ErrorMessage = s().Foreground(Red).PaddingLeft(2)
	t.SystemNote = s().Foreground(TextSecondary).Italic(true).PaddingLeft(2)
	t.Loading = s().Foreground(Overlay).PaddingLeft(2)

	// Input
	t.InputContainer = s().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = s().Foreground(Pink).Bold(true)
	t.InputPlaceholder = s().Foreground(TextMuted)

	// Status bar
	t.StatusBar = s().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusModel = s().Background(SurfaceDim).Foreground(Purple)
	t.StatusFiles = s().Background(SurfaceDim).Foreground(Green)
	t.StatusBusy = s().Background(SurfaceDim).Foreground(Pink)
	t.ShortcutKey = s().Background(SurfaceDim).Foreground(Pink).Bold(true)
	t.ShortcutDesc = s().Background(SurfaceDim).Foreground(TextMuted)

	// Modals
	t.Modal = s().
		Background(Surface).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Pink).
		Padding(1, 2)
	t.ModalTitle = s().Bold(true).Foreground(TextPrimary).MarginBottom(1)
	t.ModalText = s().Foreground(TextSecondary)
	t.ModalHint = s().Foreground(TextMuted).Italic(true).MarginTop(1)
	t.Link = s().Foreground(Pink).Underline(true)
	t.Button = s().
		Foreground(TextPrimary).
		Background(Overlay).
		Padding(0, 2).
		MarginRight(1)
	t.ButtonFocus = s().
		Foreground(TextInverse).
		Background(Pink).
		Bold(true).
		Padding(0, 2).
		MarginRight(1)

	// Completion popup
	t.CompletionPopup = s().
		Background(Surface).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.CompletionItem = s().Foreground(TextPrimary)
	t.CompletionSelected = s().Background(Pink).Foreground(TextInverse).Bold(true)
	t.CompletionDesc = s().Foreground(TextMuted)

	// File preview
	t.FileHeader = s().Bold(true).Foreground(Purple)
	t.CodeBlock = s().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.CodeLineNum = s().
		Foreground(TextMuted).
		Width(4).
		Align(lipgloss.Right).
		MarginRight(1)

	t.Spinner = s().Foreground(Pink)
	t.Success = s().Foreground(Green).Bold(true)
	t.Error = s().Foreground(Red).Bold(true)
	t.Warning = s().Foreground(Amber).Bold(true)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// ContentWidth is the width available to message bodies, capped so long
// lines stay readable on wide terminals.
func (t *Theme) ContentWidth(maxWidth int) int {
	w := t.Width - 4
	if maxWidth > 0 && w > maxWidth {
		w = maxWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

// GradientText renders s with the greeting gradient, one color band per
// stop. Bands split on rune boundaries.
func (t *Theme) GradientText(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return ""
	}
	stops := len(GradientStops)
	band := (len(runes) + stops - 1) / stops

	var sb strings.Builder
	for i := 0; i < len(runes); i += band {
		end := i + band
		if end > len(runes) {
			end = len(runes)
		}
		color := GradientStops[i/band]
		sb.WriteString(t.renderer.NewStyle().Bold(true).Foreground(color).Render(string(runes[i:end])))
	}
	return sb.String()
}

// =============================================================================
// STATUS HELPERS
// =============================================================================

// StatusIndicators are ASCII markers shown next to colored status text.
var StatusIndicators = struct {
	Success string
	Error   string
	Warning string
	Info    string
}{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
}

// RenderSuccess renders a success line with its indicator.
func (t *Theme) RenderSuccess(message string) string {
	return t.Success.Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error line with its indicator.
func (t *Theme) RenderError(message string) string {
	return t.Error.Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning line with its indicator.
func (t *Theme) RenderWarning(message string) string {
	return t.Warning.Render(StatusIndicators.Warning + " " + message)
}
