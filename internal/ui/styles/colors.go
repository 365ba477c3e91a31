// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// BRAND COLORS
// =============================================================================

// Pink - Brand accent: prompts, focus rings, the send affordance
var Pink = lipgloss.AdaptiveColor{Light: "#D81B60", Dark: "#F06292"}

// Purple - Second stop of the greeting gradient, bot label
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Red - Error turns and failed commands
var Red = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"}

// Green - Confirmations (key saved, file attached)
var Green = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#22C55E"}

// Amber - Confirmation prompts
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// Surface - Modal and popup background
var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#111827"}

// SurfaceDim - Status bar, suggestion cards, avatars
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F1F5F9", Dark: "#1F2937"}

// Overlay - Borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E2E8F0", Dark: "#374151"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Message bodies
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}

// TextSecondary - Subheading, labels
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

// TextMuted - Hints and placeholders
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}

// TextInverse - Text on the brand color
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#111827"}

// GradientStops are the greeting colors, left to right.
var GradientStops = []lipgloss.AdaptiveColor{
	Pink,
	{Light: "#B0339F", Dark: "#D77BC7"},
	{Light: "#9637C7", Dark: "#BD84DD"},
	Purple,
}
