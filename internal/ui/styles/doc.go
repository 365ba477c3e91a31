// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the lipgloss styles for the Mega-Bot TUI.

Colors are lipgloss.AdaptiveColor values. Instead of letting lipgloss guess
the terminal background, a Theme owns a renderer whose dark-background flag
comes from the stored light/dark preference, so toggling the theme re-resolves
every color:

	theme := styles.NewTheme(prefs.ThemeDark)
	fmt.Println(theme.UserLabel.Render("You"))

	theme = styles.NewTheme(theme.Mode.Toggle())
*/
package styles
