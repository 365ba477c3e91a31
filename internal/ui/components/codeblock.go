// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/megabot/internal/filectx"
	"github.com/jeranaias/megabot/internal/prefs"
	"github.com/jeranaias/megabot/internal/ui/styles"
	"github.com/jeranaias/megabot/internal/util"
)

// DefaultPreviewLines is how many lines of an attached file are shown.
const DefaultPreviewLines = 200

// =============================================================================
// FILE PREVIEW
// =============================================================================

// FilePreview renders an attached file with syntax highlighting and line
// numbers.
type FilePreview struct {
	File     filectx.File
	MaxLines int
	Width    int
	theme    *styles.Theme
}

// NewFilePreview creates a preview of f.
func NewFilePreview(f filectx.File, theme *styles.Theme) FilePreview {
	return FilePreview{
		File:     f,
		MaxLines: DefaultPreviewLines,
		Width:    80,
		theme:    theme,
	}
}

// View renders the header and the highlighted content.
func (p FilePreview) View() string {
	t := p.theme
	content := strings.TrimRight(p.File.Content, "\n")
	lines := strings.Split(content, "\n")

	hidden := 0
	if p.MaxLines > 0 && len(lines) > p.MaxLines {
		hidden = len(lines) - p.MaxLines
		lines = lines[:p.MaxLines]
	}

	highlighted := strings.Split(Highlight(p.File.Name, strings.Join(lines, "\n"), t.Mode), "\n")
	rendered := make([]string, 0, len(highlighted)+1)
	for i, line := range highlighted {
		rendered = append(rendered, t.CodeLineNum.Render(fmt.Sprint(i+1))+line)
	}
	if hidden > 0 {
		rendered = append(rendered, t.SystemNote.Render(fmt.Sprintf("... %d more lines", hidden)))
	}

	header := t.FileHeader.Render(p.File.Name) + "  " +
		t.CompletionDesc.Render(util.FormatBytes(p.File.Size))
	if lang := LanguageFor(p.File.Name, content); lang != "" {
		header += "  " + t.CompletionDesc.Render(lang)
	}

	width := p.Width - 2
	if width < 20 {
		width = 20
	}
	return header + "\n" + t.CodeBlock.MaxWidth(width).Render(strings.Join(rendered, "\n"))
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// lexerFor picks a lexer from the file name, then from the content.
func lexerFor(name, code string) chroma.Lexer {
	lexer := lexers.Match(name)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	return lexer
}

// LanguageFor names the language chroma detects for a file, or "" when
// nothing matches.
func LanguageFor(name, code string) string {
	if lexer := lexerFor(name, code); lexer != nil {
		return lexer.Config().Name
	}
	return ""
}

// Highlight applies terminal syntax highlighting to code. The chroma style
// follows the theme. It returns code unchanged when highlighting fails.
func Highlight(name, code string, mode prefs.Theme) string {
	lexer := lexerFor(name, code)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "github"
	if mode.IsDark() {
		styleName = "monokai"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
