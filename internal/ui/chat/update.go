// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	convo "github.com/jeranaias/megabot/internal/chat"
	"github.com/jeranaias/megabot/internal/commands"
	"github.com/jeranaias/megabot/internal/filectx"
	"github.com/jeranaias/megabot/internal/provider"
	"github.com/jeranaias/megabot/internal/ui/components"
	"github.com/jeranaias/megabot/internal/util"
)

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.theme.SetSize(msg.Width, msg.Height)

	m.input.SetWidth(msg.Width - 4)
	m.keyInput.Width = 48
	m.markdown.SetWidth(m.theme.ContentWidth(m.opts.WordWrap))
	m.cache.reset()

	m.previewVP.Width = msg.Width
	m.previewVP.Height = msg.Height - 3
	if m.modal == modalPreview {
		m.preview.Width = msg.Width
		m.previewVP.SetContent(m.preview.View())
	}

	m.layout()
	m.refresh(true)
	return m, nil
}

// layout sizes the viewport around the input, the popup and the status bar.
func (m *Model) layout() {
	inputHeight := inputLines + 2
	h := m.height - inputHeight - 1 - m.popupHeight()
	if h < 1 {
		h = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keyMap.Quit) {
		return m.quit()
	}
	if m.modal != modalNone {
		return m.handleModalKey(msg)
	}

	switch {
	case key.Matches(msg, m.keyMap.Cancel):
		if m.completion.Visible {
			m.completion.Clear()
			m.layout()
			return m, nil
		}
		if m.ctrl.Cancel() {
			log.Printf("TUI_CANCEL | generation=%d", m.ctrl.Generation())
		}
		return m, nil

	case key.Matches(msg, m.keyMap.ToggleTheme):
		mode, err := m.ctrl.Preferences().ToggleTheme()
		if err != nil {
			m.addNote(err.Error(), true)
		}
		m.applyTheme(mode)
		m.refresh(false)
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.completion.Visible {
		switch {
		case key.Matches(msg, m.keyMap.PrevItem):
			m.completion.Prev()
			return m, nil
		case key.Matches(msg, m.keyMap.NextItem):
			m.completion.Next()
			return m, nil
		case key.Matches(msg, m.keyMap.Complete):
			m.acceptCompletion()
			return m, nil
		}
	} else if key.Matches(msg, m.keyMap.Complete) {
		m.updateCompletions()
		if len(m.completion.Completions) == 1 {
			m.acceptCompletion()
		}
		return m, nil
	}

	if key.Matches(msg, m.keyMap.Suggestion) && m.suggestionsActive() {
		n, _ := strconv.Atoi(msg.String())
		w := components.NewWelcome(m.theme)
		if text, ok := w.SuggestionAt(n); ok {
			return m.send(text)
		}
	}

	if key.Matches(msg, m.keyMap.Submit) {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.completion.Visible || commands.IsCommand(m.input.Value()) {
		m.updateCompletions()
	}
	return m, cmd
}

// suggestionsActive reports whether number keys pick a suggestion.
func (m Model) suggestionsActive() bool {
	return m.opts.ShowSuggestions &&
		m.ctrl.HasSession() &&
		m.ctrl.Timeline().IsEmpty() &&
		m.input.Value() == ""
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	if commands.IsCommand(text) {
		res, _ := m.registry.Execute(m.env, text)
		m.input.Reset()
		m.completion.Clear()
		m.layout()
		return m.applyResult(res)
	}
	return m.send(text)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.ctrl.Close()
	m.stream = nil
	m.quitting = true
	return m, tea.Quit
}

// =============================================================================
// SENDING
// =============================================================================

func (m Model) send(text string) (tea.Model, tea.Cmd) {
	turn, err := m.ctrl.Begin(m.env.Ctx, text)
	switch {
	case errors.Is(err, convo.ErrNoSession):
		m.openKeyModal()
		return m, nil
	case errors.Is(err, convo.ErrBusy):
		m.addNote("Wait for the reply to finish, or press esc to cancel it.", true)
		m.refresh(true)
		return m, nil
	case err != nil:
		m.addNote(err.Error(), true)
		m.refresh(true)
		return m, nil
	}

	m.input.Reset()
	m.completion.Clear()
	m.layout()

	run := newStreamRun()
	m.stream = run
	go m.ctrl.Consume(turn, run.emit)

	m.refresh(true)
	return m, tea.Batch(run.waitForEnd(), run.tick(), m.spinner.Tick)
}

func (m Model) handleStreamTick(msg StreamTickMsg) (tea.Model, tea.Cmd) {
	if msg.run == nil || msg.run != m.stream {
		return m, nil
	}
	if ev, ok := m.stream.buffer.Flush(); ok {
		if m.ctrl.Handle(ev) == convo.OutcomeUpdated {
			m.refresh(false)
		}
	}
	return m, m.stream.tick()
}

func (m Model) handleStreamEnd(msg StreamEndMsg) (tea.Model, tea.Cmd) {
	if msg.run != nil {
		msg.run.buffer.Reset()
		if msg.run == m.stream {
			m.stream = nil
		}
	}

	switch m.ctrl.Handle(msg.Event) {
	case convo.OutcomeNeedCredential:
		m.keyErr = provider.Describe(msg.Event.Err) + ". Please enter a valid key."
		m.openKeyModal()
		m.styleInputs()
	case convo.OutcomeStale:
		return m, nil
	}
	m.refresh(false)
	return m, nil
}

// =============================================================================
// COMMAND RESULTS
// =============================================================================

func (m Model) applyResult(res commands.Result) (tea.Model, tea.Cmd) {
	switch res.Action {
	case commands.ActionQuit:
		return m.quit()

	case commands.ActionConfirmReset:
		m.openConfirm(modalConfirmReset, "New conversation", res.Message)

	case commands.ActionConfirmForgetKey:
		m.openConfirm(modalConfirmForgetKey, "Forget API key", res.Message)

	case commands.ActionPromptKey:
		if res.Message != "" {
			m.addNote(res.Message, false)
		}
		m.keyErr = ""
		m.openKeyModal()
		m.styleInputs()

	case commands.ActionThemeChanged:
		m.applyTheme(res.Theme)
		m.addNote(res.Message, false)

	case commands.ActionPreviewFile:
		m.openPreview(res.File)

	default:
		if res.Err != nil {
			m.addNote(res.Err.Error(), true)
		} else if res.Message != "" {
			m.addNote(res.Message, false)
		}
	}
	m.styleInputs()
	m.refresh(true)
	return m, nil
}

func (m Model) handleFileChanged(msg FileChangedMsg) (tea.Model, tea.Cmd) {
	c := msg.Change
	switch {
	case c.Removed:
		m.addNote(fmt.Sprintf("%s was deleted and removed from context", c.Name), true)
	case c.Err != nil:
		m.addNote(fmt.Sprintf("Could not reload %s: %v", c.Name, c.Err), true)
	default:
		if f, ok := m.ctrl.Files().Get(c.Name); ok {
			m.addNote(fmt.Sprintf("Reloaded %s (%s)", c.Name, util.FormatBytes(f.Size)), false)
		}
	}
	m.refresh(false)
	return m, nil
}

// =============================================================================
// MODALS
// =============================================================================

func (m *Model) openKeyModal() {
	m.modal = modalKey
	m.keyInput.Reset()
	m.keyInput.Focus()
	m.input.Blur()
}

func (m *Model) openConfirm(kind modalKind, title, question string) {
	m.modal = kind
	m.confirm = components.NewConfirmModal(m.theme, title, question)
	m.input.Blur()
}

func (m *Model) openPreview(f filectx.File) {
	m.modal = modalPreview
	m.preview = components.NewFilePreview(f, m.theme)
	m.preview.Width = m.width
	m.previewVP.SetContent(m.preview.View())
	m.previewVP.GotoTop()
	m.input.Blur()
}

func (m *Model) closeModal() {
	m.modal = modalNone
	m.keyInput.Blur()
	m.input.Focus()
}

func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalKey:
		return m.handleKeyModal(msg)
	case modalPreview:
		if key.Matches(msg, m.keyMap.Deny) || msg.String() == "q" || key.Matches(msg, m.keyMap.Submit) {
			m.closeModal()
			return m, nil
		}
		var cmd tea.Cmd
		m.previewVP, cmd = m.previewVP.Update(msg)
		return m, cmd
	}

	// Confirmation modals
	switch {
	case key.Matches(msg, m.keyMap.Confirm):
		return m.confirmModal()
	case key.Matches(msg, m.keyMap.Deny):
		m.closeModal()
	case key.Matches(msg, m.keyMap.SwitchFocus):
		m.confirm.NextButton()
	case key.Matches(msg, m.keyMap.Submit):
		if m.confirm.Confirmed() {
			return m.confirmModal()
		}
		m.closeModal()
	}
	return m, nil
}

func (m Model) confirmModal() (tea.Model, tea.Cmd) {
	kind := m.modal
	m.closeModal()
	var res commands.Result
	switch kind {
	case modalConfirmReset:
		res = commands.ConfirmReset(m.env)
	case modalConfirmForgetKey:
		res = commands.ConfirmForgetKey(m.env)
	}
	return m.applyResult(res)
}

func (m Model) handleKeyModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		m.keyErr = ""
		m.closeModal()
		m.refresh(true)
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		res := commands.SetKey(m.env, m.keyInput.Value())
		if res.Err != nil {
			m.keyErr = provider.Describe(res.Err)
			m.keyInput.Reset()
			return m, nil
		}
		m.keyErr = ""
		m.closeModal()
		m.addNote(res.Message, false)
		m.styleInputs()
		m.refresh(true)
		return m, nil
	}

	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return m, cmd
}

// =============================================================================
// COMPLETION
// =============================================================================

func (m *Model) updateCompletions() {
	m.completion.Update(m.completer.Complete(m.input.Value()))
	m.layout()
}

// acceptCompletion replaces the word before the cursor with the selection.
func (m *Model) acceptCompletion() {
	value := m.completion.Accept()
	if value == "" {
		return
	}
	current := m.input.Value()
	head := current[:strings.LastIndex(current, " ")+1]
	if strings.ContainsAny(value, " \t") {
		value = `"` + value + `"`
	}
	next := head + value
	if !strings.HasSuffix(value, string(os.PathSeparator)) {
		next += " "
	}
	m.input.SetValue(next)
	m.input.CursorEnd()
	m.updateCompletions()
	if len(m.completion.Completions) == 0 {
		m.completion.Clear()
		m.layout()
	}
}

// =============================================================================
// NOTES
// =============================================================================

func (m *Model) addNote(text string, isErr bool) {
	m.pruneNotes()
	var after int64
	if last, ok := m.ctrl.Timeline().Last(); ok {
		after = last.ID
	}
	m.notes = append(m.notes, note{
		afterID:    after,
		generation: m.ctrl.Generation(),
		text:       text,
		isErr:      isErr,
	})
}

// pruneNotes drops notes of an abandoned conversation.
func (m *Model) pruneNotes() {
	gen := m.ctrl.Generation()
	kept := m.notes[:0]
	for _, n := range m.notes {
		if n.generation == gen {
			kept = append(kept, n)
		}
	}
	m.notes = kept
}
