// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	convo "github.com/jeranaias/megabot/internal/chat"
	"github.com/jeranaias/megabot/internal/filectx"
	"github.com/jeranaias/megabot/internal/prefs"
	"github.com/jeranaias/megabot/internal/provider"
)

// =============================================================================
// FIXTURES
// =============================================================================

// scriptedProvider replies with fragments; hang keeps the stream open until
// the request is cancelled.
type scriptedProvider struct {
	fragments []string
	hang      bool
	sendErr   error
}

func (p *scriptedProvider) NewSession(apiKey, _ string) (provider.Session, error) {
	if apiKey == "bad" {
		return nil, provider.ErrInvalidAPIKey
	}
	return &scriptedSession{p: p}, nil
}

type scriptedSession struct{ p *scriptedProvider }

func (s *scriptedSession) SendAndStream(ctx context.Context, text string) (provider.Stream, error) {
	if s.p.sendErr != nil {
		return nil, s.p.sendErr
	}
	frags := s.p.fragments
	if frags == nil {
		frags = []string{"echo: " + text}
	}
	return &scriptedStream{ctx: ctx, fragments: frags, hang: s.p.hang}, nil
}

type scriptedStream struct {
	ctx       context.Context
	fragments []string
	hang      bool
}

func (s *scriptedStream) Recv() (string, error) {
	if len(s.fragments) > 0 {
		f := s.fragments[0]
		s.fragments = s.fragments[1:]
		return f, nil
	}
	if s.hang {
		<-s.ctx.Done()
		return "", s.ctx.Err()
	}
	return "", io.EOF
}

func (s *scriptedStream) Close() error { return nil }

func newTestModel(t *testing.T, p *scriptedProvider, withKey bool) Model {
	t.Helper()
	pr := prefs.New(prefs.NewMemoryStore(), func() prefs.Theme { return prefs.ThemeDark })
	if withKey {
		require.NoError(t, pr.SetAPIKey("key"))
	}
	ctrl := convo.NewController(p, pr, filectx.New(), convo.Options{StallTimeout: -1})
	initErr := ctrl.Init()

	m := New(Options{
		Controller:      ctrl,
		ModelName:       "test-model",
		ShowSuggestions: true,
		Clipboard:       func(string) error { return nil },
		InitErr:         initErr,
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func enter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func typeAndSubmit(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.SetValue(text)
	m, _ = press(t, m, enter())
	return m
}

// finishTurn waits for the in-flight send to end and applies the result.
func finishTurn(t *testing.T, m Model) Model {
	t.Helper()
	run := m.stream
	require.NotNil(t, run, "no send in flight")
	select {
	case ev := <-run.end:
		updated, _ := m.Update(StreamEndMsg{Event: ev, run: run})
		return updated.(Model)
	case <-time.After(2 * time.Second):
		t.Fatal("send did not finish")
		return m
	}
}

func screen(m Model) string {
	return ansi.Strip(m.View())
}

// =============================================================================
// KEY PROMPT
// =============================================================================

func TestStartsWithKeyPromptWithoutKey(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, false)

	assert.Equal(t, modalKey, m.modal)
	assert.Contains(t, screen(m), "Enter your Gemini API key")
}

func TestKeyPromptRejectsInvalidKey(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, false)

	m.keyInput.SetValue("bad")
	m, _ = press(t, m, enter())

	assert.Equal(t, modalKey, m.modal, "modal stays open")
	assert.Contains(t, m.keyErr, "API key not valid")
	assert.False(t, m.ctrl.HasSession())
}

func TestKeyPromptAcceptsKey(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, false)

	m.keyInput.SetValue("  good-key  ")
	m, _ = press(t, m, enter())

	assert.Equal(t, modalNone, m.modal)
	assert.True(t, m.ctrl.HasSession())
	key, _ := m.ctrl.Preferences().APIKey()
	assert.Equal(t, "good-key", key)
	assert.Contains(t, screen(m), "Hello, there")
}

func TestKeyPromptEscShowsNeedKeyNotice(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, false)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, modalNone, m.modal)
	assert.Contains(t, screen(m), convo.NeedKeyText)
}

// =============================================================================
// SENDING
// =============================================================================

func TestSendStreamsReply(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, true)

	m = typeAndSubmit(t, m, "hi")
	require.True(t, m.ctrl.Busy())
	assert.Equal(t, "", m.input.Value(), "input cleared on send")
	assert.Equal(t, 2, m.ctrl.Timeline().Len())

	m = finishTurn(t, m)
	assert.False(t, m.ctrl.Busy())
	assert.Nil(t, m.stream)

	bot, ok := m.ctrl.Timeline().LastBot()
	require.True(t, ok)
	assert.Equal(t, "echo: hi", bot.Text)
	assert.Contains(t, screen(m), "echo: hi")
}

func TestBlankInputIsIgnored(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, true)

	m = typeAndSubmit(t, m, "   ")
	assert.True(t, m.ctrl.Timeline().IsEmpty())
	assert.Nil(t, m.stream)
}

func TestSuggestionKeySends(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, true)

	m, _ = press(t, m, runes("2"))
	m = finishTurn(t, m)

	msgs := m.ctrl.Timeline().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, convo.Suggestions[1], msgs[0].Text)
}

func TestSuggestionKeyTypesOnceConversationStarted(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, true)
	m = finishTurn(t, typeAndSubmit(t, m, "first"))

	m, _ = press(t, m, runes("1"))
	assert.Equal(t, "1", m.input.Value())
	assert.Equal(t, 2, m.ctrl.Timeline().Len())
}

func TestTickAppliesBufferedFragment(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{fragments: []string{"Hel", "lo"}, hang: true}, true)
	m = typeAndSubmit(t, m, "hi")

	require.Eventually(t, func() bool { return m.stream.buffer.Pending() == 2 }, time.Second, 5*time.Millisecond)

	updated, cmd := m.Update(StreamTickMsg{Time: time.Now(), run: m.stream})
	m = updated.(Model)
	assert.NotNil(t, cmd, "ticks continue while streaming")

	bot, _ := m.ctrl.Timeline().LastBot()
	assert.Equal(t, "Hello", bot.Text)
	assert.True(t, m.ctrl.Busy())

	m.ctrl.Close()
}

func TestTickChainEndsWhenSendIsReplaced(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{fragments: []string{}, hang: true}, true)
	m = typeAndSubmit(t, m, "hi")
	old := m.stream

	m = typeAndSubmit(t, m, "/reset")
	require.Equal(t, modalConfirmReset, m.modal)
	m, _ = press(t, m, runes("y"))
	m = typeAndSubmit(t, m, "again")
	require.NotSame(t, old, m.stream)

	updated, cmd := m.Update(StreamTickMsg{Time: time.Now(), run: old})
	m = updated.(Model)
	assert.Nil(t, cmd, "the abandoned send's ticks stop")

	_, cmd = m.Update(StreamTickMsg{Time: time.Now(), run: m.stream})
	assert.NotNil(t, cmd, "the current send keeps ticking")

	_, cmd = m.Update(StreamTickMsg{Time: time.Now()})
	assert.Nil(t, cmd)

	m.ctrl.Close()
}

func TestEscCancelsReply(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{fragments: []string{}, hang: true}, true)
	m = typeAndSubmit(t, m, "hi")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m = finishTurn(t, m)

	bot, _ := m.ctrl.Timeline().LastBot()
	assert.True(t, bot.IsError)
	assert.Contains(t, bot.Text, "request cancelled")
	assert.False(t, m.ctrl.Busy())
}

func TestInvalidKeyDuringSendReopensPrompt(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{sendErr: provider.ErrInvalidAPIKey}, true)
	m = typeAndSubmit(t, m, "hi")
	m = finishTurn(t, m)

	assert.Equal(t, modalKey, m.modal)
	assert.Contains(t, m.keyErr, "API key not valid")
	assert.False(t, m.ctrl.HasSession())
	assert.True(t, m.ctrl.Timeline().IsEmpty())
}

func TestStaleStreamEndIsIgnored(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{fragments: []string{}, hang: true}, true)
	m = typeAndSubmit(t, m, "hi")
	run := m.stream

	// Reset abandons the turn; its end arrives afterwards.
	m = typeAndSubmit(t, m, "/reset")
	require.Equal(t, modalConfirmReset, m.modal)
	m, _ = press(t, m, runes("y"))
	require.True(t, m.ctrl.Timeline().IsEmpty())

	ev := <-run.end
	updated, _ := m.Update(StreamEndMsg{Event: ev, run: run})
	m = updated.(Model)
	assert.True(t, m.ctrl.Timeline().IsEmpty())
	assert.False(t, m.ctrl.Busy())
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestResetConfirmation(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, true)
	m = finishTurn(t, typeAndSubmit(t, m, "hi"))

	m = typeAndSubmit(t, m, "/reset")
	require.Equal(t, modalConfirmReset, m.modal)
	assert.Contains(t, strings.Join(strings.Fields(screen(m)), " "), "Are you sure you want to delete the chat history?")

	m, _ = press(t, m, runes("n"))
	assert.Equal(t, modalNone, m.modal)
	assert.Equal(t, 2, m.ctrl.Timeline().Len(), "declining keeps the conversation")

	m = typeAndSubmit(t, m, "/reset")
	m, _ = press(t, m, runes("y"))
	assert.True(t, m.ctrl.Timeline().IsEmpty())
	assert.True(t, m.ctrl.HasSession())
}

func TestThemeCommand(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, true)
	require.Equal(t, prefs.ThemeDark, m.Theme())

	m = typeAndSubmit(t, m, "/theme light")
	assert.Equal(t, prefs.ThemeLight, m.Theme())
	assert.Equal(t, prefs.ThemeLight, m.ctrl.Preferences().Theme())

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, prefs.ThemeDark, m.Theme())
}

func TestUnknownCommandShowsError(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, true)

	m = typeAndSubmit(t, m, "/nope")
	assert.Contains(t, screen(m), "unknown command /nope")
	assert.True(t, m.ctrl.Timeline().IsEmpty())
}

func TestForgetKeyOpensPrompt(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, true)

	m = typeAndSubmit(t, m, "/forget-key")
	require.Equal(t, modalConfirmForgetKey, m.modal)
	m, _ = press(t, m, runes("y"))

	assert.Equal(t, modalKey, m.modal)
	_, ok := m.ctrl.Preferences().APIKey()
	assert.False(t, ok)
}

func TestFilePreview(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, true)
	require.NoError(t, m.ctrl.Files().Add("notes.txt", []byte("alpha\nbeta\n")))

	m = typeAndSubmit(t, m, "/files notes.txt")
	require.Equal(t, modalPreview, m.modal)
	assert.Contains(t, screen(m), "beta")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modalNone, m.modal)
	assert.Contains(t, screen(m), "1 file(s) in context")
}

func TestQuitCommand(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, true)

	m.input.SetValue("/quit")
	updated, cmd := m.Update(enter())
	m = updated.(Model)

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, "", m.View())
}

func TestCtrlCQuitsFromModal(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, false)

	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

// =============================================================================
// COMPLETION AND FILES
// =============================================================================

func TestTabCompletesCommand(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, true)

	m.input.SetValue("/the")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})

	assert.Equal(t, "/theme ", m.input.Value())
}

func TestCompletionPopupNavigation(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, true)

	m.input.SetValue("/")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, m.completion.Visible)
	first := m.completion.Accept()

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.NotEqual(t, first, m.completion.Accept())

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.completion.Visible)
}

func TestFileChangedNote(t *testing.T) {
	m := newTestModel(t, &scriptedProvider{}, true)

	updated, _ := m.Update(FileChangedMsg{Change: filectx.Change{Name: "gone.txt", Removed: true}})
	m = updated.(Model)
	assert.Contains(t, screen(m), "gone.txt was deleted and removed from context")
}
