// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/megabot/internal/chat"
	"github.com/jeranaias/megabot/internal/filectx"
	"github.com/jeranaias/megabot/internal/prefs"
	"github.com/jeranaias/megabot/internal/provider"
	"github.com/jeranaias/megabot/internal/storage"
)

// =============================================================================
// FIXTURES
// =============================================================================

type echoProvider struct{}

func (echoProvider) NewSession(apiKey, _ string) (provider.Session, error) {
	if apiKey == "bad" {
		return nil, provider.ErrInvalidAPIKey
	}
	return echoSession{}, nil
}

type echoSession struct{}

func (echoSession) SendAndStream(_ context.Context, text string) (provider.Stream, error) {
	return &echoStream{text: text}, nil
}

type echoStream struct {
	text string
	done bool
}

func (s *echoStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	s.done = true
	return "echo: " + s.text, nil
}

func (s *echoStream) Close() error { return nil }

type fakeSaver struct {
	saved []*storage.Transcript
	err   error
}

func (f *fakeSaver) Save(_ context.Context, t *storage.Transcript) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, t)
	return "0123456789abcdef", nil
}

func newEnv(t *testing.T) *Env {
	t.Helper()
	pr := prefs.New(prefs.NewMemoryStore(), func() prefs.Theme { return prefs.ThemeLight })
	if err := pr.SetAPIKey("key"); err != nil {
		t.Fatal(err)
	}
	ctrl := chat.NewController(echoProvider{}, pr, filectx.New(), chat.Options{})
	if err := ctrl.Init(); err != nil {
		t.Fatal(err)
	}
	return &Env{Controller: ctrl, Archive: &fakeSaver{}, Model: "test-model"}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestIsCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"/help", true},
		{"  /help", true},
		{"hello", false},
		{"hello /help", false},
		{"", false},
		{"/", true},
	}
	for _, tc := range tests {
		if got := IsCommand(tc.input); got != tc.want {
			t.Errorf("IsCommand(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestSplitCommandLine(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"/attach a.txt b.md", []string{"/attach", "a.txt", "b.md"}},
		{`/attach "my notes.md"`, []string{"/attach", "my notes.md"}},
		{`/attach 'it''s.md'`, []string{"/attach", "its.md"}},
		{"/files   ", []string{"/files"}},
		{`/detach ""`, []string{"/detach", ""}},
	}
	for _, tc := range tests {
		got := splitCommandLine(tc.input)
		if strings.Join(got, "|") != strings.Join(tc.want, "|") || len(got) != len(tc.want) {
			t.Errorf("splitCommandLine(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParse(t *testing.T) {
	r := NewRegistry()

	res := r.Parse("/Theme dark")
	if !res.IsCommand || res.Command == nil || res.Command.Name != "/theme" {
		t.Fatalf("Parse(/Theme dark) = %+v", res)
	}
	if len(res.Args) != 1 || res.Args[0] != "dark" {
		t.Errorf("Args = %v", res.Args)
	}

	if r.Parse("hello").IsCommand {
		t.Error("plain text parsed as command")
	}
	if res := r.Parse("/nope"); res.Command != nil {
		t.Error("unknown command resolved")
	}
	if res := r.Parse("/q"); res.Command == nil || res.Command.Name != "/quit" {
		t.Error("alias /q should resolve to /quit")
	}
}

func TestValidateArgs(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"/attach", true},
		{"/attach a b c", false},
		{"/theme", false},
		{"/theme dark", false},
		{"/theme purple", true},
		{"/theme dark light", true},
		{"/files", false},
		{"/files a b", true},
		{"/reset now", true},
	}
	for _, tc := range tests {
		p := r.Parse(tc.input)
		err := ValidateArgs(p.Command, p.Args)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidateArgs(%q) = %v, wantErr %v", tc.input, err, tc.wantErr)
		}
	}
}

func TestExecute_NotCommandAndUnknown(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)

	if _, ok := r.Execute(env, "hello"); ok {
		t.Error("plain text should not execute")
	}
	res, ok := r.Execute(env, "/frobnicate")
	if !ok || res.Err == nil || !strings.Contains(res.Err.Error(), "unknown command /frobnicate") {
		t.Errorf("unknown command result = %+v", res)
	}
}

func TestHelpText(t *testing.T) {
	help := NewRegistry().HelpText()
	for _, want := range []string{"Conversation:", "Files:", "Settings:", "/attach <path>...", "/forget-key", "/copy"} {
		if !strings.Contains(help, want) {
			t.Errorf("HelpText() missing %q", want)
		}
	}
	if strings.Index(help, "Conversation:") > strings.Index(help, "Settings:") {
		t.Error("categories out of order")
	}
}

// =============================================================================
// HANDLER TESTS
// =============================================================================

func TestReset_Flow(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)

	res, _ := r.Execute(env, "/reset")
	if res.Action != ActionNone || !strings.Contains(res.Message, "already empty") {
		t.Errorf("reset on empty = %+v", res)
	}

	if _, err := env.Controller.SendMessage(context.Background(), "hi", nil); err != nil {
		t.Fatal(err)
	}
	res, _ = r.Execute(env, "/reset")
	if res.Action != ActionConfirmReset || res.Message != chat.ResetConfirmText {
		t.Fatalf("reset on non-empty = %+v", res)
	}
	if env.Controller.Timeline().IsEmpty() {
		t.Fatal("reset must not clear before confirmation")
	}

	res = ConfirmReset(env)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if !env.Controller.Timeline().IsEmpty() {
		t.Error("timeline not cleared")
	}
}

// revokingProvider accepts keys until revoked is set.
type revokingProvider struct {
	echoProvider
	revoked bool
}

func (p *revokingProvider) NewSession(apiKey, system string) (provider.Session, error) {
	if p.revoked {
		return nil, provider.ErrInvalidAPIKey
	}
	return p.echoProvider.NewSession(apiKey, system)
}

func TestConfirmResetPromptsForKeyWhenSessionFails(t *testing.T) {
	pr := prefs.New(prefs.NewMemoryStore(), func() prefs.Theme { return prefs.ThemeLight })
	if err := pr.SetAPIKey("key"); err != nil {
		t.Fatal(err)
	}
	p := &revokingProvider{}
	ctrl := chat.NewController(p, pr, filectx.New(), chat.Options{})
	if err := ctrl.Init(); err != nil {
		t.Fatal(err)
	}
	env := &Env{Controller: ctrl}
	if _, err := ctrl.SendMessage(context.Background(), "hi", nil); err != nil {
		t.Fatal(err)
	}

	p.revoked = true
	res := ConfirmReset(env)
	if res.Action != ActionPromptKey || res.Err != nil {
		t.Fatalf("ConfirmReset() = %+v, want a key prompt", res)
	}
	if !strings.Contains(res.Message, "enter a valid key") {
		t.Errorf("message = %q", res.Message)
	}
	if _, ok := pr.APIKey(); ok {
		t.Error("the rejected key should be removed")
	}
	if !ctrl.Timeline().IsEmpty() {
		t.Error("timeline not cleared")
	}
}

func TestAttachDetachFiles(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "b.md", "beta")
	big := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(big, make([]byte, filectx.MaxFileSize+1), 0644); err != nil {
		t.Fatal(err)
	}

	var watched []string
	env.Watch = func(p string) error {
		watched = append(watched, p)
		return nil
	}

	res, _ := r.Execute(env, "/attach "+a+" "+filepath.Join(dir, "b.md")+" "+big)
	if res.Err != nil {
		t.Fatalf("partial failure should not be an error: %v", res.Err)
	}
	for _, want := range []string{"Attached a.txt", "Attached b.md", `File "big.txt" is too large (max 5MB).`, "2 file(s) in context"} {
		if !strings.Contains(res.Message, want) {
			t.Errorf("attach message missing %q:\n%s", want, res.Message)
		}
	}
	if len(watched) != 2 {
		t.Errorf("watched = %v", watched)
	}

	res, _ = r.Execute(env, "/attach "+big)
	if res.Err == nil {
		t.Error("all-failed attach should return an error")
	}

	res, _ = r.Execute(env, "/files")
	if !strings.Contains(res.Message, "a.txt") || !strings.Contains(res.Message, "2 file(s) in context") {
		t.Errorf("/files = %q", res.Message)
	}

	res, _ = r.Execute(env, "/files a.txt")
	if res.Action != ActionPreviewFile || res.File.Content != "alpha" {
		t.Errorf("/files a.txt = %+v", res)
	}

	res, _ = r.Execute(env, "/detach a.txt ghost.txt")
	if !strings.Contains(res.Message, "Removed a.txt") || !strings.Contains(res.Message, "ghost.txt is not attached") {
		t.Errorf("/detach = %q", res.Message)
	}
	if env.Controller.Files().Len() != 1 {
		t.Errorf("Len() = %d, want 1", env.Controller.Files().Len())
	}
}

func TestCopy(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)

	var copied string
	env.Clipboard = func(s string) error {
		copied = s
		return nil
	}

	if res, _ := r.Execute(env, "/copy"); res.Err == nil {
		t.Error("/copy with no reply should fail")
	}

	if _, err := env.Controller.SendMessage(context.Background(), "hi", nil); err != nil {
		t.Fatal(err)
	}
	res, _ := r.Execute(env, "/copy")
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if copied != "echo: hi" {
		t.Errorf("copied %q", copied)
	}

	env.Clipboard = func(string) error { return errors.New("no clipboard utility") }
	if res, _ := r.Execute(env, "/copy"); res.Err == nil {
		t.Error("clipboard failure should surface")
	}
}

func TestSave(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)
	saver := env.Archive.(*fakeSaver)

	if _, err := env.Controller.SendMessage(context.Background(), "plan", nil); err != nil {
		t.Fatal(err)
	}
	res, _ := r.Execute(env, "/save")
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if !strings.Contains(res.Message, "01234567") {
		t.Errorf("/save = %q", res.Message)
	}
	if len(saver.saved) != 1 || saver.saved[0].Model != "test-model" || len(saver.saved[0].Messages) != 2 {
		t.Errorf("saved = %+v", saver.saved)
	}

	env.Archive = nil
	if res, _ := r.Execute(env, "/save"); res.Err == nil {
		t.Error("/save with archive disabled should fail")
	}
}

func TestKeyCommands(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)

	if res, _ := r.Execute(env, "/key"); res.Action != ActionPromptKey {
		t.Errorf("/key = %+v", res)
	}

	if res := SetKey(env, "   "); !errors.Is(res.Err, chat.ErrCredentialRequired) {
		t.Errorf("SetKey(blank) = %+v", res)
	}
	if res := SetKey(env, "bad"); res.Err == nil {
		t.Error("SetKey(bad) should fail")
	}
	if res := SetKey(env, "good"); res.Err != nil {
		t.Fatal(res.Err)
	}

	res, _ := r.Execute(env, "/forget-key")
	if res.Action != ActionConfirmForgetKey {
		t.Fatalf("/forget-key = %+v", res)
	}
	res = ConfirmForgetKey(env)
	if res.Action != ActionPromptKey {
		t.Errorf("ConfirmForgetKey = %+v", res)
	}
	if env.Controller.HasSession() {
		t.Error("session should be gone")
	}
	if res, _ := r.Execute(env, "/forget-key"); res.Err == nil {
		t.Error("/forget-key without key should fail")
	}
}

func TestTheme(t *testing.T) {
	r := NewRegistry()
	env := newEnv(t)

	res, _ := r.Execute(env, "/theme")
	if res.Action != ActionThemeChanged || res.Theme != prefs.ThemeDark {
		t.Errorf("/theme toggle = %+v", res)
	}
	res, _ = r.Execute(env, "/theme LIGHT")
	if res.Theme != prefs.ThemeLight {
		t.Errorf("/theme LIGHT = %+v", res)
	}
	if got := env.Controller.Preferences().Theme(); got != prefs.ThemeLight {
		t.Errorf("stored theme = %s", got)
	}
}

// =============================================================================
// COMPLETION TESTS
// =============================================================================

func TestComplete_Commands(t *testing.T) {
	c := NewCompleter(NewRegistry())

	got := c.Complete("/th")
	if len(got) != 1 || got[0].Value != "/theme" {
		t.Errorf("Complete(/th) = %+v", got)
	}
	if got := c.Complete("/"); len(got) != len(NewRegistry().All()) {
		t.Errorf("Complete(/) = %d candidates, want one per command", len(got))
	}
	if got := c.Complete("hello"); got != nil {
		t.Errorf("Complete(hello) = %+v", got)
	}
}

func TestComplete_Args(t *testing.T) {
	c := NewCompleter(NewRegistry())
	c.AttachedFn = func() []string { return []string{"notes.md", "data.csv"} }

	got := c.Complete("/theme d")
	if len(got) != 1 || got[0].Value != "dark" {
		t.Errorf("Complete(/theme d) = %+v", got)
	}
	got = c.Complete("/detach n")
	if len(got) != 1 || got[0].Value != "notes.md" {
		t.Errorf("Complete(/detach n) = %+v", got)
	}
	// Variadic arguments keep completing.
	got = c.Complete("/detach notes.md ")
	if len(got) != 2 {
		t.Errorf("Complete(/detach notes.md ) = %+v", got)
	}
	if got := c.Complete("/reset "); got != nil {
		t.Errorf("Complete(/reset ) = %+v", got)
	}
}

func TestComplete_Files(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "report.md", "x")
	writeFile(t, dir, "readme.txt", "x")
	writeFile(t, dir, ".hidden", "x")
	if err := os.Mkdir(filepath.Join(dir, "reports"), 0755); err != nil {
		t.Fatal(err)
	}

	c := NewCompleter(NewRegistry())
	got := c.Complete("/attach " + dir + "/re")
	if len(got) != 3 {
		t.Fatalf("Complete = %+v", got)
	}
	if got[0].Value != filepath.Join(dir, "reports")+string(os.PathSeparator) {
		t.Errorf("directories rank first, got %q", got[0].Value)
	}
	for _, comp := range c.Complete("/attach " + dir + "/") {
		if strings.HasPrefix(comp.Display, ".") {
			t.Errorf("hidden file offered: %q", comp.Display)
		}
	}
}

func TestLineCompleter(t *testing.T) {
	c := NewCompleter(NewRegistry())

	head, comps, tail := c.LineCompleter("/the", 4)
	if head != "" || tail != "" || len(comps) != 1 || comps[0] != "/theme" {
		t.Errorf("LineCompleter(/the) = %q %q %q", head, comps, tail)
	}

	head, comps, _ = c.LineCompleter("/theme li", 9)
	if head != "/theme " || len(comps) != 1 || comps[0] != "light" {
		t.Errorf("LineCompleter(/theme li) = %q %q", head, comps)
	}
}

func TestCompletionState(t *testing.T) {
	var cs CompletionState
	cs.Update([]Completion{{Value: "a"}, {Value: "b"}})
	if !cs.Visible || cs.Accept() != "a" {
		t.Fatalf("state = %+v", cs)
	}
	cs.Next()
	if cs.Accept() != "b" {
		t.Error("Next")
	}
	cs.Next()
	cs.Prev()
	if cs.Accept() != "b" {
		t.Error("Prev wraps")
	}
	cs.Clear()
	if cs.Visible || cs.Accept() != "" {
		t.Error("Clear")
	}
}
