// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// isolate points the config directory at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)
	return dir
}

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and ReloadGlobal()
// can be safely called concurrently.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			c := Default()
			c.Provider.Model = "test-model"
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
		go func() {
			defer wg.Done()
			_ = ReloadGlobal()
		}()
	}
	wg.Wait()
}

func TestConfig_GlobalInitialization(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	cfg := Global()
	if cfg == nil {
		t.Fatal("Global() returned nil")
	}
	if cfg.Provider.StallTimeoutSecs != 60 {
		t.Errorf("StallTimeoutSecs = %d, want 60", cfg.Provider.StallTimeoutSecs)
	}

	custom := Default()
	custom.Version = "custom"
	SetGlobal(custom)
	if Global().Version != "custom" {
		t.Errorf("SetGlobal did not replace config, got %q", Global().Version)
	}
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Provider.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q", cfg.Provider.Model)
	}
	if got := cfg.Provider.StallTimeout().String(); got != "1m0s" {
		t.Errorf("StallTimeout() = %s, want 1m0s", got)
	}
	if len(cfg.Files.Extensions) != 7 {
		t.Errorf("Extensions = %v", cfg.Files.Extensions)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"valid default config", func(*Config) {}, ""},
		{"empty model", func(c *Config) { c.Provider.Model = "" }, "provider.model"},
		{"model with slash", func(c *Config) { c.Provider.Model = "a/b" }, "provider.model"},
		{"non-http base url", func(c *Config) { c.Provider.BaseURL = "ftp://example.com" }, "provider.base_url"},
		{"base url without host", func(c *Config) { c.Provider.BaseURL = "https://" }, "provider.base_url"},
		{"zero stall timeout", func(c *Config) { c.Provider.StallTimeoutSecs = 0 }, "provider.stall_timeout_secs"},
		{"huge connect timeout", func(c *Config) { c.Provider.ConnectTimeoutSecs = 601 }, "provider.connect_timeout_secs"},
		{"negative rate", func(c *Config) { c.Provider.RequestsPerMinute = -1 }, "provider.requests_per_minute"},
		{"narrow wrap", func(c *Config) { c.UI.WordWrap = 5 }, "ui.word_wrap"},
		{"extension with slash", func(c *Config) { c.Files.Extensions = []string{".md", "a/b"} }, "files.extensions"},
		{"negative history cap", func(c *Config) { c.History.MaxTranscripts = -3 }, "history.max_transcripts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verrs ValidateErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() = %v, want ValidateErrors", err)
			}
			if verrs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", verrs[0].Field, tt.field)
			}
		})
	}
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("provider.model")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != "gemini-2.5-flash" {
		t.Errorf("Get('provider.model') = %v", val)
	}

	if err := cfg.Set("provider.stall_timeout_secs", "90"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.Provider.StallTimeoutSecs != 90 {
		t.Errorf("StallTimeoutSecs = %d, want 90", cfg.Provider.StallTimeoutSecs)
	}

	if err := cfg.Set("files.extensions", ".md, .txt"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if strings.Join(cfg.Files.Extensions, "|") != ".md|.txt" {
		t.Errorf("Extensions = %v", cfg.Files.Extensions)
	}

	if err := cfg.Set("ui.markdown", "false"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if cfg.UI.Markdown {
		t.Error("Markdown should be false")
	}

	// An invalid value is rejected and the old value kept.
	if err := cfg.Set("ui.word_wrap", "3"); err == nil {
		t.Error("Set() with out-of-range value should fail")
	}
	if cfg.UI.WordWrap != 80 {
		t.Errorf("WordWrap = %d, want 80 after rejected Set", cfg.UI.WordWrap)
	}

	for _, key := range []string{"invalid.key", "provider", "provider.model.extra", "ui.word_wrap_x"} {
		if _, err := cfg.Get(key); err == nil {
			t.Errorf("Get(%q) should return error", key)
		}
	}
	if err := cfg.Set("provider.connect_timeout_secs", "soon"); err == nil {
		t.Error("Set() with non-integer should fail")
	}

	for _, key := range Keys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Keys() lists %q but Get fails: %v", key, err)
		}
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	cfg.Provider.Model = "gemini-2.5-pro"
	cfg.Files.Watch = true
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path := filepath.Join(dir, "config.toml")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config permissions = %o, want 600", perm)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Provider.Model != "gemini-2.5-pro" || !loaded.Files.Watch {
		t.Errorf("loaded = %+v", loaded.Provider)
	}
}

func TestConfig_LoadPartialFillsDefaults(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[provider]\nmodel = \"gemini-2.0-flash\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Provider.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q", cfg.Provider.Model)
	}
	if cfg.Provider.StallTimeoutSecs != 60 || cfg.UI.WordWrap != 80 {
		t.Errorf("defaults not filled: %+v %+v", cfg.Provider, cfg.UI)
	}
}

func TestConfig_LoadMissingAndCorrupt(t *testing.T) {
	dir := isolate(t)

	cfg, err := LoadFromPath(filepath.Join(dir, "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should load defaults: %v", err)
	}
	if cfg.Provider.Model != Default().Provider.Model {
		t.Errorf("Model = %q", cfg.Provider.Model)
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[provider\nmodel="), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(bad); err == nil {
		t.Error("corrupt file should fail to load")
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("MEGABOT_MODEL", "gemini-env")
	t.Setenv("MEGABOT_STALL_TIMEOUT_SECS", "15")
	t.Setenv("MEGABOT_FILE_EXTENSIONS", ".go,.md")
	t.Setenv("MEGABOT_WATCH_FILES", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider.Model != "gemini-env" {
		t.Errorf("Model = %q", cfg.Provider.Model)
	}
	if cfg.Provider.StallTimeoutSecs != 15 {
		t.Errorf("StallTimeoutSecs = %d", cfg.Provider.StallTimeoutSecs)
	}
	if strings.Join(cfg.Files.Extensions, ",") != ".go,.md" {
		t.Errorf("Extensions = %v", cfg.Files.Extensions)
	}
	if !cfg.Files.Watch {
		t.Error("Watch should be true")
	}
	// Unset variables leave defaults alone.
	if !cfg.UI.Markdown {
		t.Error("Markdown default lost")
	}

	t.Setenv("MEGABOT_STALL_TIMEOUT_SECS", "later")
	if _, err := Load(); err == nil {
		t.Error("malformed override should fail")
	}
}

func TestConfig_Paths(t *testing.T) {
	dir := isolate(t)

	cfg := Default()
	got, err := cfg.HistoryPath()
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "history.db") {
		t.Errorf("HistoryPath() = %q", got)
	}
	cfg.History.Path = "/tmp/elsewhere.db"
	if got, _ := cfg.HistoryPath(); got != "/tmp/elsewhere.db" {
		t.Errorf("HistoryPath() = %q", got)
	}

	prefs, _ := PreferencesPath()
	if prefs != filepath.Join(dir, "preferences.toml") {
		t.Errorf("PreferencesPath() = %q", prefs)
	}
}
