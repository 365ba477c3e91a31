// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/jeranaias/megabot/internal/util"
)

// HomeEnv overrides the configuration directory.
const HomeEnv = "MEGABOT_HOME"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete megabot configuration.
type Config struct {
	Version string `toml:"version"`

	// Provider holds the Gemini connection settings.
	Provider ProviderConfig `toml:"provider"`

	// UI holds presentation settings.
	UI UIConfig `toml:"ui"`

	// Files holds attachment settings.
	Files FilesConfig `toml:"files"`

	// History holds transcript archive settings.
	History HistoryConfig `toml:"history"`
}

// ProviderConfig configures the chat provider.
type ProviderConfig struct {
	// Model is the Gemini model name.
	Model string `toml:"model" env:"MEGABOT_MODEL"`

	// BaseURL is the API endpoint.
	BaseURL string `toml:"base_url" env:"MEGABOT_BASE_URL"`

	// ConnectTimeoutSecs bounds the wait for response headers.
	ConnectTimeoutSecs int `toml:"connect_timeout_secs" env:"MEGABOT_CONNECT_TIMEOUT_SECS"`

	// StallTimeoutSecs is how long a reply may go without a new fragment
	// before the send fails.
	StallTimeoutSecs int `toml:"stall_timeout_secs" env:"MEGABOT_STALL_TIMEOUT_SECS"`

	// RequestsPerMinute throttles requests; 0 disables the throttle.
	RequestsPerMinute int `toml:"requests_per_minute" env:"MEGABOT_REQUESTS_PER_MINUTE"`
}

// ConnectTimeout returns ConnectTimeoutSecs as a duration.
func (p ProviderConfig) ConnectTimeout() time.Duration {
	return time.Duration(p.ConnectTimeoutSecs) * time.Second
}

// StallTimeout returns StallTimeoutSecs as a duration.
func (p ProviderConfig) StallTimeout() time.Duration {
	return time.Duration(p.StallTimeoutSecs) * time.Second
}

// UIConfig configures the front ends.
type UIConfig struct {
	// Markdown renders bot replies as markdown.
	Markdown bool `toml:"markdown" env:"MEGABOT_MARKDOWN"`

	// WordWrap is the wrap width for rendered replies outside the TUI.
	WordWrap int `toml:"word_wrap"`

	// ShowSuggestions shows starter prompts on an empty conversation.
	ShowSuggestions bool `toml:"show_suggestions"`
}

// FilesConfig configures file attachments.
type FilesConfig struct {
	// Extensions lists the accepted file extensions; empty accepts all.
	Extensions []string `toml:"extensions" env:"MEGABOT_FILE_EXTENSIONS" envSeparator:","`

	// Watch reloads attached files when they change on disk.
	Watch bool `toml:"watch" env:"MEGABOT_WATCH_FILES"`
}

// HistoryConfig configures the transcript archive.
type HistoryConfig struct {
	// Enabled turns on /save and the history command.
	Enabled bool `toml:"enabled" env:"MEGABOT_HISTORY"`

	// Path is the SQLite database; empty means <config dir>/history.db.
	Path string `toml:"path" env:"MEGABOT_HISTORY_PATH"`

	// MaxTranscripts prunes the oldest transcripts beyond this count; 0 keeps all.
	MaxTranscripts int `toml:"max_transcripts"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Provider: ProviderConfig{
			Model:              "gemini-2.5-flash",
			BaseURL:            "https://generativelanguage.googleapis.com",
			ConnectTimeoutSecs: 30,
			StallTimeoutSecs:   60,
		},
		UI: UIConfig{
			Markdown:        true,
			WordWrap:        80,
			ShowSuggestions: true,
		},
		Files: FilesConfig{
			Extensions: []string{".txt", ".md", ".json", ".csv", ".html", ".js", ".ts"},
		},
		History: HistoryConfig{
			Enabled:        true,
			MaxTranscripts: 200,
		},
	}
}

// fillDefaults restores settings a config file zeroed out.
func fillDefaults(cfg *Config) {
	d := Default()
	if cfg.Version == "" {
		cfg.Version = d.Version
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = d.Provider.Model
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = d.Provider.BaseURL
	}
	if cfg.Provider.ConnectTimeoutSecs == 0 {
		cfg.Provider.ConnectTimeoutSecs = d.Provider.ConnectTimeoutSecs
	}
	if cfg.Provider.StallTimeoutSecs == 0 {
		cfg.Provider.StallTimeoutSecs = d.Provider.StallTimeoutSecs
	}
	if cfg.UI.WordWrap == 0 {
		cfg.UI.WordWrap = d.UI.WordWrap
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the megabot directory, $MEGABOT_HOME or ~/.megabot.
func ConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".megabot"), nil
}

// ConfigPath returns the path of config.toml.
func ConfigPath() (string, error) {
	return inConfigDir("config.toml")
}

// PreferencesPath returns the path of the preferences store.
func PreferencesPath() (string, error) {
	return inConfigDir("preferences.toml")
}

// LogPath returns the path of the debug log.
func LogPath() (string, error) {
	return inConfigDir("debug.log")
}

// HistoryPath returns the transcript database path.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	return inConfigDir("history.db")
}

func inConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// EnsureConfigDir creates the config directory with owner-only access.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads config.toml (if present), loads .env from the working
// directory (if present), applies MEGABOT_* overrides and validates.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load with an explicit file.
func LoadFromPath(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads path over the defaults without environment overrides or
// validation. Editing commands use it so overrides are not written back.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		// Keys absent from the file keep their defaults.
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		fillDefaults(cfg)
	}
	return cfg, nil
}

// Save writes cfg to config.toml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes cfg to path with 0600 permissions.
func SaveTo(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# megabot configuration\n")
	buf.WriteString("# The API key and theme live in preferences.toml.\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies MEGABOT_* environment variables. Unset
// variables leave the current values alone.
func (c *Config) ApplyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid setting.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if strings.TrimSpace(c.Provider.Model) == "" || strings.ContainsAny(c.Provider.Model, " /?#") {
		errs = append(errs, ValidationError{
			Field:   "provider.model",
			Message: fmt.Sprintf("invalid model name %q", c.Provider.Model),
		})
	}
	if u, err := url.Parse(c.Provider.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "provider.base_url",
			Message: fmt.Sprintf("must be an http(s) URL, got %q", c.Provider.BaseURL),
		})
	}
	if c.Provider.ConnectTimeoutSecs < 1 || c.Provider.ConnectTimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "provider.connect_timeout_secs",
			Message: fmt.Sprintf("must be 1-600, got %d", c.Provider.ConnectTimeoutSecs),
		})
	}
	if c.Provider.StallTimeoutSecs < 1 || c.Provider.StallTimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "provider.stall_timeout_secs",
			Message: fmt.Sprintf("must be 1-3600, got %d", c.Provider.StallTimeoutSecs),
		})
	}
	if c.Provider.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "provider.requests_per_minute",
			Message: "must not be negative",
		})
	}
	if c.UI.WordWrap < 20 || c.UI.WordWrap > 400 {
		errs = append(errs, ValidationError{
			Field:   "ui.word_wrap",
			Message: fmt.Sprintf("must be 20-400, got %d", c.UI.WordWrap),
		})
	}
	for _, ext := range c.Files.Extensions {
		if strings.ContainsAny(ext, `/\ `) {
			errs = append(errs, ValidationError{
				Field:   "files.extensions",
				Message: fmt.Sprintf("invalid extension %q", ext),
			})
		}
	}
	if c.History.MaxTranscripts < 0 {
		errs = append(errs, ValidationError{
			Field:   "history.max_transcripts",
			Message: "must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Keys lists every setting in dot notation.
func Keys() []string {
	return []string{
		"provider.model",
		"provider.base_url",
		"provider.connect_timeout_secs",
		"provider.stall_timeout_secs",
		"provider.requests_per_minute",
		"ui.markdown",
		"ui.word_wrap",
		"ui.show_suggestions",
		"files.extensions",
		"files.watch",
		"history.enabled",
		"history.path",
		"history.max_transcripts",
	}
}

// Get returns the value of a dot-notation key such as "provider.model".
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set parses value into the setting named by key and re-validates.
func (c *Config) Set(key, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	prev := reflect.New(field.Type()).Elem()
	prev.Set(field)
	if err := setFieldValue(field, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := c.Validate(); err != nil {
		field.Set(prev)
		return err
	}
	return nil
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		name := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(n string) bool {
			return strings.EqualFold(n, name)
		})
		if !field.IsValid() || part == "" {
			return reflect.Value{}, fmt.Errorf("unknown setting: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("%s is a section, not a setting", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("%s is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName turns "stall_timeout_secs" into "StallTimeoutSecs".
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(strings.ToUpper(p[:1]))
		sb.WriteString(strings.ToLower(p[1:]))
	}
	return sb.String()
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer %q", value)
		}
		field.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		field.SetBool(b)
	case reflect.Slice:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}

// =============================================================================
// SINGLETON
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process configuration, loading it on first use. A
// config that fails to load falls back to defaults with a warning.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal re-reads the configuration. On error the current
// configuration is kept.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal replaces the process configuration.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting forgets the loaded configuration.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
