// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring shared by the TUI and the line-oriented commands.

package cli

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jeranaias/megabot/internal/chat"
	"github.com/jeranaias/megabot/internal/commands"
	"github.com/jeranaias/megabot/internal/config"
	"github.com/jeranaias/megabot/internal/filectx"
	"github.com/jeranaias/megabot/internal/gemini"
	"github.com/jeranaias/megabot/internal/prefs"
	"github.com/jeranaias/megabot/internal/provider"
	"github.com/jeranaias/megabot/internal/storage"
)

// ErrHistoryDisabled is returned by history commands when the archive is
// turned off.
var ErrHistoryDisabled = errors.New("the transcript history is disabled (set history.enabled = true)")

// App is the wired application.
type App struct {
	Config     *config.Config
	Prefs      *prefs.Preferences
	Files      *filectx.Aggregator
	Controller *chat.Controller
	Registry   *commands.Registry

	// Archive is nil when the history is disabled.
	Archive *storage.Store

	// ModelName is the Gemini model in use.
	ModelName string

	// InitErr is what Controller.Init returned.
	InitErr error

	Out io.Writer
	Err io.Writer

	// ReadSecret reads a line without echo. Defaults to the terminal reader.
	ReadSecret func(prompt string) (string, error)
}

// Bootstrap loads the configuration and preferences from disk and wires the
// Gemini client into a controller.
func Bootstrap(args Args) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if args.Model != "" {
		cfg.Provider.Model = args.Model
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	config.SetGlobal(cfg)

	if err := config.EnsureConfigDir(); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	prefsPath, err := config.PreferencesPath()
	if err != nil {
		return nil, err
	}
	store, err := prefs.OpenFileStore(prefsPath)
	if err != nil {
		return nil, err
	}

	client := gemini.NewClient(
		gemini.WithBaseURL(cfg.Provider.BaseURL),
		gemini.WithModel(cfg.Provider.Model),
		gemini.WithRequestsPerMinute(cfg.Provider.RequestsPerMinute),
		gemini.WithHTTPClient(gemini.NewStreamingClient(cfg.Provider.ConnectTimeout())),
	)
	log.Printf("APP_START | model=%s base_url=%s", client.Model(), cfg.Provider.BaseURL)

	return NewApp(cfg, store, client, args)
}

// NewApp wires an App from its parts. The archive is opened when the
// history is enabled.
func NewApp(cfg *config.Config, store prefs.Store, p provider.Provider, args Args) (*App, error) {
	files := filectx.New(filectx.WithExtensions(cfg.Files.Extensions))
	pr := prefs.New(store, prefs.DetectTheme)
	ctrl := chat.NewController(p, pr, files, chat.Options{
		StallTimeout: cfg.Provider.StallTimeout(),
	})

	app := &App{
		Config:     cfg,
		Prefs:      pr,
		Files:      files,
		Controller: ctrl,
		Registry:   commands.NewRegistry(),
		ModelName:  cfg.Provider.Model,
		Out:        os.Stdout,
		Err:        os.Stderr,
	}
	app.ReadSecret = func(prompt string) (string, error) {
		return ReadSecret(app.Err, prompt)
	}

	if cfg.History.Enabled {
		path, err := cfg.HistoryPath()
		if err != nil {
			return nil, err
		}
		archive, err := storage.Open(path)
		if err != nil {
			return nil, err
		}
		archive.MaxTranscripts = cfg.History.MaxTranscripts
		app.Archive = archive
	}

	app.InitErr = ctrl.Init()
	if app.InitErr != nil && !errors.Is(app.InitErr, chat.ErrCredentialRequired) {
		log.Printf("APP_INIT_FAILED | error=%v", app.InitErr)
	}
	ApplyTheme(pr.Theme())
	return app, nil
}

// Close releases the archive and any in-flight request.
func (a *App) Close() error {
	a.Controller.Close()
	if a.Archive != nil {
		return a.Archive.Close()
	}
	return nil
}

// Env returns the slash-command environment for this app.
func (a *App) Env() *commands.Env {
	env := &commands.Env{
		Controller: a.Controller,
		Model:      a.ModelName,
	}
	// A nil *storage.Store must not become a non-nil Saver.
	if a.Archive != nil {
		env.Archive = a.Archive
	}
	return env
}

// AttachFiles adds the --file paths and reports each failure on a.Err.
// It returns an error only when every path failed.
func (a *App) AttachFiles(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	sources := make([]filectx.Source, len(paths))
	for i, p := range paths {
		sources[i] = filectx.Source{Path: p}
	}

	failed := 0
	var last error
	for _, err := range a.Files.AddBatch(sources) {
		if err != nil {
			failed++
			last = err
			fmt.Fprintf(a.Err, "%s %v\n", RenderConditional(WarningStyle, "[!]"), err)
		}
	}
	if failed == len(paths) {
		return fmt.Errorf("no files could be attached: %w", last)
	}
	return nil
}
