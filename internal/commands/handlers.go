// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/jeranaias/megabot/internal/chat"
	"github.com/jeranaias/megabot/internal/filectx"
	"github.com/jeranaias/megabot/internal/prefs"
	"github.com/jeranaias/megabot/internal/provider"
	"github.com/jeranaias/megabot/internal/storage"
	"github.com/jeranaias/megabot/internal/util"
)

// =============================================================================
// HANDLER ENVIRONMENT
// =============================================================================

// Saver archives transcripts. *storage.Store implements it.
type Saver interface {
	Save(ctx context.Context, t *storage.Transcript) (string, error)
}

// Env gives handlers access to the application state. Handlers run on the
// goroutine that owns the controller.
type Env struct {
	Ctx        context.Context
	Controller *chat.Controller

	// Archive is nil when the history archive is disabled.
	Archive Saver

	// Model is recorded in saved transcripts.
	Model string

	// Clipboard replaces the system clipboard (tests). Defaults to
	// clipboard.WriteAll.
	Clipboard func(string) error

	// Watch, if set, is called with the path of every attached file.
	Watch func(path string) error
}

func (e *Env) context() context.Context {
	if e.Ctx != nil {
		return e.Ctx
	}
	return context.Background()
}

// =============================================================================
// RESULTS
// =============================================================================

// Action asks the front end to do something a handler cannot do itself.
type Action int

const (
	ActionNone             Action = iota
	ActionQuit                    // exit the program
	ActionConfirmReset            // ask ResetConfirmText, then ConfirmReset
	ActionPromptKey               // prompt for the API key
	ActionConfirmForgetKey        // ask, then ConfirmForgetKey
	ActionThemeChanged            // re-style with Result.Theme
	ActionPreviewFile             // show Result.File
)

// Result is what a command produced.
type Result struct {
	Action  Action
	Message string
	Err     error

	// Theme is set with ActionThemeChanged.
	Theme prefs.Theme

	// File is set with ActionPreviewFile.
	File filectx.File
}

func info(format string, args ...interface{}) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

func failure(err error) Result {
	return Result{Err: err}
}

// =============================================================================
// GENERAL
// =============================================================================

func handleHelp(r *Registry) func(*Env, []string) Result {
	return func(*Env, []string) Result {
		return Result{Message: r.HelpText()}
	}
}

func handleQuit(*Env, []string) Result {
	return Result{Action: ActionQuit}
}

// =============================================================================
// CONVERSATION
// =============================================================================

func handleReset(env *Env, _ []string) Result {
	res, err := env.Controller.ResetConversation(false)
	switch {
	case errors.Is(err, chat.ErrConfirmationRequired):
		return Result{Action: ActionConfirmReset, Message: chat.ResetConfirmText}
	case err != nil:
		return failure(err)
	case res == chat.ResetNoop:
		return info("The conversation is already empty.")
	}
	return info("Started a new conversation.")
}

// ConfirmReset resets after the user confirmed.
func ConfirmReset(env *Env) Result {
	if _, err := env.Controller.ResetConversation(true); err != nil {
		if env.Controller.HasSession() {
			return failure(fmt.Errorf("conversation cleared, but a new session could not start: %w", err))
		}
		return Result{
			Action:  ActionPromptKey,
			Message: fmt.Sprintf("Conversation cleared, but a new session could not start: %s. Please enter a valid key.", provider.Describe(err)),
		}
	}
	return info("Started a new conversation.")
}

func handleCopy(env *Env, _ []string) Result {
	msg, ok := env.Controller.Timeline().LastBot()
	if !ok {
		return failure(errors.New("there is no reply to copy yet"))
	}
	write := env.Clipboard
	if write == nil {
		write = clipboard.WriteAll
	}
	if err := write(msg.Text); err != nil {
		return failure(fmt.Errorf("failed to copy to clipboard: %w", err))
	}
	return info("Copied %s to the clipboard.", util.FormatBytes(int64(len(msg.Text))))
}

func handleSave(env *Env, _ []string) Result {
	if env.Archive == nil {
		return failure(errors.New("the history archive is disabled (history.enabled = false)"))
	}
	if env.Controller.Busy() {
		return failure(errors.New("wait for the reply to finish before saving"))
	}
	t := storage.FromTimeline(env.Controller.Timeline().Messages(), env.Model)
	id, err := env.Archive.Save(env.context(), t)
	if err != nil {
		return failure(err)
	}
	return info("Saved transcript %s (%d messages). View it with: megabot history show %s",
		storage.ShortID(id), len(t.Messages), storage.ShortID(id))
}

// =============================================================================
// FILES
// =============================================================================

// expandPath resolves a leading "~/".
func expandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func handleAttach(env *Env, args []string) Result {
	files := env.Controller.Files()
	sources := make([]filectx.Source, len(args))
	for i, arg := range args {
		sources[i] = filectx.Source{Path: expandPath(arg)}
	}

	errs := files.AddBatch(sources)

	var lines []string
	var failed []error
	for i, err := range errs {
		if err != nil {
			failed = append(failed, err)
			lines = append(lines, err.Error())
			continue
		}
		name := filepath.Base(sources[i].Path)
		f, _ := files.Get(name)
		lines = append(lines, fmt.Sprintf("Attached %s (%s)", name, util.FormatBytes(f.Size)))
		if env.Watch != nil {
			if err := env.Watch(sources[i].Path); err != nil {
				log.Printf("FILE_WATCH_FAILED | path=%s error=%v", sources[i].Path, err)
			}
		}
	}
	if summary := files.Summary(); summary != "" {
		lines = append(lines, summary)
	}

	res := Result{Message: strings.Join(lines, "\n")}
	if len(failed) == len(args) {
		res.Err = errors.Join(failed...)
		res.Message = ""
	}
	return res
}

func handleDetach(env *Env, args []string) Result {
	files := env.Controller.Files()
	var lines []string
	for _, name := range args {
		if _, ok := files.Get(name); !ok {
			lines = append(lines, fmt.Sprintf("%s is not attached", name))
			continue
		}
		files.Remove(name)
		lines = append(lines, "Removed "+name)
	}
	summary := files.Summary()
	if summary == "" {
		summary = "No files in context"
	}
	lines = append(lines, summary)
	return Result{Message: strings.Join(lines, "\n")}
}

func handleFiles(env *Env, args []string) Result {
	files := env.Controller.Files()
	if len(args) == 1 {
		f, ok := files.Get(args[0])
		if !ok {
			return failure(fmt.Errorf("%s is not attached", args[0]))
		}
		return Result{Action: ActionPreviewFile, File: f, Message: f.Content}
	}
	return Result{Message: FormatFiles(files.Files())}
}

// FormatFiles renders the attached file list.
func FormatFiles(files []filectx.File) string {
	if len(files) == 0 {
		return "No files in context. Attach one with /attach <path>."
	}
	var sb strings.Builder
	var total int64
	for _, f := range files {
		total += f.Size
		sb.WriteString("  " + util.PadRight(util.TruncateWidth(f.Name, 40), 42) + util.FormatBytes(f.Size) + "\n")
	}
	sb.WriteString(fmt.Sprintf("%d file(s) in context, %s", len(files), util.FormatBytes(total)))
	return sb.String()
}

// =============================================================================
// SETTINGS
// =============================================================================

func handleKey(*Env, []string) Result {
	return Result{Action: ActionPromptKey}
}

// SetKey stores key after the front end prompted for it.
func SetKey(env *Env, key string) Result {
	if err := env.Controller.SetCredential(key); err != nil {
		return failure(err)
	}
	return info("API key saved. Start chatting!")
}

func handleForgetKey(env *Env, _ []string) Result {
	if _, ok := env.Controller.Preferences().APIKey(); !ok {
		return failure(errors.New("no API key is stored"))
	}
	return Result{
		Action:  ActionConfirmForgetKey,
		Message: "Delete the stored API key? This also clears the chat history and attached files.",
	}
}

// ConfirmForgetKey deletes the key after the user confirmed.
func ConfirmForgetKey(env *Env) Result {
	if err := env.Controller.ClearCredential(); err != nil {
		return failure(fmt.Errorf("failed to delete API key: %w", err))
	}
	return Result{Action: ActionPromptKey, Message: "API key deleted."}
}

func handleTheme(env *Env, args []string) Result {
	p := env.Controller.Preferences()
	var (
		theme prefs.Theme
		err   error
	)
	if len(args) == 0 {
		theme, err = p.ToggleTheme()
	} else {
		theme, err = prefs.ParseTheme(args[0])
		if err == nil {
			err = p.SetTheme(theme)
		}
	}
	if err != nil {
		return failure(err)
	}
	return Result{Action: ActionThemeChanged, Theme: theme, Message: fmt.Sprintf("Switched to %s mode.", theme)}
}
