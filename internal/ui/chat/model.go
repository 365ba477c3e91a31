// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	convo "github.com/jeranaias/megabot/internal/chat"
	"github.com/jeranaias/megabot/internal/commands"
	"github.com/jeranaias/megabot/internal/prefs"
	"github.com/jeranaias/megabot/internal/ui/components"
	"github.com/jeranaias/megabot/internal/ui/styles"
)

const (
	inputLines     = 3
	defaultWrap    = 100
	placeholder    = "Ask Mega-Bot anything... (/help for commands)"
	noKeyHolder    = "Set your Gemini API key with /key"
	keyPlaceholder = "Paste your API key"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures the chat model.
type Options struct {
	Controller *convo.Controller
	Registry   *commands.Registry

	// Archive is nil when the history archive is disabled.
	Archive commands.Saver

	// ModelName is shown in the status bar and recorded in transcripts.
	ModelName string

	Markdown        bool
	WordWrap        int
	ShowSuggestions bool

	// Watch tracks attached files for reloads. Nil disables watching.
	Watch func(path string) error

	// Clipboard replaces the system clipboard (tests).
	Clipboard func(string) error

	// InitErr is the result of Controller.Init, shown in the key prompt.
	InitErr error
}

// =============================================================================
// CHAT MODEL
// =============================================================================

type modalKind int

const (
	modalNone modalKind = iota
	modalKey
	modalConfirmReset
	modalConfirmForgetKey
	modalPreview
)

// note is command output shown after the message it followed. Notes from
// an earlier generation vanish with the conversation they belonged to.
type note struct {
	afterID    int64
	generation uint64
	text       string
	isErr      bool
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctrl      *convo.Controller
	registry  *commands.Registry
	completer *commands.Completer
	env       *commands.Env
	opts      Options

	// Styling
	theme    *styles.Theme
	markdown *components.MarkdownRenderer
	cache    *renderCache
	keyMap   KeyMap

	// Dimensions
	width  int
	height int
	ready  bool

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	keyInput textinput.Model

	completion *commands.CompletionState

	// Modals
	modal     modalKind
	confirm   components.Modal
	keyErr    string
	preview   components.FilePreview
	previewVP viewport.Model

	notes    []note
	stream   *streamRun
	quitting bool
}

// New creates the chat model. The controller must already be initialised;
// without a session the key prompt opens immediately.
func New(opts Options) Model {
	if opts.Registry == nil {
		opts.Registry = commands.NewRegistry()
	}
	if opts.WordWrap <= 0 {
		opts.WordWrap = defaultWrap
	}
	ctrl := opts.Controller
	mode := ctrl.Preferences().Theme()

	completer := commands.NewCompleter(opts.Registry)
	completer.AttachedFn = ctrl.Files().Names

	ta := textarea.New()
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputLines)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("ctrl+j", "alt+enter"))
	ta.Focus()

	ki := textinput.New()
	ki.Placeholder = keyPlaceholder
	ki.EchoMode = textinput.EchoPassword
	ki.EchoCharacter = '•'
	ki.Prompt = "> "

	m := Model{
		ctrl:      ctrl,
		registry:  opts.Registry,
		completer: completer,
		env: &commands.Env{
			Ctx:        context.Background(),
			Controller: ctrl,
			Archive:    opts.Archive,
			Model:      opts.ModelName,
			Clipboard:  opts.Clipboard,
			Watch:      opts.Watch,
		},
		opts:       opts,
		theme:      styles.NewTheme(mode),
		markdown:   components.NewMarkdownRenderer(mode, opts.WordWrap, opts.Markdown),
		cache:      newRenderCache(),
		keyMap:     DefaultKeyMap(),
		width:      80,
		height:     24,
		viewport:   viewport.New(80, 16),
		previewVP:  viewport.New(80, 20),
		input:      ta,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		keyInput:   ki,
		completion: &commands.CompletionState{},
	}
	m.styleInputs()

	if !ctrl.HasSession() {
		if errors.Is(opts.InitErr, convo.ErrInitFailed) {
			m.keyErr = convo.InitFailedText
		}
		m.openKeyModal()
	}
	return m
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, textinput.Blink)
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamTickMsg:
		return m.handleStreamTick(msg)

	case StreamEndMsg:
		return m.handleStreamEnd(msg)

	case FileChangedMsg:
		return m.handleFileChanged(msg)

	case spinner.TickMsg:
		if !m.ctrl.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh(false)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.modal == modalKey {
		m.keyInput, cmd = m.keyInput.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// =============================================================================
// THEME
// =============================================================================

func (m *Model) applyTheme(mode prefs.Theme) {
	m.theme = styles.NewTheme(mode)
	m.theme.SetSize(m.width, m.height)
	m.markdown.SetMode(mode)
	m.cache.reset()
	m.styleInputs()
}

func (m *Model) styleInputs() {
	t := m.theme
	m.input.FocusedStyle.Prompt = t.InputPrompt
	m.input.BlurredStyle.Prompt = t.InputPlaceholder
	m.input.FocusedStyle.Placeholder = t.InputPlaceholder
	m.input.BlurredStyle.Placeholder = t.InputPlaceholder
	m.input.FocusedStyle.CursorLine = t.NewStyle()
	m.keyInput.PromptStyle = t.InputPrompt
	m.keyInput.PlaceholderStyle = t.InputPlaceholder
	m.spinner.Style = t.Spinner

	if m.ctrl.HasSession() {
		m.input.Placeholder = placeholder
	} else {
		m.input.Placeholder = noKeyHolder
	}
}

// Theme returns the active theme mode.
func (m Model) Theme() prefs.Theme {
	return m.theme.Mode
}
