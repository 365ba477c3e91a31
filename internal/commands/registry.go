// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"

	"github.com/jeranaias/megabot/internal/util"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command is a slash command available in the TUI and the REPL.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/attach <path>...")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Handler executes the command
	Handler func(env *Env, args []string) Result

	// Category for grouping in help display
	Category string
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	Name        string
	Required    bool
	Type        ArgType
	Description string

	// Values for enum types
	Values []string

	// Variadic accepts any number of further values of this type.
	Variadic bool
}

// ArgType indicates what kind of completion to provide.
type ArgType int

const (
	ArgTypeString   ArgType = iota // Free-form string
	ArgTypeFile                    // File path on disk
	ArgTypeAttached                // Name of an attached file
	ArgTypeEnum                    // One of predefined values
)

// Completion is one completion candidate.
type Completion struct {
	// Value to insert
	Value string

	// Display text
	Display string

	// Description shown alongside
	Description string

	// Score for ranking (higher = better match)
	Score int
}

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a registry with the built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias, case-insensitively.
func (r *Registry) Get(name string) *Command {
	name = strings.ToLower(name)
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns the registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// categoryOrder fixes the order of help sections.
var categoryOrder = []string{"Conversation", "Files", "Settings", "General"}

// HelpText renders the command list grouped by category.
func (r *Registry) HelpText() string {
	groups := make(map[string][]*Command)
	for _, cmd := range r.All() {
		cat := cmd.Category
		if cat == "" {
			cat = "General"
		}
		groups[cat] = append(groups[cat], cmd)
	}

	var sb strings.Builder
	for _, cat := range categoryOrder {
		cmds := groups[cat]
		if len(cmds) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(cat + ":\n")
		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			sb.WriteString("  " + util.PadRight(usage, 24) + cmd.Description + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Category:    "General",
		Handler:     handleHelp(r),
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit Mega-Bot",
		Category:    "General",
		Handler:     handleQuit,
	})

	// Conversation
	r.Register(&Command{
		Name:        "/reset",
		Aliases:     []string{"/new", "/clear"},
		Description: "Delete the chat history and start a new conversation",
		Category:    "Conversation",
		Handler:     handleReset,
	})

	r.Register(&Command{
		Name:        "/copy",
		Description: "Copy the last reply to the clipboard",
		Category:    "Conversation",
		Handler:     handleCopy,
	})

	r.Register(&Command{
		Name:        "/save",
		Description: "Save the conversation to the history archive",
		Category:    "Conversation",
		Handler:     handleSave,
	})

	// Files
	r.Register(&Command{
		Name:        "/attach",
		Aliases:     []string{"/a", "/upload"},
		Description: "Add files to the conversation context",
		Usage:       "/attach <path>...",
		Args: []ArgDef{
			{Name: "path", Required: true, Type: ArgTypeFile, Variadic: true, Description: "file to attach"},
		},
		Category: "Files",
		Handler:  handleAttach,
	})

	r.Register(&Command{
		Name:        "/detach",
		Aliases:     []string{"/rm"},
		Description: "Remove an attached file",
		Usage:       "/detach <name>",
		Args: []ArgDef{
			{Name: "name", Required: true, Type: ArgTypeAttached, Variadic: true, Description: "attached file name"},
		},
		Category: "Files",
		Handler:  handleDetach,
	})

	r.Register(&Command{
		Name:        "/files",
		Aliases:     []string{"/f"},
		Description: "List attached files, or preview one",
		Usage:       "/files [name]",
		Args: []ArgDef{
			{Name: "name", Type: ArgTypeAttached, Description: "attached file to preview"},
		},
		Category: "Files",
		Handler:  handleFiles,
	})

	// Settings
	r.Register(&Command{
		Name:        "/key",
		Description: "Set your Gemini API key",
		Category:    "Settings",
		Handler:     handleKey,
	})

	r.Register(&Command{
		Name:        "/forget-key",
		Description: "Delete the stored API key, chat history and files",
		Category:    "Settings",
		Handler:     handleForgetKey,
	})

	r.Register(&Command{
		Name:        "/theme",
		Description: "Switch between light and dark theme",
		Usage:       "/theme [light|dark]",
		Args: []ArgDef{
			{Name: "theme", Type: ArgTypeEnum, Values: []string{"light", "dark"}, Description: "theme"},
		},
		Category: "Settings",
		Handler:  handleTheme,
	})
}
