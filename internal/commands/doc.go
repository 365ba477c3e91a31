// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash commands shared by the TUI and the
// REPL.
//
// # Key Types
//
//   - Registry: the built-in commands, parsing and execution
//   - Env: what a handler may touch (controller, archive, clipboard)
//   - Result: a message, an error, or an Action for the front end
//   - Completer: tab completion for command names and arguments
//
// Handlers never block on the user. When a command needs a confirmation
// or a masked key prompt it returns an Action; the front end asks and then
// calls ConfirmReset, ConfirmForgetKey or SetKey.
//
// # Usage
//
//	res, ok := registry.Execute(env, input)
//	if !ok {
//	    // not a command: send input as a chat message
//	}
package commands
