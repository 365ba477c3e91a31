// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - The "megabot config" command.
//
// Examples:
//   megabot config                          Print the effective configuration
//   megabot config get provider.model
//   megabot config set ui.markdown false
//   megabot config path

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/megabot/internal/config"
)

const configUsage = "megabot config [show|get <key>|set <key> <value>|keys|path]"

// RunConfig handles the "config" command. It does not need an App: a
// broken config file can still be inspected and fixed.
func RunConfig(out io.Writer, args Args) error {
	p := NewArgParser(args.Raw)

	switch sub := p.Subcommand(); sub {
	case "", "show":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := toml.NewEncoder(out).Encode(cfg); err != nil {
			return NewCommandError("config", "show", err)
		}
		return nil

	case "get":
		key, err := p.Require(1, "key", "megabot config get provider.model")
		if err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		v, err := cfg.Get(key)
		if err != nil {
			return &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "megabot config keys"}
		}
		if list, ok := v.([]string); ok {
			v = strings.Join(list, ",")
		}
		fmt.Fprintln(out, v)
		return nil

	case "set":
		key, err := p.Require(1, "key", "megabot config set ui.markdown false")
		if err != nil {
			return err
		}
		if p.PositionalCount() < 3 {
			return ErrMissingArgument("value", "megabot config set "+key+" <value>")
		}
		value := strings.Join(p.PositionalFrom(2), " ")

		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		if err := cfg.Set(key, value); err != nil {
			return NewCommandError("config", "set", err)
		}
		if err := config.SaveTo(cfg, path); err != nil {
			return NewCommandError("config", "set", err)
		}
		fmt.Fprintf(out, "%s %s = %s\n", RenderConditional(SuccessStyle, "[OK]"), key, value)
		return nil

	case "keys":
		for _, k := range config.Keys() {
			fmt.Fprintln(out, k)
		}
		return nil

	case "path", "paths":
		return printPaths(out)

	default:
		return ErrUnknownSubcommand("config", sub, configUsage)
	}
}

func printPaths(out io.Writer) error {
	cfgPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	prefsPath, err := config.PreferencesPath()
	if err != nil {
		return err
	}
	logPath, err := config.LogPath()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		return err
	}
	historyPath, err := cfg.HistoryPath()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s\n", RenderLabel("Config:"), cfgPath)
	fmt.Fprintf(out, "%s %s\n", RenderLabel("Preferences:"), prefsPath)
	fmt.Fprintf(out, "%s %s\n", RenderLabel("History:"), historyPath)
	fmt.Fprintf(out, "%s %s\n", RenderLabel("Debug log:"), logPath)
	return nil
}
