// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cli is bubblehelp's main entrypoint, registering every
// dispatch target with google/subcommands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/bubblehelp/bubblehelp/homeplugin"
	"github.com/bubblehelp/bubblehelp/internal/cmd"
	"github.com/bubblehelp/bubblehelp/internal/config"
	"github.com/bubblehelp/bubblehelp/internal/slog"
	"github.com/bubblehelp/bubblehelp/service"
)

// Main is bubblehelp's entrypoint.
func Main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(cmd.Run), "")
	subcommands.Register(new(cmd.Create), "")
	subcommands.Register(new(cmd.List), "")
	subcommands.Register(new(cmd.Edit), "")
	subcommands.Register(new(cmd.GenerateDesktopEntry), "")

	config.RegisterFlags(flag.CommandLine)
	flag.Parse()

	conf, err := config.NewFromFlags(flag.CommandLine)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	fillRootDefaults(conf)

	slog.SetLevel(conf.Debug)
	slog.SetFormat(conf.LogFormat)
	if conf.LogFilename != "" {
		f, err := os.OpenFile(conf.LogFilename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening log file %s: %v\n", conf.LogFilename, err)
			os.Exit(2)
		}
		defer f.Close()
		slog.SetOutput(f)
	}
	slog.EnableJournal()

	serviceReg := service.NewDefaultRegistry()
	homePluginReg := homeplugin.NewDefaultRegistry()
	env := &cmd.Env{
		Config:             conf,
		ServiceRegistry:    serviceReg,
		HomePluginRegistry: homePluginReg,
		Profiles:           service.DefaultProfiles(),
	}

	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx, env)))
}

// fillRootDefaults fills in RuntimeRoot and DataRoot from the XDG base
// directory environment when the corresponding flags were left unset.
func fillRootDefaults(conf *config.Config) {
	if conf.RuntimeRoot == "" {
		base := os.Getenv("XDG_RUNTIME_DIR")
		if base == "" {
			base = filepath.Join(os.TempDir(), fmt.Sprintf("bubblehelp-runtime-%d", os.Getuid()))
		}
		conf.RuntimeRoot = filepath.Join(base, "bubblehelp")
	}
	if conf.DataRoot == "" {
		base := os.Getenv("XDG_DATA_HOME")
		if base == "" {
			if home, err := os.UserHomeDir(); err == nil {
				base = filepath.Join(home, ".local", "share")
			}
		}
		conf.DataRoot = filepath.Join(base, "bubblehelp")
	}
}
