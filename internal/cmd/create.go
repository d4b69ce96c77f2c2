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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/bubblehelp/bubblehelp/instance"
	"github.com/bubblehelp/bubblehelp/service"
)

// Create implements subcommands.Command for "create".
type Create struct {
	profile        string
	noDesktopEntry bool
}

func (*Create) Name() string { return "create" }

func (*Create) Synopsis() string { return "materialise a new instance's directory tree" }

func (*Create) Usage() string {
	return `create [--profile P] [--no-desktop-entry] <name> - materialise a new instance.
`
}

func (c *Create) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.profile, "profile", "", "pre-defined profile to enable by default")
	f.BoolVar(&c.noDesktopEntry, "no-desktop-entry", false, "skip writing a desktop entry for this instance")
}

func (c *Create) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	env := args[0].(*Env)
	name := f.Arg(0)

	var profile *service.Profile
	if c.profile != "" {
		p, ok := env.Profiles[c.profile]
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown profile %q\n", c.profile)
			return subcommands.ExitFailure
		}
		profile = p
	}

	inst := instance.Open(env.Config, env.ServiceRegistry, env.HomePluginRegistry, name)
	if err := inst.Create(profile); err != nil {
		fmt.Fprintf(os.Stderr, "create %s: %v\n", name, err)
		return subcommands.ExitFailure
	}

	if !c.noDesktopEntry && profile != nil && profile.DesktopEntry != "" {
		if err := writeDesktopEntry(name, profile, profile.DesktopEntry); err != nil {
			fmt.Fprintf(os.Stderr, "create %s: desktop entry: %v\n", name, err)
			return subcommands.ExitFailure
		}
		if err := inst.SetMetadata(func(m *instance.Metadata) {
			m.DesktopEntryName = profile.DesktopEntry
		}); err != nil {
			fmt.Fprintf(os.Stderr, "create %s: recording desktop entry name: %v\n", name, err)
			return subcommands.ExitFailure
		}
	}

	return subcommands.ExitSuccess
}
