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
	"sort"

	"github.com/google/subcommands"
)

// List implements subcommands.Command for "list".
type List struct{}

func (*List) Name() string { return "list" }

func (*List) Synopsis() string { return "list instances, profiles, or services" }

func (*List) Usage() string {
	return `list {instances|profiles|services} - list known instances, profiles, or services.
`
}

func (*List) SetFlags(*flag.FlagSet) {}

func (*List) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	env := args[0].(*Env)

	var names []string
	switch f.Arg(0) {
	case "instances":
		entries, err := os.ReadDir(env.Config.DataRoot)
		if err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "list instances: %v\n", err)
			return subcommands.ExitFailure
		}
		for _, e := range entries {
			if e.IsDir() {
				names = append(names, e.Name())
			}
		}
	case "profiles":
		for name := range env.Profiles {
			names = append(names, name)
		}
	case "services":
		names = env.ServiceRegistry.Names()
	default:
		fmt.Fprintf(os.Stderr, "unknown list target %q, want instances, profiles, or services\n", f.Arg(0))
		return subcommands.ExitUsageError
	}

	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return subcommands.ExitSuccess
}
