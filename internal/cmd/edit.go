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
)

// Edit implements subcommands.Command for "edit".
type Edit struct{}

func (*Edit) Name() string { return "edit" }

func (*Edit) Synopsis() string { return "edit an instance's services config in $EDITOR" }

func (*Edit) Usage() string {
	return `edit <instance> - edit an instance's services config in $EDITOR.
`
}

func (*Edit) SetFlags(*flag.FlagSet) {}

func (*Edit) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	env := args[0].(*Env)
	name := f.Arg(0)

	editor := os.Getenv("EDITOR")
	if editor == "" {
		fmt.Fprintln(os.Stderr, "$EDITOR is not set")
		return subcommands.ExitFailure
	}

	inst := instance.Open(env.Config, env.ServiceRegistry, env.HomePluginRegistry, name)
	if !inst.Exists() {
		fmt.Fprintf(os.Stderr, "instance %q does not exist\n", name)
		return subcommands.ExitFailure
	}

	modified, err := inst.EditConfig(editor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "edit %s: %v\n", name, err)
		return subcommands.ExitFailure
	}
	if !modified {
		fmt.Println("File not modified. Not overwriting config")
	}
	return subcommands.ExitSuccess
}
