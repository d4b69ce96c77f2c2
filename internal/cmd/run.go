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
	"strings"

	"github.com/google/subcommands"

	"github.com/bubblehelp/bubblehelp/instance"
	"github.com/bubblehelp/bubblehelp/internal/bherr"
	"github.com/bubblehelp/bubblehelp/rpc"
)

// Run implements subcommands.Command for "run".
type Run struct {
	debugShell        bool
	dryRun            bool
	debugHelperScript string
	debugLogDbus      bool
	wait              bool
	debugBwrapArgs    string
}

func (*Run) Name() string { return "run" }

func (*Run) Synopsis() string { return "start or reuse an instance's sandbox" }

func (*Run) Usage() string {
	return `run [flags] <instance> [--] [cmd ...] - start or reuse an instance's sandbox.
`
}

func (r *Run) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.debugShell, "debug-shell", false, "run an interactive shell inside the sandbox instead of the given command")
	f.BoolVar(&r.dryRun, "dry-run", false, "print the bwrap invocation without running it")
	f.StringVar(&r.debugHelperScript, "debug-helper-script", "", "run this script instead of the compiled helper binary")
	f.BoolVar(&r.debugLogDbus, "debug-log-dbus", false, "enable verbose logging in the D-Bus proxy")
	f.BoolVar(&r.wait, "wait", false, "if the instance is already running, relay the command to it and wait for output")
	f.StringVar(&r.debugBwrapArgs, "debug-bwrap-args", "", "space-separated extra arguments appended to the bwrap invocation")
}

func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	env := args[0].(*Env)
	name := f.Arg(0)
	cmdArgs := f.Args()[1:]

	if r.debugShell {
		cmdArgs = []string{"/bin/sh"}
	}

	inst := instance.Open(env.Config, env.ServiceRegistry, env.HomePluginRegistry, name)
	if !inst.Exists() {
		fmt.Fprintf(os.Stderr, "instance %q does not exist\n", name)
		return subcommands.ExitFailure
	}

	if r.wait {
		resp, err := inst.SendRPC(rpc.Request{ArgsToRun: cmdArgs, WaitResponse: true})
		switch kind, isKnown := bherr.KindOf(err); {
		case err == nil:
			fmt.Print(resp.Stdout)
			fmt.Fprint(os.Stderr, resp.Stderr)
			return subcommands.ExitStatus(resp.ExitCode)
		case isKnown && kind == bherr.NotRunning:
			// Fall through: no sandbox is running yet, start a fresh one.
		default:
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
	}

	var extraArgs []string
	if r.debugShell {
		for _, kv := range hostWindowSizeEnv() {
			envName, envValue, _ := strings.Cut(kv, "=")
			extraArgs = append(extraArgs, "--setenv", envName, envValue)
		}
	}
	if r.debugBwrapArgs != "" {
		extraArgs = append(extraArgs, strings.Fields(r.debugBwrapArgs)...)
	}

	exitCode, err := inst.Run(ctx, instance.RunOptions{
		Command:           cmdArgs,
		DryRun:            r.dryRun,
		DebugHelperScript: r.debugHelperScript,
		DebugLogDbus:      r.debugLogDbus,
		ExtraBwrapArgs:    extraArgs,
	})
	if err != nil {
		if kind, ok := bherr.KindOf(err); ok {
			fmt.Fprintf(os.Stderr, "run %s: %s\n", name, kind)
			if kind == bherr.SandboxFailed {
				fmt.Fprintln(os.Stderr, "re-run interactively (drop --wait) for full diagnostics")
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		if exitCode == 0 {
			exitCode = 1
		}
	}
	return subcommands.ExitStatus(exitCode)
}
