// Copyright 2019-2022 igo95862
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

// Package runner implements SandboxRunner, the state machine that turns
// a resolved service list into a running bwrap sandbox and guarantees
// its teardown.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/bubblehelp/bubblehelp/dbusproxy"
	"github.com/bubblehelp/bubblehelp/directive"
	"github.com/bubblehelp/bubblehelp/homeplugin"
	"github.com/bubblehelp/bubblehelp/internal/bherr"
	"github.com/bubblehelp/bubblehelp/internal/config"
	"github.com/bubblehelp/bubblehelp/internal/slog"
	"github.com/bubblehelp/bubblehelp/service"
)

// Options carries everything one launch of a Runner needs beyond the
// engine-wide Config: the resolved service list, the instance's home
// path, the runtime-directory layout, and the caller's CLI-level
// switches (dry run, debug overrides).
type Options struct {
	InstanceName string
	HomePath     string

	RuntimeDir         string
	HelperDir          string
	HelperSocket       string
	SessionProxySocket string
	SystemProxySocket  string

	Services    []service.Service
	HomePlugins []homeplugin.Plugin

	DbusSessionAddress string
	DbusSystemAddress  string

	Command           []string
	DryRun            bool
	DebugHelperScript string
	DebugLogDbus      bool
	ExtraBwrapArgs    []string
}

// Runner drives one instance's sandbox lifecycle from Built through
// Terminated. It is built fresh for each run and is not reusable.
type Runner struct {
	cfg  *config.Config
	opts Options

	state State
	build *buildResult
	proxy *dbusproxy.Supervisor
	cmd   *exec.Cmd
}

// New returns a Runner in the Built state, ready to Run.
func New(cfg *config.Config, opts Options) *Runner {
	return &Runner{cfg: cfg, opts: opts, state: Built}
}

// State reports the runner's current lifecycle stage.
func (r *Runner) State() State { return r.state }

// Run executes the full Build → Stage → DbusUp → SandboxUp → Running →
// Draining → Terminated lifecycle and returns the sandboxed command's
// exit code. A non-nil error alongside an exit code of -1 indicates a
// failure before the sandbox process ever ran; a SandboxFailed error
// alongside a non-zero exit code means the sandboxed command itself
// failed.
func (r *Runner) Run(ctx context.Context) (int, error) {
	built, err := build(ctx, r.opts.Services, r.opts.HomePath)
	if err != nil {
		return -1, fmt.Errorf("building directives: %w", err)
	}
	r.build = built
	r.state = Built

	if r.opts.DryRun {
		r.printDryRun()
		r.state = Terminated
		return 0, nil
	}

	if err := os.Mkdir(r.opts.RuntimeDir, 0o700); err != nil {
		if os.IsExist(err) {
			return -1, bherr.New("Runner.Run", bherr.AlreadyRunning)
		}
		return -1, bherr.Wrap("Runner.Run", bherr.Io, err)
	}
	if err := os.Mkdir(r.opts.HelperDir, 0o700); err != nil {
		r.drain()
		return -1, bherr.Wrap("Runner.Run", bherr.Io, err)
	}
	r.state = Staged

	if err := homeplugin.EnterAll(r.opts.HomePlugins, r.opts.HomePath); err != nil {
		r.drain()
		return -1, err
	}

	proxy, err := dbusproxy.New(r.cfg.DbusProxyPath, r.opts.DbusSessionAddress, r.opts.DbusSystemAddress, r.cfg.DbusProxyReadyTimeout, r.opts.DebugLogDbus)
	if err != nil {
		r.drain()
		return -1, err
	}
	if err := proxy.Start(ctx, r.opts.RuntimeDir, built.sessionRules, built.systemRules); err != nil {
		r.drain()
		return -1, err
	}
	r.proxy = proxy
	r.state = DbusUp

	exitCode, runErr := r.spawnAndWait(ctx, proxy)

	r.state = Draining
	r.drain()
	r.state = Terminated

	if runErr != nil {
		return exitCode, runErr
	}
	if exitCode != 0 {
		return exitCode, bherr.WithCode("Runner.Run", bherr.SandboxFailed, exitCode)
	}
	return exitCode, nil
}

// spawnAndWait builds the bwrap argv, starts the sandbox helper, runs
// post-init hooks concurrently with waiting for it to exit, and installs
// the host SIGTERM-forwarding handler.
func (r *Runner) spawnAndWait(ctx context.Context, proxy *dbusproxy.Supervisor) (int, error) {
	built := r.build

	mandatoryBinds := []string{
		"--ro-bind", proxy.SessionSocket, sandboxDbusSessionPath,
		"--ro-bind", proxy.SystemSocket, "/var/run/dbus/system_bus_socket",
		"--ro-bind", proxy.SystemSocket, "/run/dbus/system_bus_socket",
		"--bind", r.opts.HelperDir, "/run/bubblehelp",
	}
	built.optionTokens = append(mandatoryBinds, built.optionTokens...)

	optionsFD, err := built.arena.AddTemp("bwrap-options", nulJoin(built.optionTokens))
	if err != nil {
		return -1, err
	}

	argv := []string{"--args", strconv.Itoa(optionsFD)}
	if !built.seccompProg.Empty() {
		seccompFile, err := built.seccompProg.Export()
		if err != nil {
			return -1, err
		}
		seccompFD := built.arena.Add("seccomp-program", seccompFile)
		argv = append(argv, "--seccomp", strconv.Itoa(seccompFD))
	}
	argv = append(argv, r.opts.ExtraBwrapArgs...)
	argv = append(argv, "--")
	if r.opts.DebugHelperScript != "" {
		argv = append(argv, "/bin/sh", r.opts.DebugHelperScript)
	} else {
		argv = append(argv, r.cfg.HelperPath)
	}
	argv = append(argv, built.innerArgv...)
	argv = append(argv, r.opts.Command...)

	cmd := exec.CommandContext(ctx, r.cfg.BwrapPath, argv...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	built.arena.Transfer(cmd)

	if err := cmd.Start(); err != nil {
		return -1, bherr.Wrap("Runner.spawnAndWait", bherr.SandboxFailed, fmt.Errorf("starting bwrap: %w", err))
	}
	r.cmd = cmd
	r.state = SandboxUp
	slog.Infof("sandbox %s: started, bwrap pid=%d", r.opts.InstanceName, cmd.Process.Pid)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; !ok {
			return
		}
		if pid, ok := findSandboxedInitPID(cmd.Process.Pid); ok {
			_ = syscall.Kill(pid, syscall.SIGTERM)
		}
	}()

	r.state = Running
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	hookCtx, cancelHooks := context.WithCancel(ctx)
	hookDone := make(chan struct{})
	go func() {
		defer close(hookDone)
		for {
			if pid, ok := findSandboxedInitPID(cmd.Process.Pid); ok {
				_ = runPostInitHooks(hookCtx, r.opts.Services, pid)
				return
			}
			select {
			case <-hookCtx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}()

	waitErr := cmd.Wait()
	cancelHooks()
	<-hookDone

	if waitErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if ok := asExitError(waitErr, &exitErr); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, bherr.Wrap("Runner.spawnAndWait", bherr.SandboxFailed, waitErr)
}

func asExitError(err error, target **exec.ExitError) bool {
	e, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}
	*target = e
	return true
}

// drain performs the guaranteed, best-effort cleanup sequence in strict
// reverse-acquisition order. It never returns an error: individual
// failures are logged and swallowed so that every remaining step still
// runs.
func (r *Runner) drain() {
	runPostShutdownHooks(r.opts.Services)

	if r.proxy != nil {
		if err := r.proxy.Stop(); err != nil {
			slog.Errorf("stopping dbus proxy: %v", err)
		}
	}

	removeIgnoreMissing(r.opts.HelperSocket)
	removeIgnoreMissing(r.opts.HelperDir)
	removeIgnoreMissing(r.opts.SessionProxySocket)
	removeIgnoreMissing(r.opts.SystemProxySocket)
	removeIgnoreMissing(r.opts.RuntimeDir)

	if r.build != nil {
		r.build.arena.Close()
	}

	homeplugin.ExitAll(r.opts.HomePlugins, r.opts.HomePath)
}

func removeIgnoreMissing(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Errorf("removing %s: %v", path, err)
	}
}

// nulJoin renders tokens as bwrap's --args format: each token followed
// by a NUL byte, including the last.
func nulJoin(tokens []string) []byte {
	var buf bytes.Buffer
	for _, t := range tokens {
		buf.WriteString(t)
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// printDryRun prints the bwrap invocation that would be run, without
// creating any runtime state.
func (r *Runner) printDryRun() {
	fmt.Printf("Bwrap options: %s\n", strings.Join(r.build.optionTokens, " "))
	fmt.Printf("Bwrap args: %s\n", strings.Join(append([]string{r.cfg.HelperPath}, append(r.build.innerArgv, r.opts.Command...)...), " "))
	fmt.Printf("Dbus session args: %s\n", dbusArgvPreview(r.build.sessionRules))
}

func dbusArgvPreview(rules []directive.DbusRule) string {
	tokens := make([]string, 0, len(rules))
	for _, rule := range rules {
		tokens = append(tokens, rule.Flag())
	}
	return strings.Join(tokens, " ")
}
