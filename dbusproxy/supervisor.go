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

// Package dbusproxy supervises an xdg-dbus-proxy child process that
// filters the session and system buses on behalf of a sandboxed
// instance.
package dbusproxy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/bubblehelp/bubblehelp/directive"
	"github.com/bubblehelp/bubblehelp/internal/bherr"
	"github.com/bubblehelp/bubblehelp/internal/slog"
)

// Supervisor manages one xdg-dbus-proxy process for a single sandbox
// launch. It is not safe for concurrent use.
type Supervisor struct {
	binaryPath     string
	sessionAddress string
	systemAddress  string
	readyTimeout   time.Duration

	debugLog bool

	cmd           *exec.Cmd
	readyPipeR    *os.File
	waitDone      chan struct{}
	waitErr       error
	SessionSocket string
	SystemSocket  string
}

// New validates the session bus address and returns a Supervisor ready to
// Start. systemAddress may be empty, in which case the system bus is
// proxied at its well-known default path. debugLog enables xdg-dbus-proxy's
// own --log flag on both bus sections.
func New(binaryPath, sessionAddress, systemAddress string, readyTimeout time.Duration, debugLog bool) (*Supervisor, error) {
	if _, err := dbus.ParseAddresses(sessionAddress); err != nil {
		return nil, bherr.Wrap("dbusproxy.New", bherr.Config, fmt.Errorf("invalid session bus address %q: %w", sessionAddress, err))
	}
	if systemAddress == "" {
		systemAddress = "unix:path=/var/run/dbus/system_bus_socket"
	}
	return &Supervisor{
		binaryPath:     binaryPath,
		sessionAddress: sessionAddress,
		systemAddress:  systemAddress,
		readyTimeout:   readyTimeout,
		debugLog:       debugLog,
	}, nil
}

// Start builds the combined argv from sessionRules and systemRules,
// spawns xdg-dbus-proxy with a ready-signal fd donated as its last
// positional argument, and blocks until the proxy closes that fd (or
// readyTimeout elapses).
func (s *Supervisor) Start(ctx context.Context, socketDir string, sessionRules, systemRules []directive.DbusRule) error {
	s.SessionSocket = socketDir + "/session-bus-proxy"
	s.SystemSocket = socketDir + "/system-bus-proxy"

	readyR, readyW, err := os.Pipe()
	if err != nil {
		return bherr.Wrap("Supervisor.Start", bherr.Io, fmt.Errorf("creating ready pipe: %w", err))
	}
	s.readyPipeR = readyR

	args := []string{s.sessionAddress, s.SessionSocket}
	for _, r := range sessionRules {
		args = append(args, r.Flag())
	}
	args = append(args, "--filter")
	if s.debugLog {
		args = append(args, "--log")
	}
	args = append(args, s.systemAddress, s.SystemSocket)
	for _, r := range systemRules {
		args = append(args, r.Flag())
	}
	args = append(args, "--filter")
	if s.debugLog {
		args = append(args, "--log")
	}
	args = append(args, "--fd=3")

	cmd := exec.CommandContext(ctx, s.binaryPath, args...)
	cmd.ExtraFiles = []*os.File{readyW}
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		readyW.Close()
		readyR.Close()
		return bherr.Wrap("Supervisor.Start", bherr.DbusProxyExited, fmt.Errorf("starting xdg-dbus-proxy: %w", err))
	}
	s.cmd = cmd
	readyW.Close()

	s.waitDone = make(chan struct{})
	go func() {
		s.waitErr = s.cmd.Wait()
		close(s.waitDone)
	}()

	if err := s.waitReady(); err != nil {
		_ = s.Stop()
		return err
	}
	slog.Debugf("dbusproxy: ready, pid=%d session=%s system=%s", cmd.Process.Pid, s.SessionSocket, s.SystemSocket)
	return nil
}

// waitReady blocks until the proxy's ready fd is closed (it writes
// nothing, only closes it once both sockets are listening), bounded by
// readyTimeout. The same fd is also closed by the kernel if the proxy
// dies before reaching that point, so a bare read completion is not
// enough: waitDone is checked alongside it to tell a genuine ready
// signal from the process having exited first.
func (s *Supervisor) waitReady() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.readyTimeout)
	defer cancel()

	readyCh := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		s.readyPipeR.Read(buf)
		close(readyCh)
	}()

	select {
	case <-readyCh:
		select {
		case <-s.waitDone:
			return s.exitedErr()
		default:
			return nil
		}
	case <-s.waitDone:
		return s.exitedErr()
	case <-ctx.Done():
		return bherr.New("Supervisor.waitReady", bherr.DbusProxyTimeout)
	}
}

// exitedErr reports waitErr (captured by Start's wait goroutine) as a
// DbusProxyExited bherr, carrying the proxy's exit code when available.
func (s *Supervisor) exitedErr() error {
	var exitErr *exec.ExitError
	if s.waitErr != nil && asExitError(s.waitErr, &exitErr) {
		return bherr.WithCode("Supervisor.waitReady", bherr.DbusProxyExited, exitErr.ExitCode())
	}
	return bherr.New("Supervisor.waitReady", bherr.DbusProxyExited)
}

func asExitError(err error, target **exec.ExitError) bool {
	e, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}
	*target = e
	return true
}

// Pid returns the proxy's process id, or 0 if it has not started.
func (s *Supervisor) Pid() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Stop sends SIGTERM to the proxy and waits for it to exit, swallowing
// ESRCH ("already gone") instead of treating it as a failure.
func (s *Supervisor) Stop() error {
	if s.readyPipeR != nil {
		s.readyPipeR.Close()
	}
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}

	if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) && err != syscall.ESRCH {
		return bherr.Wrap("Supervisor.Stop", bherr.DbusProxyExited, err)
	}

	select {
	case <-s.waitDone:
		return s.waitErr
	case <-time.After(5 * time.Second):
		_ = s.cmd.Process.Kill()
		<-s.waitDone
		return bherr.New("Supervisor.Stop", bherr.DbusProxyExited)
	}
}
