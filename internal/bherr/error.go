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

// Package bherr defines the error taxonomy used across bubblehelp.
package bherr

import "fmt"

// Kind classifies an Error without tying callers to a specific message.
type Kind int

const (
	// Config covers malformed TOML, unknown option values, and unknown
	// seccomp syscall names.
	Config Kind = iota
	// AlreadyRunning is returned when the runtime directory for an
	// instance already exists at start.
	AlreadyRunning
	// NotRunning is returned when an RPC is attempted against an
	// instance whose helper socket is absent.
	NotRunning
	// DbusProxyTimeout is returned when the proxy does not signal
	// readiness within its deadline.
	DbusProxyTimeout
	// DbusProxyExited is returned when the proxy process exits before
	// signalling readiness.
	DbusProxyExited
	// SandboxFailed is returned when bwrap exits non-zero.
	SandboxFailed
	// RpcTimeout is returned when a helper socket read exceeds its
	// deadline.
	RpcTimeout
	// RpcProtocol is returned when a helper socket response cannot be
	// decoded.
	RpcProtocol
	// InstanceMissing is returned when an instance directory is absent.
	InstanceMissing
	// Io covers unclassified filesystem errors.
	Io
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case AlreadyRunning:
		return "already_running"
	case NotRunning:
		return "not_running"
	case DbusProxyTimeout:
		return "dbus_proxy_timeout"
	case DbusProxyExited:
		return "dbus_proxy_exited"
	case SandboxFailed:
		return "sandbox_failed"
	case RpcTimeout:
		return "rpc_timeout"
	case RpcProtocol:
		return "rpc_protocol"
	case InstanceMissing:
		return "instance_missing"
	case Io:
		return "io"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind and the operation that
// produced it, following the same "narrow taxonomy, human sentence"
// convention as the rest of the codebase's diagnostics.
type Error struct {
	Kind Kind
	Op   string
	Err  error

	// Code carries an exit/process code for SandboxFailed and
	// DbusProxyExited; zero otherwise.
	Code int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error for op/kind with no wrapped cause.
func New(op string, kind Kind) *Error {
	return &Error{Op: op, Kind: kind}
}

// Wrap constructs an *Error for op/kind wrapping err.
func Wrap(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// WithCode constructs an *Error carrying a process exit code.
func WithCode(op string, kind Kind, code int) *Error {
	return &Error{Op: op, Kind: kind, Code: code}
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if ok := asError(err, &be); ok {
		return be.Kind, true
	}
	return 0, false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if be, ok := err.(*Error); ok {
			*target = be
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
