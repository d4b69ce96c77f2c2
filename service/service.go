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

package service

import "context"

// Service is a reusable bundle of sandbox directives enabled for an
// instance. Given its options it deterministically produces the same
// directive sequence.
type Service interface {
	// Name is the service's TOML table key.
	Name() string

	// Directives starts the service's directive generator. The caller
	// drives it with Stream.Next/Resolve until Next reports ok == false,
	// then calls Stream.Wait for the terminal error.
	Directives(ctx context.Context) *Stream

	// PostInitHook runs once the sandboxed pid-1 is observable, e.g. to
	// join it to a cgroup. Errors are logged, not raised.
	PostInitHook(sandboxedPid int) error

	// PostShutdownHook runs during Drain, best-effort.
	PostShutdownHook() error
}

// Base gives every concrete Service a name and no-op hooks to embed, so
// only services that actually need a hook (like cgroup) must implement
// one.
type Base struct {
	name string
}

// NewBase returns a Base carrying name.
func NewBase(name string) Base { return Base{name: name} }

// Name implements Service.Name.
func (b Base) Name() string { return b.name }

// PostInitHook implements Service.PostInitHook as a no-op.
func (b Base) PostInitHook(int) error { return nil }

// PostShutdownHook implements Service.PostShutdownHook as a no-op.
func (b Base) PostShutdownHook() error { return nil }
