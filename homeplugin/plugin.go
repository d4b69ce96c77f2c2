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

// Package homeplugin implements scoped mutation of an instance's home
// directory around a single run: Enter before the sandbox starts, Exit
// after teardown, regardless of how the run ended.
package homeplugin

import (
	"fmt"

	"github.com/bubblehelp/bubblehelp/internal/slog"
)

// Plugin is a scoped modifier of an instance's home directory, active
// only for the duration of a run.
type Plugin interface {
	// Name identifies the plugin in an instance's metadata.
	Name() string
	// Enter runs before the sandbox helper is started, with homePath set
	// to the instance's home directory on the host.
	Enter(homePath string) error
	// Exit always runs once the run has finished, in reverse plugin
	// order, regardless of how Enter's sandbox run concluded.
	Exit(homePath string) error
}

// Definition is how a Plugin is registered and constructed, mirroring
// service.Definition's New-function shape.
type Definition struct {
	Name string
	New  func() Plugin
}

// Registry is the set of home plugins an Instance may activate by name.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry { return &Registry{defs: make(map[string]*Definition)} }

// Register adds d, overwriting any previous definition under the same name.
func (r *Registry) Register(d *Definition) { r.defs[d.Name] = d }

// Lookup returns the named definition, if registered.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Build constructs the named plugins in order, skipping (and logging)
// any name the registry doesn't recognise rather than failing the run.
func (r *Registry) Build(names []string) []Plugin {
	plugins := make([]Plugin, 0, len(names))
	for _, name := range names {
		def, ok := r.defs[name]
		if !ok {
			slog.Warningf("homeplugin: unknown plugin %q, skipping", name)
			continue
		}
		plugins = append(plugins, def.New())
	}
	return plugins
}

// EnterAll runs Enter on every plugin in order. If one fails, Exit is run
// (in reverse order) on every plugin that already succeeded, and the
// triggering error is returned.
func EnterAll(plugins []Plugin, homePath string) error {
	entered := make([]Plugin, 0, len(plugins))
	for _, p := range plugins {
		if err := p.Enter(homePath); err != nil {
			ExitAll(entered, homePath)
			return fmt.Errorf("home plugin %q: enter: %w", p.Name(), err)
		}
		entered = append(entered, p)
	}
	return nil
}

// ExitAll runs Exit on every plugin in reverse order, best-effort:
// individual failures are logged, never raised, matching the Drain
// phase's guaranteed-cleanup contract.
func ExitAll(plugins []Plugin, homePath string) {
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Exit(homePath); err != nil {
			slog.Errorf("home plugin %q: exit: %v", p.Name(), err)
		}
	}
}
