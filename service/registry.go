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

// OptionSet is an ordered, named collection of Options belonging to one
// service instance.
type OptionSet struct {
	order []string
	opts  map[string]*Option
}

// NewOptionSet builds an OptionSet from option definitions, in the given
// declaration order.
func NewOptionSet(defs ...*Option) *OptionSet {
	os := &OptionSet{opts: make(map[string]*Option, len(defs))}
	for _, d := range defs {
		os.order = append(os.order, d.Name)
		os.opts[d.Name] = d.Clone()
	}
	return os
}

// Get returns the named option, or nil if undeclared.
func (os *OptionSet) Get(name string) *Option { return os.opts[name] }

// Names returns option names in declaration order.
func (os *OptionSet) Names() []string { return os.order }

// Clone returns an independent copy of the set.
func (os *OptionSet) Clone() *OptionSet {
	c := &OptionSet{order: append([]string(nil), os.order...), opts: make(map[string]*Option, len(os.opts))}
	for k, v := range os.opts {
		c.opts[k] = v.Clone()
	}
	return c
}

// Definition is a service's static shape: its option declarations and the
// constructor that turns a populated OptionSet into a runnable Service.
type Definition struct {
	Name        string
	Description string
	NewOptions  func() *OptionSet
	New         func(opts *OptionSet) Service
}

// Registry maps service names to their Definition, the dependency the
// spec's section 9 design note asks ServiceConfig to take explicitly
// rather than reaching for a module-level catalog.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a Definition, overwriting any previous one of the same
// name.
func (r *Registry) Register(d *Definition) {
	r.defs[d.Name] = d
}

// Lookup returns the Definition for name, if registered.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Names returns every registered service name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	return names
}

// DefaultServiceName is the service that is always considered enabled.
const DefaultServiceName = "common"
