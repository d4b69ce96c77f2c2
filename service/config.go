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

// Package service implements ServiceConfig, the TOML-backed map from
// service name to option set, and the builtin Services that turn options
// into directive streams.
package service

import (
	"bytes"
	"reflect"

	"github.com/BurntSushi/toml"

	"github.com/bubblehelp/bubblehelp/internal/bherr"
)

type entry struct {
	known bool
	opts  *OptionSet     // set iff known
	extra map[string]any // unknown option keys of a known service, preserved verbatim
	raw   map[string]any // full raw table of an unknown service, preserved verbatim
}

// ServiceConfig is a mapping from service name to option map, loaded from
// or dumped to the instance's services.toml.
type ServiceConfig struct {
	registry *Registry
	entries  map[string]*entry
	order    []string
}

// NewServiceConfig returns an empty ServiceConfig bound to registry, used
// to build a fresh configuration (e.g. from a Profile) rather than
// loading one from disk.
func NewServiceConfig(registry *Registry) *ServiceConfig {
	return &ServiceConfig{registry: registry, entries: make(map[string]*entry)}
}

// LoadServiceConfig decodes TOML bytes into a ServiceConfig bound to
// registry. Unknown service names are preserved verbatim; unknown option
// names within a known service are preserved but ignored.
func LoadServiceConfig(data []byte, registry *Registry) (*ServiceConfig, error) {
	var raw map[string]map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, bherr.Wrap("LoadServiceConfig", bherr.Config, err)
	}

	cfg := NewServiceConfig(registry)
	for name, table := range raw {
		def, ok := registry.Lookup(name)
		if !ok {
			cfg.entries[name] = &entry{known: false, raw: table}
			cfg.order = append(cfg.order, name)
			continue
		}
		opts := def.NewOptions()
		extra := make(map[string]any)
		for key, val := range table {
			if opt := opts.Get(key); opt != nil {
				if err := opt.ReadFromConfig(val); err != nil {
					return nil, err
				}
				continue
			}
			extra[key] = val
		}
		cfg.entries[name] = &entry{known: true, opts: opts, extra: extra}
		cfg.order = append(cfg.order, name)
	}
	return cfg, nil
}

// Enable ensures name has an entry with default option values (if not
// already present) and returns its OptionSet, or nil if name is not
// registered.
func (c *ServiceConfig) Enable(name string) *OptionSet {
	if e, ok := c.entries[name]; ok && e.known {
		return e.opts
	}
	def, ok := c.registry.Lookup(name)
	if !ok {
		return nil
	}
	e := &entry{known: true, opts: def.NewOptions(), extra: map[string]any{}}
	c.entries[name] = e
	c.order = append(c.order, name)
	return e.opts
}

// Disable removes name's entry, if any.
func (c *ServiceConfig) Disable(name string) {
	if _, ok := c.entries[name]; !ok {
		return
	}
	delete(c.entries, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// IsEnabled reports whether name has an explicit entry (the "common"
// service is enabled regardless, see IterServices).
func (c *ServiceConfig) IsEnabled(name string) bool {
	_, ok := c.entries[name]
	return ok
}

// IterServices builds the Service instances named by this configuration.
// If includeDefault, the "common" service is always included even if
// absent from the file. If includeDisabled, every registered service is
// returned (enabled ones carrying their stored options, the rest their
// defaults) instead of only the ones explicitly present.
func (c *ServiceConfig) IterServices(includeDisabled, includeDefault bool) []Service {
	var services []Service
	seen := make(map[string]bool)

	add := func(name string, opts *OptionSet) {
		def, ok := c.registry.Lookup(name)
		if !ok {
			return
		}
		services = append(services, def.New(opts))
		seen[name] = true
	}

	for _, name := range c.order {
		e := c.entries[name]
		if !e.known {
			continue
		}
		add(name, e.opts)
	}

	if includeDefault && !seen[DefaultServiceName] {
		if def, ok := c.registry.Lookup(DefaultServiceName); ok {
			add(DefaultServiceName, def.NewOptions())
		}
	}

	if includeDisabled {
		for _, name := range c.registry.Names() {
			if seen[name] {
				continue
			}
			def, _ := c.registry.Lookup(name)
			add(name, def.NewOptions())
		}
	}

	return services
}

// conf rebuilds the plain map[string]map[string]any representation.
func (c *ServiceConfig) conf() map[string]map[string]any {
	out := make(map[string]map[string]any, len(c.entries))
	for name, e := range c.entries {
		if !e.known {
			out[name] = e.raw
			continue
		}
		table := make(map[string]any, len(e.opts.Names())+len(e.extra))
		for _, optName := range e.opts.Names() {
			table[optName] = e.opts.Get(optName).WriteToConfig()
		}
		for k, v := range e.extra {
			table[k] = v
		}
		out[name] = table
	}
	return out
}

// Dump serialises the configuration as TOML bytes.
func (c *ServiceConfig) Dump() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.conf()); err != nil {
		return nil, bherr.Wrap("ServiceConfig.Dump", bherr.Io, err)
	}
	return buf.Bytes(), nil
}

// Equal reports whether c and other serialise to structurally equal
// configurations.
func (c *ServiceConfig) Equal(other *ServiceConfig) bool {
	a, errA := c.Dump()
	b, errB := other.Dump()
	if errA != nil || errB != nil {
		return false
	}
	var ma, mb map[string]any
	if err := toml.Unmarshal(a, &ma); err != nil {
		return false
	}
	if err := toml.Unmarshal(b, &mb); err != nil {
		return false
	}
	return reflect.DeepEqual(ma, mb)
}

// Validate parses data into a throwaway ServiceConfig and returns the
// Config error if the TOML is malformed or any known-service option fails
// to type-check; used by Instance's edit-config validation step.
func Validate(data []byte, registry *Registry) error {
	_, err := LoadServiceConfig(data, registry)
	return err
}
