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

import (
	"fmt"
	"strings"

	"github.com/bubblehelp/bubblehelp/internal/bherr"
)

// OptionKind selects an Option's stored representation.
type OptionKind int

const (
	// OptBool is a plain boolean switch.
	OptBool OptionKind = iota
	// OptString is a free-form string.
	OptString
	// OptSpaceSeparatedString is stored as a single space-joined string
	// but exposed to callers as a list.
	OptSpaceSeparatedString
	// OptStringList is a native TOML array of strings.
	OptStringList
)

// Option is one strongly-typed service configuration entry. It carries
// enough metadata (PrettyName, Description) for an external GUI editor
// to render it, even though that editor itself lives outside this
// module.
type Option struct {
	Name        string
	PrettyName  string
	Description string
	Kind        OptionKind
	Default     any

	boolVal   bool
	stringVal string
	listVal   []string
}

// NewOption declares an option definition with its default value.
func NewOption(name, prettyName, description string, kind OptionKind, def any) *Option {
	o := &Option{Name: name, PrettyName: prettyName, Description: description, Kind: kind, Default: def}
	o.reset()
	return o
}

func (o *Option) reset() {
	switch o.Kind {
	case OptBool:
		if v, ok := o.Default.(bool); ok {
			o.boolVal = v
		}
	case OptString, OptSpaceSeparatedString:
		if v, ok := o.Default.(string); ok {
			o.stringVal = v
		}
	case OptStringList:
		if v, ok := o.Default.([]string); ok {
			o.listVal = append([]string(nil), v...)
		}
	}
}

// Clone returns an independent copy carrying the same definition and
// current value, used when materialising a Service instance from a
// shared registry entry.
func (o *Option) Clone() *Option {
	c := *o
	c.listVal = append([]string(nil), o.listVal...)
	return &c
}

// ReadFromConfig loads raw (as decoded from TOML) into the option,
// coercing space-separated-string values that arrive as a plain string.
func (o *Option) ReadFromConfig(raw any) error {
	switch o.Kind {
	case OptBool:
		v, ok := raw.(bool)
		if !ok {
			return bherr.Wrap("Option.ReadFromConfig", bherr.Config, fmt.Errorf("option %q: expected bool, got %T", o.Name, raw))
		}
		o.boolVal = v
	case OptString, OptSpaceSeparatedString:
		v, ok := raw.(string)
		if !ok {
			return bherr.Wrap("Option.ReadFromConfig", bherr.Config, fmt.Errorf("option %q: expected string, got %T", o.Name, raw))
		}
		o.stringVal = v
	case OptStringList:
		items, ok := raw.([]any)
		if !ok {
			return bherr.Wrap("Option.ReadFromConfig", bherr.Config, fmt.Errorf("option %q: expected list, got %T", o.Name, raw))
		}
		list := make([]string, 0, len(items))
		for _, it := range items {
			s, ok := it.(string)
			if !ok {
				return bherr.Wrap("Option.ReadFromConfig", bherr.Config, fmt.Errorf("option %q: expected string element, got %T", o.Name, it))
			}
			list = append(list, s)
		}
		o.listVal = list
	}
	return nil
}

// WriteToConfig projects the option back to a TOML-encodable value.
func (o *Option) WriteToConfig() any {
	switch o.Kind {
	case OptBool:
		return o.boolVal
	case OptString, OptSpaceSeparatedString:
		return o.stringVal
	case OptStringList:
		return append([]string(nil), o.listVal...)
	}
	return nil
}

// GUIValue projects the option for an editor collaborator: the
// space-separated-string variant is exposed as a list there even though
// it round-trips through TOML as a single string.
func (o *Option) GUIValue() any {
	if o.Kind == OptSpaceSeparatedString {
		return o.StringList()
	}
	return o.WriteToConfig()
}

// Bool returns the boolean value (zero value if the option is not an
// OptBool).
func (o *Option) Bool() bool { return o.boolVal }

// SetBool sets a boolean option's value.
func (o *Option) SetBool(v bool) { o.boolVal = v }

// String returns the string value (zero value unless the option is an
// OptString or OptSpaceSeparatedString).
func (o *Option) String() string { return o.stringVal }

// SetString sets a string option's value.
func (o *Option) SetString(v string) { o.stringVal = v }

// StringList returns the list value; for OptSpaceSeparatedString it is
// derived by splitting on whitespace, filtering empty fields.
func (o *Option) StringList() []string {
	if o.Kind == OptSpaceSeparatedString {
		return strings.Fields(o.stringVal)
	}
	return append([]string(nil), o.listVal...)
}

// SetStringList sets a list option's value; for OptSpaceSeparatedString
// it joins the fields with a single space.
func (o *Option) SetStringList(v []string) {
	if o.Kind == OptSpaceSeparatedString {
		o.stringVal = strings.Join(v, " ")
		return
	}
	o.listVal = append([]string(nil), v...)
}
