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
	"context"

	"github.com/bubblehelp/bubblehelp/directive"
)

// NewDefaultRegistry registers the representative set of services used to
// exercise the engine. The full real-world service/profile catalog is an
// opaque external producer of directives; these stand in for it.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(commonDefinition())
	r.Register(x11Definition())
	r.Register(networkDefinition())
	r.Register(pulseaudioDefinition())
	r.Register(dbusDefinition())
	r.Register(filesystemDefinition())
	r.Register(cgroupDefinition())
	return r
}

// genericService is the concrete Service used by every builtin except
// cgroup, which needs a real PostInitHook.
type genericService struct {
	Base
	opts *OptionSet
	gen  func(opts *OptionSet) Generator
}

func (s *genericService) Directives(ctx context.Context) *Stream {
	return NewStream(ctx, s.gen(s.opts))
}

func commonDefinition() *Definition {
	return &Definition{
		Name:        DefaultServiceName,
		Description: "Directives applied to every instance regardless of configuration.",
		NewOptions:  func() *OptionSet { return NewOptionSet() },
		New: func(opts *OptionSet) Service {
			return &genericService{Base: NewBase(DefaultServiceName), opts: opts, gen: commonGenerator}
		},
	}
}

func commonGenerator(*OptionSet) Generator {
	return func(ctx context.Context, emit Emit) error {
		home := emit(directive.NewWantsHomeBind())
		emit(directive.NewBind(home, "/home/user", false, false))
		emit(directive.NewEnvSet("HOME", "/home/user"))
		emit(directive.NewEnvPassthrough("LANG"))
		emit(directive.NewEnvPassthrough("TERM"))
		emit(directive.NewEnvPassthrough("XDG_SESSION_TYPE"))
		emit(directive.NewChangeDir("/home/user"))
		emit(directive.NewDirCreate("/tmp", 0o1777))
		return nil
	}
}

func x11Definition() *Definition {
	return &Definition{
		Name:        "x11",
		Description: "Grants access to the host X11 socket.",
		NewOptions:  func() *OptionSet { return NewOptionSet() },
		New: func(opts *OptionSet) Service {
			return &genericService{Base: NewBase("x11"), opts: opts, gen: x11Generator}
		},
	}
}

func x11Generator(*OptionSet) Generator {
	return func(ctx context.Context, emit Emit) error {
		emit(directive.NewBind("/tmp/.X11-unix", "/tmp/.X11-unix", false, true))
		emit(directive.NewEnvPassthrough("DISPLAY"))
		emit(directive.NewEnvPassthrough("XAUTHORITY"))
		return nil
	}
}

func networkDefinition() *Definition {
	return &Definition{
		Name:        "network",
		Description: "Controls whether the instance shares the host network namespace.",
		NewOptions: func() *OptionSet {
			return NewOptionSet(NewOption("share_network", "Share network", "Share the host network namespace instead of an isolated one.", OptBool, false))
		},
		New: func(opts *OptionSet) Service {
			return &genericService{Base: NewBase("network"), opts: opts, gen: networkGenerator}
		},
	}
}

func networkGenerator(opts *OptionSet) Generator {
	return func(ctx context.Context, emit Emit) error {
		if opts.Get("share_network").Bool() {
			emit(directive.NewShareNet())
			emit(directive.NewDbusSystemRule(directive.DbusTalk, "org.freedesktop.NetworkManager"))
		}
		return nil
	}
}

func pulseaudioDefinition() *Definition {
	return &Definition{
		Name:        "pulseaudio",
		Description: "Grants access to the host PulseAudio/PipeWire socket.",
		NewOptions:  func() *OptionSet { return NewOptionSet() },
		New: func(opts *OptionSet) Service {
			return &genericService{Base: NewBase("pulseaudio"), opts: opts, gen: pulseaudioGenerator}
		},
	}
}

func pulseaudioGenerator(*OptionSet) Generator {
	return func(ctx context.Context, emit Emit) error {
		emit(directive.NewEnvSet("PULSE_SERVER", "unix:/run/user/bubblehelp/pulse/native"))
		emit(directive.NewBind("/run/user/host/pulse/native", "/run/user/bubblehelp/pulse/native", false, true))
		return nil
	}
}

func dbusDefinition() *Definition {
	return &Definition{
		Name:        "dbus",
		Description: "Declares D-Bus session/system proxy rules for well-known names.",
		NewOptions: func() *OptionSet {
			return NewOptionSet(
				NewOption("session_talk_to", "Session talk-to names", "Session-bus names the instance may talk to.", OptStringList, []string{}),
				NewOption("system_talk_to", "System talk-to names", "System-bus names the instance may talk to.", OptStringList, []string{}),
			)
		},
		New: func(opts *OptionSet) Service {
			return &genericService{Base: NewBase("dbus"), opts: opts, gen: dbusGenerator}
		},
	}
}

func dbusGenerator(opts *OptionSet) Generator {
	return func(ctx context.Context, emit Emit) error {
		for _, name := range opts.Get("session_talk_to").StringList() {
			emit(directive.NewDbusSessionRule(directive.DbusTalk, name))
		}
		for _, name := range opts.Get("system_talk_to").StringList() {
			emit(directive.NewDbusSystemRule(directive.DbusTalk, name))
		}
		return nil
	}
}

func filesystemDefinition() *Definition {
	return &Definition{
		Name:        "filesystem",
		Description: "Additional read-write and read-only host path binds.",
		NewOptions: func() *OptionSet {
			return NewOptionSet(
				NewOption("home_paths", "Home-relative paths", "Paths bound read-write relative to the sandbox home.", OptStringList, []string{}),
				NewOption("read_only_paths", "Read-only host paths", "Absolute host paths bound read-only.", OptStringList, []string{}),
			)
		},
		New: func(opts *OptionSet) Service {
			return &genericService{Base: NewBase("filesystem"), opts: opts, gen: filesystemGenerator}
		},
	}
}

func filesystemGenerator(opts *OptionSet) Generator {
	return func(ctx context.Context, emit Emit) error {
		home := emit(directive.NewWantsHomeBind())
		for _, rel := range opts.Get("home_paths").StringList() {
			emit(directive.NewBind(home+"/"+rel, "/home/user/"+rel, false, false))
		}
		for _, p := range opts.Get("read_only_paths").StringList() {
			emit(directive.NewBind(p, p, true, false))
		}
		return nil
	}
}
