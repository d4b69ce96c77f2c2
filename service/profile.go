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

// Profile is a named, pre-defined bundle of enabled services used by the
// create dispatch target. The real-world profile catalog is an external,
// opaque producer of service configuration; these two profiles exist to
// exercise `create` end to end.
type Profile struct {
	Name          string
	Description   string
	DesktopEntry  string
	IsGTKApp      bool
	EnableDefault func(cfg *ServiceConfig)
}

// DefaultProfiles returns the representative profile catalog.
func DefaultProfiles() map[string]*Profile {
	return map[string]*Profile{
		"firefox": {
			Name:        "firefox",
			Description: "Graphical browser: X11, network, PulseAudio, and D-Bus notifications.",
			IsGTKApp:    true,
			EnableDefault: func(cfg *ServiceConfig) {
				cfg.Enable("x11")
				net := cfg.Enable("network")
				net.Get("share_network").SetBool(true)
				cfg.Enable("pulseaudio")
				dbus := cfg.Enable("dbus")
				dbus.Get("session_talk_to").SetStringList([]string{"org.freedesktop.Notifications"})
			},
		},
		"generic-gui": {
			Name:        "generic-gui",
			Description: "Minimal graphical profile: X11 only, no network.",
			IsGTKApp:    false,
			EnableDefault: func(cfg *ServiceConfig) {
				cfg.Enable("x11")
			},
		},
	}
}
