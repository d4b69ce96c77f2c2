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

// Package cmd implements bubblehelp's CLI dispatch targets as
// subcommands.Command values.
package cmd

import (
	"github.com/bubblehelp/bubblehelp/homeplugin"
	"github.com/bubblehelp/bubblehelp/internal/config"
	"github.com/bubblehelp/bubblehelp/service"
)

// Env carries the collaborators every dispatch target needs, passed
// through subcommands.Execute's variadic args.
type Env struct {
	Config             *config.Config
	ServiceRegistry    *service.Registry
	HomePluginRegistry *homeplugin.Registry
	Profiles           map[string]*service.Profile
}
