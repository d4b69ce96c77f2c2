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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/google/subcommands"

	"github.com/bubblehelp/bubblehelp/instance"
	"github.com/bubblehelp/bubblehelp/service"
)

// desktopEntryTemplate follows the freedesktop.org Desktop Entry
// Specification's minimal Application group, built with text/template
// rather than hand-joined strings.
var desktopEntryTemplate = template.Must(template.New("desktop-entry").Parse(
	`[Desktop Entry]
Type=Application
Version=1.0
Name={{.Name}}
Comment={{.Comment}}
Exec=bubblehelp run --wait {{.Instance}} --
Terminal=false
{{- if .Categories}}
Categories={{.Categories}}
{{- end}}
`))

type desktopEntryData struct {
	Name       string
	Comment    string
	Instance   string
	Categories string
}

// writeDesktopEntry renders profile's entry for instanceName into
// $XDG_DATA_HOME/applications (or ~/.local/share/applications), naming
// it after desktopEntryName.
func writeDesktopEntry(instanceName string, profile *service.Profile, desktopEntryName string) error {
	dir, err := applicationsDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	categories := ""
	if profile != nil && profile.IsGTKApp {
		categories = "Network;"
	}
	data := desktopEntryData{
		Name:       desktopEntryName,
		Instance:   instanceName,
		Categories: categories,
	}
	if profile != nil {
		data.Comment = profile.Description
	}

	path := filepath.Join(dir, fmt.Sprintf("bubblehelp-%s.desktop", desktopEntryName))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return desktopEntryTemplate.Execute(f, data)
}

func applicationsDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "applications"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "applications"), nil
}

// GenerateDesktopEntry implements subcommands.Command for
// "generate-desktop-entry".
type GenerateDesktopEntry struct {
	profile      string
	desktopEntry string
}

func (*GenerateDesktopEntry) Name() string { return "generate-desktop-entry" }

func (*GenerateDesktopEntry) Synopsis() string {
	return "write a .desktop launcher for an existing instance"
}

func (*GenerateDesktopEntry) Usage() string {
	return `generate-desktop-entry [--profile P] [--desktop-entry N] <instance> - write a .desktop launcher.
`
}

func (g *GenerateDesktopEntry) SetFlags(f *flag.FlagSet) {
	f.StringVar(&g.profile, "profile", "", "profile supplying the description and category hints")
	f.StringVar(&g.desktopEntry, "desktop-entry", "", "name of the desktop entry; defaults to the instance name")
}

func (g *GenerateDesktopEntry) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	env := args[0].(*Env)
	name := f.Arg(0)

	inst := instance.Open(env.Config, env.ServiceRegistry, env.HomePluginRegistry, name)
	if !inst.Exists() {
		fmt.Fprintf(os.Stderr, "instance %q does not exist\n", name)
		return subcommands.ExitFailure
	}

	var profile *service.Profile
	if g.profile != "" {
		p, ok := env.Profiles[g.profile]
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown profile %q\n", g.profile)
			return subcommands.ExitFailure
		}
		profile = p
	}

	entryName := g.desktopEntry
	if entryName == "" {
		entryName = name
	}

	if err := writeDesktopEntry(name, profile, entryName); err != nil {
		fmt.Fprintf(os.Stderr, "generate-desktop-entry %s: %v\n", name, err)
		return subcommands.ExitFailure
	}
	if err := inst.SetMetadata(func(m *instance.Metadata) {
		m.DesktopEntryName = entryName
	}); err != nil {
		fmt.Fprintf(os.Stderr, "generate-desktop-entry %s: recording desktop entry name: %v\n", name, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
