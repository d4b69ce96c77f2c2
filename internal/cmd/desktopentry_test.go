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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bubblehelp/bubblehelp/service"
)

func TestWriteDesktopEntryRendersExecLine(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	profile := &service.Profile{Description: "Graphical browser", IsGTKApp: true}
	if err := writeDesktopEntry("alice", profile, "firefox-alice"); err != nil {
		t.Fatalf("writeDesktopEntry: %v", err)
	}

	path := filepath.Join(dir, "applications", "bubblehelp-firefox-alice.desktop")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	content := string(data)
	if !strings.Contains(content, "Exec=bubblehelp run --wait alice --") {
		t.Fatalf("desktop entry missing expected Exec line:\n%s", content)
	}
	if !strings.Contains(content, "Categories=Network;") {
		t.Fatalf("desktop entry missing expected Categories line:\n%s", content)
	}
}

func TestApplicationsDirPrefersXDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	dir, err := applicationsDir()
	if err != nil {
		t.Fatalf("applicationsDir: %v", err)
	}
	if dir != "/tmp/xdg-data/applications" {
		t.Fatalf("applicationsDir = %q, want /tmp/xdg-data/applications", dir)
	}
}
