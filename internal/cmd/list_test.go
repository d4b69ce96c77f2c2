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
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bubblehelp/bubblehelp/internal/config"
	"github.com/bubblehelp/bubblehelp/service"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	old := os.Stdout
	os.Stdout = w
	fn()
	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestListInstancesSorted(t *testing.T) {
	dataRoot := t.TempDir()
	for _, name := range []string{"zeta", "alice", "mid"} {
		if err := os.MkdirAll(filepath.Join(dataRoot, name), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}

	env := &Env{
		Config:          &config.Config{DataRoot: dataRoot},
		ServiceRegistry: service.NewDefaultRegistry(),
		Profiles:        service.DefaultProfiles(),
	}

	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	if err := fs.Parse([]string{"instances"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	out := captureStdout(t, func() {
		(&List{}).Execute(context.Background(), fs, env)
	})
	if got, want := out, "alice\nmid\nzeta\n"; got != want {
		t.Fatalf("list instances = %q, want %q", got, want)
	}
}

func TestListServicesIncludesCommon(t *testing.T) {
	env := &Env{
		Config:          &config.Config{},
		ServiceRegistry: service.NewDefaultRegistry(),
		Profiles:        service.DefaultProfiles(),
	}

	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	if err := fs.Parse([]string{"services"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	out := captureStdout(t, func() {
		(&List{}).Execute(context.Background(), fs, env)
	})
	if !strings.Contains(out, "common\n") {
		t.Fatalf("list services = %q, want it to contain %q", out, "common")
	}
}
