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

package homeplugin

import "testing"

type recordingPlugin struct {
	name       string
	failEnter  bool
	entered    *[]string
	exited     *[]string
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) Enter(string) error {
	if p.failEnter {
		return errFail
	}
	*p.entered = append(*p.entered, p.name)
	return nil
}

func (p *recordingPlugin) Exit(string) error {
	*p.exited = append(*p.exited, p.name)
	return nil
}

type failError struct{}

func (failError) Error() string { return "enter failed" }

var errFail error = failError{}

func TestEnterAllRollsBackOnFailure(t *testing.T) {
	var entered, exited []string
	plugins := []Plugin{
		&recordingPlugin{name: "a", entered: &entered, exited: &exited},
		&recordingPlugin{name: "b", entered: &entered, exited: &exited, failEnter: true},
		&recordingPlugin{name: "c", entered: &entered, exited: &exited},
	}

	if err := EnterAll(plugins, "/home/user"); err == nil {
		t.Fatalf("EnterAll: expected error when plugin b fails")
	}
	if got, want := entered, []string{"a"}; len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("entered = %v, want %v", got, want)
	}
	if got, want := exited, []string{"a"}; len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("exited = %v, want %v (only already-entered plugins roll back)", got, want)
	}
}

func TestExitAllReverseOrder(t *testing.T) {
	var entered, exited []string
	plugins := []Plugin{
		&recordingPlugin{name: "a", entered: &entered, exited: &exited},
		&recordingPlugin{name: "b", entered: &entered, exited: &exited},
	}
	ExitAll(plugins, "/home/user")
	if got, want := exited, []string{"b", "a"}; len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("ExitAll order = %v, want %v", got, want)
	}
}
