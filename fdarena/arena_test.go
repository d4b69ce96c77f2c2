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

package fdarena

import (
	"os/exec"
	"testing"
)

func TestTransferOrderAndStartFD(t *testing.T) {
	a := New()
	fd1, err := a.AddTemp("one", []byte("a"))
	if err != nil {
		t.Fatalf("AddTemp: %v", err)
	}
	if fd1 != 3 {
		t.Fatalf("first entry's fd = %d, want 3", fd1)
	}
	fd2, err := a.AddTemp("two", []byte("b"))
	if err != nil {
		t.Fatalf("AddTemp: %v", err)
	}
	if fd2 != 4 {
		t.Fatalf("second entry's fd = %d, want 4", fd2)
	}
	defer a.Close()

	cmd := &exec.Cmd{}
	start := a.Transfer(cmd)
	if start != 3 {
		t.Fatalf("start fd = %d, want 3", start)
	}
	if got, want := len(cmd.ExtraFiles), 2; got != want {
		t.Fatalf("len(ExtraFiles) = %d, want %d", got, want)
	}
	if got, want := a.Labels(), []string{"one", "two"}; got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Labels() = %v, want %v", got, want)
	}
}

func TestAddPipeReadWriteEnds(t *testing.T) {
	a := New()
	r, fd, err := a.AddPipe("ready")
	if err != nil {
		t.Fatalf("AddPipe: %v", err)
	}
	defer r.Close()
	defer a.Close()
	if fd != 3 {
		t.Fatalf("pipe write end fd = %d, want 3", fd)
	}

	cmd := &exec.Cmd{}
	start := a.Transfer(cmd)
	if len(cmd.ExtraFiles) != 1 {
		t.Fatalf("expected the pipe's write end to be donated")
	}
	if start != 3 {
		t.Fatalf("start fd = %d, want 3", start)
	}
}
