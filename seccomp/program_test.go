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

package seccomp

import (
	"testing"

	"github.com/bubblehelp/bubblehelp/directive"
)

func TestProgramBytesDeterministic(t *testing.T) {
	build := func() *Program {
		p := NewProgram()
		if err := p.Add(directive.SeccompRule{Syscall: "ptrace", Action: directive.ActionErrno, ErrnoValue: 1}); err != nil {
			t.Fatalf("Add(ptrace): %v", err)
		}
		if err := p.Add(directive.SeccompRule{Syscall: "clone", Action: directive.ActionKill}); err != nil {
			t.Fatalf("Add(clone): %v", err)
		}
		return p
	}

	a, err := build().Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	b, err := build().Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(a) != len(b) || string(a) != string(b) {
		t.Fatalf("Bytes() not deterministic across identical builds")
	}
	if len(a)%8 != 0 {
		t.Fatalf("program length %d is not a multiple of the 8-byte sock_filter record size", len(a))
	}
}

func TestProgramAddOverridesInPlace(t *testing.T) {
	p := NewProgram()
	if err := p.Add(directive.SeccompRule{Syscall: "ptrace", Action: directive.ActionKill}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.Add(directive.SeccompRule{Syscall: "unshare", Action: directive.ActionKill}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.Add(directive.SeccompRule{Syscall: "ptrace", Action: directive.ActionErrno, ErrnoValue: 13}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if got, want := len(p.order), 2; got != want {
		t.Fatalf("order length = %d, want %d (override must not duplicate)", got, want)
	}
	if got := p.order[0]; got != p.rules[got].syscall {
		t.Fatalf("declaration order not preserved")
	}
	if p.rules[p.order[0]].action != directive.ActionErrno {
		t.Fatalf("later Add for the same syscall did not override the rule's action")
	}
}

func TestProgramUnknownSyscall(t *testing.T) {
	p := NewProgram()
	if err := p.Add(directive.SeccompRule{Syscall: "not_a_real_syscall"}); err == nil {
		t.Fatalf("Add: expected error for unknown syscall name")
	}
}
