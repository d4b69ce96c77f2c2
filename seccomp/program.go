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

// Package seccomp builds the classic-BPF (cBPF) program bwrap loads with
// --seccomp, using golang.org/x/net/bpf to assemble instructions instead
// of hand-packing the kernel's sock_filter words.
package seccomp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"github.com/bubblehelp/bubblehelp/directive"
	"github.com/bubblehelp/bubblehelp/internal/bherr"
)

// seccompDataNrOffset and seccompDataArgsOffset describe struct
// seccomp_data from linux/seccomp.h: { int nr; __u32 arch; __u64
// instruction_pointer; __u64 args[6]; }. Only the low 32 bits of each arg
// are compared; this mirrors how many lightweight seccomp-bpf generators
// restrict themselves to flag/mode-style arguments that fit in 32 bits.
const (
	seccompDataNrOffset   = 0
	seccompDataArgsOffset = 16
)

// rule is the resolved, numeric form of a directive.SeccompRule.
type rule struct {
	syscall    uintptr
	action     directive.SeccompAction
	errnoValue int
	argMatch   *directive.SeccompArgMatch
}

// Program accumulates seccomp rules and exports them as a BPF program.
// The zero value is ready to use; its default action is always ALLOW.
type Program struct {
	order []uintptr
	rules map[uintptr]rule
}

// NewProgram returns an empty Program.
func NewProgram() *Program {
	return &Program{rules: make(map[uintptr]rule)}
}

// Add appends a rule built from a SeccompRule directive. Unknown syscall
// names fail with bherr.Config; re-adding a rule for an already-added
// syscall overrides it in place, preserving declaration order for the
// rest of the program.
func (p *Program) Add(d directive.SeccompRule) error {
	num, ok := syscallNumber(d.Syscall)
	if !ok {
		return bherr.Wrap("Program.Add", bherr.Config, fmt.Errorf("seccomp: unknown syscall %q", d.Syscall))
	}
	if p.rules == nil {
		p.rules = make(map[uintptr]rule)
	}
	if _, exists := p.rules[num]; !exists {
		p.order = append(p.order, num)
	}
	p.rules[num] = rule{syscall: num, action: d.Action, errnoValue: d.ErrnoValue, argMatch: d.ArgMatch}
	return nil
}

// Empty reports whether any rule has been added.
func (p *Program) Empty() bool { return len(p.order) == 0 }

// assemble builds the BPF instruction list: an nr load followed by one
// compare-and-jump block per rule (in declaration order), terminating in
// the default ALLOW action. A block with an argument match reloads nr
// after its argument test, so the next block compares the syscall again.
func (p *Program) assemble() ([]bpf.Instruction, error) {
	insns := []bpf.Instruction{
		bpf.LoadAbsolute{Off: seccompDataNrOffset, Size: 4},
	}

	for _, num := range p.order {
		r := p.rules[num]
		retVal := retValue(r)

		if r.argMatch == nil {
			insns = append(insns,
				bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(num), SkipTrue: 0, SkipFalse: 1},
				bpf.RetConstant{Val: retVal},
			)
			continue
		}

		cond, err := jumpTest(r.argMatch.Comparator)
		if err != nil {
			return nil, err
		}
		argOff := uint32(seccompDataArgsOffset + 8*r.argMatch.Index)
		insns = append(insns,
			bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(num), SkipTrue: 0, SkipFalse: 4},
			bpf.LoadAbsolute{Off: argOff, Size: 4},
			bpf.JumpIf{Cond: cond, Val: uint32(r.argMatch.Value), SkipTrue: 0, SkipFalse: 1},
			bpf.RetConstant{Val: retVal},
			bpf.LoadAbsolute{Off: seccompDataNrOffset, Size: 4},
		)
	}

	insns = append(insns, bpf.RetConstant{Val: allowAction})
	return insns, nil
}

const (
	allowAction = 0x7fff0000 // SECCOMP_RET_ALLOW
	killAction  = 0x00000000 // SECCOMP_RET_KILL_THREAD
	errnoBase   = 0x00050000 // SECCOMP_RET_ERRNO
)

func retValue(r rule) uint32 {
	switch r.action {
	case directive.ActionKill:
		return killAction
	case directive.ActionErrno:
		return errnoBase | uint32(r.errnoValue&0xffff)
	default:
		return allowAction
	}
}

func jumpTest(comparator string) (bpf.JumpTest, error) {
	switch comparator {
	case "==":
		return bpf.JumpEqual, nil
	case "!=":
		return bpf.JumpNotEqual, nil
	case "<":
		return bpf.JumpLessThan, nil
	case "<=":
		return bpf.JumpLessOrEqual, nil
	case ">":
		return bpf.JumpGreaterThan, nil
	case ">=":
		return bpf.JumpGreaterOrEqual, nil
	default:
		return 0, fmt.Errorf("seccomp: unknown comparator %q", comparator)
	}
}

// Bytes assembles and serialises the program to the kernel's sock_filter
// wire format: a sequence of 8-byte (op uint16, jt uint8, jf uint8, k
// uint32) records.
func (p *Program) Bytes() ([]byte, error) {
	insns, err := p.assemble()
	raw, err2 := bpf.Assemble(insns)
	if err != nil {
		return nil, err
	}
	if err2 != nil {
		return nil, fmt.Errorf("seccomp: assembling BPF program: %w", err2)
	}

	var buf bytes.Buffer
	for _, ri := range raw {
		if err := binary.Write(&buf, binary.LittleEndian, ri.Op); err != nil {
			return nil, err
		}
		if err := buf.WriteByte(ri.Jt); err != nil {
			return nil, err
		}
		if err := buf.WriteByte(ri.Jf); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, ri.K); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Export serialises the program into a newly created unnamed temporary
// file positioned at offset 0, suitable for handing to bwrap's --seccomp
// as an inherited fd. The caller owns the returned file and must keep it
// open until the sandbox helper has started.
func (p *Program) Export() (*os.File, error) {
	b, err := p.Bytes()
	if err != nil {
		return nil, err
	}

	fd, err := unix.MemfdCreate("bubblehelp-seccomp", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("seccomp: memfd_create: %w", err)
	}
	f := os.NewFile(uintptr(fd), "bubblehelp-seccomp")

	if _, err := f.Write(b); err != nil {
		f.Close()
		return nil, fmt.Errorf("seccomp: writing program: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("seccomp: seeking to start: %w", err)
	}
	return f, nil
}
