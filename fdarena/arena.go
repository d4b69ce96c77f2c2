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

// Package fdarena collects the file descriptors a SandboxRunner hands to
// bwrap across a single launch and donates them to the child process in
// a stable order: the serialized options file, one fd per FileTransfer
// directive, and the exported seccomp program.
package fdarena

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/bubblehelp/bubblehelp/internal/bherr"
)

// entry is one donated file together with the label it was added under,
// kept for debug logging (mirroring donation.Agency's named slots).
type entry struct {
	label string
	file  *os.File
}

// Arena accumulates files to be donated to a child process's ExtraFiles
// in FIFO order, and owns closing every file it still holds when the
// launch is abandoned or after Transfer hands them to the child.
type Arena struct {
	entries    []entry
	transfered bool
}

// New returns an empty Arena.
func New() *Arena { return &Arena{} }

// PendingFD returns the child-relative fd number the next entry Added
// will receive once Transfer is called, given cmd.ExtraFiles starts
// empty (always true for the one exec.Cmd a Runner builds per launch).
func (a *Arena) PendingFD() int { return 3 + len(a.entries) }

// AddTemp writes content to a new unnamed memfd and adds it under label,
// returning the fd number it will be inherited as (see PendingFD). Used
// for FileTransfer directives and the serialized options file.
func (a *Arena) AddTemp(label string, content []byte) (int, error) {
	fd, err := unix.MemfdCreate(label, unix.MFD_CLOEXEC)
	if err != nil {
		return 0, bherr.Wrap("Arena.AddTemp", bherr.Io, fmt.Errorf("memfd_create(%s): %w", label, err))
	}
	f := os.NewFile(uintptr(fd), label)
	if _, err := f.Write(content); err != nil {
		f.Close()
		return 0, bherr.Wrap("Arena.AddTemp", bherr.Io, err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		return 0, bherr.Wrap("Arena.AddTemp", bherr.Io, err)
	}
	childFD := a.PendingFD()
	a.entries = append(a.entries, entry{label: label, file: f})
	return childFD, nil
}

// Add donates an already-open file under label, returning the fd number
// it will be inherited as. The Arena takes ownership and will close it
// on Close.
func (a *Arena) Add(label string, f *os.File) int {
	childFD := a.PendingFD()
	a.entries = append(a.entries, entry{label: label, file: f})
	return childFD
}

// AddPipe creates a non-blocking, close-on-exec pipe, adds its write end
// to the arena under label, and returns the read end for the caller to
// poll plus the write end's inherited fd number (e.g. the D-Bus proxy
// ready-signal pipe).
func (a *Arena) AddPipe(label string) (*os.File, int, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return nil, 0, bherr.Wrap("Arena.AddPipe", bherr.Io, fmt.Errorf("pipe2: %w", err))
	}
	r := os.NewFile(uintptr(fds[0]), label+"-read")
	w := os.NewFile(uintptr(fds[1]), label+"-write")
	childFD := a.PendingFD()
	a.entries = append(a.entries, entry{label: label, file: w})
	return r, childFD, nil
}

// Transfer appends every held file to cmd.ExtraFiles in addition order
// and returns the fd number (relative to the child's own fd table) the
// first entry will land on. Files 0, 1, and 2 are always stdio, so the
// first donated fd is always 3, matching donation.Agency's convention.
func (a *Arena) Transfer(cmd *exec.Cmd) int {
	start := 3 + len(cmd.ExtraFiles)
	for _, e := range a.entries {
		cmd.ExtraFiles = append(cmd.ExtraFiles, e.file)
	}
	a.transfered = true
	return start
}

// Labels returns the labels in donation order, for debug logging of which
// directive produced which inherited fd.
func (a *Arena) Labels() []string {
	labels := make([]string, len(a.entries))
	for i, e := range a.entries {
		labels[i] = e.label
	}
	return labels
}

// Close releases every file the Arena still owns. After a successful
// Transfer the child process holds its own duplicates, so Close only
// needs to drop the parent's references; callers should call it once the
// child has been started (or the launch aborted) regardless.
func (a *Arena) Close() {
	for _, e := range a.entries {
		e.file.Close()
	}
	a.entries = nil
}
