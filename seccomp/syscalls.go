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

package seccomp

import "golang.org/x/sys/unix"

// syscallByName maps the syscall names services may name in a SeccompRule
// directive to their amd64 syscall numbers, keyed off unix.SYS_* constants
// by name since directives arrive as strings.
var syscallByName = map[string]uintptr{
	"ptrace":          uintptr(unix.SYS_PTRACE),
	"personality":     uintptr(unix.SYS_PERSONALITY),
	"mount":           uintptr(unix.SYS_MOUNT),
	"umount2":         uintptr(unix.SYS_UMOUNT2),
	"pivot_root":      uintptr(unix.SYS_PIVOT_ROOT),
	"reboot":          uintptr(unix.SYS_REBOOT),
	"swapon":          uintptr(unix.SYS_SWAPON),
	"swapoff":         uintptr(unix.SYS_SWAPOFF),
	"syslog":          uintptr(unix.SYS_SYSLOG),
	"kexec_load":      uintptr(unix.SYS_KEXEC_LOAD),
	"kexec_file_load": uintptr(unix.SYS_KEXEC_FILE_LOAD),
	"init_module":     uintptr(unix.SYS_INIT_MODULE),
	"finit_module":    uintptr(unix.SYS_FINIT_MODULE),
	"delete_module":   uintptr(unix.SYS_DELETE_MODULE),
	"iopl":            uintptr(unix.SYS_IOPL),
	"ioperm":          uintptr(unix.SYS_IOPERM),
	"acct":            uintptr(unix.SYS_ACCT),
	"add_key":         uintptr(unix.SYS_ADD_KEY),
	"request_key":     uintptr(unix.SYS_REQUEST_KEY),
	"keyctl":          uintptr(unix.SYS_KEYCTL),
	"perf_event_open": uintptr(unix.SYS_PERF_EVENT_OPEN),
	"clone":           uintptr(unix.SYS_CLONE),
	"unshare":         uintptr(unix.SYS_UNSHARE),
	"setns":           uintptr(unix.SYS_SETNS),
	"bpf":             uintptr(unix.SYS_BPF),
	"userfaultfd":     uintptr(unix.SYS_USERFAULTFD),
}

// syscallNumber resolves name to its amd64 syscall number. Unknown names
// are a Config-kind error at Program.Add time.
func syscallNumber(name string) (uintptr, bool) {
	n, ok := syscallByName[name]
	return n, ok
}
