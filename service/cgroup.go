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

package service

import (
	"context"
	"fmt"

	cgroupsv1 "github.com/containerd/cgroups"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/bubblehelp/bubblehelp/internal/slog"
)

// cgroupService joins the sandboxed pid to a cgroup once it is
// observable. It is the only builtin service with a non-trivial
// PostInitHook.
type cgroupService struct {
	Base
	opts *OptionSet

	control cgroupsv1.Cgroup
}

func cgroupDefinition() *Definition {
	return &Definition{
		Name:        "cgroup",
		Description: "Places the sandboxed process into a dedicated cgroup.",
		NewOptions: func() *OptionSet {
			return NewOptionSet(
				NewOption("slice", "Cgroup slice", "Cgroup path the sandboxed process is placed in; the cgroup is created at this path itself, with no per-instance child.", OptString, "/bubblehelp"),
				NewOption("memory_max_bytes", "Memory limit", "Memory limit applied to the instance's cgroup, 0 for unlimited.", OptString, "0"),
			)
		},
		New: func(opts *OptionSet) Service {
			return &cgroupService{Base: NewBase("cgroup"), opts: opts}
		},
	}
}

func (s *cgroupService) Directives(ctx context.Context) *Stream {
	// cgroup placement has no bwrap-visible effect: it acts purely
	// through PostInitHook, so the generator emits nothing.
	return NewStream(ctx, func(ctx context.Context, emit Emit) error { return nil })
}

func (s *cgroupService) PostInitHook(sandboxedPid int) error {
	slice := s.opts.Get("slice").String()
	path := cgroupsv1.StaticPath(slice)

	var resources specs.LinuxResources
	if mem := parseMemoryLimit(s.opts.Get("memory_max_bytes").String()); mem > 0 {
		resources.Memory = &specs.LinuxMemory{Limit: &mem}
	}

	control, err := cgroupsv1.New(path, &resources)
	if err != nil {
		return fmt.Errorf("creating cgroup %q: %w", slice, err)
	}
	s.control = control

	if err := control.Add(cgroupsv1.Process{Pid: sandboxedPid}); err != nil {
		return fmt.Errorf("adding pid %d to cgroup %q: %w", sandboxedPid, slice, err)
	}
	slog.Debugf("joined sandboxed pid %d to cgroup %q", sandboxedPid, slice)
	return nil
}

func (s *cgroupService) PostShutdownHook() error {
	if s.control == nil {
		return nil
	}
	if err := s.control.Delete(); err != nil {
		return fmt.Errorf("deleting cgroup: %w", err)
	}
	return nil
}

func parseMemoryLimit(s string) int64 {
	var v int64
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0
	}
	return v
}
