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

package runner

import (
	"context"
	"strings"
	"testing"

	"github.com/bubblehelp/bubblehelp/directive"
	"github.com/bubblehelp/bubblehelp/service"
)

type fakeService struct {
	service.Base
	gen func(ctx context.Context, emit service.Emit) error
}

func (f *fakeService) Directives(ctx context.Context) *service.Stream {
	return service.NewStream(ctx, f.gen)
}

func newFakeService(name string, gen func(context.Context, service.Emit) error) *fakeService {
	return &fakeService{Base: service.NewBase(name), gen: gen}
}

func TestBuildResolvesWantsHomeBind(t *testing.T) {
	svc := newFakeService("common", func(ctx context.Context, emit service.Emit) error {
		home := emit(directive.NewWantsHomeBind())
		emit(directive.NewBind(home, "/home/user", false, false))
		return nil
	})

	r, err := build(context.Background(), []service.Service{svc}, "/data/alice/home")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	joined := strings.Join(r.optionTokens, " ")
	if !strings.Contains(joined, "--bind /data/alice/home /home/user") {
		t.Fatalf("optionTokens = %q, want the resolved home bind", joined)
	}
}

func TestBuildOrdersLaunchArgsByPriority(t *testing.T) {
	svc := newFakeService("x", func(ctx context.Context, emit service.Emit) error {
		emit(directive.NewLaunchArg(10, "--second"))
		emit(directive.NewLaunchArg(0, "--first"))
		return nil
	})

	r, err := build(context.Background(), []service.Service{svc}, "/home")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got, want := strings.Join(r.innerArgv, " "), "--first --second"; got != want {
		t.Fatalf("innerArgv = %q, want %q", got, want)
	}
}

func TestBuildShareNetEmitsShareNet(t *testing.T) {
	svc := newFakeService("network", func(ctx context.Context, emit service.Emit) error {
		emit(directive.NewShareNet())
		return nil
	})

	r, err := build(context.Background(), []service.Service{svc}, "/home")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(strings.Join(r.optionTokens, " "), "--share-net") {
		t.Fatalf("optionTokens should contain --share-net when ShareNet was requested")
	}
}

func TestBuildDefaultOmitsShareNet(t *testing.T) {
	svc := newFakeService("common", func(ctx context.Context, emit service.Emit) error { return nil })

	r, err := build(context.Background(), []service.Service{svc}, "/home")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Contains(strings.Join(r.optionTokens, " "), "--share-net") {
		t.Fatalf("optionTokens should not contain --share-net by default")
	}
}

func TestBuildPrologueIsFixedAndLeads(t *testing.T) {
	svc := newFakeService("common", func(ctx context.Context, emit service.Emit) error {
		home := emit(directive.NewWantsHomeBind())
		emit(directive.NewBind(home, "/home/user", false, false))
		return nil
	})

	r, err := build(context.Background(), []service.Service{svc}, "/data/alice/home")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []string{"--unshare-all", "--die-with-parent", "--as-pid-1", "--proc", "/proc", "--dev", "/dev", "--clearenv"}
	if got := r.optionTokens[:len(want)]; strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("optionTokens prologue = %q, want %q", got, want)
	}
}

func TestBuildNewSessionBetweenAsPid1AndProc(t *testing.T) {
	svc := newFakeService("x", func(ctx context.Context, emit service.Emit) error {
		emit(directive.NewNewSession())
		return nil
	})

	r, err := build(context.Background(), []service.Service{svc}, "/home")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []string{"--unshare-all", "--die-with-parent", "--as-pid-1", "--new-session", "--proc", "/proc", "--dev", "/dev", "--clearenv"}
	if got := r.optionTokens[:len(want)]; strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("optionTokens prologue = %q, want %q", got, want)
	}
}

func TestNulJoin(t *testing.T) {
	b := nulJoin([]string{"a", "bc"})
	if string(b) != "a\x00bc\x00" {
		t.Fatalf("nulJoin = %q, want %q", b, "a\x00bc\x00")
	}
}
