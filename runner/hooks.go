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

	"golang.org/x/sync/errgroup"

	"github.com/bubblehelp/bubblehelp/internal/slog"
	"github.com/bubblehelp/bubblehelp/service"
)

// runPostInitHooks runs every service's PostInitHook concurrently with
// sandboxedPid. Hook errors are logged and never returned. If ctx is
// cancelled (the sandbox exited first) before a hook returns, its result
// is not waited for: the sandbox is already gone, so there is nothing
// left to report to.
func runPostInitHooks(ctx context.Context, services []service.Service, sandboxedPid int) error {
	var g errgroup.Group
	for _, svc := range services {
		svc := svc
		g.Go(func() error {
			done := make(chan error, 1)
			go func() { done <- svc.PostInitHook(sandboxedPid) }()
			select {
			case err := <-done:
				if err != nil {
					slog.Errorf("post-init hook for %q: %v", svc.Name(), err)
				}
			case <-ctx.Done():
				// Sandbox already exited; the hook's result no longer matters.
			}
			return nil
		})
	}
	return g.Wait()
}

// runPostShutdownHooks runs every service's PostShutdownHook, logging
// individual failures instead of raising them: draining never fails
// because one service's teardown hook misbehaved.
func runPostShutdownHooks(services []service.Service) {
	for _, svc := range services {
		if err := svc.PostShutdownHook(); err != nil {
			slog.Errorf("post-shutdown hook for %q: %v", svc.Name(), err)
		}
	}
}
