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

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// NewDefaultRegistry registers the representative plugin catalog used to
// exercise the Enter/Exit contract end to end.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&Definition{Name: "last-run-stamp", New: func() Plugin { return &lastRunStampPlugin{} }})
	r.Register(&Definition{Name: "single-writer-lock", New: func() Plugin { return &singleWriterLockPlugin{} }})
	return r
}

// lastRunStampPlugin touches a .bubblehelp-last-run file in the instance
// home on Enter, and nothing on Exit; instances can use its mtime to
// prune ones that haven't run in a long time.
type lastRunStampPlugin struct{}

func (*lastRunStampPlugin) Name() string { return "last-run-stamp" }

func (*lastRunStampPlugin) Enter(homePath string) error {
	path := filepath.Join(homePath, ".bubblehelp-last-run")
	now := time.Now()
	if err := os.WriteFile(path, []byte(now.Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing last-run stamp: %w", err)
	}
	return nil
}

func (*lastRunStampPlugin) Exit(string) error { return nil }

// singleWriterLockPlugin takes an advisory exclusive flock on a
// sentinel file in the instance home for the run's duration, catching
// the case where a home directory is (mis)shared across two instance
// definitions pointing at the same path. This is independent of, and in
// addition to, the runtime-directory lock that guards one instance
// against itself.
type singleWriterLockPlugin struct {
	lock *flock.Flock
}

func (*singleWriterLockPlugin) Name() string { return "single-writer-lock" }

func (p *singleWriterLockPlugin) Enter(homePath string) error {
	p.lock = flock.New(filepath.Join(homePath, ".bubblehelp-writer.lock"))
	locked, err := p.lock.TryLock()
	if err != nil {
		return fmt.Errorf("locking home directory: %w", err)
	}
	if !locked {
		return fmt.Errorf("home directory %s is locked by another writer", homePath)
	}
	return nil
}

func (p *singleWriterLockPlugin) Exit(string) error {
	if p.lock == nil {
		return nil
	}
	return p.lock.Unlock()
}
