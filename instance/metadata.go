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

package instance

import (
	"bytes"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"

	"github.com/bubblehelp/bubblehelp/internal/bherr"
)

// Metadata is the flat table of string keys stored in an instance's
// metadata.toml. Known keys are CreationProfileName and
// DesktopEntryName; anything else is preserved verbatim across
// read-modify-write cycles.
type Metadata struct {
	CreationProfileName string
	DesktopEntryName    string
	extra                map[string]string
}

func loadMetadata(path string) (*Metadata, error) {
	raw := make(map[string]string)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No metadata yet; start from an empty table.
	case err != nil:
		return nil, bherr.Wrap("loadMetadata", bherr.Io, err)
	default:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, bherr.Wrap("loadMetadata", bherr.Config, err)
		}
	}

	m := &Metadata{extra: make(map[string]string)}
	for k, v := range raw {
		switch k {
		case "creation_profile_name":
			m.CreationProfileName = v
		case "desktop_entry_name":
			m.DesktopEntryName = v
		default:
			m.extra[k] = v
		}
	}
	return m, nil
}

func (m *Metadata) table() map[string]string {
	out := make(map[string]string, len(m.extra)+2)
	for k, v := range m.extra {
		out[k] = v
	}
	if m.CreationProfileName != "" {
		out["creation_profile_name"] = m.CreationProfileName
	}
	if m.DesktopEntryName != "" {
		out["desktop_entry_name"] = m.DesktopEntryName
	}
	return out
}

func (m *Metadata) save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m.table()); err != nil {
		return bherr.Wrap("Metadata.save", bherr.Io, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return bherr.Wrap("Metadata.save", bherr.Io, err)
	}
	return nil
}

// withMetadataLock performs a guarded read-modify-write cycle on path's
// metadata file: it takes an exclusive flock on a sibling lock file,
// loads the current contents, lets fn mutate them, and saves the result
// before releasing the lock. This layers an advisory lock for concurrent
// CLI invocations on top of the runtime-directory lock that already
// guards one instance's sandbox lifecycle.
func withMetadataLock(path string, fn func(m *Metadata) error) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return bherr.Wrap("withMetadataLock", bherr.Io, err)
	}
	defer lock.Unlock()

	m, err := loadMetadata(path)
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	return m.save(path)
}
