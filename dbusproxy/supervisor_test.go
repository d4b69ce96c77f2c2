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

package dbusproxy

import (
	"testing"
	"time"
)

func TestNewRejectsInvalidSessionAddress(t *testing.T) {
	if _, err := New("/usr/bin/xdg-dbus-proxy", "not a valid address", "", time.Second, false); err == nil {
		t.Fatalf("New: expected error for malformed session bus address")
	}
}

func TestNewDefaultsSystemAddress(t *testing.T) {
	s, err := New("/usr/bin/xdg-dbus-proxy", "unix:path=/run/user/1000/bus", "", time.Second, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.systemAddress == "" {
		t.Fatalf("systemAddress should default to the well-known system bus path")
	}
}
