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

package cmd

import (
	"fmt"
	"os"

	"github.com/containerd/console"
)

// hostWindowSizeEnv reads the host's controlling terminal size and
// returns it as COLUMNS/LINES environment assignments, so a
// --debug-shell run inside the sandbox (which inherits stdio directly,
// with no pty of its own) can size itself correctly instead of falling
// back to a dumb 80x24 default. Returns nil when stdout is not a
// terminal.
func hostWindowSizeEnv() []string {
	current, err := console.ConsoleFromFile(os.Stdout)
	if err != nil {
		return nil
	}
	ws, err := current.Size()
	if err != nil {
		return nil
	}
	return []string{
		fmt.Sprintf("COLUMNS=%d", ws.Width),
		fmt.Sprintf("LINES=%d", ws.Height),
	}
}
