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
	"fmt"
	"os"
	"strconv"
	"strings"
)

// findSandboxedInitPID reads /proc/<bwrapPid>/task/<bwrapPid>/children to
// find bwrap's first child, which is pid 1 in the sandbox's new pid
// namespace. This is a brittle /proc-walk; a future version should
// prefer the in-sandbox helper reporting its own pid over an inherited
// pipe instead.
func findSandboxedInitPID(bwrapPid int) (int, bool) {
	path := fmt.Sprintf("/proc/%d/task/%d/children", bwrapPid, bwrapPid)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, false
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return pid, true
}
