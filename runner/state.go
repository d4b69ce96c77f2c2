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

// State is one stage of a single run's lifecycle.
type State int

const (
	Built State = iota
	Staged
	DbusUp
	SandboxUp
	Running
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Built:
		return "built"
	case Staged:
		return "staged"
	case DbusUp:
		return "dbus_up"
	case SandboxUp:
		return "sandbox_up"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}
