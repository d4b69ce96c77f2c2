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
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/bubblehelp/bubblehelp/directive"
	"github.com/bubblehelp/bubblehelp/fdarena"
	"github.com/bubblehelp/bubblehelp/seccomp"
	"github.com/bubblehelp/bubblehelp/service"
)

// sandboxDbusSessionPath is where the session D-Bus proxy socket is bound
// inside the sandbox, regardless of which (if any) service asks for it
// via WantsDbusSessionPath. The proxy is always started, so this bind is
// unconditional.
const sandboxDbusSessionPath = "/run/dbus-session-bus-socket"

// buildResult is everything the Build phase produces from a service
// list: bwrap option tokens, the inner command line, the accumulated
// D-Bus and seccomp rules, and the arena holding every fd those options
// reference.
type buildResult struct {
	optionTokens []string
	innerArgv    []string
	sessionRules []directive.DbusRule
	systemRules  []directive.DbusRule
	seccompProg  *seccomp.Program
	arena        *fdarena.Arena
	shareNet     bool
	newSession   bool
}

type launchArgEntry struct {
	tokens   []string
	priority int
	seq      int
}

// build drains every service's directive stream and assembles a
// buildResult. homePath resolves WantsHomeBind; WantsDbusSessionPath
// always resolves to sandboxDbusSessionPath, which spawnAndWait binds
// unconditionally.
func build(ctx context.Context, services []service.Service, homePath string) (*buildResult, error) {
	r := &buildResult{
		arena:       fdarena.New(),
		seccompProg: seccomp.NewProgram(),
	}

	var launchArgs []launchArgEntry
	seq := 0

	for _, svc := range services {
		stream := svc.Directives(ctx)
		for {
			d, ok := stream.Next()
			if !ok {
				break
			}

			switch d.Kind {
			case directive.KindWantsHomeBind:
				stream.Resolve(homePath)
				continue
			case directive.KindWantsDbusSessionPath:
				stream.Resolve(sandboxDbusSessionPath)
				continue
			}

			if err := r.apply(d, &launchArgs, &seq); err != nil {
				stream.Abort()
				return nil, fmt.Errorf("service %q: %w", svc.Name(), err)
			}
		}
		if err := stream.Wait(); err != nil {
			return nil, fmt.Errorf("service %q: %w", svc.Name(), err)
		}
	}

	sort.SliceStable(launchArgs, func(i, j int) bool {
		if launchArgs[i].priority != launchArgs[j].priority {
			return launchArgs[i].priority < launchArgs[j].priority
		}
		return launchArgs[i].seq < launchArgs[j].seq
	})
	for _, e := range launchArgs {
		r.innerArgv = append(r.innerArgv, e.tokens...)
	}

	prologue := []string{"--unshare-all", "--die-with-parent", "--as-pid-1"}
	if r.newSession {
		prologue = append(prologue, "--new-session")
	}
	prologue = append(prologue, "--proc", "/proc", "--dev", "/dev", "--clearenv")
	if r.shareNet {
		prologue = append(prologue, "--share-net")
	}
	r.optionTokens = append(prologue, r.optionTokens...)

	return r, nil
}

func (r *buildResult) apply(d directive.Directive, launchArgs *[]launchArgEntry, seq *int) error {
	switch d.Kind {
	case directive.KindBind:
		r.optionTokens = append(r.optionTokens, bindFlag(d.Bind), d.Bind.Src, d.Bind.Dest)

	case directive.KindDirCreate:
		if d.DirCreate.Mode != 0 {
			r.optionTokens = append(r.optionTokens, "--perms", fmt.Sprintf("%04o", d.DirCreate.Mode))
		}
		r.optionTokens = append(r.optionTokens, "--dir", d.DirCreate.Path)

	case directive.KindSymlink:
		r.optionTokens = append(r.optionTokens, "--symlink", d.Symlink.Src, d.Symlink.Dest)

	case directive.KindFileTransfer:
		fd, err := r.arena.AddTemp("file-transfer:"+d.FileTransfer.Dest, d.FileTransfer.Content)
		if err != nil {
			return err
		}
		r.optionTokens = append(r.optionTokens, "--file", strconv.Itoa(fd), d.FileTransfer.Dest)

	case directive.KindEnvSet:
		r.optionTokens = append(r.optionTokens, "--setenv", d.Env.Name, d.Env.Value)

	case directive.KindEnvPassthrough:
		if v, ok := os.LookupEnv(d.Env.Name); ok {
			r.optionTokens = append(r.optionTokens, "--setenv", d.Env.Name, v)
		}

	case directive.KindDbusSessionRule:
		r.sessionRules = append(r.sessionRules, d.DbusRule)

	case directive.KindDbusSystemRule:
		r.systemRules = append(r.systemRules, d.DbusRule)

	case directive.KindSeccompRule:
		if err := r.seccompProg.Add(d.SeccompRule); err != nil {
			return err
		}

	case directive.KindLaunchArg:
		*launchArgs = append(*launchArgs, launchArgEntry{tokens: d.LaunchArg.Tokens, priority: d.LaunchArg.Priority, seq: *seq})
		*seq++

	case directive.KindChangeDir:
		r.optionTokens = append(r.optionTokens, "--chdir", d.ChangeDir)

	case directive.KindShareNet:
		r.shareNet = true

	case directive.KindNewSession:
		r.newSession = true

	default:
		return fmt.Errorf("unhandled directive kind %d", d.Kind)
	}
	return nil
}

func bindFlag(b directive.Bind) string {
	switch {
	case b.ReadOnly && b.TryOnly:
		return "--ro-bind-try"
	case b.ReadOnly:
		return "--ro-bind"
	case b.TryOnly:
		return "--bind-try"
	default:
		return "--bind"
	}
}
