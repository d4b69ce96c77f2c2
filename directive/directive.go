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

// Package directive defines the tagged sandbox effects a Service emits
// and a SandboxRunner consumes. Directives that need an engine-resolved
// value (a home path, a D-Bus session path) are modeled as explicit
// "wants X" variants the engine resolves inline, rather than services
// receiving values back through a generator protocol.
package directive

// Kind tags which field of a Directive is meaningful.
type Kind int

const (
	// KindBind mounts a host path into the sandbox.
	KindBind Kind = iota
	// KindDirCreate creates a directory inside the sandbox.
	KindDirCreate
	// KindSymlink creates a symlink inside the sandbox.
	KindSymlink
	// KindFileTransfer injects byte content via an inherited fd.
	KindFileTransfer
	// KindEnvSet sets an environment variable.
	KindEnvSet
	// KindEnvPassthrough forwards a host environment variable.
	KindEnvPassthrough
	// KindDbusSessionRule adds an xdg-dbus-proxy session bus rule.
	KindDbusSessionRule
	// KindDbusSystemRule adds an xdg-dbus-proxy system bus rule.
	KindDbusSystemRule
	// KindSeccompRule adds a seccomp BPF rule.
	KindSeccompRule
	// KindLaunchArg appends a fragment of the inner command line.
	KindLaunchArg
	// KindChangeDir sets the sandbox's initial working directory.
	KindChangeDir
	// KindShareNet allows the sandbox to share the host network namespace.
	KindShareNet
	// KindNewSession requests bwrap's --new-session.
	KindNewSession
	// KindWantsHomeBind is a placeholder request: the engine answers with
	// the instance's home directory path.
	KindWantsHomeBind
	// KindWantsDbusSessionPath is a placeholder request: the engine
	// answers with the session D-Bus proxy socket path.
	KindWantsDbusSessionPath
)

// DbusRuleKind enumerates the xdg-dbus-proxy rule verbs.
type DbusRuleKind int

const (
	DbusTalk DbusRuleKind = iota
	DbusOwn
	DbusCall
	DbusBroadcast
)

func (k DbusRuleKind) flag() string {
	switch k {
	case DbusTalk:
		return "--talk"
	case DbusOwn:
		return "--own"
	case DbusCall:
		return "--call"
	case DbusBroadcast:
		return "--broadcast"
	default:
		return "--talk"
	}
}

// SeccompAction is the effect a SeccompRule takes when its syscall (and
// optional argument filter) matches.
type SeccompAction int

const (
	// ActionErrno fails the syscall with an errno value (see ErrnoValue).
	ActionErrno SeccompAction = iota
	// ActionKill terminates the process.
	ActionKill
)

// SeccompArgMatch optionally restricts a SeccompRule to calls where
// argument Index compares to Value under Comparator.
type SeccompArgMatch struct {
	Index      int
	Comparator string // one of "==", "!=", "<", "<=", ">", ">="
	Value      uint64
}

// Bind describes a host-path mount.
type Bind struct {
	Src      string
	Dest     string
	ReadOnly bool
	TryOnly  bool
}

// DirCreate describes an in-sandbox directory to create.
type DirCreate struct {
	Path string
	Mode uint32
}

// Symlink describes an in-sandbox symlink.
type Symlink struct {
	Src  string
	Dest string
}

// FileTransfer injects Content at Dest via an inherited fd.
type FileTransfer struct {
	Content []byte
	Dest    string
}

// EnvVar describes a KindEnvSet/KindEnvPassthrough directive's payload.
type EnvVar struct {
	Name  string
	Value string
}

// DbusRule describes a single xdg-dbus-proxy filter rule.
type DbusRule struct {
	RuleKind DbusRuleKind
	Arg      string // bus name, or "name=match" for call/broadcast
}

// Flag renders the rule as an xdg-dbus-proxy argv fragment.
func (r DbusRule) Flag() string {
	return r.RuleKind.flag() + "=" + r.Arg
}

// SeccompRule describes one (syscall, action, optional arg match) triple.
type SeccompRule struct {
	Syscall    string
	Action     SeccompAction
	ErrnoValue int
	ArgMatch   *SeccompArgMatch
}

// LaunchArg is a fragment of the inner command line, ordered by Priority
// (lower first, stable on ties).
type LaunchArg struct {
	Tokens   []string
	Priority int
}

// Directive is a single tagged sandbox effect. Exactly one payload field
// is meaningful, selected by Kind; this mirrors a closed tagged union
// without needing a sum-type library.
type Directive struct {
	Kind Kind

	Bind         Bind
	DirCreate    DirCreate
	Symlink      Symlink
	FileTransfer FileTransfer
	Env          EnvVar
	DbusRule     DbusRule
	SeccompRule  SeccompRule
	LaunchArg    LaunchArg
	ChangeDir    string
}

// NewBind builds a Bind directive.
func NewBind(src, dest string, readOnly, tryOnly bool) Directive {
	return Directive{Kind: KindBind, Bind: Bind{Src: src, Dest: dest, ReadOnly: readOnly, TryOnly: tryOnly}}
}

// NewDirCreate builds a DirCreate directive.
func NewDirCreate(path string, mode uint32) Directive {
	return Directive{Kind: KindDirCreate, DirCreate: DirCreate{Path: path, Mode: mode}}
}

// NewSymlink builds a Symlink directive.
func NewSymlink(src, dest string) Directive {
	return Directive{Kind: KindSymlink, Symlink: Symlink{Src: src, Dest: dest}}
}

// NewFileTransfer builds a FileTransfer directive.
func NewFileTransfer(content []byte, dest string) Directive {
	return Directive{Kind: KindFileTransfer, FileTransfer: FileTransfer{Content: content, Dest: dest}}
}

// NewEnvSet builds an EnvSet directive.
func NewEnvSet(name, value string) Directive {
	return Directive{Kind: KindEnvSet, Env: EnvVar{Name: name, Value: value}}
}

// NewEnvPassthrough builds an EnvPassthrough directive.
func NewEnvPassthrough(name string) Directive {
	return Directive{Kind: KindEnvPassthrough, Env: EnvVar{Name: name}}
}

// NewDbusSessionRule builds a DbusSessionRule directive.
func NewDbusSessionRule(kind DbusRuleKind, arg string) Directive {
	return Directive{Kind: KindDbusSessionRule, DbusRule: DbusRule{RuleKind: kind, Arg: arg}}
}

// NewDbusSystemRule builds a DbusSystemRule directive.
func NewDbusSystemRule(kind DbusRuleKind, arg string) Directive {
	return Directive{Kind: KindDbusSystemRule, DbusRule: DbusRule{RuleKind: kind, Arg: arg}}
}

// NewSeccompRule builds a SeccompRule directive.
func NewSeccompRule(syscall string, action SeccompAction, errnoValue int, argMatch *SeccompArgMatch) Directive {
	return Directive{Kind: KindSeccompRule, SeccompRule: SeccompRule{
		Syscall: syscall, Action: action, ErrnoValue: errnoValue, ArgMatch: argMatch,
	}}
}

// NewLaunchArg builds a LaunchArg directive.
func NewLaunchArg(priority int, tokens ...string) Directive {
	return Directive{Kind: KindLaunchArg, LaunchArg: LaunchArg{Tokens: tokens, Priority: priority}}
}

// NewChangeDir builds a ChangeDir directive.
func NewChangeDir(path string) Directive {
	return Directive{Kind: KindChangeDir, ChangeDir: path}
}

// NewShareNet builds a ShareNet directive.
func NewShareNet() Directive { return Directive{Kind: KindShareNet} }

// NewNewSession builds a NewSession directive.
func NewNewSession() Directive { return Directive{Kind: KindNewSession} }

// NewWantsHomeBind builds a WantsHomeBind placeholder request.
func NewWantsHomeBind() Directive { return Directive{Kind: KindWantsHomeBind} }

// NewWantsDbusSessionPath builds a WantsDbusSessionPath placeholder request.
func NewWantsDbusSessionPath() Directive { return Directive{Kind: KindWantsDbusSessionPath} }

// IsPlaceholder reports whether d must be resolved by the engine before
// the service's next directive may be processed.
func (d Directive) IsPlaceholder() bool {
	return d.Kind == KindWantsHomeBind || d.Kind == KindWantsDbusSessionPath
}
