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

package slog

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/sirupsen/logrus"
)

// journalHook forwards log entries to the systemd journal when bubblehelp
// is itself running under a systemd user unit. It is a no-op everywhere
// else, since journal.Enabled() reports false off systemd.
type journalHook struct{}

// EnableJournal installs the journald forwarding hook if the journal
// socket is reachable.
func EnableJournal() {
	if !journal.Enabled() {
		return
	}
	AddHook(journalHook{})
}

var levelToPriority = map[logrus.Level]journal.Priority{
	logrus.DebugLevel: journal.PriDebug,
	logrus.InfoLevel:  journal.PriInfo,
	logrus.WarnLevel:  journal.PriWarning,
	logrus.ErrorLevel: journal.PriErr,
	logrus.FatalLevel: journal.PriCrit,
	logrus.PanicLevel: journal.PriEmerg,
}

func (journalHook) Levels() []logrus.Level { return logrus.AllLevels }

func (journalHook) Fire(e *logrus.Entry) error {
	vars := make(map[string]string, len(e.Data))
	for k, v := range e.Data {
		vars[k] = toString(v)
	}
	pri, ok := levelToPriority[e.Level]
	if !ok {
		pri = journal.PriInfo
	}
	return journal.Send(e.Message, pri, vars)
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
