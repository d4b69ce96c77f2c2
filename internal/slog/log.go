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

// Package slog is bubblehelp's thin leveled-logging wrapper, backed by
// sirupsen/logrus, so the rest of the tree logs through one place
// instead of depending on logrus directly.
package slog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var std = logrus.New()

func init() {
	std.SetOutput(os.Stderr)
	std.SetLevel(logrus.InfoLevel)
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// SetLevel switches between info and debug verbosity, mirroring the
// --debug flag's effect.
func SetLevel(debug bool) {
	if debug {
		std.SetLevel(logrus.DebugLevel)
		return
	}
	std.SetLevel(logrus.InfoLevel)
}

// SetFormat selects "text" or "json" output, matching --log-format.
func SetFormat(format string) {
	switch format {
	case "json":
		std.SetFormatter(&logrus.JSONFormatter{})
	default:
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// SetOutput redirects log output, used to send logs to a file when
// --log names one instead of stderr.
func SetOutput(w io.Writer) { std.SetOutput(w) }

// AddHook installs a logrus.Hook, used by the systemd journal integration.
func AddHook(h logrus.Hook) { std.AddHook(h) }

// Debugf logs at debug level.
func Debugf(format string, args ...any) { std.Debugf(format, args...) }

// Infof logs at info level.
func Infof(format string, args ...any) { std.Infof(format, args...) }

// Warningf logs at warning level.
func Warningf(format string, args ...any) { std.Warnf(format, args...) }

// Errorf logs at error level.
func Errorf(format string, args ...any) { std.Errorf(format, args...) }

// WithField returns an entry with a structured field attached, for
// call sites that want to tag a log line with e.g. the instance name.
func WithField(key string, value any) *logrus.Entry {
	return std.WithField(key, value)
}
