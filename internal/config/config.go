// Copyright 2020 The gVisor Authors.
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

// Package config holds bubblehelp's engine-wide tunables, populated from
// a flag.FlagSet.
package config

import (
	"flag"
	"fmt"
	"time"
)

// Config carries every engine tunable that is not part of a single
// instance's service configuration.
type Config struct {
	// BwrapPath is the path to the bwrap binary.
	BwrapPath string
	// DbusProxyPath is the path to the xdg-dbus-proxy binary.
	DbusProxyPath string
	// HelperPath is the path to the in-sandbox helper binary run as pid 1.
	HelperPath string
	// RuntimeRoot is the host-provided runtime root RuntimePaths are
	// derived from, usually $XDG_RUNTIME_DIR/bubblehelp.
	RuntimeRoot string
	// DataRoot is where instance directories live, usually
	// $XDG_DATA_HOME/bubblehelp.
	DataRoot string

	// DbusProxyReadyTimeout bounds how long DbusProxySupervisor.Start
	// waits for the ready pipe to close.
	DbusProxyReadyTimeout time.Duration
	// RpcReadTimeout bounds HelperRpcClient's wait for a response line.
	RpcReadTimeout time.Duration

	// Debug enables debug-level logging.
	Debug bool
	// LogFormat selects "text" or "json" logging.
	LogFormat string
	// LogFilename, if set, is opened for append and used instead of stderr.
	LogFilename string
}

// Default returns the configuration used when no flags override it.
func Default() *Config {
	return &Config{
		BwrapPath:             "/usr/bin/bwrap",
		DbusProxyPath:         "/usr/bin/xdg-dbus-proxy",
		HelperPath:            "/usr/libexec/bubblehelp-helper",
		DbusProxyReadyTimeout: time.Second,
		RpcReadTimeout:        3 * time.Second,
		LogFormat:             "text",
	}
}

// RegisterFlags registers the flags used to populate a Config.
func RegisterFlags(flagSet *flag.FlagSet) {
	d := Default()
	flagSet.String("bwrap-path", d.BwrapPath, "path to the bwrap binary.")
	flagSet.String("dbus-proxy-path", d.DbusProxyPath, "path to the xdg-dbus-proxy binary.")
	flagSet.String("helper-path", d.HelperPath, "path to the in-sandbox helper binary.")
	flagSet.String("runtime-root", "", "runtime root directory for sockets and locks (default $XDG_RUNTIME_DIR/bubblehelp).")
	flagSet.String("data-root", "", "root directory for instance directories (default $XDG_DATA_HOME/bubblehelp).")
	flagSet.Duration("dbus-proxy-ready-timeout", d.DbusProxyReadyTimeout, "how long to wait for the D-Bus proxy to signal readiness.")
	flagSet.Duration("rpc-read-timeout", d.RpcReadTimeout, "how long to wait for a helper RPC response line.")
	flagSet.Bool("debug", false, "enable debug logging.")
	flagSet.String("log-format", d.LogFormat, "log format: text (default) or json.")
	flagSet.String("log", "", "file path to write logs to, default is stderr.")
}

// NewFromFlags builds a Config from a parsed flag.FlagSet.
func NewFromFlags(flagSet *flag.FlagSet) (*Config, error) {
	c := Default()
	lookup := func(name string) flag.Value {
		f := flagSet.Lookup(name)
		if f == nil {
			return nil
		}
		return f.Value
	}

	if v := lookup("bwrap-path"); v != nil {
		c.BwrapPath = v.String()
	}
	if v := lookup("dbus-proxy-path"); v != nil {
		c.DbusProxyPath = v.String()
	}
	if v := lookup("helper-path"); v != nil {
		c.HelperPath = v.String()
	}
	if v := lookup("runtime-root"); v != nil {
		c.RuntimeRoot = v.String()
	}
	if v := lookup("data-root"); v != nil {
		c.DataRoot = v.String()
	}
	if v := lookup("debug"); v != nil {
		c.Debug = v.String() == "true"
	}
	if v := lookup("log-format"); v != nil {
		c.LogFormat = v.String()
	}
	if v := lookup("log"); v != nil {
		c.LogFilename = v.String()
	}
	if v := lookup("dbus-proxy-ready-timeout"); v != nil {
		d, err := time.ParseDuration(v.String())
		if err != nil {
			return nil, fmt.Errorf("parsing dbus-proxy-ready-timeout: %w", err)
		}
		c.DbusProxyReadyTimeout = d
	}
	if v := lookup("rpc-read-timeout"); v != nil {
		d, err := time.ParseDuration(v.String())
		if err != nil {
			return nil, fmt.Errorf("parsing rpc-read-timeout: %w", err)
		}
		c.RpcReadTimeout = d
	}
	if c.BwrapPath == "" {
		return nil, fmt.Errorf("bwrap-path must not be empty")
	}
	return c, nil
}
