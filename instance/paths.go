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

// Package instance binds a filesystem instance directory to
// ServiceConfig, SandboxRunner, and HelperRpcClient.
package instance

import "path/filepath"

// RuntimePaths is derived from a host-provided runtime root plus an
// instance name. All five paths live under Root, which is created mode
// 0700 at sandbox start and removed at end.
type RuntimePaths struct {
	Root              string
	HelperDir         string
	HelperSocket      string
	SessionProxySocket string
	SystemProxySocket string
}

// NewRuntimePaths derives the runtime paths for instanceName under
// runtimeRoot (usually $XDG_RUNTIME_DIR/bubblehelp).
func NewRuntimePaths(runtimeRoot, instanceName string) RuntimePaths {
	root := filepath.Join(runtimeRoot, instanceName)
	helperDir := filepath.Join(root, "helper")
	return RuntimePaths{
		Root:               root,
		HelperDir:          helperDir,
		HelperSocket:       filepath.Join(helperDir, "helper.socket"),
		SessionProxySocket: filepath.Join(root, "session-bus-proxy"),
		SystemProxySocket:  filepath.Join(root, "system-bus-proxy"),
	}
}

// DataPaths locates the on-disk layout of one instance under a data root
// (usually $XDG_DATA_HOME/bubblehelp).
type DataPaths struct {
	Root           string
	ServicesConfig string
	Metadata       string
	Home           string
	HomePluginDir  string
}

// NewDataPaths derives the on-disk layout for instanceName under dataRoot.
func NewDataPaths(dataRoot, instanceName string) DataPaths {
	root := filepath.Join(dataRoot, instanceName)
	return DataPaths{
		Root:           root,
		ServicesConfig: filepath.Join(root, "services.toml"),
		Metadata:       filepath.Join(root, "metadata.toml"),
		Home:           filepath.Join(root, "home"),
		HomePluginDir:  filepath.Join(root, "home_plugin"),
	}
}
