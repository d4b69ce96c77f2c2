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

package instance

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/bubblehelp/bubblehelp/homeplugin"
	"github.com/bubblehelp/bubblehelp/internal/bherr"
	"github.com/bubblehelp/bubblehelp/internal/config"
	"github.com/bubblehelp/bubblehelp/rpc"
	"github.com/bubblehelp/bubblehelp/runner"
	"github.com/bubblehelp/bubblehelp/service"
)

// Instance binds an on-disk instance directory to ServiceConfig,
// Runner, and the RPC client.
type Instance struct {
	Name string

	cfg           *config.Config
	data          DataPaths
	serviceReg    *service.Registry
	homePluginReg *homeplugin.Registry
}

// Open resolves an existing instance's on-disk paths without requiring
// it to be running. It does not validate that the instance directory
// exists; callers that need that guarantee should call Exists first.
func Open(cfg *config.Config, serviceReg *service.Registry, homePluginReg *homeplugin.Registry, name string) *Instance {
	return &Instance{
		Name:          name,
		cfg:           cfg,
		data:          NewDataPaths(cfg.DataRoot, name),
		serviceReg:    serviceReg,
		homePluginReg: homePluginReg,
	}
}

// Exists reports whether the instance's directory has been created.
func (i *Instance) Exists() bool {
	_, err := os.Stat(i.data.Root)
	return err == nil
}

// Create materialises the instance directory tree: the root, the home
// directory, and a services.toml built from profile's defaults (or just
// the "common" service if profile is nil). It fails if the directory
// already exists.
func (i *Instance) Create(profile *service.Profile) error {
	if i.Exists() {
		return bherr.New("Instance.Create", bherr.Config)
	}
	if err := os.MkdirAll(i.data.Home, 0o755); err != nil {
		return bherr.Wrap("Instance.Create", bherr.Io, err)
	}
	if err := os.MkdirAll(i.data.HomePluginDir, 0o755); err != nil {
		return bherr.Wrap("Instance.Create", bherr.Io, err)
	}

	cfg := service.NewServiceConfig(i.serviceReg)
	cfg.Enable(service.DefaultServiceName)
	profileName := ""
	if profile != nil {
		profile.EnableDefault(cfg)
		profileName = profile.Name
	}
	data, err := cfg.Dump()
	if err != nil {
		return err
	}
	if err := os.WriteFile(i.data.ServicesConfig, data, 0o644); err != nil {
		return bherr.Wrap("Instance.Create", bherr.Io, err)
	}

	return withMetadataLock(i.data.Metadata, func(m *Metadata) error {
		m.CreationProfileName = profileName
		return nil
	})
}

// loadServiceConfig reads and parses the instance's services.toml.
func (i *Instance) loadServiceConfig() (*service.ServiceConfig, error) {
	if !i.Exists() {
		return nil, bherr.New("Instance.loadServiceConfig", bherr.InstanceMissing)
	}
	data, err := os.ReadFile(i.data.ServicesConfig)
	if err != nil {
		return nil, bherr.Wrap("Instance.loadServiceConfig", bherr.Io, err)
	}
	return service.LoadServiceConfig(data, i.serviceReg)
}

// metadata reads the instance's metadata.toml.
func (i *Instance) metadata() (*Metadata, error) {
	return loadMetadata(i.data.Metadata)
}

// SetMetadata performs a guarded read-modify-write on the instance's
// metadata file, preserving every key fn does not touch.
func (i *Instance) SetMetadata(fn func(m *Metadata)) error {
	return withMetadataLock(i.data.Metadata, func(m *Metadata) error {
		fn(m)
		return nil
	})
}

// RunOptions carries the CLI-level switches for a fresh sandbox launch.
type RunOptions struct {
	Command           []string
	DryRun            bool
	DebugHelperScript string
	DebugLogDbus      bool
	ExtraBwrapArgs    []string
}

// Run builds the service list from the instance's services.toml and
// drives a fresh Runner through its full lifecycle.
func (i *Instance) Run(ctx context.Context, opts RunOptions) (int, error) {
	cfg, err := i.loadServiceConfig()
	if err != nil {
		return -1, err
	}
	meta, err := i.metadata()
	if err != nil {
		return -1, err
	}

	services := cfg.IterServices(false, true)
	plugins := i.homePluginReg.Build(pluginNamesFromMetadata(meta))

	sessionAddr := os.Getenv("DBUS_SESSION_BUS_ADDRESS")
	runtime := NewRuntimePaths(i.cfg.RuntimeRoot, i.Name)

	rnr := runner.New(i.cfg, runner.Options{
		InstanceName:       i.Name,
		HomePath:           i.data.Home,
		RuntimeDir:         runtime.Root,
		HelperDir:          runtime.HelperDir,
		HelperSocket:       runtime.HelperSocket,
		SessionProxySocket: runtime.SessionProxySocket,
		SystemProxySocket:  runtime.SystemProxySocket,
		Services:           services,
		HomePlugins:        plugins,
		DbusSessionAddress: sessionAddr,
		Command:            opts.Command,
		DryRun:             opts.DryRun,
		DebugHelperScript:  opts.DebugHelperScript,
		DebugLogDbus:       opts.DebugLogDbus,
		ExtraBwrapArgs:     opts.ExtraBwrapArgs,
	})
	return rnr.Run(ctx)
}

// pluginNamesFromMetadata has no dedicated metadata key yet; every
// instance activates the default plugin catalog's full name set until a
// per-instance opt-in mechanism is added.
func pluginNamesFromMetadata(_ *Metadata) []string {
	return []string{"last-run-stamp", "single-writer-lock"}
}

// SendRPC issues a run-in-existing-sandbox request against a running
// instance's helper socket.
func (i *Instance) SendRPC(req rpc.Request) (*rpc.Response, error) {
	runtime := NewRuntimePaths(i.cfg.RuntimeRoot, i.Name)
	client := rpc.NewClient(runtime.HelperSocket, i.cfg.RpcReadTimeout)
	return client.Send(req)
}

// EditConfig implements the edit-config operation: it copies the current
// services.toml to a temp file, spawns editorPath on it, and reloads only
// if the file's modification time advanced. The new bytes are validated
// by constructing a ServiceConfig before the canonical file is ever
// overwritten.
func (i *Instance) EditConfig(editorPath string) (modified bool, err error) {
	original, err := os.ReadFile(i.data.ServicesConfig)
	if err != nil {
		return false, bherr.Wrap("Instance.EditConfig", bherr.Io, err)
	}

	tmp, err := os.CreateTemp("", "bubblehelp-edit-*.toml")
	if err != nil {
		return false, bherr.Wrap("Instance.EditConfig", bherr.Io, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(original); err != nil {
		tmp.Close()
		return false, bherr.Wrap("Instance.EditConfig", bherr.Io, err)
	}
	tmp.Close()

	before, err := os.Stat(tmpPath)
	if err != nil {
		return false, bherr.Wrap("Instance.EditConfig", bherr.Io, err)
	}

	cmd := exec.Command(editorPath, tmpPath)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return false, fmt.Errorf("running editor %s: %w", editorPath, err)
	}

	after, err := os.Stat(tmpPath)
	if err != nil {
		return false, bherr.Wrap("Instance.EditConfig", bherr.Io, err)
	}
	if !after.ModTime().After(before.ModTime()) {
		return false, nil
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return false, bherr.Wrap("Instance.EditConfig", bherr.Io, err)
	}
	if err := service.Validate(edited, i.serviceReg); err != nil {
		return false, err
	}
	if bytes.Equal(edited, original) {
		return false, nil
	}
	if err := os.WriteFile(i.data.ServicesConfig, edited, 0o644); err != nil {
		return false, bherr.Wrap("Instance.EditConfig", bherr.Io, err)
	}
	return true, nil
}

// RunningSince reports whether the instance currently has an active
// sandbox, and since when, based on the runtime directory's mtime.
func (i *Instance) RunningSince() (time.Time, bool) {
	runtime := NewRuntimePaths(i.cfg.RuntimeRoot, i.Name)
	st, err := os.Stat(runtime.Root)
	if err != nil {
		return time.Time{}, false
	}
	return st.ModTime(), true
}
