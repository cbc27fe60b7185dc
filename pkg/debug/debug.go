// Copyright (c) 2018 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package debug enables profiling and the pprof/expvar server of agent
// binaries through environment variables.
package debug

import (
	_ "expvar"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"

	"github.com/pkg/profile"
)

// Environment variables
const (
	// EnvDebug lists debugged sections (plugin names) separated by commas.
	EnvDebug = "NT_DEBUG"
	// EnvProfileMode is one of cpu, mem, mutex, block or trace.
	EnvProfileMode = "NT_DEBUG_PROFILE_MODE"
	// EnvProfilePath is the directory for profile output.
	EnvProfilePath = "NT_DEBUG_PROFILE_PATH"
	// EnvServerAddr enables the debug HTTP server on the address.
	EnvServerAddr = "NT_DEBUG_SERVER_ADDR"
)

// Debug holds profiling started by Start.
type Debug struct {
	closer func()
}

// Start starts profiling and the debug server as requested by environment.
func Start() *Debug {
	var d Debug
	d.runProfiling(os.Getenv(EnvProfileMode), os.Getenv(EnvProfilePath))
	d.runServer(os.Getenv(EnvServerAddr))
	return &d
}

// Stop writes the profile.
func (d *Debug) Stop() {
	if d.closer != nil {
		d.closer()
		d.closer = nil
	}
}

func profileMode(mode string) func(*profile.Profile) {
	switch strings.ToLower(mode) {
	case "cpu":
		return profile.CPUProfile
	case "mem":
		return profile.MemProfile
	case "mutex":
		return profile.MutexProfile
	case "block":
		return profile.BlockProfile
	case "trace":
		return profile.TraceProfile
	}
	return nil
}

func (d *Debug) runProfiling(mode, path string) {
	profiling := profileMode(mode)
	if profiling == nil {
		return
	}
	opts := []func(*profile.Profile){
		profiling,
		profile.NoShutdownHook,
	}
	if path != "" {
		opts = append(opts, profile.ProfilePath(path))
	}
	d.closer = profile.Start(opts...).Stop
}

func (d *Debug) runServer(addr string) {
	if addr == "" {
		return
	}
	log.Printf("debug server listening on: %s", addr)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Printf("debug server error: %v", err)
		}
	}()
}

// IsEnabled checks whether the debug env var is set or not.
func IsEnabled() bool {
	return os.Getenv(EnvDebug) != ""
}

// IsEnabledFor returns true if the debug env var lists all sections.
// Value "*" enables every section.
func IsEnabledFor(sections ...string) bool {
	env := os.Getenv(EnvDebug)
	if env == "" {
		return false
	}
	if env == "*" {
		return true
	}
	enabled := make(map[string]bool)
	for _, s := range strings.Split(env, ",") {
		enabled[strings.TrimSpace(s)] = true
	}
	for _, s := range sections {
		if !enabled[s] {
			return false
		}
	}
	return true
}
