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

// Package app composes the NetworkTables agent from its plugins.
package app

import (
	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/logging/logmanager"
	"github.com/ligato/cn-infra/rpc/rest"

	"github.com/ligato/nt-agent/pkg/debug"
	"github.com/ligato/nt-agent/plugins/ntcore"
	"github.com/ligato/nt-agent/plugins/restapi"
)

// NTAgent defines plugins of the NetworkTables agent in the order they are
// initialized.
type NTAgent struct {
	LogManager *logmanager.Plugin

	HTTP    *rest.Plugin
	NT      *ntcore.Plugin
	RESTAPI *restapi.Plugin
}

// New returns the agent running NetworkTables in the given mode. Empty mode
// keeps the mode from ntcore configuration file.
func New(mode string) *NTAgent {
	nt := ntcore.DefaultPlugin
	if mode != "" {
		ntcore.UseMode(mode)(nt)
	}
	return &NTAgent{
		LogManager: &logmanager.DefaultPlugin,
		HTTP:       &rest.DefaultPlugin,
		NT:         nt,
		RESTAPI:    restapi.DefaultPlugin,
	}
}

// EnableDebugLogs sets debug level for loggers of plugins listed in the
// debug environment variable.
func (a *NTAgent) EnableDebugLogs() {
	for _, name := range []string{a.NT.String(), a.RESTAPI.String()} {
		if !debug.IsEnabledFor(name) {
			continue
		}
		if err := logging.DefaultRegistry.SetLevel(name, "debug"); err != nil {
			logging.DefaultLogger.Warnf("cannot enable debug logs of %s: %v", name, err)
		}
	}
}

// Init does nothing, the agent only groups plugins.
func (NTAgent) Init() error {
	return nil
}

// Close does nothing, the agent only groups plugins.
func (NTAgent) Close() error {
	return nil
}

func (NTAgent) String() string {
	return "NTAgent"
}
