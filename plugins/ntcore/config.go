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

package ntcore

import (
	"time"

	"github.com/ligato/nt-agent/plugins/netsync"
	"github.com/ligato/nt-agent/plugins/ntable/notifier"
	"github.com/ligato/nt-agent/plugins/persist"
)

// DefaultPort is the standard NetworkTables TCP port.
const DefaultPort = 1735

// Modes the plugin can start in.
const (
	ModeStandalone = "standalone"
	ModeServer     = "server"
	ModeClient     = "client"
)

// Config holds the ntcore plugin configuration.
type Config struct {
	// Mode is one of standalone, server or client.
	Mode     string `json:"mode"`
	Identity string `json:"identity"`

	ListenAddress string `json:"listen-address"`
	ServerAddress string `json:"server-address"`
	Port          uint   `json:"port"`

	// PersistFile is loaded before the server starts listening and
	// rewritten whenever a persistent entry changes.
	PersistFile string        `json:"persist-file"`
	SaveDelay   time.Duration `json:"save-delay"`

	Netsync  netsync.Config  `json:"netsync"`
	Notifier notifier.Config `json:"notifier"`
}

// DefaultConfig returns configuration of a standalone table.
func DefaultConfig() *Config {
	return &Config{
		Mode:          ModeStandalone,
		ServerAddress: "127.0.0.1",
		Port:          DefaultPort,
		SaveDelay:     persist.DefaultSaveDelay,
		Netsync:       netsync.DefaultConfig(),
		Notifier:      notifier.DefaultConfig(),
	}
}
