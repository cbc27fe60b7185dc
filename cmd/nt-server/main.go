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

// nt-server runs the NetworkTables server agent. Clients connect to it on the
// configured port and the REST API of the agent exposes the table.
package main

import (
	"log"

	"github.com/ligato/cn-infra/agent"

	"github.com/ligato/nt-agent/app"
	"github.com/ligato/nt-agent/pkg/debug"
	"github.com/ligato/nt-agent/pkg/version"
	"github.com/ligato/nt-agent/plugins/ntcore"
)

func main() {
	log.Printf("starting %v", version.Get())
	d := debug.Start()

	nt := app.New(ntcore.ModeServer)
	nt.EnableDebugLogs()
	a := agent.NewAgent(agent.AllPlugins(nt))
	err := a.Run()
	d.Stop()
	if err != nil {
		log.Fatal(err)
	}
}
