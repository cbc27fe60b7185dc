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

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ligato/nt-agent/cmd/ntctl/client"
	"github.com/ligato/nt-agent/cmd/ntctl/utils"
)

// GlobalFlags defines a single type to hold all cobra global flags.
type GlobalFlags struct {
	Endpoint string
	Output   string
}

var globalFlags GlobalFlags

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "ntctl",
	Short: "A CLI tool for the NetworkTables agent",
	Long: `
A CLI tool to inspect and modify the table of a NetworkTables agent through
its REST API. Use the 'NT_ENDPOINT' environment variable or the 'endpoint'
flag to specify the agent.`,
	Example: `List all entries of the local agent:
  $ ntctl list

Write a persistent double entry on a remote agent:
  $ ntctl --endpoint 10.0.0.2:9191 set /robot/speed double 0.5 --persistent

Follow changes under a prefix:
  $ ntctl watch /robot/
`,
	SilenceUsage: true,
}

func init() {
	endpoint := os.Getenv("NT_ENDPOINT")
	if endpoint == "" {
		endpoint = client.DefaultEndpoint
	}
	RootCmd.PersistentFlags().StringVarP(&globalFlags.Endpoint,
		"endpoint", "e", endpoint, "Address of the agent REST API (host:port or URL).")
	RootCmd.PersistentFlags().StringVarP(&globalFlags.Output,
		"output", "o", utils.FormatTable, "Output format: table, json or yaml.")
}

func newClient() *client.Client {
	c, err := client.New(globalFlags.Endpoint)
	if err != nil {
		utils.ExitWithError(utils.ExitBadArgs, err)
	}
	return c
}
