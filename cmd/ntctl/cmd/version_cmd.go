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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ligato/nt-agent/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version of ntctl and of the agent",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ntctl: %v\n", version.Get())
		info, err := newClient().Version()
		if err != nil {
			fmt.Printf("agent: %v\n", err)
			return
		}
		fmt.Printf("agent: %v\n", info)
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
