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
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ligato/nt-agent/cmd/ntctl/utils"
	"github.com/ligato/nt-agent/plugins/ntable/api"
)

var connectionsCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"conns"},
	Short:   "List peers connected to the agent",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conns, err := newClient().Connections()
		if err != nil {
			return err
		}
		return utils.PrintConnections(os.Stdout, conns, globalFlags.Output)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show summary of the agent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := newClient().Status()
		if err != nil {
			return err
		}
		if globalFlags.Output != utils.FormatTable {
			return utils.PrintData(os.Stdout, status, globalFlags.Output)
		}
		fmt.Printf("Identity:    %s\nMode:        %s\nConnected:   %t\nConnections: %d\nEntries:     %d\n",
			status.Identity, status.Mode, status.Connected, status.Connections, status.Entries)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [PREFIX]",
	Short: "Follow changes of entries",
	Args:  cobra.MaximumNArgs(1),
	RunE:  watchFunction,
}

var watchImmediate bool

func init() {
	RootCmd.AddCommand(connectionsCmd, statusCmd, watchCmd)
	watchCmd.Flags().BoolVarP(&watchImmediate, "immediate", "i", false, "Report current entries first")
}

func watchFunction(cmd *cobra.Command, args []string) error {
	var prefix string
	if len(args) > 0 {
		prefix = args[0]
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		cancel()
	}()

	return newClient().Watch(ctx, prefix, watchImmediate, func(ev api.EntryNotification) {
		if globalFlags.Output != utils.FormatTable {
			utils.PrintData(os.Stdout, ev, globalFlags.Output)
			return
		}
		fmt.Println(utils.FormatNotification(ev))
	})
}
