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
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ligato/nt-agent/cmd/ntctl/client"
	"github.com/ligato/nt-agent/cmd/ntctl/utils"
	"github.com/ligato/nt-agent/plugins/ntable/api"
)

var listCmd = &cobra.Command{
	Use:     "list [PREFIX]",
	Aliases: []string{"ls"},
	Short:   "List entries",
	Args:    cobra.MaximumNArgs(1),
	RunE:    listFunction,
}

var getCmd = &cobra.Command{
	Use:   "get NAME | --id ID",
	Short: "Show a single entry",
	Long: `
Show a single entry selected by its NAME or by the id assigned to it
by the server.`,
	Args: cobra.MaximumNArgs(1),
	RunE: getFunction,
}

var setCmd = &cobra.Command{
	Use:   "set NAME TYPE VALUE",
	Short: "Write value of an entry",
	Long: `
Write value of an entry. TYPE is one of boolean, double, string, raw,
boolean[], double[] or string[]. Array elements are separated by commas and
raw values are base64 encoded.`,
	Args: cobra.ExactArgs(3),
	RunE: setFunction,
}

var deleteCmd = &cobra.Command{
	Use:     "delete [NAME]",
	Aliases: []string{"del", "rm"},
	Short:   "Delete an entry or all non-persistent entries",
	Args:    cobra.MaximumNArgs(1),
	RunE:    deleteFunction,
}

var (
	listTypes     []string
	getID         int64
	setForce      bool
	setPersistent bool
	setTransient  bool
	deleteAll     bool
)

func init() {
	RootCmd.AddCommand(listCmd, getCmd, setCmd, deleteCmd)
	listCmd.Flags().StringSliceVarP(&listTypes, "type", "t", nil, "Only list entries of the given types")
	getCmd.Flags().Int64Var(&getID, "id", -1, "Select the entry by its server assigned id")
	setCmd.Flags().BoolVar(&setForce, "force", false, "Replace value of an entry with different type")
	setCmd.Flags().BoolVar(&setPersistent, "persistent", false, "Mark the entry persistent")
	setCmd.Flags().BoolVar(&setTransient, "transient", false, "Clear the persistent flag")
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "Delete all non-persistent entries")
}

func listFunction(cmd *cobra.Command, args []string) error {
	var prefix string
	if len(args) > 0 {
		prefix = args[0]
	}
	var types []api.Type
	for _, name := range listTypes {
		t, err := api.ParseType(name)
		if err != nil {
			return err
		}
		types = append(types, t)
	}
	entries, err := newClient().Entries(prefix, types...)
	if err != nil {
		return err
	}
	return utils.PrintEntries(os.Stdout, entries, globalFlags.Output)
}

func getFunction(cmd *cobra.Command, args []string) error {
	var (
		entry *api.EntrySnapshot
		what  string
		err   error
	)
	switch {
	case len(args) == 1 && getID < 0:
		what = args[0]
		entry, err = newClient().Entry(what)
	case len(args) == 0 && getID >= 0 && getID < int64(api.UnassignedID):
		what = "with id " + strconv.FormatInt(getID, 10)
		entry, err = newClient().EntryByID(uint32(getID))
	default:
		return errors.New("specify either entry NAME or a valid --id")
	}
	if client.IsNotFound(err) {
		return errors.Errorf("entry %s not found", what)
	} else if err != nil {
		return err
	}
	return utils.PrintEntries(os.Stdout, []api.EntrySnapshot{*entry}, globalFlags.Output)
}

func setFunction(cmd *cobra.Command, args []string) error {
	t, err := api.ParseType(args[1])
	if err != nil {
		return err
	}
	value, err := api.ParseValue(t, args[2])
	if err != nil {
		return err
	}
	if setPersistent && setTransient {
		return errors.New("--persistent and --transient are mutually exclusive")
	}
	opts := client.PutOptions{Force: setForce}
	if setPersistent || setTransient {
		opts.Persistent = &setPersistent
	}
	entry, err := newClient().Put(args[0], value, opts)
	if err != nil {
		return err
	}
	return utils.PrintEntries(os.Stdout, []api.EntrySnapshot{*entry}, globalFlags.Output)
}

func deleteFunction(cmd *cobra.Command, args []string) error {
	switch {
	case deleteAll && len(args) == 0:
		return newClient().DeleteAll()
	case !deleteAll && len(args) == 1:
		return newClient().Delete(args[0])
	}
	return errors.New("specify either entry NAME or --all")
}
