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

package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ghodss/yaml"
	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"

	"github.com/ligato/nt-agent/plugins/ntable/api"
)

// Exit codes
const (
	ExitSuccess = iota
	ExitError
	ExitBadArgs
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ExitWithError is used by all commands to print out an error
// and exit.
func ExitWithError(code int, err error) {
	fmt.Fprintln(os.Stderr, "Error: ", err)
	os.Exit(code)
}

// PrintData writes data as JSON or YAML.
func PrintData(w io.Writer, data interface{}, format string) error {
	var out []byte
	var err error
	switch format {
	case FormatJSON:
		out, err = json.MarshalIndent(data, "", "  ")
		out = append(out, '\n')
	case FormatYAML:
		out, err = yaml.Marshal(data)
	default:
		return errors.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// PrintEntries writes entries in the given format.
func PrintEntries(w io.Writer, entries []api.EntrySnapshot, format string) error {
	if format != FormatTable {
		return PrintData(w, entries, format)
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tVALUE\tFLAGS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%v\t%v\t%v\n", e.Name, e.Value.Type(), e.Value, e.Flags)
	}
	return tw.Flush()
}

// PrintConnections writes connected peers in the given format.
func PrintConnections(w io.Writer, conns []api.ConnectionInfo, format string) error {
	if format != FormatTable {
		return PrintData(w, conns, format)
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "REMOTE ID\tADDRESS\tPROTOCOL\tLAST UPDATE")
	for _, c := range conns {
		fmt.Fprintf(tw, "%s\t%s:%d\t%#04x\t%s\n", c.RemoteID, c.RemoteIP, c.RemotePort,
			c.ProtocolVersion, time.Unix(0, c.LastUpdate*int64(time.Millisecond)).Format(time.RFC3339))
	}
	return tw.Flush()
}

// FormatNotification returns colored single line describing the event.
func FormatNotification(ev api.EntryNotification) string {
	var kind aurora.Value
	switch {
	case ev.Flags&api.NotifyDelete != 0:
		kind = aurora.Red("DELETE")
	case ev.Flags&api.NotifyNew != 0:
		kind = aurora.Green("NEW")
	case ev.Flags&api.NotifyUpdate != 0:
		kind = aurora.Brown("UPDATE")
	default:
		kind = aurora.Cyan("FLAGS")
	}
	line := fmt.Sprintf("%-6s %s", kind, aurora.Bold(ev.Name))
	if ev.Value != nil {
		line += fmt.Sprintf(" = %v (%v)", ev.Value, ev.Value.Type())
	}
	if ev.Flags&api.NotifyLocal != 0 {
		line += " [local]"
	}
	return line
}
