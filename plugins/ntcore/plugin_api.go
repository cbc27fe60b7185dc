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

	"github.com/ligato/nt-agent/plugins/ntable/api"
)

// API defines the NetworkTables operations available to other plugins.
type API interface {
	GetEntryValue(name string) *api.Value
	SetEntryValue(name string, value *api.Value) error
	SetDefaultEntryValue(name string, value *api.Value) bool
	SetEntryTypeValue(name string, value *api.Value) error
	SetEntryFlags(name string, flags api.EntryFlags) error
	UpdateEntryFlags(name string, set, clear api.EntryFlags) error
	GetEntryFlags(name string) api.EntryFlags
	DeleteEntry(name string)
	DeleteAllEntries()
	GetEntryInfo(prefix string, typeMask api.Type) []api.EntryInfo
	GetEntries(prefix string, typeMask api.Type) []api.EntrySnapshot
	LookupEntryID(name string) (id uint32, found bool)
	LookupEntryName(id uint32) (name string, found bool)

	AddEntryListener(prefix string, callback api.EntryListener, mask api.NotifyFlags) uint32
	RemoveEntryListener(uid uint32)
	AddConnectionListener(callback api.ConnectionListener, immediate bool) uint32
	RemoveConnectionListener(uid uint32)

	GetNetworkIdentity() string
	SetUpdateRate(interval time.Duration)
	Flush()
	GetConnections() []api.ConnectionInfo
	IsConnected() bool
	Mode() string

	GetTable(path string) *Table
}
