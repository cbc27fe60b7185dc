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

package api

import (
	"strings"
)

// UnassignedID marks an entry which has not been assigned an id by the server yet.
const UnassignedID uint32 = 0xFFFFFFFF

// EntryFlags is a set of flags attached to an entry.
type EntryFlags uint8

const (
	// Persistent entries are saved into and restored from the persistence file.
	Persistent EntryFlags = 0x01
)

// IsPersistent returns true if Persistent flag is set.
func (f EntryFlags) IsPersistent() bool {
	return f&Persistent != 0
}

func (f EntryFlags) String() string {
	if f.IsPersistent() {
		return "persistent"
	}
	if f == 0 {
		return "none"
	}
	return "unknown"
}

// NotifyFlags describe the kind of entry notification and are also used
// as the event mask of entry listeners.
type NotifyFlags uint32

const (
	// NotifyImmediate requests (mask) or marks (event) the initial replay of existing entries.
	NotifyImmediate NotifyFlags = 0x01
	// NotifyLocal requests (mask) or marks (event) changes made through the local API.
	NotifyLocal NotifyFlags = 0x02
	// NotifyNew is set for newly created entries.
	NotifyNew NotifyFlags = 0x04
	// NotifyDelete is set for deleted entries.
	NotifyDelete NotifyFlags = 0x08
	// NotifyUpdate is set for value changes of existing entries.
	NotifyUpdate NotifyFlags = 0x10
	// NotifyFlagsChanged is set for flag changes.
	NotifyFlagsChanged NotifyFlags = 0x20

	// notifyKinds groups the bits describing kind of the change.
	notifyKinds = NotifyNew | NotifyDelete | NotifyUpdate | NotifyFlagsChanged
)

func (f NotifyFlags) String() string {
	var parts []string
	for _, flag := range []struct {
		bit  NotifyFlags
		name string
	}{
		{NotifyImmediate, "immediate"},
		{NotifyLocal, "local"},
		{NotifyNew, "new"},
		{NotifyDelete, "delete"},
		{NotifyUpdate, "update"},
		{NotifyFlagsChanged, "flags"},
	} {
		if f&flag.bit != 0 {
			parts = append(parts, flag.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Kinds returns only the bits describing kind of the change.
func (f NotifyFlags) Kinds() NotifyFlags {
	return f & notifyKinds
}

// Selects returns true if the listener mask accepts the given event.
// Mask without any kind bit accepts all kinds. Events of local origin are
// accepted only when the mask contains NotifyLocal.
func (f NotifyFlags) Selects(event NotifyFlags) bool {
	if event&NotifyLocal != 0 && f&NotifyLocal == 0 {
		return false
	}
	if event&NotifyImmediate != 0 {
		return true
	}
	mask := f.Kinds()
	if mask == 0 {
		return true
	}
	return event&mask != 0
}

// EntryInfo describes a single entry.
type EntryInfo struct {
	Name       string     `json:"name"`
	Type       Type       `json:"type"`
	Flags      EntryFlags `json:"flags"`
	LastChange int64      `json:"last_change"`
}

// EntrySnapshot is a full copy of an entry state.
type EntrySnapshot struct {
	Name     string     `json:"name"`
	Value    *Value     `json:"value"`
	Flags    EntryFlags `json:"flags"`
	ID       uint32     `json:"id"`
	Sequence uint32     `json:"seq"`
}

// EntryNotification describes a single entry event outside of the listener
// callback, e.g. when it is streamed to remote watchers.
type EntryNotification struct {
	ListenerID uint32      `json:"listener"`
	Name       string      `json:"name"`
	Value      *Value      `json:"value,omitempty"`
	Flags      NotifyFlags `json:"flags"`
}

// EntryListener is a callback invoked for matching entry notifications.
// Delete notifications carry the last value of the entry.
type EntryListener func(uid uint32, name string, value *Value, flags NotifyFlags)

// ConnectionInfo describes a remote peer.
type ConnectionInfo struct {
	RemoteID        string `json:"remote_id"`
	RemoteIP        string `json:"remote_ip"`
	RemotePort      uint   `json:"remote_port"`
	LastUpdate      int64  `json:"last_update"`
	ProtocolVersion uint16 `json:"protocol_version"`
}

// ConnectionListener is a callback invoked when a peer connects or disconnects.
type ConnectionListener func(uid uint32, connected bool, info ConnectionInfo)
