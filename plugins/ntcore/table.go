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
	"sort"
	"strings"
	"sync"

	"github.com/ligato/nt-agent/plugins/ntable"
	"github.com/ligato/nt-agent/plugins/ntable/api"
)

// PathSeparator separates table names in entry keys.
const PathSeparator = "/"

// TableListener is called for changes of keys of a table. Key is relative
// to the table.
type TableListener func(table *Table, key string, value *api.Value, flags api.NotifyFlags)

// Table is a view of entries sharing a common path prefix.
type Table struct {
	storage *ntable.Storage
	path    string
}

// GetTable returns view of the table at path. Empty path or "/" is the root.
func (p *Plugin) GetTable(path string) *Table {
	return newTable(p.storage, path)
}

func newTable(storage *ntable.Storage, path string) *Table {
	path = strings.Trim(path, PathSeparator)
	if path != "" {
		path = PathSeparator + path
	}
	return &Table{storage: storage, path: path}
}

// Path returns absolute path of the table, empty for the root table.
func (t *Table) Path() string {
	return t.path
}

func (t *Table) key(key string) string {
	return t.path + PathSeparator + key
}

func (t *Table) prefix() string {
	return t.path + PathSeparator
}

// GetSubTable returns view of the nested table.
func (t *Table) GetSubTable(key string) *Table {
	return newTable(t.storage, t.key(key))
}

// ContainsKey returns true if the table has entry <key>.
func (t *Table) ContainsKey(key string) bool {
	return t.storage.GetEntryValue(t.key(key)) != nil
}

// ContainsSubTable returns true if any entry exists under the nested table.
func (t *Table) ContainsSubTable(key string) bool {
	return len(t.storage.GetEntryInfo(t.key(key)+PathSeparator, 0)) > 0
}

// GetKeys returns sorted keys of direct entries of the table with the type
// in typeMask (zero selects all types).
func (t *Table) GetKeys(typeMask api.Type) []string {
	var keys []string
	prefix := t.prefix()
	for _, info := range t.storage.GetEntryInfo(prefix, typeMask) {
		rel := strings.TrimPrefix(info.Name, prefix)
		if !strings.Contains(rel, PathSeparator) {
			keys = append(keys, rel)
		}
	}
	return keys
}

// GetSubTables returns sorted names of direct sub-tables.
func (t *Table) GetSubTables() []string {
	seen := make(map[string]struct{})
	prefix := t.prefix()
	for _, info := range t.storage.GetEntryInfo(prefix, 0) {
		rel := strings.TrimPrefix(info.Name, prefix)
		if i := strings.Index(rel, PathSeparator); i >= 0 {
			seen[rel[:i]] = struct{}{}
		}
	}
	tables := make([]string, 0, len(seen))
	for name := range seen {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables
}

// PutValue sets entry <key>, the type must match an existing entry.
func (t *Table) PutValue(key string, value *api.Value) error {
	return t.storage.SetEntryValue(t.key(key), value)
}

// SetDefaultValue creates entry <key> if it does not exist.
func (t *Table) SetDefaultValue(key string, value *api.Value) bool {
	return t.storage.SetDefaultEntryValue(t.key(key), value)
}

// GetValue returns value of entry <key>, nil if it does not exist.
func (t *Table) GetValue(key string) *api.Value {
	return t.storage.GetEntryValue(t.key(key))
}

func (t *Table) getTyped(key string, typ api.Type) (*api.Value, bool) {
	v := t.GetValue(key)
	if v == nil || v.Type() != typ {
		return nil, false
	}
	return v, true
}

// PutNumber sets number entry.
func (t *Table) PutNumber(key string, value float64) error {
	return t.PutValue(key, api.DoubleValue(value))
}

// GetNumber returns number entry or defaultValue.
func (t *Table) GetNumber(key string, defaultValue float64) float64 {
	if v, ok := t.getTyped(key, api.Double); ok {
		return v.GetDouble()
	}
	return defaultValue
}

// PutString sets string entry.
func (t *Table) PutString(key string, value string) error {
	return t.PutValue(key, api.StringValue(value))
}

// GetString returns string entry or defaultValue.
func (t *Table) GetString(key string, defaultValue string) string {
	if v, ok := t.getTyped(key, api.String); ok {
		return v.GetString()
	}
	return defaultValue
}

// PutBoolean sets boolean entry.
func (t *Table) PutBoolean(key string, value bool) error {
	return t.PutValue(key, api.BooleanValue(value))
}

// GetBoolean returns boolean entry or defaultValue.
func (t *Table) GetBoolean(key string, defaultValue bool) bool {
	if v, ok := t.getTyped(key, api.Boolean); ok {
		return v.GetBoolean()
	}
	return defaultValue
}

// PutRaw sets raw entry.
func (t *Table) PutRaw(key string, value []byte) error {
	return t.PutValue(key, api.RawValue(value))
}

// GetRaw returns raw entry or defaultValue.
func (t *Table) GetRaw(key string, defaultValue []byte) []byte {
	if v, ok := t.getTyped(key, api.Raw); ok {
		return v.GetRaw()
	}
	return defaultValue
}

// PutBooleanArray sets boolean array entry.
func (t *Table) PutBooleanArray(key string, value []bool) error {
	return t.PutValue(key, api.BooleanArrayValue(value))
}

// GetBooleanArray returns boolean array entry or defaultValue.
func (t *Table) GetBooleanArray(key string, defaultValue []bool) []bool {
	if v, ok := t.getTyped(key, api.BooleanArray); ok {
		return v.GetBooleanArray()
	}
	return defaultValue
}

// PutNumberArray sets number array entry.
func (t *Table) PutNumberArray(key string, value []float64) error {
	return t.PutValue(key, api.DoubleArrayValue(value))
}

// GetNumberArray returns number array entry or defaultValue.
func (t *Table) GetNumberArray(key string, defaultValue []float64) []float64 {
	if v, ok := t.getTyped(key, api.DoubleArray); ok {
		return v.GetDoubleArray()
	}
	return defaultValue
}

// PutStringArray sets string array entry.
func (t *Table) PutStringArray(key string, value []string) error {
	return t.PutValue(key, api.StringArrayValue(value))
}

// GetStringArray returns string array entry or defaultValue.
func (t *Table) GetStringArray(key string, defaultValue []string) []string {
	if v, ok := t.getTyped(key, api.StringArray); ok {
		return v.GetStringArray()
	}
	return defaultValue
}

// SetFlags sets the given flag bits of entry <key>, other bits are kept.
func (t *Table) SetFlags(key string, flags api.EntryFlags) error {
	return t.storage.UpdateEntryFlags(t.key(key), flags, 0)
}

// ClearFlags clears the given flag bits of entry <key>.
func (t *Table) ClearFlags(key string, flags api.EntryFlags) error {
	return t.storage.UpdateEntryFlags(t.key(key), 0, flags)
}

// GetFlags returns flags of entry <key>, zero if it does not exist.
func (t *Table) GetFlags(key string) api.EntryFlags {
	return t.storage.GetEntryFlags(t.key(key))
}

// SetPersistent marks entry <key> persistent.
func (t *Table) SetPersistent(key string) error {
	return t.SetFlags(key, api.Persistent)
}

// ClearPersistent removes the persistent flag of entry <key>.
func (t *Table) ClearPersistent(key string) error {
	return t.ClearFlags(key, api.Persistent)
}

// IsPersistent returns true if entry <key> is persistent.
func (t *Table) IsPersistent(key string) bool {
	return t.GetFlags(key).IsPersistent()
}

// Delete removes entry <key>.
func (t *Table) Delete(key string) {
	t.storage.DeleteEntry(t.key(key))
}

// AddTableListener registers listener for new and updated direct entries
// of the table changed remotely. With immediate set the listener is first
// called for all existing entries.
func (t *Table) AddTableListener(listener TableListener, immediate bool) uint32 {
	mask := api.NotifyNew | api.NotifyUpdate
	if immediate {
		mask |= api.NotifyImmediate
	}
	return t.AddTableListenerEx(listener, mask)
}

// AddTableListenerEx registers listener for direct entries of the table
// with an explicit notification mask.
func (t *Table) AddTableListenerEx(listener TableListener, mask api.NotifyFlags) uint32 {
	prefix := t.prefix()
	return t.storage.AddEntryListener(prefix, func(_ uint32, name string, value *api.Value, flags api.NotifyFlags) {
		rel := strings.TrimPrefix(name, prefix)
		if strings.Contains(rel, PathSeparator) {
			return
		}
		listener(t, rel, value, flags)
	}, mask)
}

// AddKeyListener registers listener for new and updated values of the
// single entry <key> changed remotely. With immediate set the listener is
// first called with the current value.
func (t *Table) AddKeyListener(key string, listener TableListener, immediate bool) uint32 {
	mask := api.NotifyNew | api.NotifyUpdate
	if immediate {
		mask |= api.NotifyImmediate
	}
	return t.AddKeyListenerEx(key, listener, mask)
}

// AddKeyListenerEx registers listener for the single entry <key> with an
// explicit notification mask.
func (t *Table) AddKeyListenerEx(key string, listener TableListener, mask api.NotifyFlags) uint32 {
	name := t.key(key)
	return t.storage.AddEntryListener(name, func(_ uint32, changed string, value *api.Value, flags api.NotifyFlags) {
		if changed == name {
			listener(t, key, value, flags)
		}
	}, mask)
}

// AddSubTableListener registers listener called once for every sub-table
// that appears in the table, including existing ones. Value passed to the
// listener is always nil.
func (t *Table) AddSubTableListener(listener TableListener, localNotify bool) uint32 {
	mask := api.NotifyNew | api.NotifyImmediate
	if localNotify {
		mask |= api.NotifyLocal
	}
	prefix := t.prefix()
	var mu sync.Mutex
	notified := make(map[string]struct{})
	return t.storage.AddEntryListener(prefix, func(_ uint32, name string, _ *api.Value, flags api.NotifyFlags) {
		rel := strings.TrimPrefix(name, prefix)
		i := strings.Index(rel, PathSeparator)
		if i < 0 {
			return
		}
		sub := rel[:i]
		mu.Lock()
		_, seen := notified[sub]
		notified[sub] = struct{}{}
		mu.Unlock()
		if !seen {
			listener(t, sub, nil, flags)
		}
	}, mask)
}

// RemoveTableListener unregisters table or sub-table listener.
func (t *Table) RemoveTableListener(uid uint32) {
	t.storage.RemoveEntryListener(uid)
}
