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

package ntable

import (
	"strings"
	"sync"

	"github.com/ligato/cn-infra/logging"

	"github.com/ligato/nt-agent/plugins/netsync/wire"
	"github.com/ligato/nt-agent/plugins/ntable/api"
	"github.com/ligato/nt-agent/plugins/ntable/entryidx"
	"github.com/ligato/nt-agent/plugins/ntable/notifier"
)

// MessageSink receives protocol messages produced by the storage.
// Implemented by the connection dispatcher.
type MessageSink interface {
	// QueueOutgoing queues msg for sending. With only != 0 the message goes
	// to that connection only, otherwise to all connections except <except>.
	QueueOutgoing(msg wire.Message, only, except uint32)
}

// Mode of the storage.
type Mode int

const (
	// Standalone storage is not attached to any network.
	Standalone Mode = iota
	// Server storage holds the authoritative state and assigns entry ids.
	Server
	// Client storage mirrors the server state.
	Client
)

func (m Mode) String() string {
	switch m {
	case Server:
		return "server"
	case Client:
		return "client"
	}
	return "standalone"
}

type entry struct {
	name  string
	value *api.Value
	flags api.EntryFlags
	id    uint32
	seq   uint32

	// pending is set on clients for values written while not synchronized
	// with the server.
	pending bool
	// flagsPending is set on clients for flag changes the server has not seen.
	flagsPending bool
}

// Storage is the table of entries of a single process. All mutations are
// serialized by one mutex, messages and notifications are queued while it
// is held so that their order matches the order of mutations.
type Storage struct {
	log      logging.Logger
	notifier *notifier.Notifier

	mu         sync.Mutex
	entries    map[string]*entry
	index      entryidx.EntryIndexRW
	nextID     uint32
	mode       Mode
	online     bool
	sink       MessageSink
	tombstones map[string]struct{}
	onPersist  func()
}

// NewStorage creates empty standalone storage.
func NewStorage(log logging.Logger, n *notifier.Notifier) *Storage {
	return &Storage{
		log:        log,
		notifier:   n,
		entries:    make(map[string]*entry),
		index:      entryidx.NewEntryIndex(log, "entry-index"),
		tombstones: make(map[string]struct{}),
	}
}

// Notifier returns notifier used by the storage.
func (s *Storage) Notifier() *notifier.Notifier {
	return s.notifier
}

// Index returns read-only access to the entry id index. The index is
// synchronized on its own.
func (s *Storage) Index() entryidx.EntryIndex {
	return s.index
}

// SetPersistHook installs function called whenever a persistent entry changes.
func (s *Storage) SetPersistHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPersist = fn
}

// Mode returns current mode of the storage.
func (s *Storage) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// AttachServer switches storage to the server mode. Entries created before
// get their ids assigned.
func (s *Storage) AttachServer(sink MessageSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = Server
	s.online = true
	s.sink = sink
	s.tombstones = make(map[string]struct{})
	for _, name := range s.sortedNames() {
		e := s.entries[name]
		if e.id == api.UnassignedID {
			s.assignID(e)
		}
		e.pending = false
		e.flagsPending = false
	}
}

// AttachClient switches storage to the client mode. Until the handshake
// completes every local write is kept as pending and revalidated later.
func (s *Storage) AttachClient(sink MessageSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = Client
	s.online = false
	s.sink = sink
	for _, e := range s.entries {
		e.pending = true
		e.flagsPending = e.flags != 0
	}
}

// Detach returns storage into standalone mode.
func (s *Storage) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = Standalone
	s.online = false
	s.sink = nil
}

// SetOffline marks client storage as disconnected from the server.
func (s *Storage) SetOffline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == Client {
		s.online = false
	}
}

// IsOnline returns true for server storage and for client storage
// synchronized with the server.
func (s *Storage) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// GetEntryValue returns value of the entry, nil if it does not exist.
func (s *Storage) GetEntryValue(name string) *api.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok {
		return e.value
	}
	return nil
}

// SetEntryValue creates or updates the entry. Value of a different type than
// the existing one is rejected with api.ErrTypeMismatch.
func (s *Storage) SetEntryValue(name string, value *api.Value) error {
	return s.setEntry(name, value, false)
}

// SetEntryTypeValue creates or updates the entry, replacing also its type.
func (s *Storage) SetEntryTypeValue(name string, value *api.Value) error {
	return s.setEntry(name, value, true)
}

// SetDefaultEntryValue creates the entry only if it does not exist yet.
// Returns true if the entry exists afterwards with the type of value.
func (s *Storage) SetDefaultEntryValue(name string, value *api.Value) bool {
	if name == "" || value == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok {
		return e.value.Type() == value.Type()
	}
	s.createLocal(name, value, 0)
	return true
}

func (s *Storage) setEntry(name string, value *api.Value, force bool) error {
	if name == "" {
		return api.ErrEmptyKey
	}
	if value == nil {
		return api.ErrNilValue
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		s.createLocal(name, value, 0)
		return nil
	}
	typeChanged := e.value.Type() != value.Type()
	if typeChanged && !force {
		reportTypeMismatch()
		return api.ErrTypeMismatch
	}
	if e.value.Equal(value) {
		return nil
	}
	e.value = value
	e.seq++
	reportLocalWrite()
	s.notifier.NotifyEntry(name, value, api.NotifyUpdate|api.NotifyLocal)
	s.persistChanged(e.flags)

	switch {
	case s.mode == Standalone || s.mode == Client && !s.online:
		e.pending = true
	case e.id == api.UnassignedID || typeChanged:
		s.send(s.assignMsg(e), 0, 0)
	default:
		s.send(&wire.EntryUpdate{ID: e.id, Seq: e.seq, Value: value}, 0, 0)
	}
	return nil
}

// createLocal adds new entry created through the local API. Must be called
// with mu held.
func (s *Storage) createLocal(name string, value *api.Value, flags api.EntryFlags) *entry {
	e := &entry{name: name, value: value, flags: flags, id: api.UnassignedID, seq: 1}
	s.entries[name] = e
	delete(s.tombstones, name)
	if s.mode == Server {
		s.assignID(e)
	}
	reportEntries(len(s.entries))
	reportLocalWrite()
	s.notifier.NotifyEntry(name, value, api.NotifyNew|api.NotifyLocal)
	if flags != 0 {
		s.notifier.NotifyEntry(name, value, api.NotifyFlagsChanged|api.NotifyLocal)
	}
	s.persistChanged(flags)

	if s.mode == Standalone || s.mode == Client && !s.online {
		e.pending = true
		e.flagsPending = flags != 0
		return e
	}
	s.send(s.assignMsg(e), 0, 0)
	return e
}

// SetEntryFlags replaces flags of an existing entry.
func (s *Storage) SetEntryFlags(name string, flags api.EntryFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return api.ErrNotFound
	}
	s.setLocalFlags(e, flags)
	return nil
}

// UpdateEntryFlags sets bits <set> and then clears bits <clear> of an
// existing entry as a single mutation.
func (s *Storage) UpdateEntryFlags(name string, set, clear api.EntryFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return api.ErrNotFound
	}
	s.setLocalFlags(e, (e.flags|set)&^clear)
	return nil
}

// setLocalFlags must be called with mu held.
func (s *Storage) setLocalFlags(e *entry, flags api.EntryFlags) {
	if e.flags == flags {
		return
	}
	changed := e.flags ^ flags
	e.flags = flags
	s.notifier.NotifyEntry(e.name, e.value, api.NotifyFlagsChanged|api.NotifyLocal)
	s.persistChanged(changed)

	if s.mode != Server && (!s.online || e.id == api.UnassignedID) {
		e.flagsPending = true
		return
	}
	s.send(&wire.FlagsUpdate{ID: e.id, Flags: flags}, 0, 0)
}

// GetEntryFlags returns flags of the entry, zero if it does not exist.
func (s *Storage) GetEntryFlags(name string) api.EntryFlags {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok {
		return e.flags
	}
	return 0
}

// DeleteEntry removes the entry. Deleting absent entry is a no-op.
func (s *Storage) DeleteEntry(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return
	}
	s.remove(e, api.NotifyLocal)

	switch {
	case s.mode == Server:
		s.send(&wire.EntryDelete{ID: e.id}, 0, 0)
	case s.mode == Client && s.online && e.id != api.UnassignedID:
		s.send(&wire.EntryDelete{ID: e.id}, 0, 0)
	case s.mode == Client:
		s.tombstones[name] = struct{}{}
	}
}

// DeleteAllEntries removes all non-persistent entries.
func (s *Storage) DeleteAllEntries() {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.clearNonPersistent(api.NotifyLocal)
	if len(removed) == 0 {
		return
	}
	if s.mode == Server || s.mode == Client && s.online {
		s.send(&wire.ClearEntries{Magic: wire.ClearAllMagic}, 0, 0)
		return
	}
	if s.mode == Client {
		for _, e := range removed {
			s.tombstones[e.name] = struct{}{}
		}
	}
}

// GetEntryInfo lists entries with the given name prefix whose type matches
// typeMask (zero mask matches all types). Entries are sorted by name.
func (s *Storage) GetEntryInfo(prefix string, typeMask api.Type) []api.EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var infos []api.EntryInfo
	for _, name := range s.sortedNames() {
		e := s.entries[name]
		if !strings.HasPrefix(name, prefix) || !e.value.Type().Matches(typeMask) {
			continue
		}
		infos = append(infos, api.EntryInfo{
			Name:       name,
			Type:       e.value.Type(),
			Flags:      e.flags,
			LastChange: e.value.LastChange(),
		})
	}
	return infos
}

// GetEntries returns full state of entries with the given name prefix and
// type, sorted by name.
func (s *Storage) GetEntries(prefix string, typeMask api.Type) []api.EntrySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []api.EntrySnapshot
	for _, name := range s.sortedNames() {
		e := s.entries[name]
		if !strings.HasPrefix(name, prefix) || !e.value.Type().Matches(typeMask) {
			continue
		}
		entries = append(entries, api.EntrySnapshot{
			Name:     name,
			Value:    e.value,
			Flags:    e.flags,
			ID:       e.id,
			Sequence: e.seq,
		})
	}
	return entries
}

// AddEntryListener registers entry listener. With api.NotifyImmediate in
// mask the listener first receives the current entries matching prefix.
func (s *Storage) AddEntryListener(prefix string, callback api.EntryListener, mask api.NotifyFlags) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := s.notifier.AddEntryListener(prefix, callback, mask)
	if mask&api.NotifyImmediate != 0 {
		for _, name := range s.sortedNames() {
			if strings.HasPrefix(name, prefix) {
				s.notifier.NotifyEntryTo(uid, name, s.entries[name].value, api.NotifyImmediate|api.NotifyNew)
			}
		}
	}
	return uid
}

// RemoveEntryListener unregisters entry listener.
func (s *Storage) RemoveEntryListener(uid uint32) {
	s.notifier.RemoveEntryListener(uid)
}

// sortedNames must be called with mu held.
func (s *Storage) sortedNames() []string {
	return sortedKeys(s.entries)
}

func (s *Storage) assignID(e *entry) {
	e.id = s.nextID
	s.nextID++
	if s.nextID == api.UnassignedID {
		s.nextID = 0
	}
	s.index.Put(e.name, &entryidx.EntryMetadata{ID: e.id})
}

func (s *Storage) setID(e *entry, id uint32) {
	if e.id == id {
		return
	}
	e.id = id
	s.index.Put(e.name, &entryidx.EntryMetadata{ID: id})
}

func (s *Storage) lookupID(id uint32) (*entry, bool) {
	if id == api.UnassignedID {
		return nil, false
	}
	name, _, found := s.index.LookupByID(id)
	if !found {
		return nil, false
	}
	e, ok := s.entries[name]
	return e, ok
}

// remove deletes entry and notifies listeners. Must be called with mu held.
func (s *Storage) remove(e *entry, origin api.NotifyFlags) {
	delete(s.entries, e.name)
	if e.id != api.UnassignedID {
		s.index.Delete(e.name)
	}
	reportEntries(len(s.entries))
	s.notifier.NotifyEntry(e.name, e.value, api.NotifyDelete|origin)
	s.persistChanged(e.flags)
}

func (s *Storage) clearNonPersistent(origin api.NotifyFlags) []*entry {
	var removed []*entry
	for _, name := range s.sortedNames() {
		e := s.entries[name]
		if e.flags.IsPersistent() {
			continue
		}
		s.remove(e, origin)
		removed = append(removed, e)
	}
	return removed
}

func (s *Storage) assignMsg(e *entry) *wire.EntryAssign {
	return &wire.EntryAssign{Name: e.name, ID: e.id, Seq: e.seq, Flags: e.flags, Value: e.value}
}

// send must be called with mu held.
func (s *Storage) send(msg wire.Message, only, except uint32) {
	if s.sink == nil {
		return
	}
	s.sink.QueueOutgoing(msg, only, except)
}

func (s *Storage) persistChanged(flags api.EntryFlags) {
	if flags.IsPersistent() && s.onPersist != nil {
		s.onPersist()
	}
}
