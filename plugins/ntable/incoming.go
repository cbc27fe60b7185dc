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
	"sort"

	"github.com/ligato/cn-infra/logging"

	"github.com/ligato/nt-agent/plugins/netsync/wire"
	"github.com/ligato/nt-agent/plugins/ntable/api"
)

// ProcessIncoming applies entry message received from connection <conn>.
// Handshake messages are not accepted here.
func (s *Storage) ProcessIncoming(msg wire.Message, conn uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reportIncoming(msg.Type())

	switch s.mode {
	case Server:
		s.serverIncoming(msg, conn)
	case Client:
		s.clientIncoming(msg)
	default:
		s.log.Debugf("ignoring %v received by standalone storage", msg.Type())
	}
}

func (s *Storage) serverIncoming(msg wire.Message, conn uint32) {
	switch m := msg.(type) {
	case *wire.EntryAssign:
		s.serverAssign(m, conn)

	case *wire.EntryUpdate:
		e, ok := s.lookupID(m.ID)
		if !ok {
			s.log.Debugf("EntryUpdate for unknown id %d dropped", m.ID)
			return
		}
		if m.Value.Type() != e.value.Type() ||
			api.Resolve(e.seq, m.Seq, e.value, m.Value, false) == api.KeepLocal {
			reportRejected()
			s.send(&wire.EntryUpdate{ID: e.id, Seq: e.seq, Value: e.value}, conn, 0)
			return
		}
		e.seq = m.Seq
		if !e.value.Equal(m.Value) {
			e.value = m.Value
			s.notifier.NotifyEntry(e.name, e.value, api.NotifyUpdate)
			s.persistChanged(e.flags)
		}
		s.send(m, 0, conn)

	case *wire.FlagsUpdate:
		e, ok := s.lookupID(m.ID)
		if !ok {
			s.log.Debugf("FlagsUpdate for unknown id %d dropped", m.ID)
			return
		}
		s.applyFlags(e, m.Flags)
		s.send(m, 0, conn)

	case *wire.EntryDelete:
		e, ok := s.lookupID(m.ID)
		if !ok {
			s.log.Debugf("EntryDelete for unknown id %d dropped", m.ID)
			return
		}
		s.remove(e, 0)
		s.send(m, 0, conn)

	case *wire.ClearEntries:
		if m.Magic != wire.ClearAllMagic {
			s.log.Warnf("ClearEntries with invalid magic %#x dropped", m.Magic)
			return
		}
		s.clearNonPersistent(0)
		s.send(m, 0, conn)

	default:
		s.log.Debugf("unexpected %v from connection %d", msg.Type(), conn)
	}
}

// serverAssign handles client request to create an entry or a proposal
// replacing its full state.
func (s *Storage) serverAssign(m *wire.EntryAssign, conn uint32) {
	if m.Name == "" || m.Value == nil {
		s.log.Debugf("invalid EntryAssign from connection %d dropped", conn)
		return
	}
	var e *entry
	if m.ID == api.UnassignedID {
		e = s.entries[m.Name]
	} else {
		var ok bool
		if e, ok = s.lookupID(m.ID); !ok {
			s.log.Debugf("EntryAssign for unknown id %d dropped", m.ID)
			return
		}
	}

	if e == nil {
		e = &entry{name: m.Name, value: m.Value, flags: m.Flags, seq: m.Seq}
		s.entries[m.Name] = e
		s.assignID(e)
		reportEntries(len(s.entries))
		s.notifier.NotifyEntry(e.name, e.value, api.NotifyNew)
		s.persistChanged(e.flags)
		s.send(s.assignMsg(e), 0, 0)
		return
	}

	if api.Resolve(e.seq, m.Seq, e.value, m.Value, false) == api.KeepLocal {
		reportRejected()
		s.send(s.assignMsg(e), conn, 0)
		return
	}
	e.seq = m.Seq
	if !e.value.Equal(m.Value) {
		e.value = m.Value
		s.notifier.NotifyEntry(e.name, e.value, api.NotifyUpdate)
		s.persistChanged(e.flags)
	}
	s.applyFlags(e, m.Flags)
	if m.ID == api.UnassignedID {
		s.send(s.assignMsg(e), 0, 0)
	} else {
		s.send(s.assignMsg(e), 0, conn)
	}
}

func (s *Storage) applyFlags(e *entry, flags api.EntryFlags) {
	if e.flags == flags {
		return
	}
	changed := e.flags ^ flags
	e.flags = flags
	s.notifier.NotifyEntry(e.name, e.value, api.NotifyFlagsChanged)
	s.persistChanged(changed)
}

func (s *Storage) clientIncoming(msg wire.Message) {
	switch m := msg.(type) {
	case *wire.EntryAssign:
		s.clientAssign(m)

	case *wire.EntryUpdate:
		e, ok := s.lookupID(m.ID)
		if !ok {
			s.log.Debugf("EntryUpdate for unknown id %d dropped", m.ID)
			return
		}
		if api.Resolve(e.seq, m.Seq, e.value, m.Value, true) == api.KeepLocal {
			return
		}
		e.seq = m.Seq
		if !e.value.Equal(m.Value) {
			e.value = m.Value
			s.notifier.NotifyEntry(e.name, e.value, api.NotifyUpdate)
		}

	case *wire.FlagsUpdate:
		e, ok := s.lookupID(m.ID)
		if !ok {
			s.log.Debugf("FlagsUpdate for unknown id %d dropped", m.ID)
			return
		}
		if e.flagsPending {
			return
		}
		s.applyFlags(e, m.Flags)

	case *wire.EntryDelete:
		e, ok := s.lookupID(m.ID)
		if !ok {
			s.log.Debugf("EntryDelete for unknown id %d dropped", m.ID)
			return
		}
		s.remove(e, 0)

	case *wire.ClearEntries:
		if m.Magic != wire.ClearAllMagic {
			s.log.Warnf("ClearEntries with invalid magic %#x dropped", m.Magic)
			return
		}
		s.clearNonPersistent(0)

	default:
		s.log.Debugf("unexpected %v from server", msg.Type())
	}
}

// clientAssign applies authoritative entry state sent by the server.
func (s *Storage) clientAssign(m *wire.EntryAssign) {
	if m.ID == api.UnassignedID || m.Name == "" || m.Value == nil {
		s.log.Debugf("invalid EntryAssign from server dropped")
		return
	}
	if _, deleted := s.tombstones[m.Name]; deleted {
		delete(s.tombstones, m.Name)
		s.send(&wire.EntryDelete{ID: m.ID}, 0, 0)
		return
	}
	// the id may be re-used by the server for another name
	if other, ok := s.lookupID(m.ID); ok && other.name != m.Name {
		s.index.Delete(other.name)
		other.id = api.UnassignedID
	}

	e, ok := s.entries[m.Name]
	if !ok {
		e = &entry{name: m.Name, value: m.Value, flags: m.Flags, id: api.UnassignedID, seq: m.Seq}
		s.entries[m.Name] = e
		s.setID(e, m.ID)
		reportEntries(len(s.entries))
		s.notifier.NotifyEntry(e.name, e.value, api.NotifyNew)
		return
	}
	s.setID(e, m.ID)

	if api.Resolve(e.seq, m.Seq, e.value, m.Value, true) == api.TakeIncoming {
		e.seq = m.Seq
		if !e.value.Equal(m.Value) {
			e.value = m.Value
			s.notifier.NotifyEntry(e.name, e.value, api.NotifyUpdate)
		}
	}
	if e.flagsPending {
		e.flagsPending = false
		if e.flags != m.Flags {
			s.send(&wire.FlagsUpdate{ID: e.id, Flags: e.flags}, 0, 0)
		}
		return
	}
	s.applyFlags(e, m.Flags)
}

// ServerSnapshot calls attach with EntryAssign messages describing all
// entries. No other mutation can happen until attach returns, so a
// connection registered by attach does not miss any later change.
func (s *Storage) ServerSnapshot(attach func(snapshot []wire.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]wire.Message, 0, len(s.entries))
	for _, name := range s.sortedNames() {
		snapshot = append(snapshot, s.assignMsg(s.entries[name]))
	}
	attach(snapshot)
}

// ApplySnapshot replaces client state with the server snapshot. Local writes
// made while disconnected are revalidated against the snapshot and sent back
// to the server followed by <done>. The storage is online afterwards.
func (s *Storage) ApplySnapshot(snapshot []*wire.EntryAssign, done wire.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Client {
		return
	}

	old := s.entries
	s.entries = make(map[string]*entry, len(snapshot))
	for _, name := range s.index.ListAllEntries() {
		s.index.Delete(name)
	}
	var out []wire.Message

	for _, m := range snapshot {
		if m.ID == api.UnassignedID || m.Name == "" || m.Value == nil {
			continue
		}
		if _, deleted := s.tombstones[m.Name]; deleted {
			out = append(out, &wire.EntryDelete{ID: m.ID})
			continue
		}
		e, existed := old[m.Name]
		delete(old, m.Name)

		if !existed {
			e = &entry{name: m.Name, value: m.Value, flags: m.Flags, id: api.UnassignedID, seq: m.Seq}
			s.entries[m.Name] = e
			s.setID(e, m.ID)
			s.notifier.NotifyEntry(e.name, e.value, api.NotifyNew)
			continue
		}
		s.entries[m.Name] = e
		e.id = api.UnassignedID
		s.setID(e, m.ID)

		switch {
		case e.pending && e.value.Type() == m.Value.Type():
			if e.value.Equal(m.Value) {
				e.seq = m.Seq
			} else {
				e.seq = m.Seq + 1
				out = append(out, &wire.EntryUpdate{ID: e.id, Seq: e.seq, Value: e.value})
			}
		case e.pending:
			s.log.WithFields(logging.Fields{"entry": e.name, "local": e.value.Type(), "server": m.Value.Type()}).
				Warn("offline write dropped, type differs from the server")
			fallthrough
		default:
			e.seq = m.Seq
			if !e.value.Equal(m.Value) {
				e.value = m.Value
				s.notifier.NotifyEntry(e.name, e.value, api.NotifyUpdate)
			}
		}

		if e.flagsPending {
			if e.flags != m.Flags {
				out = append(out, &wire.FlagsUpdate{ID: e.id, Flags: e.flags})
			}
		} else {
			s.applyFlags(e, m.Flags)
		}
	}

	// entries unknown to the server
	for _, name := range sortedKeys(old) {
		e := old[name]
		if !e.pending {
			e.id = api.UnassignedID
			s.notifier.NotifyEntry(e.name, e.value, api.NotifyDelete)
			continue
		}
		e.id = api.UnassignedID
		s.entries[name] = e
		out = append(out, s.assignMsg(e))
	}

	for _, e := range s.entries {
		e.pending = false
		e.flagsPending = false
	}
	s.tombstones = make(map[string]struct{})
	reportEntries(len(s.entries))

	for _, msg := range out {
		s.send(msg, 0, 0)
	}
	if done != nil {
		s.send(done, 0, 0)
	}
	s.online = true
}

func sortedKeys(m map[string]*entry) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
