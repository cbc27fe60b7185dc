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
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ligato/cn-infra/logging/logrus"
	. "github.com/onsi/gomega"

	"github.com/ligato/nt-agent/plugins/netsync/wire"
	"github.com/ligato/nt-agent/plugins/ntable/api"
	"github.com/ligato/nt-agent/plugins/ntable/notifier"
)

type sent struct {
	msg    wire.Message
	only   uint32
	except uint32
}

type sinkMock struct {
	mu   sync.Mutex
	msgs []sent
}

func (m *sinkMock) QueueOutgoing(msg wire.Message, only, except uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, sent{msg, only, except})
}

func (m *sinkMock) take() []sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.msgs
	m.msgs = nil
	return msgs
}

type event struct {
	name  string
	value *api.Value
	flags api.NotifyFlags
}

type eventLog struct {
	mu     sync.Mutex
	events []event
}

func (l *eventLog) listener(_ uint32, name string, value *api.Value, flags api.NotifyFlags) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event{name, value, flags})
}

func (l *eventLog) get() []event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]event{}, l.events...)
}

func expectUpdate(msg wire.Message, id, seq uint32, value *api.Value) {
	update, ok := msg.(*wire.EntryUpdate)
	ExpectWithOffset(1, ok).To(BeTrue())
	ExpectWithOffset(1, update.ID).To(Equal(id))
	ExpectWithOffset(1, update.Seq).To(Equal(seq))
	ExpectWithOffset(1, update.Value.Equal(value)).To(BeTrue())
}

func newTestStorage() *Storage {
	log := logrus.NewLogger("storage-test")
	return NewStorage(log, notifier.NewNotifier(log, notifier.DefaultConfig()))
}

func waitEvents(s *Storage) {
	Expect(s.Notifier().WaitForQueue(time.Second)).To(BeTrue())
}

func TestSetAndGet(t *testing.T) {
	RegisterTestingT(t)
	s := newTestStorage()
	defer s.Notifier().Close()

	Expect(s.GetEntryValue("/foo")).To(BeNil())
	Expect(s.SetEntryValue("/foo", api.DoubleValue(0.5))).To(Succeed())
	Expect(s.GetEntryValue("/foo").GetDouble()).To(Equal(0.5))

	Expect(s.SetEntryValue("/foo", api.StringValue("x"))).To(Equal(api.ErrTypeMismatch))
	Expect(s.GetEntryValue("/foo").GetDouble()).To(Equal(0.5))

	Expect(s.SetEntryTypeValue("/foo", api.StringValue("x"))).To(Succeed())
	Expect(s.GetEntryValue("/foo").GetString()).To(Equal("x"))

	Expect(s.SetEntryValue("", api.StringValue("x"))).To(Equal(api.ErrEmptyKey))
	Expect(s.SetEntryValue("/bar", nil)).To(Equal(api.ErrNilValue))

	Expect(s.SetDefaultEntryValue("/foo", api.StringValue("y"))).To(BeTrue())
	Expect(s.GetEntryValue("/foo").GetString()).To(Equal("x"))
	Expect(s.SetDefaultEntryValue("/foo", api.DoubleValue(1))).To(BeFalse())
	Expect(s.SetDefaultEntryValue("/def", api.DoubleValue(1))).To(BeTrue())
	Expect(s.GetEntryValue("/def").GetDouble()).To(Equal(1.0))
}

func TestLocalEvents(t *testing.T) {
	RegisterTestingT(t)
	s := newTestStorage()
	defer s.Notifier().Close()

	local := &eventLog{}
	s.AddEntryListener("", local.listener, api.NotifyLocal)
	remoteOnly := &eventLog{}
	s.AddEntryListener("", remoteOnly.listener, 0)

	Expect(s.SetEntryValue("/a", api.DoubleValue(1))).To(Succeed())
	Expect(s.SetEntryValue("/a", api.DoubleValue(1))).To(Succeed())
	Expect(s.SetEntryValue("/a", api.DoubleValue(2))).To(Succeed())
	Expect(s.SetEntryFlags("/a", api.Persistent)).To(Succeed())
	s.DeleteEntry("/a")
	s.DeleteEntry("/a")

	waitEvents(s)
	events := local.get()
	Expect(events).To(HaveLen(4))
	Expect(events[0].flags).To(Equal(api.NotifyNew | api.NotifyLocal))
	Expect(events[1].flags).To(Equal(api.NotifyUpdate | api.NotifyLocal))
	Expect(events[1].value.GetDouble()).To(Equal(2.0))
	Expect(events[2].flags).To(Equal(api.NotifyFlagsChanged | api.NotifyLocal))
	Expect(events[3].flags).To(Equal(api.NotifyDelete | api.NotifyLocal))
	Expect(events[3].value.GetDouble()).To(Equal(2.0))
	Expect(remoteOnly.get()).To(BeEmpty())
}

func TestEntryFlags(t *testing.T) {
	RegisterTestingT(t)
	s := newTestStorage()
	defer s.Notifier().Close()

	Expect(s.SetEntryFlags("/missing", api.Persistent)).To(Equal(api.ErrNotFound))
	Expect(s.GetEntryFlags("/missing")).To(BeZero())

	Expect(s.SetEntryValue("/a", api.BooleanValue(true))).To(Succeed())
	Expect(s.SetEntryFlags("/a", api.Persistent)).To(Succeed())
	Expect(s.GetEntryFlags("/a").IsPersistent()).To(BeTrue())
}

func TestPrefixAndTypeFiltering(t *testing.T) {
	RegisterTestingT(t)
	s := newTestStorage()
	defer s.Notifier().Close()

	Expect(s.SetEntryValue("/a/x", api.DoubleValue(1))).To(Succeed())
	Expect(s.SetEntryValue("/a/y", api.StringValue("y"))).To(Succeed())
	Expect(s.SetEntryValue("/ab", api.DoubleValue(2))).To(Succeed())
	Expect(s.SetEntryValue("/b", api.DoubleValue(3))).To(Succeed())

	var names []string
	for _, info := range s.GetEntryInfo("/a/", 0) {
		names = append(names, info.Name)
	}
	Expect(names).To(Equal([]string{"/a/x", "/a/y"}))

	names = nil
	for _, info := range s.GetEntryInfo("/a", api.Double) {
		names = append(names, info.Name)
		Expect(info.Type).To(Equal(api.Double))
	}
	Expect(names).To(Equal([]string{"/a/x", "/ab"}))

	Expect(s.GetEntryInfo("", api.Double|api.String)).To(HaveLen(4))
	Expect(s.GetEntryInfo("/c", 0)).To(BeEmpty())
	Expect(s.GetEntries("/b", 0)).To(HaveLen(1))
}

func TestImmediateListener(t *testing.T) {
	RegisterTestingT(t)
	s := newTestStorage()
	defer s.Notifier().Close()

	Expect(s.SetEntryValue("/t/a", api.DoubleValue(1))).To(Succeed())
	Expect(s.SetEntryValue("/t/b", api.DoubleValue(2))).To(Succeed())
	Expect(s.SetEntryValue("/u", api.DoubleValue(3))).To(Succeed())

	log := &eventLog{}
	s.AddEntryListener("/t/", log.listener, api.NotifyImmediate|api.NotifyNew|api.NotifyUpdate|api.NotifyLocal)
	Expect(s.SetEntryValue("/t/a", api.DoubleValue(5))).To(Succeed())

	waitEvents(s)
	events := log.get()
	Expect(events).To(HaveLen(3))
	Expect(events[0].name).To(Equal("/t/a"))
	Expect(events[0].flags).To(Equal(api.NotifyImmediate | api.NotifyNew))
	Expect(events[0].value.GetDouble()).To(Equal(1.0))
	Expect(events[1].name).To(Equal("/t/b"))
	Expect(events[2].flags).To(Equal(api.NotifyUpdate | api.NotifyLocal))
	Expect(events[2].value.GetDouble()).To(Equal(5.0))
}

func TestSlowListenerDoesNotBlockMutations(t *testing.T) {
	RegisterTestingT(t)
	log := logrus.NewLogger("storage-test")
	s := NewStorage(log, notifier.NewNotifier(log, notifier.Config{BacklogWarning: 16}))
	defer s.Notifier().Close()

	for i := 0; i < 40; i++ {
		Expect(s.SetEntryValue(fmt.Sprintf("/e%d", i), api.DoubleValue(float64(i)))).To(Succeed())
	}
	release := make(chan struct{})
	deleted := &eventLog{}
	s.AddEntryListener("", func(uid uint32, name string, value *api.Value, flags api.NotifyFlags) {
		<-release
		deleted.listener(uid, name, value, flags)
	}, api.NotifyDelete|api.NotifyLocal)

	for i := 0; i < 40; i++ {
		s.DeleteEntry(fmt.Sprintf("/e%d", i))
	}
	Expect(s.GetEntries("", 0)).To(BeEmpty())
	close(release)

	Expect(s.Notifier().WaitForQueue(2 * time.Second)).To(BeTrue())
	events := deleted.get()
	Expect(events).To(HaveLen(40))
	for i, ev := range events {
		Expect(ev.name).To(Equal(fmt.Sprintf("/e%d", i)))
		Expect(ev.flags & api.NotifyDelete).ToNot(BeZero())
	}
}

func TestDeleteAllKeepsPersistent(t *testing.T) {
	RegisterTestingT(t)
	s := newTestStorage()
	defer s.Notifier().Close()
	sink := &sinkMock{}
	s.AttachServer(sink)

	Expect(s.SetEntryValue("/keep", api.DoubleValue(1))).To(Succeed())
	Expect(s.SetEntryFlags("/keep", api.Persistent)).To(Succeed())
	Expect(s.SetEntryValue("/drop", api.DoubleValue(2))).To(Succeed())
	sink.take()

	s.DeleteAllEntries()
	Expect(s.GetEntryValue("/drop")).To(BeNil())
	Expect(s.GetEntryValue("/keep")).ToNot(BeNil())

	msgs := sink.take()
	Expect(msgs).To(HaveLen(1))
	Expect(msgs[0].msg).To(Equal(&wire.ClearEntries{Magic: wire.ClearAllMagic}))
}

func TestServerLocalWrites(t *testing.T) {
	RegisterTestingT(t)
	s := newTestStorage()
	defer s.Notifier().Close()

	Expect(s.SetEntryValue("/before", api.BooleanValue(true))).To(Succeed())
	sink := &sinkMock{}
	s.AttachServer(sink)
	Expect(s.GetEntries("/before", 0)[0].ID).To(Equal(uint32(0)))

	Expect(s.SetEntryValue("/a", api.DoubleValue(1))).To(Succeed())
	Expect(s.SetEntryValue("/a", api.DoubleValue(2))).To(Succeed())
	Expect(s.SetEntryTypeValue("/a", api.StringValue("s"))).To(Succeed())
	Expect(s.SetEntryFlags("/a", api.Persistent)).To(Succeed())
	s.DeleteEntry("/a")

	msgs := sink.take()
	Expect(msgs).To(HaveLen(5))
	Expect(msgs[0].msg).To(BeAssignableToTypeOf(&wire.EntryAssign{}))
	assign := msgs[0].msg.(*wire.EntryAssign)
	Expect(assign.ID).To(Equal(uint32(1)))
	Expect(assign.Seq).To(Equal(uint32(1)))
	expectUpdate(msgs[1].msg, 1, 2, api.DoubleValue(2))
	Expect(msgs[2].msg.(*wire.EntryAssign).Value.GetString()).To(Equal("s"))
	Expect(msgs[3].msg).To(Equal(&wire.FlagsUpdate{ID: 1, Flags: api.Persistent}))
	Expect(msgs[4].msg).To(Equal(&wire.EntryDelete{ID: 1}))
	for _, m := range msgs {
		Expect(m.only).To(BeZero())
		Expect(m.except).To(BeZero())
	}
}

func TestServerLastWriterWins(t *testing.T) {
	RegisterTestingT(t)
	s := newTestStorage()
	defer s.Notifier().Close()
	sink := &sinkMock{}
	s.AttachServer(sink)

	// new entry from connection 1 is echoed to everybody with the assigned id
	s.ProcessIncoming(&wire.EntryAssign{Name: "/k", ID: api.UnassignedID, Seq: 1, Value: api.DoubleValue(1)}, 1)
	msgs := sink.take()
	Expect(msgs).To(HaveLen(1))
	Expect(msgs[0].only).To(BeZero())
	Expect(msgs[0].except).To(BeZero())
	id := msgs[0].msg.(*wire.EntryAssign).ID

	// newer update from connection 2 is accepted and sent to others
	s.ProcessIncoming(&wire.EntryUpdate{ID: id, Seq: 2, Value: api.DoubleValue(2)}, 2)
	msgs = sink.take()
	Expect(msgs).To(HaveLen(1))
	Expect(msgs[0].except).To(Equal(uint32(2)))
	Expect(s.GetEntryValue("/k").GetDouble()).To(Equal(2.0))

	// concurrent update with the same sequence from connection 1 is rejected
	s.ProcessIncoming(&wire.EntryUpdate{ID: id, Seq: 2, Value: api.DoubleValue(3)}, 1)
	msgs = sink.take()
	Expect(msgs).To(HaveLen(1))
	Expect(msgs[0].only).To(Equal(uint32(1)))
	expectUpdate(msgs[0].msg, id, 2, api.DoubleValue(2))
	Expect(s.GetEntryValue("/k").GetDouble()).To(Equal(2.0))

	// type mismatch is answered with the authoritative value
	s.ProcessIncoming(&wire.EntryUpdate{ID: id, Seq: 9, Value: api.StringValue("x")}, 1)
	msgs = sink.take()
	Expect(msgs).To(HaveLen(1))
	Expect(msgs[0].only).To(Equal(uint32(1)))

	// proposal with unassigned id for an existing key
	s.ProcessIncoming(&wire.EntryAssign{Name: "/k", ID: api.UnassignedID, Seq: 1, Value: api.DoubleValue(7)}, 3)
	msgs = sink.take()
	Expect(msgs).To(HaveLen(1))
	Expect(msgs[0].only).To(Equal(uint32(3)))
	Expect(msgs[0].msg.(*wire.EntryAssign).Value.GetDouble()).To(Equal(2.0))

	s.ProcessIncoming(&wire.EntryAssign{Name: "/k", ID: api.UnassignedID, Seq: 3, Value: api.StringValue("t")}, 3)
	msgs = sink.take()
	Expect(msgs).To(HaveLen(1))
	Expect(msgs[0].only).To(BeZero())
	Expect(s.GetEntryValue("/k").GetString()).To(Equal("t"))

	// unknown ids are dropped
	s.ProcessIncoming(&wire.EntryUpdate{ID: 99, Seq: 1, Value: api.DoubleValue(1)}, 1)
	s.ProcessIncoming(&wire.EntryDelete{ID: 99}, 1)
	s.ProcessIncoming(&wire.FlagsUpdate{ID: 99}, 1)
	Expect(sink.take()).To(BeEmpty())

	s.ProcessIncoming(&wire.EntryDelete{ID: id}, 2)
	msgs = sink.take()
	Expect(msgs).To(HaveLen(1))
	Expect(msgs[0].except).To(Equal(uint32(2)))
	Expect(s.GetEntryValue("/k")).To(BeNil())
}

func TestServerRemoteEvents(t *testing.T) {
	RegisterTestingT(t)
	s := newTestStorage()
	defer s.Notifier().Close()
	s.AttachServer(&sinkMock{})

	log := &eventLog{}
	s.AddEntryListener("/r", log.listener, 0)

	s.ProcessIncoming(&wire.EntryAssign{Name: "/r", ID: api.UnassignedID, Seq: 1, Value: api.DoubleValue(1)}, 1)
	s.ProcessIncoming(&wire.EntryUpdate{ID: 0, Seq: 2, Value: api.DoubleValue(2)}, 1)
	s.ProcessIncoming(&wire.FlagsUpdate{ID: 0, Flags: api.Persistent}, 1)
	s.ProcessIncoming(&wire.ClearEntries{Magic: 1}, 1)
	s.ProcessIncoming(&wire.EntryDelete{ID: 0}, 1)

	waitEvents(s)
	events := log.get()
	Expect(events).To(HaveLen(4))
	Expect(events[0].flags).To(Equal(api.NotifyNew))
	Expect(events[1].flags).To(Equal(api.NotifyUpdate))
	Expect(events[2].flags).To(Equal(api.NotifyFlagsChanged))
	Expect(events[3].flags).To(Equal(api.NotifyDelete))
}

func TestClientSnapshotRevalidation(t *testing.T) {
	RegisterTestingT(t)
	s := newTestStorage()
	defer s.Notifier().Close()
	sink := &sinkMock{}
	s.AttachClient(sink)

	// offline writes
	Expect(s.SetEntryValue("/mine", api.DoubleValue(1))).To(Succeed())
	Expect(s.SetEntryValue("/shared", api.DoubleValue(5))).To(Succeed())
	Expect(s.SetEntryValue("/typed", api.StringValue("local"))).To(Succeed())
	Expect(sink.take()).To(BeEmpty())

	done := &wire.ClientHelloDone{}
	s.ApplySnapshot([]*wire.EntryAssign{
		{Name: "/shared", ID: 0, Seq: 4, Value: api.DoubleValue(4)},
		{Name: "/typed", ID: 1, Seq: 2, Value: api.DoubleValue(2)},
		{Name: "/server", ID: 2, Seq: 1, Value: api.BooleanValue(true)},
	}, done)
	Expect(s.IsOnline()).To(BeTrue())

	Expect(s.GetEntryValue("/shared").GetDouble()).To(Equal(5.0))
	Expect(s.GetEntryValue("/typed").GetDouble()).To(Equal(2.0))
	Expect(s.GetEntryValue("/server").GetBoolean()).To(BeTrue())
	Expect(s.GetEntryValue("/mine").GetDouble()).To(Equal(1.0))

	msgs := sink.take()
	Expect(msgs).To(HaveLen(3))
	expectUpdate(msgs[0].msg, 0, 5, api.DoubleValue(5))
	Expect(msgs[1].msg.(*wire.EntryAssign).Name).To(Equal("/mine"))
	Expect(msgs[1].msg.(*wire.EntryAssign).ID).To(Equal(api.UnassignedID))
	Expect(msgs[2].msg).To(Equal(done))

	// authoritative echo assigns the id
	s.ProcessIncoming(&wire.EntryAssign{Name: "/mine", ID: 3, Seq: 1, Value: api.DoubleValue(1)}, 0)
	Expect(s.GetEntries("/mine", 0)[0].ID).To(Equal(uint32(3)))

	Expect(s.SetEntryValue("/mine", api.DoubleValue(2))).To(Succeed())
	msgs = sink.take()
	Expect(msgs).To(HaveLen(1))
	expectUpdate(msgs[0].msg, 3, 2, api.DoubleValue(2))
}

func TestClientDropsStaleEntries(t *testing.T) {
	RegisterTestingT(t)
	s := newTestStorage()
	defer s.Notifier().Close()
	sink := &sinkMock{}
	s.AttachClient(sink)
	s.ApplySnapshot([]*wire.EntryAssign{
		{Name: "/a", ID: 0, Seq: 1, Value: api.DoubleValue(1)},
		{Name: "/b", ID: 1, Seq: 1, Value: api.DoubleValue(1)},
	}, nil)
	sink.take()

	log := &eventLog{}
	s.AddEntryListener("", log.listener, 0)

	// reconnect: /b disappeared on the server, /a was deleted offline
	s.SetOffline()
	s.DeleteEntry("/a")
	s.ApplySnapshot([]*wire.EntryAssign{
		{Name: "/a", ID: 5, Seq: 1, Value: api.DoubleValue(1)},
	}, nil)

	Expect(s.GetEntryValue("/a")).To(BeNil())
	Expect(s.GetEntryValue("/b")).To(BeNil())
	Expect(sink.take()).To(Equal([]sent{{msg: &wire.EntryDelete{ID: 5}}}))

	waitEvents(s)
	events := log.get()
	Expect(events).To(HaveLen(1))
	Expect(events[0].name).To(Equal("/b"))
	Expect(events[0].flags).To(Equal(api.NotifyDelete))
}

func TestClientAuthoritativeUpdates(t *testing.T) {
	RegisterTestingT(t)
	s := newTestStorage()
	defer s.Notifier().Close()
	sink := &sinkMock{}
	s.AttachClient(sink)
	s.ApplySnapshot([]*wire.EntryAssign{
		{Name: "/a", ID: 0, Seq: 3, Value: api.DoubleValue(1)},
	}, nil)

	// local optimistic write
	Expect(s.SetEntryValue("/a", api.DoubleValue(2))).To(Succeed())
	// older server state is ignored
	s.ProcessIncoming(&wire.EntryUpdate{ID: 0, Seq: 3, Value: api.DoubleValue(9)}, 0)
	Expect(s.GetEntryValue("/a").GetDouble()).To(Equal(2.0))
	// rejection echo with the same sequence wins
	s.ProcessIncoming(&wire.EntryUpdate{ID: 0, Seq: 4, Value: api.DoubleValue(8)}, 0)
	Expect(s.GetEntryValue("/a").GetDouble()).To(Equal(8.0))
	// type changes from the server are accepted
	s.ProcessIncoming(&wire.EntryAssign{Name: "/a", ID: 0, Seq: 5, Value: api.StringValue("s")}, 0)
	Expect(s.GetEntryValue("/a").GetString()).To(Equal("s"))

	s.ProcessIncoming(&wire.ClearEntries{Magic: wire.ClearAllMagic}, 0)
	Expect(s.GetEntryValue("/a")).To(BeNil())
}

func TestPersistenceRoundTrip(t *testing.T) {
	RegisterTestingT(t)
	dir, err := ioutil.TempDir("", "ntable-test")
	Expect(err).ToNot(HaveOccurred())
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "networktables.ini")

	s := newTestStorage()
	defer s.Notifier().Close()
	Expect(s.SetEntryValue("/p/gain", api.DoubleValue(0.25))).To(Succeed())
	Expect(s.SetEntryFlags("/p/gain", api.Persistent)).To(Succeed())
	Expect(s.SetEntryValue("/p/names", api.StringArrayValue([]string{"a", "b"}))).To(Succeed())
	Expect(s.SetEntryFlags("/p/names", api.Persistent)).To(Succeed())
	Expect(s.SetEntryValue("/volatile", api.DoubleValue(1))).To(Succeed())
	Expect(s.SavePersistent(path)).To(Succeed())

	restored := newTestStorage()
	defer restored.Notifier().Close()
	warnings, err := restored.LoadPersistent(path)
	Expect(err).ToNot(HaveOccurred())
	Expect(warnings).To(BeEmpty())

	Expect(restored.GetEntryValue("/p/gain").GetDouble()).To(Equal(0.25))
	Expect(restored.GetEntryValue("/p/names").GetStringArray()).To(Equal([]string{"a", "b"}))
	Expect(restored.GetEntryFlags("/p/gain")).To(Equal(api.Persistent))
	Expect(restored.GetEntryValue("/volatile")).To(BeNil())

	_, err = restored.LoadPersistent(filepath.Join(dir, "missing.ini"))
	Expect(err).To(HaveOccurred())
}

func TestPersistHook(t *testing.T) {
	RegisterTestingT(t)
	s := newTestStorage()
	defer s.Notifier().Close()

	calls := 0
	s.SetPersistHook(func() { calls++ })
	Expect(s.SetEntryValue("/a", api.DoubleValue(1))).To(Succeed())
	Expect(calls).To(BeZero())
	Expect(s.SetEntryFlags("/a", api.Persistent)).To(Succeed())
	Expect(calls).To(Equal(1))
	Expect(s.SetEntryValue("/a", api.DoubleValue(2))).To(Succeed())
	Expect(calls).To(Equal(2))
	s.DeleteEntry("/a")
	Expect(calls).To(Equal(3))
}
