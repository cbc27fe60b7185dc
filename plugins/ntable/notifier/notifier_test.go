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

package notifier_test

import (
	"sync"
	"testing"
	"time"

	"github.com/ligato/cn-infra/logging/logrus"
	. "github.com/onsi/gomega"

	"github.com/ligato/nt-agent/plugins/ntable/api"
	"github.com/ligato/nt-agent/plugins/ntable/notifier"
)

type recorded struct {
	uid   uint32
	name  string
	value *api.Value
	flags api.NotifyFlags
}

type recorder struct {
	mu     sync.Mutex
	events []recorded
}

func (r *recorder) listener(uid uint32, name string, value *api.Value, flags api.NotifyFlags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{uid, name, value, flags})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for _, ev := range r.events {
		names = append(names, ev.name)
	}
	return names
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded{}, r.events...)
}

func newNotifier() *notifier.Notifier {
	return notifier.NewNotifier(logrus.NewLogger("notifier-test"), notifier.DefaultConfig())
}

func TestOrderAndPrefix(t *testing.T) {
	RegisterTestingT(t)
	n := newNotifier()
	defer n.Close()

	rec := &recorder{}
	uid := n.AddEntryListener("/foo/", rec.listener, 0)
	Expect(uid).ToNot(BeZero())

	for i := 0; i < 100; i++ {
		n.NotifyEntry("/foo/x", api.DoubleValue(float64(i)), api.NotifyUpdate)
	}
	n.NotifyEntry("/bar", api.DoubleValue(1), api.NotifyNew)
	n.NotifyEntry("/foo/y", nil, api.NotifyDelete)

	Expect(n.WaitForQueue(time.Second)).To(BeTrue())
	events := rec.all()
	Expect(events).To(HaveLen(101))
	for i := 0; i < 100; i++ {
		Expect(events[i].value.GetDouble()).To(Equal(float64(i)))
		Expect(events[i].uid).To(Equal(uid))
	}
	Expect(events[100].name).To(Equal("/foo/y"))
	Expect(events[100].value).To(BeNil())
}

func TestMaskAndLocal(t *testing.T) {
	RegisterTestingT(t)
	n := newNotifier()
	defer n.Close()

	remoteOnly := &recorder{}
	n.AddEntryListener("", remoteOnly.listener, api.NotifyNew)
	withLocal := &recorder{}
	n.AddEntryListener("", withLocal.listener, api.NotifyLocal)

	n.NotifyEntry("/a", api.BooleanValue(true), api.NotifyNew|api.NotifyLocal)
	n.NotifyEntry("/b", api.BooleanValue(true), api.NotifyNew)
	n.NotifyEntry("/c", api.BooleanValue(true), api.NotifyUpdate)

	Expect(n.WaitForQueue(time.Second)).To(BeTrue())
	Expect(remoteOnly.names()).To(Equal([]string{"/b"}))
	Expect(withLocal.names()).To(Equal([]string{"/a", "/b", "/c"}))
}

func TestOnlyEventsAfterRegistration(t *testing.T) {
	RegisterTestingT(t)
	n := newNotifier()
	defer n.Close()

	block := make(chan struct{})
	first := &recorder{}
	n.AddEntryListener("", func(uid uint32, name string, value *api.Value, flags api.NotifyFlags) {
		<-block
		first.listener(uid, name, value, flags)
	}, 0)

	n.NotifyEntry("/old", api.StringValue("x"), api.NotifyNew)
	late := &recorder{}
	lateUID := n.AddEntryListener("", late.listener, api.NotifyImmediate)
	n.NotifyEntryTo(lateUID, "/old", api.StringValue("x"), api.NotifyImmediate|api.NotifyNew)
	n.NotifyEntry("/new", api.StringValue("y"), api.NotifyNew)
	close(block)

	Expect(n.WaitForQueue(time.Second)).To(BeTrue())
	Expect(first.names()).To(Equal([]string{"/old", "/new"}))
	events := late.all()
	Expect(events).To(HaveLen(2))
	Expect(events[0].name).To(Equal("/old"))
	Expect(events[0].flags & api.NotifyImmediate).ToNot(BeZero())
	Expect(events[1].name).To(Equal("/new"))
}

func TestPanickingListenerStaysRegistered(t *testing.T) {
	RegisterTestingT(t)
	n := newNotifier()
	defer n.Close()

	var mu sync.Mutex
	calls := 0
	n.AddEntryListener("", func(uint32, string, *api.Value, api.NotifyFlags) {
		mu.Lock()
		calls++
		mu.Unlock()
		panic("listener failure")
	}, 0)
	other := &recorder{}
	n.AddEntryListener("", other.listener, 0)

	n.NotifyEntry("/a", api.DoubleValue(1), api.NotifyNew)
	n.NotifyEntry("/a", api.DoubleValue(2), api.NotifyUpdate)

	Expect(n.WaitForQueue(time.Second)).To(BeTrue())
	mu.Lock()
	Expect(calls).To(Equal(2))
	mu.Unlock()
	Expect(other.names()).To(HaveLen(2))
}

func TestRemoveListener(t *testing.T) {
	RegisterTestingT(t)
	n := newNotifier()
	defer n.Close()

	rec := &recorder{}
	uid := n.AddEntryListener("", rec.listener, 0)
	n.NotifyEntry("/a", api.DoubleValue(1), api.NotifyNew)
	Expect(n.WaitForQueue(time.Second)).To(BeTrue())

	n.RemoveEntryListener(uid)
	n.NotifyEntry("/a", api.DoubleValue(2), api.NotifyUpdate)
	Expect(n.WaitForQueue(time.Second)).To(BeTrue())
	Expect(rec.names()).To(Equal([]string{"/a"}))
}

func TestSlowListenerGetsEveryEvent(t *testing.T) {
	RegisterTestingT(t)
	n := notifier.NewNotifier(logrus.NewLogger("notifier-test"), notifier.Config{BacklogWarning: 8})
	defer n.Close()

	block := make(chan struct{})
	rec := &recorder{}
	n.AddEntryListener("", func(uid uint32, name string, value *api.Value, flags api.NotifyFlags) {
		<-block
		rec.listener(uid, name, value, flags)
	}, api.NotifyDelete|api.NotifyLocal)

	// producers must not wait for the blocked listener
	produced := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			n.NotifyEntry("/a", api.DoubleValue(float64(i)), api.NotifyDelete|api.NotifyLocal)
		}
		close(produced)
	}()
	Eventually(produced).Should(BeClosed())
	close(block)

	Expect(n.WaitForQueue(2 * time.Second)).To(BeTrue())
	events := rec.all()
	Expect(events).To(HaveLen(200))
	for i, ev := range events {
		Expect(ev.value.GetDouble()).To(Equal(float64(i)))
	}
}

func TestConnectionListeners(t *testing.T) {
	RegisterTestingT(t)
	n := newNotifier()
	defer n.Close()

	var mu sync.Mutex
	var states []bool
	var peers []string
	uid := n.AddConnectionListener(func(_ uint32, connected bool, info api.ConnectionInfo) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, connected)
		peers = append(peers, info.RemoteID)
	})

	n.NotifyConnection(true, api.ConnectionInfo{RemoteID: "peer"})
	n.NotifyConnectionTo(uid+1, true, api.ConnectionInfo{RemoteID: "other"})
	n.NotifyConnection(false, api.ConnectionInfo{RemoteID: "peer"})

	Expect(n.WaitForQueue(time.Second)).To(BeTrue())
	mu.Lock()
	Expect(states).To(Equal([]bool{true, false}))
	Expect(peers).To(Equal([]string{"peer", "peer"}))
	mu.Unlock()

	n.RemoveConnectionListener(uid)
	n.NotifyConnection(true, api.ConnectionInfo{RemoteID: "peer"})
	Expect(n.WaitForQueue(time.Second)).To(BeTrue())
	mu.Lock()
	Expect(states).To(HaveLen(2))
	mu.Unlock()
}
