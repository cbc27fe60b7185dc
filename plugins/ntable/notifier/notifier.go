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

package notifier

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/ligato/cn-infra/logging"

	"github.com/ligato/nt-agent/plugins/ntable/api"
)

// Notifier delivers entry and connection notifications to registered
// listeners. Events are appended to an unbounded FIFO and dispatched by
// a single goroutine, so every listener observes events in the order they
// were generated. Producers never block and no event is dropped.
type Notifier struct {
	log logging.Logger
	cfg Config

	pending int64
	kick    chan struct{}
	quit    chan struct{}
	wg      sync.WaitGroup

	mu             sync.Mutex
	queue          []*event
	warned         bool
	closed         bool
	serial         uint64
	lastUID        uint32
	entryListeners map[uint32]*entryListener
	connListeners  map[uint32]*connListener
}

type entryListener struct {
	prefix   string
	mask     api.NotifyFlags
	callback api.EntryListener
	since    uint64
}

type connListener struct {
	callback api.ConnectionListener
	since    uint64
}

type event struct {
	serial uint64
	target uint32

	isConn    bool
	name      string
	value     *api.Value
	flags     api.NotifyFlags
	connected bool
	info      api.ConnectionInfo
}

// NewNotifier creates notifier and starts its dispatch goroutine.
func NewNotifier(log logging.Logger, cfg Config) *Notifier {
	if cfg.BacklogWarning <= 0 {
		cfg.BacklogWarning = DefaultConfig().BacklogWarning
	}
	n := &Notifier{
		log:            log,
		cfg:            cfg,
		kick:           make(chan struct{}, 1),
		quit:           make(chan struct{}),
		entryListeners: make(map[uint32]*entryListener),
		connListeners:  make(map[uint32]*connListener),
	}
	n.wg.Add(1)
	go n.dispatch()
	return n
}

// Close stops the dispatch goroutine. Events still in the queue are discarded.
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.quit)
	n.mu.Unlock()
	n.wg.Wait()
	return nil
}

// AddEntryListener registers callback for entries with the given key prefix.
// Only events generated after the registration are delivered to it.
func (n *Notifier) AddEntryListener(prefix string, callback api.EntryListener, mask api.NotifyFlags) uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastUID++
	n.entryListeners[n.lastUID] = &entryListener{
		prefix:   prefix,
		mask:     mask,
		callback: callback,
		since:    n.serial + 1,
	}
	reportListeners(len(n.entryListeners) + len(n.connListeners))
	return n.lastUID
}

// RemoveEntryListener unregisters entry listener. Queued events are not
// delivered to it anymore.
func (n *Notifier) RemoveEntryListener(uid uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.entryListeners, uid)
	reportListeners(len(n.entryListeners) + len(n.connListeners))
}

// AddConnectionListener registers callback for connection changes.
func (n *Notifier) AddConnectionListener(callback api.ConnectionListener) uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastUID++
	n.connListeners[n.lastUID] = &connListener{
		callback: callback,
		since:    n.serial + 1,
	}
	reportListeners(len(n.entryListeners) + len(n.connListeners))
	return n.lastUID
}

// RemoveConnectionListener unregisters connection listener.
func (n *Notifier) RemoveConnectionListener(uid uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.connListeners, uid)
	reportListeners(len(n.entryListeners) + len(n.connListeners))
}

// NotifyEntry queues entry event for all matching listeners.
func (n *Notifier) NotifyEntry(name string, value *api.Value, flags api.NotifyFlags) {
	n.enqueue(&event{name: name, value: value, flags: flags})
}

// NotifyEntryTo queues entry event for a single listener.
func (n *Notifier) NotifyEntryTo(uid uint32, name string, value *api.Value, flags api.NotifyFlags) {
	n.enqueue(&event{target: uid, name: name, value: value, flags: flags})
}

// NotifyConnection queues connection event for all connection listeners.
func (n *Notifier) NotifyConnection(connected bool, info api.ConnectionInfo) {
	n.enqueue(&event{isConn: true, connected: connected, info: info})
}

// NotifyConnectionTo queues connection event for a single listener.
func (n *Notifier) NotifyConnectionTo(uid uint32, connected bool, info api.ConnectionInfo) {
	n.enqueue(&event{target: uid, isConn: true, connected: connected, info: info})
}

// WaitForQueue blocks until all queued events are dispatched or the timeout
// elapses. Returns false on timeout.
func (n *Notifier) WaitForQueue(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for atomic.LoadInt64(&n.pending) > 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}

func (n *Notifier) enqueue(ev *event) {
	n.mu.Lock()
	if n.closed || !n.hasReceivers(ev) {
		n.mu.Unlock()
		return
	}
	n.serial++
	ev.serial = n.serial
	n.queue = append(n.queue, ev)
	backlog := len(n.queue)
	warn := backlog > n.cfg.BacklogWarning && !n.warned
	if warn {
		n.warned = true
	}
	atomic.AddInt64(&n.pending, 1)
	n.mu.Unlock()

	reportQueued(1)
	if warn {
		reportBacklogWarning()
		n.log.Warnf("notification backlog reached %d events, listeners are too slow", backlog)
	}
	select {
	case n.kick <- struct{}{}:
	default:
	}
}

// takeQueued returns all queued events.
func (n *Notifier) takeQueued() []*event {
	n.mu.Lock()
	defer n.mu.Unlock()
	events := n.queue
	n.queue = nil
	if len(events) <= n.cfg.BacklogWarning {
		n.warned = false
	}
	return events
}

// hasReceivers skips events nobody listens to. Must be called with mu held.
func (n *Notifier) hasReceivers(ev *event) bool {
	if ev.isConn {
		return len(n.connListeners) > 0
	}
	return len(n.entryListeners) > 0
}

func (n *Notifier) dispatch() {
	defer n.wg.Done()
	for {
		select {
		case <-n.kick:
			for _, ev := range n.takeQueued() {
				select {
				case <-n.quit:
					return
				default:
				}
				reportQueued(-1)
				n.deliver(ev)
				atomic.AddInt64(&n.pending, -1)
			}
		case <-n.quit:
			return
		}
	}
}

func (n *Notifier) deliver(ev *event) {
	if ev.isConn {
		for uid, cb := range n.connReceivers(ev) {
			n.call(uid, func() { cb(uid, ev.connected, ev.info) })
		}
		return
	}
	for uid, cb := range n.entryReceivers(ev) {
		n.call(uid, func() { cb(uid, ev.name, ev.value, ev.flags) })
	}
}

func (n *Notifier) entryReceivers(ev *event) map[uint32]api.EntryListener {
	n.mu.Lock()
	defer n.mu.Unlock()
	receivers := make(map[uint32]api.EntryListener)
	for uid, l := range n.entryListeners {
		if ev.target != 0 && ev.target != uid {
			continue
		}
		if ev.serial < l.since {
			continue
		}
		if !strings.HasPrefix(ev.name, l.prefix) || !l.mask.Selects(ev.flags) {
			continue
		}
		receivers[uid] = l.callback
	}
	return receivers
}

func (n *Notifier) connReceivers(ev *event) map[uint32]api.ConnectionListener {
	n.mu.Lock()
	defer n.mu.Unlock()
	receivers := make(map[uint32]api.ConnectionListener)
	for uid, l := range n.connListeners {
		if ev.target != 0 && ev.target != uid {
			continue
		}
		if ev.serial < l.since {
			continue
		}
		receivers[uid] = l.callback
	}
	return receivers
}

// call runs listener callback, a panic is logged and the listener stays registered.
func (n *Notifier) call(uid uint32, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			reportPanic()
			err := goerrors.Wrap(r, 2)
			n.log.WithFields(logging.Fields{"listener": uid}).
				Errorf("listener panicked: %v\n%s", err, err.ErrorStack())
		}
	}()
	fn()
}
