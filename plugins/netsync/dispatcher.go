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

// Package netsync manages NetworkTables connections. It accepts or opens
// TCP connections, performs handshakes and moves messages between the
// network and the entry storage.
package netsync

import (
	"context"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ligato/cn-infra/logging"

	"github.com/ligato/nt-agent/pkg/metrics"
	"github.com/ligato/nt-agent/plugins/netsync/wire"
	"github.com/ligato/nt-agent/plugins/ntable"
	"github.com/ligato/nt-agent/plugins/ntable/api"
)

// Dispatcher runs either server or client side of the protocol for
// a single storage.
type Dispatcher struct {
	log     logging.Logger
	storage *ntable.Storage
	cfg     Config
	stats   *metrics.CallRecorder

	mu         sync.Mutex
	identity   string
	updateRate time.Duration
	running    bool
	listener   net.Listener
	conns      map[uint32]*connection
	nextUID    uint32
	seen       map[string]struct{}
	cancel     context.CancelFunc
	rateCh     chan struct{}

	wg sync.WaitGroup
}

// NewDispatcher returns stopped dispatcher for the storage.
func NewDispatcher(log logging.Logger, storage *ntable.Storage, cfg Config) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		log:        log,
		storage:    storage,
		cfg:        cfg,
		stats:      metrics.NewCallRecorder(),
		updateRate: cfg.UpdateRate,
		conns:      make(map[uint32]*connection),
		seen:       make(map[string]struct{}),
		rateCh:     make(chan struct{}, 1),
	}
}

// SetIdentity sets the identity sent to peers in the handshake.
func (d *Dispatcher) SetIdentity(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.identity = name
}

// Identity returns the identity sent to peers.
func (d *Dispatcher) Identity() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.identity
}

// SetUpdateRate sets the period of sending queued messages. The rate is
// clamped to [MinUpdateRate, MaxUpdateRate].
func (d *Dispatcher) SetUpdateRate(rate time.Duration) {
	d.mu.Lock()
	d.updateRate = ClampUpdateRate(rate)
	d.mu.Unlock()
	select {
	case d.rateCh <- struct{}{}:
	default:
	}
}

// UpdateRate returns the period of sending queued messages.
func (d *Dispatcher) UpdateRate() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updateRate
}

// Stats returns processing time statistics per incoming message type.
func (d *Dispatcher) Stats() metrics.Calls {
	return d.stats.Snapshot()
}

// IsRunning returns true between successful start and Stop.
func (d *Dispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// QueueOutgoing queues msg for connections that finished the snapshot part
// of the handshake.
func (d *Dispatcher) QueueOutgoing(msg wire.Message, only, except uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if only != 0 {
		if c, ok := d.conns[only]; ok && c.synchronized() {
			c.queue(msg)
		}
		return
	}
	for uid, c := range d.conns {
		if uid != except && c.synchronized() {
			c.queue(msg)
		}
	}
}

// Flush sends all queued messages immediately.
func (d *Dispatcher) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.conns {
		c.flush()
	}
}

// GetConnections returns information about established connections.
func (d *Dispatcher) GetConnections() []api.ConnectionInfo {
	d.mu.Lock()
	var active []*connection
	for _, c := range d.conns {
		if c.getState() == stateActive {
			active = append(active, c)
		}
	}
	d.mu.Unlock()

	sort.Slice(active, func(i, j int) bool { return active[i].uid < active[j].uid })
	infos := make([]api.ConnectionInfo, 0, len(active))
	for _, c := range active {
		infos = append(infos, c.info())
	}
	return infos
}

// IsConnected returns true if at least one connection is established.
func (d *Dispatcher) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.conns {
		if c.getState() == stateActive {
			return true
		}
	}
	return false
}

// Stop closes listener and all connections, waits for all goroutines and
// returns storage into the standalone mode.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel, listener := d.cancel, d.listener
	d.cancel, d.listener = nil, nil
	conns := make([]*connection, 0, len(d.conns))
	for _, c := range d.conns {
		conns = append(conns, c)
	}
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if listener != nil {
		if err := listener.Close(); err != nil {
			d.log.Debugf("closing listener failed: %v", err)
		}
	}
	for _, c := range conns {
		c.close()
	}
	d.wg.Wait()
	d.storage.Detach()
	d.log.Info("NetworkTables dispatcher stopped")
}

func (d *Dispatcher) begin() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil, ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.running = true
	d.cancel = cancel
	return ctx, nil
}

func (d *Dispatcher) abort() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.running = false
	d.cancel = nil
}

// flushLoop periodically wakes up writers of all connections.
func (d *Dispatcher) flushLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.UpdateRate())
	defer func() { ticker.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.rateCh:
			ticker.Stop()
			ticker = time.NewTicker(d.UpdateRate())
		case <-ticker.C:
			d.Flush()
		}
	}
}

// newConn registers connection. Connections created after Stop are closed.
func (d *Dispatcher) newConn(conn net.Conn) (*connection, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		conn.Close()
		return nil, false
	}
	d.nextUID++
	c := newConnection(d.nextUID, conn, d.log, d.cfg)
	d.conns[c.uid] = c
	c.setState(stateCreated)
	return c, true
}

// dropConn closes and unregisters the connection.
func (d *Dispatcher) dropConn(c *connection) {
	c.close()
	d.mu.Lock()
	delete(d.conns, c.uid)
	d.mu.Unlock()
	if atomic.CompareAndSwapInt32(&c.announced, 1, 0) {
		reportDisconnected()
		info := c.info()
		d.log.WithFields(logging.Fields{"remote": c.remote(), "identity": info.RemoteID}).
			Info("NetworkTables peer disconnected")
		d.storage.Notifier().NotifyConnection(false, info)
	}
}

// connected announces established connection to the listeners.
func (d *Dispatcher) connected(c *connection) {
	if !atomic.CompareAndSwapInt32(&c.announced, 0, 1) {
		return
	}
	reportConnected()
	info := c.info()
	d.log.WithFields(logging.Fields{"remote": c.remote(), "identity": info.RemoteID}).
		Info("NetworkTables peer connected")
	d.storage.Notifier().NotifyConnection(true, info)
}

// startWriter runs writer goroutine of the connection.
func (d *Dispatcher) startWriter(c *connection) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := c.writeLoop(); err != nil {
			if c.getState() != stateDead {
				reportConnectionError()
				d.log.Errorf("%v", err)
			}
			c.close()
		}
	}()
}

// process applies entry message received from the connection.
func (d *Dispatcher) process(c *connection, msg wire.Message) bool {
	switch msg.(type) {
	case *wire.KeepAlive:
	case *wire.EntryAssign, *wire.EntryUpdate, *wire.FlagsUpdate, *wire.EntryDelete, *wire.ClearEntries:
		start := time.Now()
		d.storage.ProcessIncoming(msg, c.uid)
		d.stats.Record(msg.Type().String(), start)
	default:
		return false
	}
	return true
}
