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

package netsync

import (
	"bufio"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ligato/cn-infra/logging"

	"github.com/ligato/nt-agent/plugins/netsync/wire"
	"github.com/ligato/nt-agent/plugins/ntable/api"
)

type connState int32

const (
	stateCreated connState = iota
	stateHandshake
	stateSynchronized
	stateActive
	stateDead
)

func (s connState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateHandshake:
		return "handshake"
	case stateSynchronized:
		return "synchronized"
	case stateActive:
		return "active"
	}
	return "dead"
}

// connection is a single peer connection with its outgoing queue.
// Reading is done by the goroutine owning the connection, writing by
// writeLoop.
type connection struct {
	uid    uint32
	conn   net.Conn
	reader *bufio.Reader
	log    logging.Logger
	cfg    Config

	state     int32
	announced int32

	mu         sync.Mutex
	pending    []wire.Message
	updates    map[uint32]int
	flags      map[uint32]int
	remoteID   string
	protoRev   uint16
	lastUpdate time.Time

	kick      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(uid uint32, conn net.Conn, log logging.Logger, cfg Config) *connection {
	return &connection{
		uid:        uid,
		conn:       conn,
		reader:     bufio.NewReader(conn),
		log:        log,
		cfg:        cfg,
		updates:    make(map[uint32]int),
		flags:      make(map[uint32]int),
		lastUpdate: time.Now(),
		kick:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

func (c *connection) remote() string {
	return c.conn.RemoteAddr().String()
}

func (c *connection) getState() connState {
	return connState(atomic.LoadInt32(&c.state))
}

func (c *connection) setState(state connState) {
	atomic.StoreInt32(&c.state, int32(state))
	c.log.Debugf("connection %d (%s) is %v", c.uid, c.remote(), state)
}

func (c *connection) setRemote(identity string, protoRev uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remoteID = identity
	c.protoRev = protoRev
}

func (c *connection) info() api.ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	info := api.ConnectionInfo{
		RemoteID:        c.remoteID,
		LastUpdate:      c.lastUpdate.UnixNano() / int64(time.Millisecond),
		ProtocolVersion: c.protoRev,
	}
	host, port, err := net.SplitHostPort(c.remote())
	if err == nil {
		info.RemoteIP = host
		if p, err := strconv.ParseUint(port, 10, 16); err == nil {
			info.RemotePort = uint(p)
		}
	}
	return info
}

// queue appends msg to the outgoing batch. Repeated EntryUpdate and
// FlagsUpdate for the same id replace the queued one as long as no other
// message for the id was queued in between.
func (c *connection) queue(msg wire.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch m := msg.(type) {
	case *wire.EntryUpdate:
		if i, ok := c.updates[m.ID]; ok {
			c.pending[i] = m
			reportCoalesced()
			return
		}
		c.updates[m.ID] = len(c.pending)
	case *wire.FlagsUpdate:
		if i, ok := c.flags[m.ID]; ok {
			c.pending[i] = m
			reportCoalesced()
			return
		}
		c.flags[m.ID] = len(c.pending)
	case *wire.EntryAssign:
		delete(c.updates, m.ID)
		delete(c.flags, m.ID)
	case *wire.EntryDelete:
		delete(c.updates, m.ID)
		delete(c.flags, m.ID)
	case *wire.ClearEntries:
		c.updates = make(map[uint32]int)
		c.flags = make(map[uint32]int)
	}
	c.pending = append(c.pending, msg)
}

func (c *connection) takePending() []wire.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.pending
	c.pending = nil
	if len(msgs) > 0 {
		c.updates = make(map[uint32]int)
		c.flags = make(map[uint32]int)
	}
	return msgs
}

// flush wakes up the writer.
func (c *connection) flush() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// writeLoop sends queued batches and keep-alives until the connection is
// closed or a write fails.
func (c *connection) writeLoop() error {
	ticker := time.NewTicker(c.cfg.KeepAlive / 2)
	defer ticker.Stop()
	lastWrite := time.Now()

	for {
		select {
		case <-c.done:
			return nil
		case <-c.kick:
			msgs := c.takePending()
			if len(msgs) == 0 {
				continue
			}
			if err := c.write(msgs...); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < c.cfg.KeepAlive {
				continue
			}
			if err := c.write(&wire.KeepAlive{}); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}

// write sends messages in a single write call.
func (c *connection) write(msgs ...wire.Message) error {
	var buf []byte
	for _, msg := range msgs {
		var err error
		if buf, err = wire.AppendFrame(buf, msg); err != nil {
			c.log.Warnf("dropping %v for %s: %v", msg.Type(), c.remote(), err)
		}
	}
	if len(buf) == 0 {
		return nil
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return &ConnectionError{Remote: c.remote(), Op: "write", Err: err}
	}
	if _, err := c.conn.Write(buf); err != nil {
		return &ConnectionError{Remote: c.remote(), Op: "write", Err: err}
	}
	for _, msg := range msgs {
		reportSent(msg.Type())
	}
	return nil
}

// read returns next message from the peer. A frame with malformed body
// was consumed in full, so it is dropped and the next one is read.
func (c *connection) read() (wire.Message, error) {
	var msg wire.Message
	for {
		var err error
		msg, err = wire.ReadMessage(c.reader)
		if decErr, ok := err.(*api.DecodeError); ok {
			reportDecodeError()
			c.log.Warnf("dropping malformed message from %s: %v", c.remote(), decErr)
			continue
		}
		if err != nil {
			return nil, &ConnectionError{Remote: c.remote(), Op: "read", Err: err}
		}
		break
	}
	reportReceived(msg.Type())
	c.mu.Lock()
	c.lastUpdate = time.Now()
	c.mu.Unlock()
	return msg, nil
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		atomic.StoreInt32(&c.state, int32(stateDead))
		close(c.done)
		if err := c.conn.Close(); err != nil {
			c.log.Debugf("closing connection %d failed: %v", c.uid, err)
		}
	})
}

// synchronized returns true once the connection may receive entry messages.
func (c *connection) synchronized() bool {
	state := c.getState()
	return state == stateSynchronized || state == stateActive
}
