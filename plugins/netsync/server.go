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
	"context"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/ligato/nt-agent/plugins/netsync/wire"
)

// StartServer loads persistent entries from persistFile (if set), starts
// listening and serves clients in background. Failure to listen is returned.
func (d *Dispatcher) StartServer(persistFile, listenAddress string, port uint) error {
	ctx, err := d.begin()
	if err != nil {
		return err
	}

	if persistFile != "" {
		warnings, err := d.storage.LoadPersistent(persistFile)
		for _, warning := range warnings {
			d.log.Warnf("%s: %s", persistFile, warning)
		}
		if err != nil {
			if os.IsNotExist(errors.Cause(err)) {
				d.log.Warnf("persistent file %s does not exist, starting with empty table", persistFile)
			} else {
				d.log.Error(err)
			}
		}
	}

	addr := net.JoinHostPort(listenAddress, strconv.FormatUint(uint64(port), 10))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		d.abort()
		return errors.Wrapf(err, "listening on %s failed", addr)
	}
	d.storage.AttachServer(d)

	d.mu.Lock()
	d.listener = listener
	d.mu.Unlock()
	d.log.WithFields(logging.Fields{"address": listener.Addr().String()}).Info("NetworkTables server listening")

	d.wg.Add(2)
	go d.acceptLoop(ctx, listener)
	go d.flushLoop(ctx)
	return nil
}

// Addr returns the address the server listens on, nil if not listening.
func (d *Dispatcher) Addr() net.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listener == nil {
		return nil
	}
	return d.listener.Addr()
}

func (d *Dispatcher) acceptLoop(ctx context.Context, listener net.Listener) {
	defer d.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				d.log.Warnf("accepting connection failed: %v", err)
				time.Sleep(10 * time.Millisecond)
				continue
			}
			d.log.Errorf("accepting connections failed: %v", err)
			return
		}
		if tcp, ok := conn.(*net.TCPConn); ok {
			if err := tcp.SetKeepAlive(true); err != nil {
				d.log.Debugf("enabling TCP keep-alive failed: %v", err)
			}
		}
		c, ok := d.newConn(conn)
		if !ok {
			return
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.serveConn(c)
		}()
	}
}

// serveConn runs the server side of the handshake and then applies
// messages received from the client until the connection dies.
func (d *Dispatcher) serveConn(c *connection) {
	defer d.dropConn(c)
	c.setState(stateHandshake)

	msg, err := c.read()
	if err != nil {
		d.log.Debugf("handshake with %s failed: %v", c.remote(), err)
		return
	}
	hello, ok := msg.(*wire.ClientHello)
	if !ok {
		d.log.Warnf("expected ClientHello from %s, got %v", c.remote(), msg.Type())
		return
	}
	if hello.ProtoRev < wire.ProtocolRevision {
		d.log.WithFields(logging.Fields{"remote": c.remote(), "revision": hello.ProtoRev}).
			Warn("client protocol revision not supported")
		if err := c.write(&wire.ProtoUnsupported{ProtoRev: wire.ProtocolRevision}); err != nil {
			d.log.Debug(err)
		}
		return
	}
	c.setRemote(hello.Identity, wire.ProtocolRevision)
	serverHello := &wire.ServerHello{Flags: d.seenClient(hello.Identity), Identity: d.Identity()}

	d.storage.ServerSnapshot(func(snapshot []wire.Message) {
		c.queue(serverHello)
		for _, m := range snapshot {
			c.queue(m)
		}
		c.queue(&wire.ServerHelloDone{})
		c.setState(stateSynchronized)
	})
	d.startWriter(c)
	c.flush()

	for {
		msg, err := c.read()
		if err != nil {
			if c.getState() != stateDead {
				d.log.Debugf("connection %d closed: %v", c.uid, err)
			}
			return
		}
		if _, done := msg.(*wire.ClientHelloDone); done {
			if c.getState() == stateSynchronized {
				c.setState(stateActive)
				d.connected(c)
			}
			continue
		}
		if !d.process(c, msg) {
			d.log.Warnf("unexpected %v from %s dropped", msg.Type(), c.remote())
		}
	}
}

// seenClient records the client identity and returns ServerHello flags.
func (d *Dispatcher) seenClient(identity string) uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if identity == "" {
		return 0
	}
	if _, ok := d.seen[identity]; ok {
		return wire.ClientPreviouslySeen
	}
	d.seen[identity] = struct{}{}
	return 0
}
