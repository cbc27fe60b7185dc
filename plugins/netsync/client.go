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
	"strconv"
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/ligato/nt-agent/plugins/netsync/wire"
)

// StartClient starts connecting to the server in background. Broken
// connections are re-established with exponential backoff; meanwhile
// the storage serves reads from its cache and keeps local writes pending.
func (d *Dispatcher) StartClient(serverAddress string, port uint) error {
	ctx, err := d.begin()
	if err != nil {
		return err
	}
	d.storage.AttachClient(d)
	addr := net.JoinHostPort(serverAddress, strconv.FormatUint(uint64(port), 10))
	d.log.WithFields(logging.Fields{"server": addr}).Info("NetworkTables client started")

	d.wg.Add(2)
	go d.connectLoop(ctx, addr)
	go d.flushLoop(ctx)
	return nil
}

func (d *Dispatcher) connectLoop(ctx context.Context, addr string) {
	defer d.wg.Done()
	backoff := d.cfg.ReconnectMin

	for {
		synced, err := d.runClientConn(ctx, addr)
		select {
		case <-ctx.Done():
			return
		default:
		}
		if synced {
			backoff = d.cfg.ReconnectMin
		}
		if err != nil {
			reportConnectionError()
			d.log.WithFields(logging.Fields{"retry": backoff}).Error(err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > d.cfg.ReconnectMax {
			backoff = d.cfg.ReconnectMax
		}
	}
}

// runClientConn connects to the server and serves the connection until it
// dies. Returns true if the handshake was completed.
func (d *Dispatcher) runClientConn(ctx context.Context, addr string) (synced bool, err error) {
	dialer := net.Dialer{Timeout: d.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, &ConnectionError{Remote: addr, Op: "connect", Err: err}
	}
	c, ok := d.newConn(conn)
	if !ok {
		return false, nil
	}
	defer func() {
		d.storage.SetOffline()
		d.dropConn(c)
		if ctx.Err() != nil {
			err = nil
		}
	}()

	c.setState(stateHandshake)
	if err := c.write(&wire.ClientHello{ProtoRev: wire.ProtocolRevision, Identity: d.Identity()}); err != nil {
		return false, err
	}

	var snapshot []*wire.EntryAssign
handshake:
	for {
		msg, err := c.read()
		if err != nil {
			return false, err
		}
		switch m := msg.(type) {
		case *wire.ProtoUnsupported:
			return false, &ConnectionError{Remote: addr, Op: "handshake",
				Err: errors.Wrapf(ErrProtoUnsupported, "server revision %#04x", m.ProtoRev)}
		case *wire.ServerHello:
			c.setRemote(m.Identity, wire.ProtocolRevision)
		case *wire.EntryAssign:
			snapshot = append(snapshot, m)
		case *wire.ServerHelloDone:
			break handshake
		case *wire.KeepAlive:
		default:
			d.log.Debugf("unexpected %v during handshake ignored", msg.Type())
		}
	}

	c.setState(stateSynchronized)
	d.startWriter(c)
	d.storage.ApplySnapshot(snapshot, &wire.ClientHelloDone{})
	c.flush()
	c.setState(stateActive)
	d.connected(c)

	for {
		msg, err := c.read()
		if err != nil {
			if c.getState() == stateDead {
				return true, nil
			}
			return true, err
		}
		if !d.process(c, msg) {
			d.log.Debugf("unexpected %v from server ignored", msg.Type())
		}
	}
}
