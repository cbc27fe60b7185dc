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

package restapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/unrolled/render"

	"github.com/ligato/nt-agent/plugins/ntable/api"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// watchHandler upgrades the request to a websocket and streams every entry
// notification under the prefix query parameter as JSON text message.
// With immediate=true the current entries are sent first.
func (p *Plugin) watchHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		query := req.URL.Query()
		prefix := query.Get("prefix")
		immediate, err := boolParam(query.Get("immediate"))
		if err != nil {
			formatter.JSON(w, http.StatusBadRequest, &Error{Code: http.StatusBadRequest, Message: err.Error()})
			return
		}
		mask := api.NotifyNew | api.NotifyUpdate | api.NotifyDelete | api.NotifyFlagsChanged | api.NotifyLocal
		if immediate {
			mask |= api.NotifyImmediate
		}

		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			p.Log.Warnf("websocket upgrade failed: %v", err)
			return
		}
		quit, ok := p.addWatcher(conn)
		if !ok {
			conn.Close()
			return
		}
		defer p.removeWatcher(conn)

		events := make(chan api.EntryNotification, p.config.WatchBuffer)
		uid := p.NT.AddEntryListener(prefix, func(uid uint32, name string, value *api.Value, flags api.NotifyFlags) {
			select {
			case events <- api.EntryNotification{ListenerID: uid, Name: name, Value: value, Flags: flags}:
			default:
				p.Log.Warnf("watcher %d is too slow, notification for %s dropped", uid, name)
			}
		}, mask)
		defer p.NT.RemoveEntryListener(uid)
		p.Log.Debugf("watcher %d connected from %s (prefix %q)", uid, req.RemoteAddr, prefix)

		// the reader only detects the peer going away
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case ev := <-events:
				conn.SetWriteDeadline(time.Now().Add(p.config.WriteTimeout))
				if err := conn.WriteJSON(&ev); err != nil {
					p.Log.Debugf("watcher %d write failed: %v", uid, err)
					return
				}
			case <-closed:
				p.Log.Debugf("watcher %d disconnected", uid)
				return
			case <-quit:
				return
			}
		}
	}
}

func (p *Plugin) addWatcher(conn *websocket.Conn) (quit <-chan struct{}, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quit == nil {
		return nil, false
	}
	p.watchers[conn] = struct{}{}
	return p.quit, true
}

func (p *Plugin) removeWatcher(conn *websocket.Conn) {
	p.mu.Lock()
	delete(p.watchers, conn)
	p.mu.Unlock()
	conn.Close()
}
