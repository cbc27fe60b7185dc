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

// Package restapi exposes the local NetworkTables instance over HTTP: entry
// CRUD, peer listing, call statistics, prometheus metrics and a websocket
// stream of entry notifications.
package restapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/ligato/cn-infra/infra"
	"github.com/ligato/cn-infra/rpc/rest"
	"github.com/pkg/errors"

	"github.com/ligato/nt-agent/plugins/ntcore"
)

// REST api methods
const (
	GET    = http.MethodGet
	PUT    = http.MethodPut
	DELETE = http.MethodDelete
)

// Plugin registers REST handlers of the NetworkTables agent.
type Plugin struct {
	Deps

	config *Config

	// active websocket watchers
	mu       sync.Mutex
	watchers map[*websocket.Conn]struct{}
	quit     chan struct{}
}

// Deps represents dependencies of the plugin.
type Deps struct {
	infra.PluginDeps
	HTTPHandlers HTTPHandlers
	NT           ntcore.API
}

// HTTPHandlers is the part of the REST plugin used to register handlers.
type HTTPHandlers interface {
	RegisterHTTPHandler(path string, provider rest.HandlerProvider, methods ...string) *mux.Route
}

// Config holds the plugin configuration.
type Config struct {
	// WatchBuffer is the number of notifications buffered per websocket
	// watcher. Notifications beyond it are dropped for that watcher.
	WatchBuffer int `json:"watch-buffer"`

	// WriteTimeout bounds a single websocket write.
	WriteTimeout time.Duration `json:"write-timeout"`

	// DisableMetrics skips registration of the prometheus handler,
	// e.g. when another plugin already serves it.
	DisableMetrics bool `json:"disable-metrics"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		WatchBuffer:  256,
		WriteTimeout: 5 * time.Second,
	}
}

// Init loads the configuration.
func (p *Plugin) Init() (err error) {
	if p.NT == nil {
		return errors.New("REST API plugin requires NetworkTables API")
	}
	if p.HTTPHandlers == nil {
		return errors.New("REST API plugin requires HTTP handlers registry")
	}
	if p.config == nil {
		if p.config, err = p.retrieveConfig(); err != nil {
			return err
		}
	}
	if p.config.WatchBuffer <= 0 {
		p.config.WatchBuffer = DefaultConfig().WatchBuffer
	}
	if p.config.WriteTimeout <= 0 {
		p.config.WriteTimeout = DefaultConfig().WriteTimeout
	}
	p.watchers = make(map[*websocket.Conn]struct{})
	p.quit = make(chan struct{})
	return nil
}

// AfterInit is used to register HTTP handlers
func (p *Plugin) AfterInit() (err error) {
	p.Log.Debug("REST API Plugin is up and running")

	p.registerEntryHandlers()
	p.registerNetworkHandlers()
	p.registerTelemetryHandlers()

	return nil
}

// Close disconnects all websocket watchers.
func (p *Plugin) Close() (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quit != nil {
		close(p.quit)
		p.quit = nil
	}
	for conn := range p.watchers {
		conn.Close()
	}
	p.watchers = make(map[*websocket.Conn]struct{})
	return nil
}

func (p *Plugin) retrieveConfig() (*Config, error) {
	conf := DefaultConfig()
	if p.Cfg == nil {
		return conf, nil
	}
	found, err := p.Cfg.LoadValue(conf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load REST API config")
	}
	if !found {
		p.Log.Debug("REST API config not found, using defaults")
	}
	return conf, nil
}
