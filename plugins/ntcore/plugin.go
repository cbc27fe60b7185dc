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

// Package ntcore is the NetworkTables instance of a process. It owns the
// entry storage, the notifier and the connection dispatcher and exposes
// them through a single API.
package ntcore

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ligato/cn-infra/infra"
	"github.com/pkg/errors"

	"github.com/ligato/nt-agent/pkg/metrics"
	"github.com/ligato/nt-agent/plugins/netsync"
	"github.com/ligato/nt-agent/plugins/ntable"
	"github.com/ligato/nt-agent/plugins/ntable/api"
	"github.com/ligato/nt-agent/plugins/ntable/notifier"
	"github.com/ligato/nt-agent/plugins/persist"
)

// Plugin runs NetworkTables in standalone, server or client mode.
type Plugin struct {
	Deps

	config     *Config
	mode       string
	notifier   *notifier.Notifier
	storage    *ntable.Storage
	dispatcher *netsync.Dispatcher
	logHook    *logHook

	mu    sync.Mutex
	saver *persist.Saver
}

// Deps lists dependencies of the ntcore plugin.
type Deps struct {
	infra.PluginDeps
}

// Init loads configuration and creates the table.
func (p *Plugin) Init() error {
	if p.config == nil {
		cfg, err := p.retrieveConfig()
		if err != nil {
			return err
		}
		p.config = cfg
	}
	if p.mode != "" {
		p.config.Mode = p.mode
	}
	switch p.config.Mode {
	case "", ModeStandalone, ModeServer, ModeClient:
	default:
		return errors.Errorf("unknown mode %q", p.config.Mode)
	}

	p.notifier = notifier.NewNotifier(p.Log, p.config.Notifier)
	p.storage = ntable.NewStorage(p.Log, p.notifier)
	p.dispatcher = netsync.NewDispatcher(p.Log, p.storage, p.config.Netsync)

	identity := p.config.Identity
	if identity == "" {
		identity = "nt-" + uuid.New().String()
	}
	p.dispatcher.SetIdentity(identity)

	metrics.Register(p.statsName(), func() interface{} {
		return p.dispatcher.Stats()
	})
	p.Log.Infof("NetworkTables %q initialized", identity)
	return nil
}

// AfterInit starts server or client according to the configured mode.
func (p *Plugin) AfterInit() error {
	switch p.config.Mode {
	case ModeServer:
		return p.StartServer(p.config.PersistFile, p.config.ListenAddress, p.config.Port)
	case ModeClient:
		return p.StartClient(p.config.ServerAddress, p.config.Port)
	}
	return nil
}

// Close stops networking, flushes pending persistence and stops notifications.
func (p *Plugin) Close() error {
	if p.dispatcher == nil {
		return nil
	}
	p.stop()
	metrics.Unregister(p.statsName())
	return p.notifier.Close()
}

// StartServer loads persistent entries and starts accepting clients.
// Persistent entries are saved to persistFilename whenever they change.
func (p *Plugin) StartServer(persistFilename, listenAddress string, port uint) error {
	if port == 0 {
		port = DefaultPort
	}
	// the hook must be in place before the first client is accepted
	var saver *persist.Saver
	if persistFilename != "" {
		saver = persist.NewSaver(p.Log, persistFilename, p.config.SaveDelay, p.storage.PersistentSnapshot)
		p.storage.SetPersistHook(saver.Trigger)
	}
	if err := p.dispatcher.StartServer(persistFilename, listenAddress, port); err != nil {
		if saver != nil {
			p.mu.Lock()
			running := p.saver
			p.mu.Unlock()
			if running != nil {
				p.storage.SetPersistHook(running.Trigger)
			} else {
				p.storage.SetPersistHook(nil)
			}
			if closeErr := saver.Close(); closeErr != nil {
				p.Log.Error(closeErr)
			}
		}
		return err
	}
	p.mu.Lock()
	p.saver = saver
	p.mu.Unlock()
	return nil
}

// StopServer stops the server and writes pending persistent changes.
func (p *Plugin) StopServer() {
	p.stop()
}

// StartClient starts connecting to the server in background.
func (p *Plugin) StartClient(serverAddress string, port uint) error {
	if port == 0 {
		port = DefaultPort
	}
	return p.dispatcher.StartClient(serverAddress, port)
}

// StopClient disconnects from the server.
func (p *Plugin) StopClient() {
	p.stop()
}

func (p *Plugin) stop() {
	p.dispatcher.Stop()
	p.storage.SetPersistHook(nil)
	p.mu.Lock()
	saver := p.saver
	p.saver = nil
	p.mu.Unlock()
	if saver != nil {
		if err := saver.Close(); err != nil {
			p.Log.Error(err)
		}
	}
}

// GetEntryValue returns value of the entry, nil if it does not exist.
func (p *Plugin) GetEntryValue(name string) *api.Value {
	return p.storage.GetEntryValue(name)
}

// SetEntryValue creates or updates the entry keeping its type.
func (p *Plugin) SetEntryValue(name string, value *api.Value) error {
	return p.storage.SetEntryValue(name, value)
}

// SetDefaultEntryValue creates the entry if it does not exist.
func (p *Plugin) SetDefaultEntryValue(name string, value *api.Value) bool {
	return p.storage.SetDefaultEntryValue(name, value)
}

// SetEntryTypeValue creates or updates the entry, possibly changing its type.
func (p *Plugin) SetEntryTypeValue(name string, value *api.Value) error {
	return p.storage.SetEntryTypeValue(name, value)
}

// SetEntryFlags replaces flags of the entry.
func (p *Plugin) SetEntryFlags(name string, flags api.EntryFlags) error {
	return p.storage.SetEntryFlags(name, flags)
}

// UpdateEntryFlags sets and clears flag bits of an existing entry atomically.
func (p *Plugin) UpdateEntryFlags(name string, set, clear api.EntryFlags) error {
	return p.storage.UpdateEntryFlags(name, set, clear)
}

// GetEntryFlags returns flags of the entry.
func (p *Plugin) GetEntryFlags(name string) api.EntryFlags {
	return p.storage.GetEntryFlags(name)
}

// DeleteEntry removes the entry.
func (p *Plugin) DeleteEntry(name string) {
	p.storage.DeleteEntry(name)
}

// DeleteAllEntries removes all non-persistent entries.
func (p *Plugin) DeleteAllEntries() {
	p.storage.DeleteAllEntries()
}

// GetEntryInfo lists entries with the prefix and type in typeMask
// (zero mask matches all types).
func (p *Plugin) GetEntryInfo(prefix string, typeMask api.Type) []api.EntryInfo {
	return p.storage.GetEntryInfo(prefix, typeMask)
}

// GetEntries lists entries with their values.
func (p *Plugin) GetEntries(prefix string, typeMask api.Type) []api.EntrySnapshot {
	return p.storage.GetEntries(prefix, typeMask)
}

// LookupEntryID returns the id assigned to the entry by the server.
func (p *Plugin) LookupEntryID(name string) (id uint32, found bool) {
	meta, found := p.storage.Index().LookupByName(name)
	if !found {
		return api.UnassignedID, false
	}
	return meta.ID, true
}

// LookupEntryName returns name of the entry with the given server id.
func (p *Plugin) LookupEntryName(id uint32) (name string, found bool) {
	name, _, found = p.storage.Index().LookupByID(id)
	return name, found
}

// AddEntryListener registers callback for entries with the prefix.
func (p *Plugin) AddEntryListener(prefix string, callback api.EntryListener, mask api.NotifyFlags) uint32 {
	return p.storage.AddEntryListener(prefix, callback, mask)
}

// RemoveEntryListener unregisters entry listener.
func (p *Plugin) RemoveEntryListener(uid uint32) {
	p.storage.RemoveEntryListener(uid)
}

// AddConnectionListener registers callback for connection changes. With
// immediate set the callback is first called for every current connection.
func (p *Plugin) AddConnectionListener(callback api.ConnectionListener, immediate bool) uint32 {
	uid := p.notifier.AddConnectionListener(callback)
	if immediate {
		for _, info := range p.dispatcher.GetConnections() {
			p.notifier.NotifyConnectionTo(uid, true, info)
		}
	}
	return uid
}

// RemoveConnectionListener unregisters connection listener.
func (p *Plugin) RemoveConnectionListener(uid uint32) {
	p.notifier.RemoveConnectionListener(uid)
}

// WaitForNotifierQueue waits until all queued notifications are delivered.
func (p *Plugin) WaitForNotifierQueue(timeout time.Duration) bool {
	return p.notifier.WaitForQueue(timeout)
}

// SetNetworkIdentity sets the identity sent to peers.
func (p *Plugin) SetNetworkIdentity(name string) {
	p.dispatcher.SetIdentity(name)
}

// GetNetworkIdentity returns the identity sent to peers.
func (p *Plugin) GetNetworkIdentity() string {
	return p.dispatcher.Identity()
}

// SetUpdateRate sets period of sending queued changes.
func (p *Plugin) SetUpdateRate(interval time.Duration) {
	p.dispatcher.SetUpdateRate(interval)
}

// Flush sends queued changes immediately.
func (p *Plugin) Flush() {
	p.dispatcher.Flush()
}

// GetConnections returns established connections.
func (p *Plugin) GetConnections() []api.ConnectionInfo {
	return p.dispatcher.GetConnections()
}

// IsConnected returns true if at least one connection is established.
func (p *Plugin) IsConnected() bool {
	return p.dispatcher.IsConnected()
}

// Mode returns the current mode of the table.
func (p *Plugin) Mode() string {
	return p.storage.Mode().String()
}

// Stats returns processing statistics of incoming messages.
func (p *Plugin) Stats() metrics.Calls {
	return p.dispatcher.Stats()
}

// SavePersistent writes persistent entries to the file.
func (p *Plugin) SavePersistent(filename string) error {
	return p.storage.SavePersistent(filename)
}

// LoadPersistent loads persistent entries from the file. Returned warnings
// describe skipped lines.
func (p *Plugin) LoadPersistent(filename string) ([]string, error) {
	return p.storage.LoadPersistent(filename)
}

func (p *Plugin) statsName() string {
	return strings.Join([]string{p.String(), "calls"}, "/")
}

// retrieveConfig loads ntcore configuration file over the defaults.
func (p *Plugin) retrieveConfig() (*Config, error) {
	cfg := DefaultConfig()
	found, err := p.Cfg.LoadValue(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "loading ntcore config failed")
	}
	if !found {
		p.Log.Debug("ntcore config not found, using defaults")
	}
	return cfg, nil
}
