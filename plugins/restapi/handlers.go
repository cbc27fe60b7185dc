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
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/render"

	"github.com/ligato/nt-agent/pkg/metrics"
	"github.com/ligato/nt-agent/pkg/version"
	"github.com/ligato/nt-agent/plugins/ntable/api"
	"github.com/ligato/nt-agent/plugins/restapi/resturl"
)

// Status summarizes the local node.
type Status struct {
	Mode        string `json:"mode"`
	Identity    string `json:"identity"`
	Connected   bool   `json:"connected"`
	Connections int    `json:"connections"`
	Entries     int    `json:"entries"`
}

// Error is the body of a failed request.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// badRequest marks errors caused by the request content.
type badRequest struct {
	error
}

func (p *Plugin) registerEntryHandlers() {
	p.registerHTTPHandler(resturl.Entries, GET, p.listEntries)
	p.registerHTTPHandler(resturl.Entries, DELETE, p.deleteAllEntries)
	entry := resturl.Entry + "{name:.+}"
	p.registerHTTPHandler(entry, GET, p.getEntry)
	p.registerHTTPHandler(entry, PUT, p.putEntry)
	p.registerHTTPHandler(entry, DELETE, p.deleteEntry)
	p.registerHTTPHandler(resturl.EntryByID+"{id:[0-9]+}", GET, p.getEntryByID)
}

func (p *Plugin) registerNetworkHandlers() {
	p.registerHTTPHandler(resturl.Connections, GET, func(*http.Request) (interface{}, error) {
		conns := p.NT.GetConnections()
		if conns == nil {
			conns = []api.ConnectionInfo{}
		}
		return conns, nil
	})
	p.registerHTTPHandler(resturl.Status, GET, func(*http.Request) (interface{}, error) {
		return &Status{
			Mode:        p.NT.Mode(),
			Identity:    p.NT.GetNetworkIdentity(),
			Connected:   p.NT.IsConnected(),
			Connections: len(p.NT.GetConnections()),
			Entries:     len(p.NT.GetEntryInfo("", 0)),
		}, nil
	})
	p.HTTPHandlers.RegisterHTTPHandler(resturl.Watch, p.watchHandler, GET)
}

func (p *Plugin) registerTelemetryHandlers() {
	p.registerHTTPHandler(resturl.Version, GET, func(*http.Request) (interface{}, error) {
		return version.Get(), nil
	})
	p.registerHTTPHandler(resturl.Stats, GET, func(*http.Request) (interface{}, error) {
		stats := make(map[string]interface{})
		for _, name := range metrics.RegisteredNames() {
			data, err := metrics.Retrieve(name)
			if err != nil {
				return nil, err
			}
			stats[name] = data
		}
		return stats, nil
	})
	if !p.config.DisableMetrics {
		p.HTTPHandlers.RegisterHTTPHandler(resturl.Metrics, func(*render.Render) http.HandlerFunc {
			return promhttp.Handler().ServeHTTP
		}, GET)
	}
}

// listEntries returns snapshots of entries selected by the prefix and type
// query parameters.
func (p *Plugin) listEntries(req *http.Request) (interface{}, error) {
	query := req.URL.Query()
	var mask api.Type
	for _, name := range query["type"] {
		t, err := api.ParseType(name)
		if err != nil {
			return nil, badRequest{err}
		}
		mask |= t
	}
	entries := p.NT.GetEntries(query.Get("prefix"), mask)
	if entries == nil {
		entries = []api.EntrySnapshot{}
	}
	return entries, nil
}

func (p *Plugin) deleteAllEntries(*http.Request) (interface{}, error) {
	p.NT.DeleteAllEntries()
	return nil, nil
}

func (p *Plugin) getEntry(req *http.Request) (interface{}, error) {
	return p.lookupEntry(entryName(req))
}

func (p *Plugin) getEntryByID(req *http.Request) (interface{}, error) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 32)
	if err != nil || uint32(id) == api.UnassignedID {
		return nil, badRequest{errors.Errorf("invalid entry id %q", mux.Vars(req)["id"])}
	}
	name, found := p.NT.LookupEntryName(uint32(id))
	if !found {
		return nil, errors.Wrapf(api.ErrNotFound, "entry id %d", id)
	}
	return p.lookupEntry(name)
}

func (p *Plugin) lookupEntry(name string) (interface{}, error) {
	for _, entry := range p.NT.GetEntries(name, 0) {
		if entry.Name == name {
			return entry, nil
		}
	}
	return nil, errors.Wrapf(api.ErrNotFound, "entry %q", name)
}

// putEntry writes the value from the request body. Query parameter force
// replaces an entry of another type, persistent sets or clears the
// persistent flag.
func (p *Plugin) putEntry(req *http.Request) (interface{}, error) {
	name := entryName(req)
	value := &api.Value{}
	if err := json.NewDecoder(req.Body).Decode(value); err != nil {
		return nil, badRequest{errors.Wrap(err, "invalid value")}
	}

	query := req.URL.Query()
	force, err := boolParam(query.Get("force"))
	if err != nil {
		return nil, err
	}
	if force {
		err = p.NT.SetEntryTypeValue(name, value)
	} else {
		err = p.NT.SetEntryValue(name, value)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "entry %q", name)
	}

	if raw := query.Get("persistent"); raw != "" {
		persistent, err := boolParam(raw)
		if err != nil {
			return nil, err
		}
		set, clear := api.EntryFlags(0), api.Persistent
		if persistent {
			set, clear = api.Persistent, 0
		}
		if err := p.NT.UpdateEntryFlags(name, set, clear); err != nil {
			return nil, errors.Wrapf(err, "entry %q", name)
		}
	}
	return p.getEntry(req)
}

func (p *Plugin) deleteEntry(req *http.Request) (interface{}, error) {
	name := entryName(req)
	if p.NT.GetEntryValue(name) == nil {
		return nil, errors.Wrapf(api.ErrNotFound, "entry %q", name)
	}
	p.NT.DeleteEntry(name)
	return nil, nil
}

func entryName(req *http.Request) string {
	return "/" + mux.Vars(req)["name"]
}

func boolParam(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badRequest{errors.Errorf("invalid boolean %q", raw)}
	}
	return v, nil
}

// statusOf maps handler error to HTTP status code.
func statusOf(err error) int {
	if _, ok := err.(badRequest); ok {
		return http.StatusBadRequest
	}
	switch errors.Cause(err) {
	case api.ErrNotFound:
		return http.StatusNotFound
	case api.ErrTypeMismatch:
		return http.StatusConflict
	case api.ErrEmptyKey, api.ErrNilValue:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// registerHTTPHandler is common register method for all handlers. Nil result
// without error is answered with 204.
func (p *Plugin) registerHTTPHandler(key, method string, f func(req *http.Request) (interface{}, error)) {
	handlerFunc := func(formatter *render.Render) http.HandlerFunc {
		return p.logged(func(w http.ResponseWriter, req *http.Request) {
			res, err := f(req)
			if err != nil {
				code := statusOf(err)
				if code == http.StatusInternalServerError {
					p.Log.Errorf("request %s %s failed: %v", req.Method, req.URL.Path, err)
				}
				formatter.JSON(w, code, &Error{Code: code, Message: err.Error()})
				return
			}
			if res == nil {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			p.Deps.Log.Debugf("Rest uri: %s, data: %v", key, res)
			formatter.JSON(w, http.StatusOK, res)
		})
	}
	p.HTTPHandlers.RegisterHTTPHandler(key, handlerFunc, method)
}

// logged records method, status and duration of every request.
func (p *Plugin) logged(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		m := httpsnoop.CaptureMetrics(h, w, req)
		p.Log.WithFields(logging.Fields{
			"method":   req.Method,
			"url":      req.URL.String(),
			"status":   m.Code,
			"duration": m.Duration,
		}).Debug("handled")
	}
}
