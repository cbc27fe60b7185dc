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

// Package client is a Go client of the NetworkTables agent REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/ligato/nt-agent/pkg/version"
	"github.com/ligato/nt-agent/plugins/ntable/api"
	"github.com/ligato/nt-agent/plugins/restapi"
	"github.com/ligato/nt-agent/plugins/restapi/resturl"
)

// DefaultEndpoint is the default address of the agent HTTP server.
const DefaultEndpoint = "127.0.0.1:9191"

// APIError is returned when the agent answers with an error status.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Code, http.StatusText(e.Code), e.Message)
}

// IsNotFound returns true if err reports a missing entry.
func IsNotFound(err error) bool {
	apiErr, ok := errors.Cause(err).(*APIError)
	return ok && apiErr.Code == http.StatusNotFound
}

// Client calls REST API of a single agent.
type Client struct {
	base       *url.URL
	httpClient *http.Client
}

// New returns client of the agent at endpoint, given either as host:port
// or as URL.
func New(endpoint string) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid endpoint %q", endpoint)
	}
	return &Client{
		base:       base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Entries lists entries under prefix, optionally limited to the given types.
func (c *Client) Entries(prefix string, types ...api.Type) ([]api.EntrySnapshot, error) {
	query := url.Values{}
	if prefix != "" {
		query.Set("prefix", prefix)
	}
	for _, t := range types {
		query.Add("type", t.String())
	}
	var entries []api.EntrySnapshot
	err := c.do(http.MethodGet, c.url(resturl.Entries, query), nil, &entries)
	return entries, err
}

// Entry returns a single entry.
func (c *Client) Entry(name string) (*api.EntrySnapshot, error) {
	entry := &api.EntrySnapshot{}
	if err := c.do(http.MethodGet, c.url(entryPath(name), nil), nil, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// EntryByID returns the entry with the id assigned by the server.
func (c *Client) EntryByID(id uint32) (*api.EntrySnapshot, error) {
	entry := &api.EntrySnapshot{}
	path := resturl.EntryByID + strconv.FormatUint(uint64(id), 10)
	if err := c.do(http.MethodGet, c.url(path, nil), nil, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// PutOptions modify behaviour of Put.
type PutOptions struct {
	// Force replaces value of an entry with different type.
	Force bool
	// Persistent sets (true) or clears (false) the persistent flag.
	Persistent *bool
}

// Put writes value of the entry and returns its new state.
func (c *Client) Put(name string, value *api.Value, opts PutOptions) (*api.EntrySnapshot, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	if opts.Force {
		query.Set("force", "true")
	}
	if opts.Persistent != nil {
		query.Set("persistent", strconv.FormatBool(*opts.Persistent))
	}
	entry := &api.EntrySnapshot{}
	if err := c.do(http.MethodPut, c.url(entryPath(name), query), bytes.NewReader(body), entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete removes the entry.
func (c *Client) Delete(name string) error {
	return c.do(http.MethodDelete, c.url(entryPath(name), nil), nil, nil)
}

// DeleteAll removes all non-persistent entries.
func (c *Client) DeleteAll() error {
	return c.do(http.MethodDelete, c.url(resturl.Entries, nil), nil, nil)
}

// Connections lists connected peers.
func (c *Client) Connections() ([]api.ConnectionInfo, error) {
	var conns []api.ConnectionInfo
	err := c.do(http.MethodGet, c.url(resturl.Connections, nil), nil, &conns)
	return conns, err
}

// Status returns summary of the agent.
func (c *Client) Status() (*restapi.Status, error) {
	status := &restapi.Status{}
	if err := c.do(http.MethodGet, c.url(resturl.Status, nil), nil, status); err != nil {
		return nil, err
	}
	return status, nil
}

// Version returns version info of the agent.
func (c *Client) Version() (*version.Info, error) {
	info := &version.Info{}
	if err := c.do(http.MethodGet, c.url(resturl.Version, nil), nil, info); err != nil {
		return nil, err
	}
	return info, nil
}

// Watch streams notifications of entries under prefix to fn until ctx is
// cancelled or the connection fails. With immediate the current entries
// are reported first.
func (c *Client) Watch(ctx context.Context, prefix string, immediate bool, fn func(api.EntryNotification)) error {
	query := url.Values{}
	if prefix != "" {
		query.Set("prefix", prefix)
	}
	if immediate {
		query.Set("immediate", "true")
	}
	wsURL := c.url(resturl.Watch, query)
	wsURL.Scheme = strings.Replace(wsURL.Scheme, "http", "ws", 1)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return errors.Wrapf(err, "watch %s", wsURL)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	for {
		var ev api.EntryNotification
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "watch stream")
		}
		fn(ev)
	}
}

func (c *Client) url(path string, query url.Values) *url.URL {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return &u
}

func (c *Client) do(method string, u *url.URL, body io.Reader, result interface{}) error {
	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, u.Path)
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response failed")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &restapi.Error{}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return &APIError{Code: resp.StatusCode, Message: apiErr.Message}
	}
	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, result), "decoding response failed")
}

func entryPath(name string) string {
	return resturl.Entry + strings.TrimPrefix(name, "/")
}
