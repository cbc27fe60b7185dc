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

package resturl

// Entries
const (
	// Entries is a path for listing (GET) or clearing (DELETE) table entries.
	// Optional query parameters: prefix, type (repeatable).
	Entries = "/nt/v1/entries"

	// Entry is a path for reading (GET), writing (PUT) or deleting (DELETE)
	// a single entry. The entry name follows the prefix.
	Entry = "/nt/v1/entry/"

	// EntryByID is a path for reading (GET) an entry by the id assigned
	// by the server. The decimal id follows the prefix.
	EntryByID = "/nt/v1/id/"
)

// Network
const (
	// Connections is a path for listing connected peers.
	Connections = "/nt/v1/connections"

	// Status is a path for the summary of the local node.
	Status = "/nt/v1/status"

	// Watch is a websocket path streaming entry notifications.
	Watch = "/nt/v1/watch"
)

// Telemetry
const (
	// Version is a path for version info of the agent.
	Version = "/nt/v1/version"

	// Stats is a path for call statistics of all registered components.
	Stats = "/nt/v1/stats"

	// Metrics is a path for prometheus metrics.
	Metrics = "/metrics"
)
