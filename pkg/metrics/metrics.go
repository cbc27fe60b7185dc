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

package metrics

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// RoundDuration is used to round durations in JSON output.
var RoundDuration = time.Microsecond * 10

// Calls maps call names to their statistics.
type Calls map[string]*CallStats

// MarshalJSON marshals calls as a list sorted by total duration.
func (m Calls) MarshalJSON() ([]byte, error) {
	calls := make([]*CallStats, 0, len(m))
	for _, s := range m {
		calls = append(calls, s)
	}
	sort.Slice(calls, func(i, j int) bool {
		if calls[i].Total == calls[j].Total {
			return calls[i].Name < calls[j].Name
		}
		return calls[i].Total > calls[j].Total
	})
	return json.Marshal(calls)
}

// CallStats holds statistics of a single call kind.
type CallStats struct {
	Name  string `json:",omitempty"`
	Count uint64
	Total Duration
	Avg   Duration
	Min   Duration
	Max   Duration
}

// Increment adds one call that took d.
func (m *CallStats) Increment(d time.Duration) {
	took := Duration(d)
	m.Count++
	m.Total += took
	m.Avg = m.Total / Duration(m.Count)
	if took > m.Max {
		m.Max = took
	}
	if m.Min == 0 || took < m.Min {
		m.Min = took
	}
}

// Duration is time.Duration marshalled as rounded string.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (m Duration) MarshalJSON() ([]byte, error) {
	s := time.Duration(m).Round(RoundDuration).String()
	return json.Marshal(s)
}

// CallRecorder collects call statistics from concurrent callers.
type CallRecorder struct {
	mu    sync.Mutex
	calls Calls
}

// NewCallRecorder returns empty recorder.
func NewCallRecorder() *CallRecorder {
	return &CallRecorder{calls: make(Calls)}
}

// Record adds one call of <name> started at <start>.
func (r *CallRecorder) Record(name string, start time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.calls[name]
	if !ok {
		stats = &CallStats{Name: name}
		r.calls[name] = stats
	}
	stats.Increment(time.Since(start))
}

// Snapshot returns copy of the collected statistics.
func (r *CallRecorder) Snapshot() Calls {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := make(Calls, len(r.calls))
	for name, stats := range r.calls {
		copied := *stats
		calls[name] = &copied
	}
	return calls
}
