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

package ntable

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ligato/nt-agent/plugins/netsync/wire"
)

// Set of raw Prometheus metrics.
// Labels
// * msg_type
// Do not increment directly, use report* methods.
var (
	entriesStored = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ligato",
		Subsystem: "nt_table",
		Name:      "entries",
		Help:      "The number of entries in the table.",
	})
	localWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_table",
		Name:      "local_writes",
		Help:      "The total number of entry writes made through the local API.",
	})
	typeMismatches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_table",
		Name:      "type_mismatches",
		Help:      "The total number of writes rejected because of a type mismatch.",
	})
	incomingMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_table",
		Name:      "incoming_messages",
		Help:      "The total number of entry messages applied from peers.",
	},
		[]string{"msg_type"},
	)
	rejectedProposals = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_table",
		Name:      "rejected_proposals",
		Help:      "The total number of client changes rejected by the server.",
	})
)

func init() {
	prometheus.MustRegister(entriesStored)
	prometheus.MustRegister(localWrites)
	prometheus.MustRegister(typeMismatches)
	prometheus.MustRegister(incomingMessages)
	prometheus.MustRegister(rejectedProposals)
}

func reportEntries(n int) {
	entriesStored.Set(float64(n))
}

func reportLocalWrite() {
	localWrites.Inc()
}

func reportTypeMismatch() {
	typeMismatches.Inc()
}

func reportIncoming(t wire.MsgType) {
	incomingMessages.WithLabelValues(t.String()).Inc()
}

func reportRejected() {
	rejectedProposals.Inc()
}
