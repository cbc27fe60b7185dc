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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ligato/nt-agent/plugins/netsync/wire"
)

// Set of raw Prometheus metrics.
// Labels
// * msg_type
// Do not increment directly, use report* methods.
var (
	activeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ligato",
		Subsystem: "nt_netsync",
		Name:      "connections",
		Help:      "The number of established connections.",
	})
	messagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_netsync",
		Name:      "messages_sent",
		Help:      "The total number of messages written to connections.",
	},
		[]string{"msg_type"},
	)
	messagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_netsync",
		Name:      "messages_received",
		Help:      "The total number of messages read from connections.",
	},
		[]string{"msg_type"},
	)
	coalescedMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_netsync",
		Name:      "coalesced_messages",
		Help:      "The total number of queued updates replaced by a newer one.",
	})
	decodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_netsync",
		Name:      "decode_errors",
		Help:      "The total number of malformed messages dropped.",
	})
	connectionErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_netsync",
		Name:      "connection_errors",
		Help:      "The total number of failed connections and connection attempts.",
	})
)

func init() {
	prometheus.MustRegister(activeConnections)
	prometheus.MustRegister(messagesSent)
	prometheus.MustRegister(messagesReceived)
	prometheus.MustRegister(coalescedMessages)
	prometheus.MustRegister(decodeErrors)
	prometheus.MustRegister(connectionErrors)
}

func reportConnected() {
	activeConnections.Inc()
}

func reportDisconnected() {
	activeConnections.Dec()
}

func reportSent(t wire.MsgType) {
	messagesSent.WithLabelValues(t.String()).Inc()
}

func reportReceived(t wire.MsgType) {
	messagesReceived.WithLabelValues(t.String()).Inc()
}

func reportCoalesced() {
	coalescedMessages.Inc()
}

func reportDecodeError() {
	decodeErrors.Inc()
}

func reportConnectionError() {
	connectionErrors.Inc()
}
