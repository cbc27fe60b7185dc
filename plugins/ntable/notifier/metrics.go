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

package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set of raw Prometheus metrics.
// Do not increment directly, use report* methods.
var (
	eventsQueued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_notifier",
		Name:      "events_queued",
		Help:      "The total number of notification events queued.",
	})
	backlogWarnings = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_notifier",
		Name:      "backlog_warnings",
		Help:      "The total number of times the event backlog exceeded the warning level.",
	})
	listenerPanics = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_notifier",
		Name:      "listener_panics",
		Help:      "The total number of recovered listener panics.",
	})
	queueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ligato",
		Subsystem: "nt_notifier",
		Name:      "queue_length",
		Help:      "The number of events waiting in the notification queue.",
	})
	listenersRegistered = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ligato",
		Subsystem: "nt_notifier",
		Name:      "listeners",
		Help:      "The number of registered listeners.",
	})
)

func init() {
	prometheus.MustRegister(eventsQueued)
	prometheus.MustRegister(backlogWarnings)
	prometheus.MustRegister(listenerPanics)
	prometheus.MustRegister(queueLength)
	prometheus.MustRegister(listenersRegistered)
}

func reportQueued(n int) {
	if n > 0 {
		eventsQueued.Add(float64(n))
	}
	queueLength.Add(float64(n))
}

func reportBacklogWarning() {
	backlogWarnings.Inc()
}

func reportPanic() {
	listenerPanics.Inc()
}

func reportListeners(n int) {
	listenersRegistered.Set(float64(n))
}
