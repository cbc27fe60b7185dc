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

package persist

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set of raw Prometheus metrics.
// Do not increment directly, use report* methods.
var (
	savesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_persist",
		Name:      "saves",
		Help:      "The total number of successful persistence file writes.",
	})
	saveFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_persist",
		Name:      "save_failures",
		Help:      "The total number of failed persistence file writes.",
	})
	savedEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ligato",
		Subsystem: "nt_persist",
		Name:      "saved_entries",
		Help:      "The number of entries written by the last save.",
	})
	loadWarnings = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ligato",
		Subsystem: "nt_persist",
		Name:      "load_warnings",
		Help:      "The total number of malformed lines skipped on load.",
	})
)

func init() {
	prometheus.MustRegister(savesTotal)
	prometheus.MustRegister(saveFailures)
	prometheus.MustRegister(savedEntries)
	prometheus.MustRegister(loadWarnings)
}

func reportSaved(entries int) {
	savesTotal.Inc()
	savedEntries.Set(float64(entries))
}

func reportSaveFailed() {
	saveFailures.Inc()
}

func reportLoadWarnings(n int) {
	loadWarnings.Add(float64(n))
}
