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

package metrics_test

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/ligato/nt-agent/pkg/metrics"
)

var n int32

func TestRetrieve(t *testing.T) {
	g := NewGomegaWithT(t)

	metrics.Register("test-basic", func() interface{} {
		return n
	})
	defer metrics.Unregister("test-basic")
	g.Expect(metrics.RegisteredNames()).To(ContainElement("test-basic"))

	n = 1
	data, err := metrics.Retrieve("test-basic")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(data).To(Equal(int32(1)))

	_, err = metrics.Retrieve("unknown")
	g.Expect(err).To(HaveOccurred())
}

func TestDuplicateRegistration(t *testing.T) {
	g := NewGomegaWithT(t)

	metrics.Register("test-dup", func() interface{} { return nil })
	defer metrics.Unregister("test-dup")
	g.Expect(func() {
		metrics.Register("test-dup", func() interface{} { return nil })
	}).To(Panic())
}

func TestCallRecorder(t *testing.T) {
	g := NewGomegaWithT(t)

	rec := metrics.NewCallRecorder()
	start := time.Now().Add(-time.Millisecond)
	rec.Record("EntryUpdate", start)
	rec.Record("EntryUpdate", start)
	rec.Record("KeepAlive", time.Now())

	calls := rec.Snapshot()
	g.Expect(calls).To(HaveLen(2))
	g.Expect(calls["EntryUpdate"].Count).To(Equal(uint64(2)))
	g.Expect(calls["EntryUpdate"].Min).To(BeNumerically(">=", metrics.Duration(time.Millisecond)))

	rec.Record("EntryUpdate", start)
	g.Expect(calls["EntryUpdate"].Count).To(Equal(uint64(2)))

	b, err := json.Marshal(calls)
	g.Expect(err).ToNot(HaveOccurred())
	var out []map[string]interface{}
	g.Expect(json.Unmarshal(b, &out)).To(Succeed())
	g.Expect(out).To(HaveLen(2))
	g.Expect(out[0]["Name"]).To(Equal("EntryUpdate"))
}
