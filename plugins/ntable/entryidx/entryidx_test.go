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

package entryidx_test

import (
	"testing"

	"github.com/ligato/cn-infra/logging"
	. "github.com/onsi/gomega"

	"github.com/ligato/nt-agent/plugins/ntable/entryidx"
)

func TestEntryIndexLookupByName(t *testing.T) {
	RegisterTestingT(t)
	idx := entryidx.NewEntryIndex(logging.DefaultLogger, "entry-index")

	idx.Put("/a", &entryidx.EntryMetadata{ID: 0})
	idx.Put("/b", &entryidx.EntryMetadata{ID: 7})
	idx.Put("/c", 10)

	metadata, exists := idx.LookupByName("/a")
	Expect(exists).To(BeTrue())
	Expect(metadata.ID).To(Equal(uint32(0)))

	metadata, exists = idx.LookupByName("/b")
	Expect(exists).To(BeTrue())
	Expect(metadata.ID).To(Equal(uint32(7)))

	metadata, exists = idx.LookupByName("/c")
	Expect(exists).To(BeFalse())
	Expect(metadata).To(BeNil())

	metadata, exists = idx.LookupByName("/d")
	Expect(exists).To(BeFalse())
	Expect(metadata).To(BeNil())
}

func TestEntryIndexLookupByID(t *testing.T) {
	RegisterTestingT(t)
	idx := entryidx.NewEntryIndex(logging.DefaultLogger, "entry-index")

	idx.Put("/a", &entryidx.EntryMetadata{ID: 1})
	idx.Put("/b", &entryidx.EntryMetadata{ID: 2})

	name, metadata, exists := idx.LookupByID(2)
	Expect(exists).To(BeTrue())
	Expect(name).To(Equal("/b"))
	Expect(metadata.ID).To(Equal(uint32(2)))

	name, metadata, exists = idx.LookupByID(3)
	Expect(exists).To(BeFalse())
	Expect(name).To(BeEmpty())
	Expect(metadata).To(BeNil())

	idx.Delete("/b")
	_, _, exists = idx.LookupByID(2)
	Expect(exists).To(BeFalse())
	Expect(idx.ListAllEntries()).To(ConsistOf("/a"))
}

func TestEntryIndexReassign(t *testing.T) {
	RegisterTestingT(t)
	idx := entryidx.NewEntryIndex(logging.DefaultLogger, "entry-index")

	idx.Put("/a", &entryidx.EntryMetadata{ID: 5})
	idx.Put("/a", &entryidx.EntryMetadata{ID: 6})

	_, _, exists := idx.LookupByID(5)
	Expect(exists).To(BeFalse())
	name, _, exists := idx.LookupByID(6)
	Expect(exists).To(BeTrue())
	Expect(name).To(Equal("/a"))
}
