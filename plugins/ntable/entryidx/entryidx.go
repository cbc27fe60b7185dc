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

package entryidx

import (
	"strconv"

	"github.com/ligato/cn-infra/idxmap"
	"github.com/ligato/cn-infra/idxmap/mem"
	"github.com/ligato/cn-infra/logging"
)

// EntryIndex provides read-only access to mapping between entry names
// and the ids assigned to them by the server.
type EntryIndex interface {
	// LookupByName retrieves metadata of the entry identified by <name>.
	LookupByName(name string) (metadata *EntryMetadata, exists bool)

	// LookupByID retrieves name of the entry with the given wire <id>.
	LookupByID(id uint32) (name string, metadata *EntryMetadata, exists bool)

	// ListAllEntries returns names of all indexed entries.
	ListAllEntries() (names []string)
}

// EntryIndexRW provides read-write access to the entry index.
type EntryIndexRW interface {
	EntryIndex
	idxmap.NamedMappingRW
}

// EntryMetadata is stored for every entry with an assigned id.
type EntryMetadata struct {
	ID uint32
}

type entryIndex struct {
	idxmap.NamedMappingRW /* embeds */
}

// idKey is the secondary key used to search entries by id.
const idKey = "id"

// NewEntryIndex creates a new instance implementing EntryIndexRW.
func NewEntryIndex(logger logging.Logger, title string) EntryIndexRW {
	return &entryIndex{
		NamedMappingRW: mem.NewNamedMapping(logger, title, indexMetadata),
	}
}

// LookupByName retrieves metadata of the entry identified by <name>.
func (idx *entryIndex) LookupByName(name string) (metadata *EntryMetadata, exists bool) {
	meta, found := idx.GetValue(name)
	if found {
		if typedMeta, ok := meta.(*EntryMetadata); ok {
			return typedMeta, found
		}
	}
	return nil, false
}

// LookupByID retrieves name of the entry with the given wire <id>.
func (idx *entryIndex) LookupByID(id uint32) (name string, metadata *EntryMetadata, exists bool) {
	res := idx.ListNames(idKey, strconv.FormatUint(uint64(id), 10))
	if len(res) != 1 {
		return
	}
	untypedMeta, found := idx.GetValue(res[0])
	if found {
		if meta, ok := untypedMeta.(*EntryMetadata); ok {
			return res[0], meta, found
		}
	}
	return
}

// ListAllEntries returns names of all indexed entries.
func (idx *entryIndex) ListAllEntries() (names []string) {
	return idx.ListAllNames()
}

func indexMetadata(metaData interface{}) map[string][]string {
	indexes := make(map[string][]string)

	meta, ok := metaData.(*EntryMetadata)
	if !ok || meta == nil {
		return indexes
	}
	indexes[idKey] = []string{strconv.FormatUint(uint64(meta.ID), 10)}
	return indexes
}
