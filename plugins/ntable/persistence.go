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
	"github.com/pkg/errors"

	"github.com/ligato/nt-agent/plugins/ntable/api"
	"github.com/ligato/nt-agent/plugins/persist"
)

// PersistentSnapshot returns all persistent entries.
func (s *Storage) PersistentSnapshot() []persist.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pairs []persist.Pair
	for _, name := range s.sortedNames() {
		e := s.entries[name]
		if e.flags.IsPersistent() {
			pairs = append(pairs, persist.Pair{Name: name, Value: e.value})
		}
	}
	return pairs
}

// SavePersistent writes all persistent entries into the file at path.
func (s *Storage) SavePersistent(path string) error {
	return persist.SaveFile(path, s.PersistentSnapshot())
}

// LoadPersistent loads entries from the file at path and marks them
// persistent. Malformed lines are skipped and returned as warnings.
func (s *Storage) LoadPersistent(path string) ([]string, error) {
	pairs, warnings, err := persist.LoadFile(path)
	if err != nil {
		return warnings, errors.Wrapf(err, "loading persistent entries from %s failed", path)
	}
	s.ApplyPersistent(pairs)
	return warnings, nil
}

// ApplyPersistent stores the pairs as persistent entries. Existing entries
// are overwritten including their type.
func (s *Storage) ApplyPersistent(pairs []persist.Pair) {
	for _, p := range pairs {
		if p.Name == "" || p.Value == nil {
			continue
		}
		if err := s.SetEntryTypeValue(p.Name, p.Value); err != nil {
			s.log.Warnf("cannot restore %q: %v", p.Name, err)
			continue
		}
		if err := s.UpdateEntryFlags(p.Name, api.Persistent, 0); err != nil {
			s.log.Warnf("cannot mark %q persistent: %v", p.Name, err)
		}
	}
}
