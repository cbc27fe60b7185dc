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

package api

import (
	"errors"
)

var (
	// ErrTypeMismatch is returned when a write would change type of an existing entry.
	ErrTypeMismatch = errors.New("value type does not match type of the existing entry")

	// ErrNotFound is returned for operations that require an existing entry.
	ErrNotFound = errors.New("entry not found")

	// ErrEmptyKey is returned for writes with empty entry name.
	ErrEmptyKey = errors.New("entry name cannot be empty")

	// ErrNilValue is returned for writes without a value.
	ErrNilValue = errors.New("value cannot be nil")
)
