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
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrAlreadyStarted is returned when the dispatcher is started twice.
	ErrAlreadyStarted = errors.New("dispatcher already started")
	// ErrProtoUnsupported is returned when the server rejects the protocol revision.
	ErrProtoUnsupported = errors.New("protocol revision not supported by the server")
)

// ConnectionError describes failure of a single connection.
type ConnectionError struct {
	Remote string
	Op     string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s: %s failed: %v", e.Remote, e.Op, e.Err)
}

// Cause returns the underlying error.
func (e *ConnectionError) Cause() error {
	return e.Err
}
