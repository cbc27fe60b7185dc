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

// Config configures notification queue.
type Config struct {
	// BacklogWarning is the number of undelivered events above which
	// a warning is logged. The queue itself is unbounded.
	BacklogWarning int `json:"backlog-warning"`
}

// DefaultConfig returns default notifier configuration.
func DefaultConfig() Config {
	return Config{
		BacklogWarning: 1024,
	}
}
