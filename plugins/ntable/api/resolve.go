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

// Resolution is the outcome of a conflict between stored and incoming entry state.
type Resolution int

const (
	// KeepLocal leaves the stored state untouched.
	KeepLocal Resolution = iota
	// TakeIncoming replaces the stored state with the incoming one.
	TakeIncoming
)

func (r Resolution) String() string {
	if r == TakeIncoming {
		return "take-incoming"
	}
	return "keep-local"
}

// SeqAfter reports whether sequence number a is newer than b. Numbers are
// compared in serial number arithmetic, so the order survives wrap-around
// as long as the two are less than 2^31 apart.
func SeqAfter(a, b uint32) bool {
	return a != b && int32(a-b) > 0
}

// Resolve decides which of two versions of an entry wins.
//
// Proposals (authoritative=false, used by the server for client writes) win
// only with a strictly newer sequence number, ties keep the stored value.
// Authoritative state (authoritative=true, used by clients for server
// messages) wins unless it is older than the local optimistic write or
// identical to the stored state.
func Resolve(localSeq, incomingSeq uint32, local, incoming *Value, authoritative bool) Resolution {
	if local == nil {
		return TakeIncoming
	}
	if !authoritative {
		if SeqAfter(incomingSeq, localSeq) {
			return TakeIncoming
		}
		return KeepLocal
	}
	if SeqAfter(localSeq, incomingSeq) {
		return KeepLocal
	}
	if incomingSeq == localSeq && local.Equal(incoming) {
		return KeepLocal
	}
	return TakeIncoming
}
