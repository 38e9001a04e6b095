// Copyright 2023 LiveKit, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sfu

import "sync"

// RoutingTable is the concurrent SSRC -> SourceController map that backs
// packet routing. Entries are added once, when a SourceAllocation first
// picks up a track, and are never removed during the core's lifetime: an
// SSRC keeps resolving to the controller it was inserted with, and an SSRC
// that was never inserted resolves to nothing (callers treat a miss as
// "drop").
//
// Reads are lock-free (sync.Map is built for exactly this append-mostly,
// read-dominated access pattern). Writers that insert every SSRC of one
// track's encodings (primary and RTX) serialize on insertLock, so two group
// inserts never interleave. Readers do not take insertLock, so a lookup
// racing a group insert can see some of that group's SSRCs resolve before
// the others.
type RoutingTable struct {
	entries    sync.Map // uint32 -> SourceController
	insertLock sync.Mutex
}

// NewRoutingTable returns an empty RoutingTable.
func NewRoutingTable() *RoutingTable {
	return &RoutingTable{}
}

// Lookup is the lock-free read path used by the data plane.
func (t *RoutingTable) Lookup(ssrc uint32) (SourceController, bool) {
	v, ok := t.entries.Load(ssrc)
	if !ok {
		return nil, false
	}
	return v.(SourceController), true
}

// InsertGroup maps every SSRC in ssrcs to controller, one SSRC at a time,
// while holding insertLock. Insertion is idempotent: calling it again for SSRCs
// that already resolve to some controller leaves them unchanged.
func (t *RoutingTable) InsertGroup(ssrcs []uint32, controller SourceController) {
	t.insertLock.Lock()
	defer t.insertLock.Unlock()

	for _, ssrc := range ssrcs {
		t.entries.LoadOrStore(ssrc, controller)
	}
}

// Range visits every (ssrc, controller) entry. Because the same controller
// is typically stored under several SSRCs, fn may be called more than once
// for the same controller; callers that need the distinct set of
// controllers should dedupe.
func (t *RoutingTable) Range(fn func(ssrc uint32, controller SourceController)) {
	t.entries.Range(func(k, v any) bool {
		fn(k.(uint32), v.(SourceController))
		return true
	})
}
