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

import "math"

// UnboundedBandwidth is the sentinel bandwidth cap meaning "forward
// everything the policy allows".
const UnboundedBandwidth int64 = math.MaxInt64

// Allocate runs the multi-round knapsack allocation over allocations in
// place, mutating each SourceAllocation's RatesIdx, and returns the
// unallocated bandwidth headroom at the fixed point.
//
// allocations must already be in priority order (Prioritize's output).
// Once an allocation with FitsInLastN == false is reached, every
// allocation after it is assumed FitsInLastN == false too, and the pass
// short-circuits there.
func Allocate(bandwidthCap int64, allocations []*SourceAllocation) int64 {
	if len(allocations) == 0 {
		return bandwidthCap
	}

	oldState := make([]int, len(allocations))
	newState := make([]int, len(allocations))
	for i := range newState {
		newState[i] = -1
	}

	oldStateLen := 0
	oldCap := int64(0)

	for oldCap != bandwidthCap {
		oldCap = bandwidthCap
		copy(oldState, newState)

		newStateLen := 0
		for i, a := range allocations {
			if !a.FitsInLastN {
				break
			}

			remaining := bandwidthCap + a.CurrentBitrate()
			a.Improve(remaining)
			bandwidthCap = remaining - a.CurrentBitrate()

			newState[i] = a.RatesIdx
			if a.RatesIdx > -1 {
				newStateLen++
			}

			if a.RatesIdx < a.PreferredIdx {
				break
			}
		}

		if oldStateLen > newStateLen {
			// Rolling back prevents oscillation in the forwarded-source
			// count: a pass that forwards fewer sources than the previous
			// one is reverted, trading a fractionally better bitrate on
			// the survivors for a stable last-N set.
			for i, a := range allocations {
				a.RatesIdx = oldState[i]
			}
			break
		}

		oldStateLen = newStateLen
	}

	return bandwidthCap
}
