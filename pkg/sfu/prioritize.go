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

import "github.com/meshcall/sfm/pkg/config"

// Prioritize builds the prioritized SourceAllocation list: selected
// endpoints first, then pinned, then everyone else, each band in
// conferenceEndpoints order, one SourceAllocation per video track.
//
// Prioritize consumes conferenceEndpoints: endpoints emitted in the
// selected and pinned bands are removed from the slice as they're
// consumed, so a caller that needs the original order afterward (the
// Coordinator, across successive cycles) must pass a defensive copy. This
// mirrors the original bitrate controller's own prioritize(), which
// mutates its input list the same way.
//
// Returns nil if dest is missing or expired (the Coordinator takes this as
// a signal to abort the cycle and idle every known controller).
func Prioritize(conferenceEndpoints []Endpoint, dest Endpoint, cfg *config.BitrateConfig) []*SourceAllocation {
	if dest == nil || dest.IsExpired() {
		return nil
	}

	lastN := dest.LastN()
	if lastN < 0 {
		lastN = len(conferenceEndpoints) - 1
	} else if lastN > len(conferenceEndpoints)-1 {
		lastN = len(conferenceEndpoints) - 1
	}

	var allocations []*SourceAllocation
	endpointPriority := 0

	selected := dest.SelectedEndpointIDs()
	if len(selected) > 0 {
		conferenceEndpoints = emitBand(&allocations, conferenceEndpoints, dest, cfg, &endpointPriority, lastN,
			func(id string) bool { _, ok := selected[id]; return ok },
			true, /* selected */
		)
	}

	pinned := dest.PinnedEndpointIDs()
	if len(pinned) > 0 {
		conferenceEndpoints = emitBand(&allocations, conferenceEndpoints, dest, cfg, &endpointPriority, lastN,
			func(id string) bool { _, ok := pinned[id]; return ok },
			false, /* selected */
		)
	}

	for _, src := range conferenceEndpoints {
		if src.IsExpired() || src.ID() == dest.ID() {
			continue
		}

		fitsInLastN := endpointPriority < lastN
		tracks := src.VideoTracks()
		if len(tracks) == 0 {
			continue
		}

		for _, track := range tracks {
			allocations = append(allocations, NewSourceAllocation(
				src.ID(), track, fitsInLastN, false, dest.MaxFrameHeight(), cfg,
			))
		}
		endpointPriority++
	}

	return allocations
}

// emitBand appends the SourceAllocations for one priority band (selected or
// pinned), removing consumed endpoints from the returned slice, and stops
// once endpointPriority reaches lastN.
func emitBand(
	allocations *[]*SourceAllocation,
	conferenceEndpoints []Endpoint,
	dest Endpoint,
	cfg *config.BitrateConfig,
	endpointPriority *int,
	lastN int,
	inBand func(id string) bool,
	selected bool,
) []Endpoint {
	remaining := conferenceEndpoints[:0]
	for _, src := range conferenceEndpoints {
		if *endpointPriority >= lastN {
			remaining = append(remaining, src)
			continue
		}

		if src.IsExpired() || src.ID() == dest.ID() || !inBand(src.ID()) {
			remaining = append(remaining, src)
			continue
		}

		tracks := src.VideoTracks()
		if len(tracks) > 0 {
			for _, track := range tracks {
				*allocations = append(*allocations, NewSourceAllocation(
					src.ID(), track, true /* fitsInLastN */, selected, dest.MaxFrameHeight(), cfg,
				))
			}
			*endpointPriority++
		}
		// consumed: not appended to remaining.
	}
	return remaining
}
