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

// SourceAllocation is the per-video-source record the Allocator operates
// on: the ranked candidate encodings for one track, the preferred index,
// and the currently chosen index.
type SourceAllocation struct {
	EndpointID     string
	FitsInLastN    bool
	Selected       bool
	TargetSSRC     int64
	MaxFrameHeight int
	Track          *SourceTrack

	// Rates is the filtered, ranked candidate list built in ascending
	// encoding-index order. Non-empty only when FitsInLastN, Track != nil,
	// and at least one layer passed the quality filter below.
	Rates []RateSnapshot

	// PreferredIdx is the highest index into Rates whose layer height is
	// <= the onstage preferred height, for a selected source; it stays 0
	// for thumbnails. Intentional, not a bug to fix.
	PreferredIdx int

	// RatesIdx is the currently chosen index into Rates. -1 means "do not
	// forward".
	RatesIdx int
}

// NewSourceAllocation builds a SourceAllocation for one (endpoint, track)
// pair, ranking its encodings by the selected/thumbnail quality filter.
func NewSourceAllocation(
	endpointID string,
	track *SourceTrack,
	fitsInLastN bool,
	selected bool,
	maxFrameHeight int,
	cfg *config.BitrateConfig,
) *SourceAllocation {
	a := &SourceAllocation{
		EndpointID:     endpointID,
		FitsInLastN:    fitsInLastN,
		Selected:       selected,
		MaxFrameHeight: maxFrameHeight,
		Track:          track,
		TargetSSRC:     -1,
		RatesIdx:       -1,
	}

	if track == nil || !fitsInLastN || len(track.Encodings) == 0 {
		return a
	}

	a.TargetSSRC = int64(track.Encodings[0].PrimarySSRC)

	preferredIdx := 0
	for _, layer := range track.Encodings {
		if layer.Height > maxFrameHeight {
			continue
		}

		if selected {
			// For the selected participant we favor resolution over frame
			// rate, keeping the full temporal ladder up to the preferred
			// height and only full-frame-rate variants beyond it.
			if layer.Height < cfg.OnstagePreferredHeight || layer.FrameRate >= cfg.OnstagePreferredFrameRate {
				a.Rates = append(a.Rates, RateSnapshot{Bps: layer.LastStableBitrateBps, Layer: layer})
			}

			if layer.Height <= cfg.OnstagePreferredHeight {
				preferredIdx = len(a.Rates) - 1
			}
		} else if layer.Height <= cfg.ThumbnailMaxHeight {
			a.Rates = append(a.Rates, RateSnapshot{Bps: layer.LastStableBitrateBps, Layer: layer})
		}
	}

	a.PreferredIdx = preferredIdx
	return a
}

// CurrentBitrate is the bitrate (in bps) of the currently chosen rate, 0 if
// none is chosen.
func (a *SourceAllocation) CurrentBitrate() int64 {
	if a.RatesIdx == -1 {
		return 0
	}
	return a.Rates[a.RatesIdx].Bps
}

// OptimalBitrate is the bitrate of the highest candidate rate, 0 if Rates
// is empty.
func (a *SourceAllocation) OptimalBitrate() int64 {
	if len(a.Rates) == 0 {
		return 0
	}
	return a.Rates[len(a.Rates)-1].Bps
}

// TargetIndex is the encoding layer index currently chosen for forwarding,
// -1 if none.
func (a *SourceAllocation) TargetIndex() int {
	if a.RatesIdx == -1 {
		return -1
	}
	return a.Rates[a.RatesIdx].Layer.Index
}

// OptimalIndex is the highest encoding layer index this allocation could
// reach with unlimited bandwidth, -1 if Rates is empty.
func (a *SourceAllocation) OptimalIndex() int {
	if len(a.Rates) == 0 {
		return -1
	}
	return a.Rates[len(a.Rates)-1].Layer.Index
}

// Improve advances RatesIdx given remaining bandwidth headroom.
//
// A selected source that has not been given anything yet jumps straight to
// its preferred index in one step when bandwidth allows (boost path, "<="
// comparison against remaining). Everything else, thumbnails always and a
// selected source on every improvement after the first, climbs one rung at
// a time ("<" comparison against remaining). That asymmetry is
// intentional, matching the original allocator's behavior, and is not a
// bug to fix.
func (a *SourceAllocation) Improve(remaining int64) {
	if len(a.Rates) == 0 {
		return
	}

	if a.RatesIdx == -1 && a.Selected {
		for i := a.RatesIdx + 1; i < len(a.Rates); i++ {
			if i > a.PreferredIdx || a.Rates[i].Bps > remaining {
				break
			}
			a.RatesIdx = i
		}
		return
	}

	if a.RatesIdx+1 < len(a.Rates) && a.Rates[a.RatesIdx+1].Bps < remaining {
		a.RatesIdx++
	}
}
