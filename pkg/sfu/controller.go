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

import (
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

// SourceController rewrites one source track's RTP/RTCP so that what is
// forwarded to the destination is a gap-free stream at the quality layer
// the Coordinator selects. The core only steers it (SetTargetIndex /
// SetOptimalIndex) and routes packets to it; the rewriting itself is out
// of scope for the core.
//
//counterfeiter:generate . SourceController
type SourceController interface {
	// Accept decides whether a data packet already known to belong to
	// this controller's source should be forwarded. buf is the raw RTP
	// packet as received, mirroring the Admission Filter's own contract
	// so a controller never pays for a full unmarshal just to reject a
	// packet.
	Accept(buf []byte) bool

	// RTPTransform rewrites one accepted data packet, returning zero or
	// more packets to forward in its place.
	RTPTransform(pkt *rtp.Packet) ([]*rtp.Packet, error)

	// RTCPTransform rewrites one control packet addressed to this
	// controller's source.
	RTCPTransform(pkt rtcp.Packet) (rtcp.Packet, error)

	SetTargetIndex(idx int)
	SetOptimalIndex(idx int)
	CurrentIndex() int

	// Source is the track this controller was constructed with.
	Source() *SourceTrack

	Close() error
}

// CoreHandle is the non-owning back-reference a SourceController gets to
// the Coordinator that created it, so it can read shared context (e.g.
// first-media timing) without the core and its controllers forming a
// reference cycle.
type CoreHandle interface {
	FirstMediaMs() int64
}

// SourceControllerFactory constructs a SourceController for one track,
// holding a non-owning handle back to the core.
type SourceControllerFactory func(core CoreHandle, track *SourceTrack) SourceController

// ConferenceContext supplies the ordered conference membership, most
// recent dominant speaker first.
//
//counterfeiter:generate . ConferenceContext
type ConferenceContext interface {
	EndpointsByDominantSpeaker() []Endpoint
}

// Endpoint is one conference participant, as seen by the allocator. The
// destination passed to the Coordinator is itself an Endpoint (its
// selected/pinned sets and LastN describe its own viewing intent).
//
//counterfeiter:generate . Endpoint
type Endpoint interface {
	ID() string
	IsExpired() bool
	SelectedEndpointIDs() map[string]struct{}
	PinnedEndpointIDs() map[string]struct{}
	LastN() int
	MaxFrameHeight() int
	VideoTracks() []*SourceTrack
}

// BandwidthEstimator supplies the aggregate downlink bandwidth estimate.
//
//counterfeiter:generate . BandwidthEstimator
type BandwidthEstimator interface {
	// LatestEstimate returns the most recent estimate in bps, and whether
	// one is available at all.
	LatestEstimate() (bps int64, ok bool)
}

// Transport reports whether the destination's transport supports
// retransmission; absent that, the cap is treated as unbounded.
//
//counterfeiter:generate . Transport
type Transport interface {
	SupportsRetransmission() bool
}

// ChangeNotifier delivers the last-N membership change event; delivery to
// the destination is external to the core.
//
//counterfeiter:generate . ChangeNotifier
type ChangeNotifier interface {
	OnForwardedEndpointsChanged(newIDs, enteringIDs, allConferenceIDs []string)
}
