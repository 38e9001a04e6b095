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

package fakes

import "github.com/meshcall/sfm/pkg/sfu"

// ConferenceContext is a fake sfu.ConferenceContext.
type ConferenceContext struct {
	Endpoints []sfu.Endpoint
}

var _ sfu.ConferenceContext = (*ConferenceContext)(nil)

func (f *ConferenceContext) EndpointsByDominantSpeaker() []sfu.Endpoint { return f.Endpoints }

// BandwidthEstimator is a fake sfu.BandwidthEstimator.
type BandwidthEstimator struct {
	Bps       int64
	Available bool
}

var _ sfu.BandwidthEstimator = (*BandwidthEstimator)(nil)

func (f *BandwidthEstimator) LatestEstimate() (int64, bool) { return f.Bps, f.Available }

// Transport is a fake sfu.Transport.
type Transport struct {
	Retransmission bool
}

var _ sfu.Transport = (*Transport)(nil)

func (f *Transport) SupportsRetransmission() bool { return f.Retransmission }

// ChangeNotifier is a fake sfu.ChangeNotifier that records every call.
type ChangeNotifier struct {
	Calls []ChangeCall
}

type ChangeCall struct {
	New, Entering, All []string
}

var _ sfu.ChangeNotifier = (*ChangeNotifier)(nil)

func (f *ChangeNotifier) OnForwardedEndpointsChanged(newIDs, enteringIDs, allConferenceIDs []string) {
	f.Calls = append(f.Calls, ChangeCall{New: newIDs, Entering: enteringIDs, All: allConferenceIDs})
}
