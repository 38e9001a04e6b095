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

package sfu_test

import (
	"testing"

	"github.com/livekit/protocol/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshcall/sfm/pkg/sfu"
	"github.com/meshcall/sfm/pkg/sfu/fakes"
)

func newTestCoordinator(conference *fakes.ConferenceContext, bwe *fakes.BandwidthEstimator, transport *fakes.Transport, notifier *fakes.ChangeNotifier, trustBwe bool) *sfu.Coordinator {
	cfg := *sfu.CfgForTests()
	cfg.TrustBWE = trustBwe

	return sfu.NewCoordinator(sfu.CoordinatorParams{
		Logger:     logger.GetLogger(),
		Config:     &cfg,
		Conference: conference,
		BWE:        bwe,
		Transport:  transport,
		Notifier:   notifier,
		NewSource: func(core sfu.CoreHandle, track *sfu.SourceTrack) sfu.SourceController {
			return fakes.NewSourceController(track)
		},
	})
}

func TestCoordinator_ThresholdGate_NegligibleChangeIsNoOp(t *testing.T) {
	c := newTestCoordinator(&fakes.ConferenceContext{}, &fakes.BandwidthEstimator{}, &fakes.Transport{}, &fakes.ChangeNotifier{}, false)

	assert.True(t, c.TestPassesThresholdGate(1_000_000))
	assert.Equal(t, int64(1_000_000), c.TestLastBwe())

	// 10% change < 15% threshold: no-op.
	assert.False(t, c.TestPassesThresholdGate(1_100_000))
	assert.Equal(t, int64(1_000_000), c.TestLastBwe())

	// 20% change >= 15% threshold: passes and updates last_bwe.
	assert.True(t, c.TestPassesThresholdGate(1_200_000))
	assert.Equal(t, int64(1_200_000), c.TestLastBwe())
}

func TestCoordinator_ThresholdGate_NegativeBwe_AlwaysPasses(t *testing.T) {
	c := newTestCoordinator(&fakes.ConferenceContext{}, &fakes.BandwidthEstimator{}, &fakes.Transport{}, &fakes.ChangeNotifier{}, false)
	assert.True(t, c.TestPassesThresholdGate(-1))
}

func TestCoordinator_ThresholdGate_InitialLastBweMinusOne_FirstEstimateAlwaysPasses(t *testing.T) {
	c := newTestCoordinator(&fakes.ConferenceContext{}, &fakes.BandwidthEstimator{}, &fakes.Transport{}, &fakes.ChangeNotifier{}, false)
	assert.Equal(t, int64(-1), c.TestLastBwe())
	assert.True(t, c.TestPassesThresholdGate(1))
}

func TestCoordinator_RampUpGrace_CapUnbounded(t *testing.T) {
	bwe := &fakes.BandwidthEstimator{Bps: 500_000, Available: true}
	transport := &fakes.Transport{Retransmission: true}
	c := newTestCoordinator(&fakes.ConferenceContext{}, bwe, transport, &fakes.ChangeNotifier{}, true)

	c.TestMarkFirstMedia(0)
	assert.Equal(t, sfu.UnboundedBandwidth, c.TestEffectiveCap(-1, 5_000))
}

func TestCoordinator_EffectiveCap_TrustedAfterGraceAndRetransmission(t *testing.T) {
	bwe := &fakes.BandwidthEstimator{Bps: 500_000, Available: true}
	transport := &fakes.Transport{Retransmission: true}
	c := newTestCoordinator(&fakes.ConferenceContext{}, bwe, transport, &fakes.ChangeNotifier{}, true)

	c.TestMarkFirstMedia(0)

	// The passed bweBps is the cap itself in the trusted path, not the
	// estimator's value. The two are deliberately different numbers here
	// so a regression back to returning the estimator's Bps would be
	// caught.
	assert.Equal(t, int64(750_000), c.TestEffectiveCap(750_000, 20_000))
}

func TestCoordinator_EffectiveCap_TrustedNoBwe_FallsBackToEstimate(t *testing.T) {
	bwe := &fakes.BandwidthEstimator{Bps: 500_000, Available: true}
	transport := &fakes.Transport{Retransmission: true}
	c := newTestCoordinator(&fakes.ConferenceContext{}, bwe, transport, &fakes.ChangeNotifier{}, true)

	c.TestMarkFirstMedia(0)
	assert.Equal(t, int64(500_000), c.TestEffectiveCap(-1, 20_000))
}

func TestCoordinator_EffectiveCap_NoRetransmission_Unbounded(t *testing.T) {
	bwe := &fakes.BandwidthEstimator{Bps: 500_000, Available: true}
	transport := &fakes.Transport{Retransmission: false}
	c := newTestCoordinator(&fakes.ConferenceContext{}, bwe, transport, &fakes.ChangeNotifier{}, true)

	c.TestMarkFirstMedia(0)
	assert.Equal(t, sfu.UnboundedBandwidth, c.TestEffectiveCap(500_000, 20_000))
}

func TestCoordinator_EffectiveCap_NotTrusted_Unbounded(t *testing.T) {
	bwe := &fakes.BandwidthEstimator{Bps: 500_000, Available: true}
	transport := &fakes.Transport{Retransmission: true}
	c := newTestCoordinator(&fakes.ConferenceContext{}, bwe, transport, &fakes.ChangeNotifier{}, false)

	c.TestMarkFirstMedia(0)
	assert.Equal(t, sfu.UnboundedBandwidth, c.TestEffectiveCap(500_000, 20_000))
}

func TestCoordinator_Update_PrioritizationEmpty_IdlesKnownControllers(t *testing.T) {
	notifier := &fakes.ChangeNotifier{}
	c := newTestCoordinator(&fakes.ConferenceContext{}, &fakes.BandwidthEstimator{}, &fakes.Transport{}, notifier, false)

	controller := fakes.NewSourceController(sfu.FiveLayerTrackForTests())
	c.RoutingTable().InsertGroup([]uint32{1}, controller)
	c.TestSetForwardedEndpointIDs(map[string]struct{}{"A": {}})

	expiredDest := &fakes.Endpoint{IDValue: "X", Expired: true}
	c.Update(nil, expiredDest, -1, 0)

	assert.Equal(t, -1, controller.TargetIndex())
	assert.Equal(t, -1, controller.OptimalIndex())
	require.Len(t, notifier.Calls, 1)
	assert.Empty(t, c.SimulcastControllers())
}

// endpointWithSSRC builds a fake endpoint whose track uses ssrc as its
// primary SSRC, distinct per endpoint so the Routing Table doesn't collide
// the way it would if every fixture reused fiveLayerTrack()'s shared SSRC of 1.
func endpointWithSSRC(id string, ssrc uint32) *fakes.Endpoint {
	track := sfu.FiveLayerTrackForTests()
	for _, layer := range track.Encodings {
		layer.PrimarySSRC = ssrc
	}
	return &fakes.Endpoint{IDValue: id, Tracks: []*sfu.SourceTrack{track}, MaxFrameHeightValue: 720}
}

func TestCoordinator_Update_AssignsTargetIndicesAndPublishesControllers(t *testing.T) {
	notifier := &fakes.ChangeNotifier{}
	c := newTestCoordinator(&fakes.ConferenceContext{}, &fakes.BandwidthEstimator{}, &fakes.Transport{}, notifier, false)

	a, b, cc := endpointWithSSRC("A", 1), endpointWithSSRC("B", 2), endpointWithSSRC("C", 3)
	dest := endpointWithSSRC("X", 4)
	dest.Selected = map[string]struct{}{"B": {}}
	dest.LastNValue = -1

	// The conference endpoint list includes the destination itself (it is
	// a conference member too); Prioritize skips it when it's encountered.
	c.Update([]sfu.Endpoint{a, b, cc, dest}, dest, -1, 0)

	controllers := c.SimulcastControllers()
	require.Len(t, controllers, 3)

	forwarded := c.ForwardedEndpointIDs()
	assert.Contains(t, forwarded, "A")
	assert.Contains(t, forwarded, "B")
	assert.Contains(t, forwarded, "C")

	require.Len(t, notifier.Calls, 1)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, notifier.Calls[0].Entering)
}

func TestCoordinator_Update_Idempotent_SecondCallEmitsNoChangeEvent(t *testing.T) {
	notifier := &fakes.ChangeNotifier{}
	c := newTestCoordinator(&fakes.ConferenceContext{}, &fakes.BandwidthEstimator{}, &fakes.Transport{}, notifier, false)

	a := endpointWithTrack("A")
	dest := endpointWithTrack("X")
	dest.LastNValue = -1

	c.Update([]sfu.Endpoint{a, dest}, dest, -1, 0)
	require.Len(t, notifier.Calls, 1)

	c.Update([]sfu.Endpoint{a, dest}, dest, -1, 1)
	assert.Len(t, notifier.Calls, 1)
}

func TestCoordinator_FirstMediaMs_SetOnceMonotone(t *testing.T) {
	c := newTestCoordinator(&fakes.ConferenceContext{}, &fakes.BandwidthEstimator{}, &fakes.Transport{}, &fakes.ChangeNotifier{}, false)
	c.TestMarkFirstMedia(100)
	c.TestMarkFirstMedia(200)
	assert.Equal(t, int64(100), c.FirstMediaMs())
}
