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
	"sync"
	"time"

	"github.com/livekit/protocol/logger"
	"go.uber.org/atomic"

	"github.com/meshcall/sfm/pkg/config"
)

// rampUpGrace is the time after the first media packet during which the
// estimated bandwidth is not trusted yet, even if TrustBWE is on.
const rampUpGrace = 10 * time.Second

// Coordinator is the per-destination allocation core: it owns the Routing
// Table, runs the update cycle on external triggers, and publishes the
// active Source Controller list for the pacer/prober to read.
type Coordinator struct {
	log logger.Logger
	cfg *config.BitrateConfig

	conference ConferenceContext
	bwe        BandwidthEstimator
	transport  Transport
	notifier   ChangeNotifier
	newSource  SourceControllerFactory

	routes *RoutingTable

	// lastBwe is the last bandwidth the core reacted to; -1 initially so the
	// first non-negative estimate always clears the threshold gate.
	lastBwe atomic.Int64

	// firstMediaMs is written once, with a release store, by the data-plane
	// adapter on the first transformed packet; -1 until then.
	firstMediaMs atomic.Int64

	trustBwe bool

	// mu serializes update cycles and guards forwardedEndpointIDs, which
	// ForwardedEndpointIDs also reads from other goroutines. controllers is
	// not guarded by mu.
	mu                   sync.Mutex
	forwardedEndpointIDs map[string]struct{}

	// controllers is published with a release store; SimulcastControllers
	// reads it with an acquire load.
	controllers atomic.Pointer[[]SourceController]
}

// CoordinatorParams bundles the collaborators a Coordinator is built from.
type CoordinatorParams struct {
	Logger     logger.Logger
	Config     *config.BitrateConfig
	Conference ConferenceContext
	BWE        BandwidthEstimator
	Transport  Transport
	Notifier   ChangeNotifier
	NewSource  SourceControllerFactory
}

// NewCoordinator builds a Coordinator. The returned Coordinator owns no
// goroutines; Update is invoked by the caller on every trigger, not on a
// long-lived background loop.
func NewCoordinator(p CoordinatorParams) *Coordinator {
	c := &Coordinator{
		log:                  p.Logger,
		cfg:                  p.Config,
		conference:           p.Conference,
		bwe:                  p.BWE,
		transport:            p.Transport,
		notifier:             p.Notifier,
		newSource:            p.NewSource,
		routes:               NewRoutingTable(),
		trustBwe:             p.Config.TrustBWE,
		forwardedEndpointIDs: map[string]struct{}{},
	}
	c.lastBwe.Store(-1)
	c.firstMediaMs.Store(-1)
	empty := []SourceController{}
	c.controllers.Store(&empty)
	return c
}

// FirstMediaMs implements CoreHandle.
func (c *Coordinator) FirstMediaMs() int64 {
	return c.firstMediaMs.Load()
}

// markFirstMedia lazily sets firstMediaMs to nowMs the first time it's
// called; subsequent calls are no-ops.
func (c *Coordinator) markFirstMedia(nowMs int64) {
	c.firstMediaMs.CompareAndSwap(-1, nowMs)
}

// RoutingTable exposes the Routing Table to the packet pipeline adapters.
func (c *Coordinator) RoutingTable() *RoutingTable {
	return c.routes
}

// ForwardedEndpointIDs returns the endpoint IDs forwarded as of the latest
// completed cycle.
func (c *Coordinator) ForwardedEndpointIDs() map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]struct{}, len(c.forwardedEndpointIDs))
	for id := range c.forwardedEndpointIDs {
		out[id] = struct{}{}
	}
	return out
}

// SimulcastControllers returns the active controller list published by the
// latest completed cycle (acquire load of the release store in applyResult).
func (c *Coordinator) SimulcastControllers() []SourceController {
	p := c.controllers.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Update runs one allocation cycle. endpoints is the full conference
// membership, dest included (Prioritize skips dest wherever it appears),
// and may be nil, in which case the Conference Context is consulted.
// bweBps is the latest downlink estimate, or a negative number if none is
// available.
func (c *Coordinator) Update(endpoints []Endpoint, dest Endpoint, bweBps int64, nowMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.passesThresholdGate(bweBps) {
		return
	}

	if endpoints == nil {
		endpoints = c.conference.EndpointsByDominantSpeaker()
	} else {
		// Prioritize mutates its input slice; always hand it a copy.
		cp := make([]Endpoint, len(endpoints))
		copy(cp, endpoints)
		endpoints = cp
	}

	bwCap := c.effectiveCap(bweBps, nowMs)

	allocations := Prioritize(endpoints, dest, c.cfg)
	if len(allocations) == 0 {
		c.idleAllControllers()
		return
	}

	Allocate(bwCap, allocations)
	c.applyResult(allocations)
}

// passesThresholdGate reports whether the change in bandwidth estimate is
// large enough, relative to the last one reacted to, to justify a new
// allocation cycle. The initial lastBwe of -1 means the very first
// non-negative estimate always clears the gate.
func (c *Coordinator) passesThresholdGate(bweBps int64) bool {
	if bweBps < 0 {
		return true
	}

	last := c.lastBwe.Load()
	threshold := last * int64(c.cfg.BWEChangeThresholdPct) / 100
	delta := bweBps - last
	if delta < 0 {
		delta = -delta
	}
	if delta < threshold {
		return false
	}

	c.lastBwe.Store(bweBps)
	return true
}

// effectiveCap computes the bandwidth cap for this cycle. bweBps is the cap
// itself in the trusted path; the estimator's value is used only to fill it
// in when the caller didn't pass one (bweBps == -1). Any other gate failing,
// including a missing or unavailable bandwidth estimator, degrades the cap
// to unbounded.
func (c *Coordinator) effectiveCap(bweBps int64, nowMs int64) int64 {
	if !c.trustBwe {
		return UnboundedBandwidth
	}

	firstMedia := c.firstMediaMs.Load()
	if firstMedia == -1 || nowMs-firstMedia < rampUpGrace.Milliseconds() {
		return UnboundedBandwidth
	}

	if c.transport == nil || !c.transport.SupportsRetransmission() {
		return UnboundedBandwidth
	}

	if c.bwe == nil {
		return UnboundedBandwidth
	}
	estimate, ok := c.bwe.LatestEstimate()
	if !ok {
		return UnboundedBandwidth
	}

	if bweBps == -1 {
		return estimate
	}

	if bweBps < 0 {
		return UnboundedBandwidth
	}

	return bweBps
}

// idleAllControllers drives every known controller to target=-1,
// optimal=-1 and clears the forwarded set, without touching the Routing
// Table.
func (c *Coordinator) idleAllControllers() {
	seen := map[SourceController]struct{}{}
	c.routes.Range(func(_ uint32, sc SourceController) {
		if _, ok := seen[sc]; ok {
			return
		}
		seen[sc] = struct{}{}
		sc.SetTargetIndex(-1)
		sc.SetOptimalIndex(-1)
	})

	c.controllers.Store(&[]SourceController{})

	old := c.forwardedEndpointIDs
	c.forwardedEndpointIDs = map[string]struct{}{}
	if len(old) > 0 {
		c.notifier.OnForwardedEndpointsChanged(nil, nil, nil)
	}
}

// applyResult pushes the result of one allocation cycle into the Source
// Controllers, publishes the new active controller list, and notifies of
// any change in the forwarded endpoint set.
func (c *Coordinator) applyResult(allocations []*SourceAllocation) {
	var active []SourceController
	newForwarded := map[string]struct{}{}
	var newForwardedIDs, enteringIDs, allConference []string

	for _, a := range allocations {
		if a.Track == nil {
			continue
		}

		controller := c.resolveController(a)
		active = append(active, controller)

		targetIdx := a.TargetIndex()
		optimalIdx := a.OptimalIndex()
		controller.SetTargetIndex(targetIdx)
		controller.SetOptimalIndex(optimalIdx)

		c.emitDebugEvent(a, controller, targetIdx, optimalIdx)

		allConference = append(allConference, a.EndpointID)

		if targetIdx > -1 {
			if _, already := newForwarded[a.EndpointID]; !already {
				newForwarded[a.EndpointID] = struct{}{}
				newForwardedIDs = append(newForwardedIDs, a.EndpointID)
				if _, wasForwarded := c.forwardedEndpointIDs[a.EndpointID]; !wasForwarded {
					enteringIDs = append(enteringIDs, a.EndpointID)
				}
			}
		}
	}

	c.controllers.Store(&active)

	if !sameSet(newForwarded, c.forwardedEndpointIDs) {
		c.notifier.OnForwardedEndpointsChanged(newForwardedIDs, enteringIDs, allConference)
	}

	c.forwardedEndpointIDs = newForwarded
}

// resolveController looks up or creates the Source Controller for a's
// track, inserting every primary and retransmission SSRC of every encoding
// under the Routing Table's group-insert lock.
func (c *Coordinator) resolveController(a *SourceAllocation) SourceController {
	if a.Track != nil && len(a.Track.Encodings) > 0 {
		if existing, ok := c.routes.Lookup(a.Track.Encodings[0].PrimarySSRC); ok {
			return existing
		}
	}

	controller := c.newSource(c, a.Track)

	var ssrcs []uint32
	for _, layer := range a.Track.Encodings {
		ssrcs = append(ssrcs, layer.PrimarySSRC)
		if layer.RTXSSRC >= 0 {
			ssrcs = append(ssrcs, uint32(layer.RTXSSRC))
		}
	}
	c.routes.InsertGroup(ssrcs, controller)

	return controller
}

// emitDebugEvent logs the per-source allocation outcome as structured
// fields rather than a raw CSV line; the logger decides whether debug
// level is enabled.
func (c *Coordinator) emitDebugEvent(a *SourceAllocation, controller SourceController, targetIdx, optimalIdx int) {
	c.log.Debugw("qot",
		"endpointID", a.EndpointID,
		"currentIdx", controller.CurrentIndex(),
		"targetIdx", targetIdx,
		"optimalIdx", optimalIdx,
		"targetBps", a.CurrentBitrate(),
		"optimalBps", a.OptimalBitrate(),
	)
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
