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

// This file bridges the sfu_test (external) package to unexported members
// of sfu needed by tests that also import sfu/fakes. sfu/fakes imports sfu
// to implement its interfaces, so any *_test.go file in package sfu that
// also imports sfu/fakes creates an import cycle; those tests live in
// package sfu_test instead and reach unexported state through these
// exported test-only wrappers.

import "github.com/meshcall/sfm/pkg/config"

// CfgForTests returns a fresh default bitrate config for tests.
func CfgForTests() *config.BitrateConfig {
	return testCfg()
}

// FiveLayerTrackForTests returns the shared five-layer fixture track for tests.
func FiveLayerTrackForTests() *SourceTrack {
	return fiveLayerTrack()
}

// TestPassesThresholdGate exposes passesThresholdGate for tests.
func (c *Coordinator) TestPassesThresholdGate(bweBps int64) bool {
	return c.passesThresholdGate(bweBps)
}

// TestLastBwe exposes the current lastBwe value for tests.
func (c *Coordinator) TestLastBwe() int64 {
	return c.lastBwe.Load()
}

// TestEffectiveCap exposes effectiveCap for tests.
func (c *Coordinator) TestEffectiveCap(bweBps, nowMs int64) int64 {
	return c.effectiveCap(bweBps, nowMs)
}

// TestMarkFirstMedia exposes markFirstMedia for tests.
func (c *Coordinator) TestMarkFirstMedia(nowMs int64) {
	c.markFirstMedia(nowMs)
}

// TestSetForwardedEndpointIDs overwrites forwardedEndpointIDs for tests.
func (c *Coordinator) TestSetForwardedEndpointIDs(ids map[string]struct{}) {
	c.forwardedEndpointIDs = ids
}
