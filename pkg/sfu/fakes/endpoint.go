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

// Package fakes holds hand-written test doubles for the collaborator
// interfaces in pkg/sfu/controller.go, in the shape counterfeiter would
// generate from the //counterfeiter:generate directives there.
package fakes

import "github.com/meshcall/sfm/pkg/sfu"

// Endpoint is a fake sfu.Endpoint.
type Endpoint struct {
	IDValue             string
	Expired             bool
	Selected            map[string]struct{}
	Pinned              map[string]struct{}
	LastNValue          int
	MaxFrameHeightValue int
	Tracks              []*sfu.SourceTrack
}

var _ sfu.Endpoint = (*Endpoint)(nil)

func (e *Endpoint) ID() string          { return e.IDValue }
func (e *Endpoint) IsExpired() bool     { return e.Expired }
func (e *Endpoint) LastN() int          { return e.LastNValue }
func (e *Endpoint) MaxFrameHeight() int { return e.MaxFrameHeightValue }

func (e *Endpoint) SelectedEndpointIDs() map[string]struct{} {
	if e.Selected == nil {
		return map[string]struct{}{}
	}
	return e.Selected
}

func (e *Endpoint) PinnedEndpointIDs() map[string]struct{} {
	if e.Pinned == nil {
		return map[string]struct{}{}
	}
	return e.Pinned
}

func (e *Endpoint) VideoTracks() []*sfu.SourceTrack { return e.Tracks }
