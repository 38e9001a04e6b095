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

// EncodingLayer describes one simulcast/SVC sub-stream of a SourceTrack.
// Layers of one track are totally ordered by Index; higher indices depend
// on all lower indices for decode.
type EncodingLayer struct {
	// Index is the subjective quality index, monotone with quality.
	Index int

	// Height is the encoded frame height in pixels.
	Height int

	// FrameRate is the encoded frame rate in fps.
	FrameRate float64

	// LastStableBitrateBps is the most recent stable bitrate measurement
	// for this layer.
	LastStableBitrateBps int64

	// PrimarySSRC is this layer's media SSRC.
	PrimarySSRC uint32

	// RTXSSRC is this layer's retransmission SSRC, or -1 if the layer has
	// none.
	RTXSSRC int64
}

// SourceTrack is one endpoint's camera track: an ordered (ascending Index)
// array of encoding layers.
type SourceTrack struct {
	Encodings []*EncodingLayer
}
