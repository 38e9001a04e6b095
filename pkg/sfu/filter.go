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

import "encoding/binary"

// minRTPHeaderLen is the fixed RTP header size up to and including the SSRC
// field: V/P/X/CC (1 byte), M/PT (1 byte), sequence number (2 bytes),
// timestamp (4 bytes), SSRC (4 bytes).
const minRTPHeaderLen = 12

// ssrcOffset is the byte offset of the 32-bit SSRC field in the fixed RTP
// header (RFC 3550, section 5.1).
const ssrcOffset = 8

// AdmissionFilter is the first stop for every inbound data packet: a cheap
// reject path that never pays for a full RTP unmarshal on packets the core
// has no controller for.
type AdmissionFilter struct {
	routes *RoutingTable
}

// NewAdmissionFilter builds an AdmissionFilter over routes.
func NewAdmissionFilter(routes *RoutingTable) *AdmissionFilter {
	return &AdmissionFilter{routes: routes}
}

// Accept reads the SSRC directly out of the wire bytes, looks it up in the
// Routing Table, and only if a controller is routed for it delegates the
// accept/reject decision to that controller. Packets shorter than a
// bare RTP header, or whose SSRC has no routed controller, are rejected
// without ever constructing an rtp.Packet.
func (f *AdmissionFilter) Accept(buf []byte) (SourceController, bool) {
	if len(buf) < minRTPHeaderLen {
		return nil, false
	}

	ssrc := binary.BigEndian.Uint32(buf[ssrcOffset : ssrcOffset+4])

	controller, ok := f.routes.Lookup(ssrc)
	if !ok {
		return nil, false
	}

	if !controller.Accept(buf) {
		return nil, false
	}

	return controller, true
}
