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

// DataPipeline is the data-packet adapter: it delegates each accepted
// packet to the Source Controller routed for its SSRC and flattens any
// extra packets a transform produces (e.g. a controller that pads a
// forwarded key frame) back into the batch.
type DataPipeline struct {
	coordinator *Coordinator
}

// NewDataPipeline builds a DataPipeline bound to coordinator's Routing
// Table and first-media clock.
func NewDataPipeline(coordinator *Coordinator) *DataPipeline {
	return &DataPipeline{coordinator: coordinator}
}

// Transform rewrites a batch of packets in place. pkts with no routed
// controller become nil in the returned slice (dropped); a controller that
// returns more than one packet has the extras appended after the batch.
func (p *DataPipeline) Transform(pkts []*rtp.Packet, nowMs int64) ([]*rtp.Packet, error) {
	p.coordinator.markFirstMedia(nowMs)

	var extras []*rtp.Packet

	for i, pkt := range pkts {
		if pkt == nil {
			continue
		}

		controller, ok := p.coordinator.routes.Lookup(pkt.SSRC)
		if !ok {
			pkts[i] = nil
			continue
		}

		out, err := controller.RTPTransform(pkt)
		if err != nil {
			return nil, err
		}

		if len(out) == 0 {
			pkts[i] = nil
			continue
		}

		pkts[i] = out[0]
		extras = append(extras, out[1:]...)
	}

	return append(pkts, extras...), nil
}

// Close tears down every controller reachable from the Routing Table.
// Per-controller errors are swallowed so one bad controller never blocks
// its siblings from closing.
func (p *DataPipeline) Close() {
	seen := map[SourceController]struct{}{}
	p.coordinator.routes.Range(func(_ uint32, sc SourceController) {
		if _, ok := seen[sc]; ok {
			return
		}
		seen[sc] = struct{}{}
		_ = sc.Close()
	})
}

// ControlPipeline is the control-packet adapter: it routes one RTCP packet
// at a time to the Source Controller owning its report SSRC.
type ControlPipeline struct {
	coordinator *Coordinator
}

// NewControlPipeline builds a ControlPipeline bound to coordinator's
// Routing Table.
func NewControlPipeline(coordinator *Coordinator) *ControlPipeline {
	return &ControlPipeline{coordinator: coordinator}
}

// Transform routes pkt to its owning controller, or passes it through
// unchanged if no controller owns its SSRC.
func (p *ControlPipeline) Transform(pkt rtcp.Packet) (rtcp.Packet, error) {
	ssrc, ok := reportSSRC(pkt)
	if !ok {
		return pkt, nil
	}

	controller, ok := p.coordinator.routes.Lookup(ssrc)
	if !ok {
		return pkt, nil
	}

	return controller.RTCPTransform(pkt)
}

// reportSSRC extracts the media SSRC a control packet reports about, per
// the packet types the core cares about routing.
func reportSSRC(pkt rtcp.Packet) (uint32, bool) {
	switch p := pkt.(type) {
	case *rtcp.ReceiverReport:
		return p.SSRC, true
	case *rtcp.SenderReport:
		return p.SSRC, true
	case *rtcp.TransportLayerNack:
		return p.MediaSSRC, true
	case *rtcp.PictureLossIndication:
		return p.MediaSSRC, true
	case *rtcp.FullIntraRequest:
		return p.MediaSSRC, true
	default:
		return 0, false
	}
}
