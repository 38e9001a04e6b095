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

import (
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"go.uber.org/atomic"

	"github.com/meshcall/sfm/pkg/sfu"
)

// SourceController is a fake sfu.SourceController.
type SourceController struct {
	AcceptFunc func(buf []byte) bool
	Track      *sfu.SourceTrack
	CloseErr   error

	target  atomic.Int64
	optimal atomic.Int64
	closed  atomic.Bool
}

var _ sfu.SourceController = (*SourceController)(nil)

func NewSourceController(track *sfu.SourceTrack) *SourceController {
	c := &SourceController{Track: track}
	c.target.Store(-1)
	c.optimal.Store(-1)
	return c
}

func (c *SourceController) Accept(buf []byte) bool {
	if c.AcceptFunc != nil {
		return c.AcceptFunc(buf)
	}
	return true
}

func (c *SourceController) RTPTransform(pkt *rtp.Packet) ([]*rtp.Packet, error) {
	return []*rtp.Packet{pkt}, nil
}

func (c *SourceController) RTCPTransform(pkt rtcp.Packet) (rtcp.Packet, error) {
	return pkt, nil
}

func (c *SourceController) SetTargetIndex(idx int)   { c.target.Store(int64(idx)) }
func (c *SourceController) SetOptimalIndex(idx int)  { c.optimal.Store(int64(idx)) }
func (c *SourceController) CurrentIndex() int        { return int(c.target.Load()) }
func (c *SourceController) TargetIndex() int         { return int(c.target.Load()) }
func (c *SourceController) OptimalIndex() int        { return int(c.optimal.Load()) }
func (c *SourceController) Source() *sfu.SourceTrack { return c.Track }
func (c *SourceController) Closed() bool             { return c.closed.Load() }

func (c *SourceController) Close() error {
	c.closed.Store(true)
	return c.CloseErr
}
