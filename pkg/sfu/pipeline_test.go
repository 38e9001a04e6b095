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
	"errors"
	"testing"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshcall/sfm/pkg/sfu"
	"github.com/meshcall/sfm/pkg/sfu/fakes"
)

func newBarePipelineCoordinator() *sfu.Coordinator {
	return newTestCoordinator(&fakes.ConferenceContext{}, &fakes.BandwidthEstimator{}, &fakes.Transport{}, &fakes.ChangeNotifier{}, false)
}

func TestDataPipeline_UnknownSSRC_DroppedToNil(t *testing.T) {
	c := newBarePipelineCoordinator()
	p := sfu.NewDataPipeline(c)

	out, err := p.Transform([]*rtp.Packet{{Header: rtp.Header{SSRC: 999}}}, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Nil(t, out[0])
}

func TestDataPipeline_KnownSSRC_Delegates(t *testing.T) {
	c := newBarePipelineCoordinator()
	controller := fakes.NewSourceController(nil)
	c.RoutingTable().InsertGroup([]uint32{42}, controller)

	p := sfu.NewDataPipeline(c)
	in := &rtp.Packet{Header: rtp.Header{SSRC: 42}}
	out, err := p.Transform([]*rtp.Packet{in}, 0)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Same(t, in, out[0])
}

func TestDataPipeline_FirstInvocation_SetsFirstMediaMs(t *testing.T) {
	c := newBarePipelineCoordinator()
	p := sfu.NewDataPipeline(c)

	_, err := p.Transform([]*rtp.Packet{{Header: rtp.Header{SSRC: 1}}}, 123)
	require.NoError(t, err)
	assert.Equal(t, int64(123), c.FirstMediaMs())
}

func TestDataPipeline_Close_SwallowsPerControllerErrors(t *testing.T) {
	c := newBarePipelineCoordinator()
	bad := fakes.NewSourceController(nil)
	bad.CloseErr = errors.New("boom")
	good := fakes.NewSourceController(nil)

	c.RoutingTable().InsertGroup([]uint32{1}, bad)
	c.RoutingTable().InsertGroup([]uint32{2}, good)

	p := sfu.NewDataPipeline(c)
	p.Close()

	assert.True(t, bad.Closed())
	assert.True(t, good.Closed())
}

func TestControlPipeline_UnknownSSRC_PassesThrough(t *testing.T) {
	c := newBarePipelineCoordinator()
	p := sfu.NewControlPipeline(c)

	pkt := &rtcp.PictureLossIndication{MediaSSRC: 7}
	out, err := p.Transform(pkt)
	require.NoError(t, err)
	assert.Same(t, pkt, out)
}

func TestControlPipeline_KnownSSRC_Delegates(t *testing.T) {
	c := newBarePipelineCoordinator()
	controller := fakes.NewSourceController(nil)
	c.RoutingTable().InsertGroup([]uint32{7}, controller)

	p := sfu.NewControlPipeline(c)
	pkt := &rtcp.PictureLossIndication{MediaSSRC: 7}
	out, err := p.Transform(pkt)

	require.NoError(t, err)
	assert.Same(t, pkt, out)
}

func TestControlPipeline_UnroutablePacketType_PassesThrough(t *testing.T) {
	c := newBarePipelineCoordinator()
	p := sfu.NewControlPipeline(c)

	pkt := &rtcp.Goodbye{}
	out, err := p.Transform(pkt)
	require.NoError(t, err)
	assert.Same(t, pkt, out)
}
