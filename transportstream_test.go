// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransportStreamDefaults(t *testing.T) {
	ts := newTransportStream(3)
	assert.Equal(t, 3, ts.SessionID())
	ice, gathering, dtls := ts.snapshot()
	assert.Equal(t, ICEConnectionStateNew, ice)
	assert.Equal(t, ICEGatheringStateNew, gathering)
	assert.Equal(t, DTLSTransportStateNew, dtls)
}

func TestTransportStreamSetActiveIsSticky(t *testing.T) {
	ts := newTransportStream(0)
	ts.setActive(true)
	assert.True(t, ts.active)
	ts.setActive(false)
	assert.True(t, ts.active)
}

func TestTransportStreamSetDTLSClientMode(t *testing.T) {
	ts := newTransportStream(0)
	ts.setDTLSClientMode(true)
	assert.Equal(t, DTLSRoleClient, ts.dtlsRole)
	ts.setDTLSClientMode(false)
	assert.Equal(t, DTLSRoleServer, ts.dtlsRole)
}

func TestTransportStreamSnapshotReflectsSetters(t *testing.T) {
	ts := newTransportStream(0)
	ts.setICEConnectionState(ICEConnectionStateConnected)
	ts.setICEGatheringState(ICEGatheringStateComplete)
	ts.setDTLSState(DTLSTransportStateConnected)

	ice, gathering, dtls := ts.snapshot()
	assert.Equal(t, ICEConnectionStateConnected, ice)
	assert.Equal(t, ICEGatheringStateComplete, gathering)
	assert.Equal(t, DTLSTransportStateConnected, dtls)
}

func TestTransportStreamAddSSRCEntryAndPayloadTypeMap(t *testing.T) {
	ts := newTransportStream(0)
	ts.addSSRCEntry(ssrcMapEntry{ssrc: 1234, cname: "foo"})
	require.Len(t, ts.ssrcMap, 1)
	assert.Equal(t, uint32(1234), ts.ssrcMap[0].ssrc)

	ts.setPayloadTypeMap(0, mediaIndexPTs{mediaPT: 111})
	assert.Equal(t, uint8(111), ts.payloadTypeMap[0].mediaPT)
}

func TestTransportStreamSetCredentials(t *testing.T) {
	ts := newTransportStream(0)
	ts.setLocalCredentials("luf", "lpw")
	ts.setRemoteCredentials("ruf", "rpw")
	assert.Equal(t, "luf", ts.localUfrag)
	assert.Equal(t, "lpw", ts.localPwd)
	assert.Equal(t, "ruf", ts.remoteUfrag)
	assert.Equal(t, "rpw", ts.remotePwd)
}

func TestTransportStreamSetFindOrCreateReusesExisting(t *testing.T) {
	set := newTransportStreamSet()
	a := set.findOrCreate(2)
	b := set.findOrCreate(2)
	assert.Same(t, a, b)

	c := set.findOrCreate(5)
	assert.NotSame(t, a, c)
}

func TestTransportStreamSetGetMissingReturnsNil(t *testing.T) {
	set := newTransportStreamSet()
	assert.Nil(t, set.get(9))
}

func TestTransportStreamSetAllReturnsEveryCreated(t *testing.T) {
	set := newTransportStreamSet()
	set.findOrCreate(0)
	set.findOrCreate(1)
	assert.Len(t, set.all(), 2)
}
