// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRTPTransceiverDirectionIntersectSendrecvWithSendrecv(t *testing.T) {
	assert.Equal(t, RTPTransceiverDirectionSendrecv, RTPTransceiverDirectionSendrecv.intersect(RTPTransceiverDirectionSendrecv))
}

func TestRTPTransceiverDirectionIntersectSendonlyWithRecvonly(t *testing.T) {
	assert.Equal(t, RTPTransceiverDirectionSendonly, RTPTransceiverDirectionSendonly.intersect(RTPTransceiverDirectionRecvonly))
	assert.Equal(t, RTPTransceiverDirectionRecvonly, RTPTransceiverDirectionRecvonly.intersect(RTPTransceiverDirectionSendonly))
}

func TestRTPTransceiverDirectionIntersectWithInactive(t *testing.T) {
	assert.Equal(t, RTPTransceiverDirectionInactive, RTPTransceiverDirectionSendrecv.intersect(RTPTransceiverDirectionInactive))
}

func TestRTPTransceiverDirectionIntersectWithNone(t *testing.T) {
	assert.Equal(t, RTPTransceiverDirectionNone, RTPTransceiverDirectionSendrecv.intersect(RTPTransceiverDirectionNone))
}

func TestRTPTransceiverDirectionIntersectSendonlyWithSendonlyIsInactive(t *testing.T) {
	assert.Equal(t, RTPTransceiverDirectionInactive, RTPTransceiverDirectionSendonly.intersect(RTPTransceiverDirectionSendonly))
}

func TestIntersectSetupRemoteActpassWithLocalActpassPicksActive(t *testing.T) {
	got, err := intersectSetup(SetupRoleActpass, SetupRoleActpass)
	require.NoError(t, err)
	assert.Equal(t, SetupRoleActive, got)
}

func TestIntersectSetupRemoteActiveForcesLocalPassive(t *testing.T) {
	got, err := intersectSetup(SetupRoleActpass, SetupRoleActive)
	require.NoError(t, err)
	assert.Equal(t, SetupRolePassive, got)
}

func TestIntersectSetupRemotePassiveForcesLocalActive(t *testing.T) {
	got, err := intersectSetup(SetupRoleActpass, SetupRolePassive)
	require.NoError(t, err)
	assert.Equal(t, SetupRoleActive, got)
}

func TestParseSetupRoleRejectsUnknown(t *testing.T) {
	_, err := parseSetupRole("garbage")
	assert.ErrorIs(t, err, ErrSDPSyntax)
}

func TestParseSDPTypeRoundTrip(t *testing.T) {
	for _, typ := range []SDPType{SDPTypeOffer, SDPTypePranswer, SDPTypeAnswer, SDPTypeRollback} {
		parsed, err := parseSDPType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
}

func TestParseSDPTypeRejectsUnknown(t *testing.T) {
	_, err := parseSDPType("garbage")
	assert.ErrorIs(t, err, ErrSDPSyntax)
}

func TestKindFromMediaName(t *testing.T) {
	assert.Equal(t, RTPTransceiverKindAudio, kindFromMediaName("audio"))
	assert.Equal(t, RTPTransceiverKindVideo, kindFromMediaName("video"))
	assert.Equal(t, RTPTransceiverKindUnknown, kindFromMediaName("application"))
}

func TestPriorityWireValueRoundTrip(t *testing.T) {
	cases := []PriorityType{PriorityTypeVeryLow, PriorityTypeLow, PriorityTypeMedium, PriorityTypeHigh}
	for _, p := range cases {
		assert.Equal(t, p, priorityFromWireValue(p.wireValue()))
	}
}

func TestPriorityFromWireValueBoundaries(t *testing.T) {
	assert.Equal(t, PriorityTypeVeryLow, priorityFromWireValue(128))
	assert.Equal(t, PriorityTypeLow, priorityFromWireValue(129))
	assert.Equal(t, PriorityTypeLow, priorityFromWireValue(256))
	assert.Equal(t, PriorityTypeMedium, priorityFromWireValue(257))
	assert.Equal(t, PriorityTypeMedium, priorityFromWireValue(512))
	assert.Equal(t, PriorityTypeHigh, priorityFromWireValue(513))
}
