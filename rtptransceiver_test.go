// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRTPTransceiverStartsUnassociated(t *testing.T) {
	tr := newRTPTransceiver(0, RTPTransceiverKindAudio, RTPTransceiverDirectionSendrecv)
	assert.False(t, tr.associated())
	assert.Equal(t, -1, tr.mline)
	assert.False(t, tr.Stopped())
}

func TestRTPTransceiverStopMarksStopped(t *testing.T) {
	tr := newRTPTransceiver(0, RTPTransceiverKindAudio, RTPTransceiverDirectionSendrecv)
	tr.Stop()
	assert.True(t, tr.Stopped())
}

func TestRTPTransceiverSetKindFromUnknown(t *testing.T) {
	tr := newRTPTransceiver(0, RTPTransceiverKindUnknown, RTPTransceiverDirectionSendrecv)
	require.NoError(t, tr.setKind(RTPTransceiverKindVideo))
	assert.Equal(t, RTPTransceiverKindVideo, tr.Kind())
}

func TestRTPTransceiverSetKindRejectsChange(t *testing.T) {
	tr := newRTPTransceiver(0, RTPTransceiverKindAudio, RTPTransceiverDirectionSendrecv)
	err := tr.setKind(RTPTransceiverKindVideo)
	assert.ErrorIs(t, err, ErrInvalidModification)
	assert.Equal(t, RTPTransceiverKindAudio, tr.Kind())
}

func TestRTPTransceiverSetKindSameKindIsNoop(t *testing.T) {
	tr := newRTPTransceiver(0, RTPTransceiverKindAudio, RTPTransceiverDirectionSendrecv)
	assert.NoError(t, tr.setKind(RTPTransceiverKindAudio))
}

func TestRTPTransceiverAddLocalRTXSSRCRecordsMapping(t *testing.T) {
	tr := newRTPTransceiver(0, RTPTransceiverKindVideo, RTPTransceiverDirectionSendrecv)
	require.NoError(t, tr.addLocalRTXSSRC(97))
	tr.mu.Lock()
	_, ok := tr.rtxSSRCsByPT[97]
	tr.mu.Unlock()
	assert.True(t, ok)
}

func TestTransceiverRegistryAddAssignsDenseIDs(t *testing.T) {
	r := newTransceiverRegistry()
	a := r.add(RTPTransceiverKindAudio, RTPTransceiverDirectionSendrecv)
	b := r.add(RTPTransceiverKindVideo, RTPTransceiverDirectionSendrecv)
	assert.Equal(t, 0, a.id)
	assert.Equal(t, 1, b.id)
	assert.Len(t, r.all(), 2)
}

func TestTransceiverRegistryByMid(t *testing.T) {
	r := newTransceiverRegistry()
	a := r.add(RTPTransceiverKindAudio, RTPTransceiverDirectionSendrecv)
	a.mu.Lock()
	a.mid = "audio0"
	a.mline = 0
	a.mu.Unlock()

	assert.Same(t, a, r.byMid("audio0"))
	assert.Nil(t, r.byMid("missing"))
	assert.Nil(t, r.byMid(""))
}

func TestTransceiverRegistryByPendingOrMid(t *testing.T) {
	r := newTransceiverRegistry()
	a := r.add(RTPTransceiverKindAudio, RTPTransceiverDirectionSendrecv)
	a.mu.Lock()
	a.pendingMid = "audio0"
	a.mu.Unlock()

	assert.Same(t, a, r.byPendingOrMid("audio0"))
}

func TestTransceiverRegistryByMlineLock(t *testing.T) {
	r := newTransceiverRegistry()
	a := r.add(RTPTransceiverKindAudio, RTPTransceiverDirectionSendrecv)
	a.mu.Lock()
	a.mline = 2
	a.mlineLocked = true
	a.mu.Unlock()

	assert.Same(t, a, r.byMlineLock(2))
	assert.Nil(t, r.byMlineLock(0))
}

func TestTransceiverRegistryFirstUnassociatedMatchesExactKind(t *testing.T) {
	r := newTransceiverRegistry()
	audio := r.add(RTPTransceiverKindAudio, RTPTransceiverDirectionSendrecv)
	_ = r.add(RTPTransceiverKindVideo, RTPTransceiverDirectionSendrecv)

	assert.Same(t, audio, r.firstUnassociated(RTPTransceiverKindAudio))
}

func TestTransceiverRegistryFirstUnassociatedFallsBackToUnknownKind(t *testing.T) {
	r := newTransceiverRegistry()
	unknown := r.add(RTPTransceiverKindUnknown, RTPTransceiverDirectionSendrecv)

	assert.Same(t, unknown, r.firstUnassociated(RTPTransceiverKindAudio))
}

func TestTransceiverRegistryFirstUnassociatedSkipsStoppedAndAssociated(t *testing.T) {
	r := newTransceiverRegistry()
	stopped := r.add(RTPTransceiverKindAudio, RTPTransceiverDirectionSendrecv)
	stopped.Stop()
	associated := r.add(RTPTransceiverKindAudio, RTPTransceiverDirectionSendrecv)
	associated.mu.Lock()
	associated.mid = "audio0"
	associated.mline = 0
	associated.mu.Unlock()

	assert.Nil(t, r.firstUnassociated(RTPTransceiverKindAudio))
}

func TestTransceiverRegistryFirstUnassociatedAnyIgnoresKind(t *testing.T) {
	r := newTransceiverRegistry()
	video := r.add(RTPTransceiverKindVideo, RTPTransceiverDirectionSendrecv)

	assert.Same(t, video, r.firstUnassociatedAny())
}

func TestTransceiverRegistryFirstUnassociatedAnySkipsMlineLocked(t *testing.T) {
	r := newTransceiverRegistry()
	locked := r.add(RTPTransceiverKindAudio, RTPTransceiverDirectionSendrecv)
	locked.mu.Lock()
	locked.mlineLocked = true
	locked.mu.Unlock()

	assert.Nil(t, r.firstUnassociatedAny())
}
