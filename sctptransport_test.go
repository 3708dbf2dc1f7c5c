// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webrtcbin/webrtcbin/internal/sctpfacade"
)

func TestNewSCTPTransportDefaults(t *testing.T) {
	st := newSCTPTransport(testLoggerFactory())
	assert.Equal(t, SCTPTransportStateConnecting, st.State())
	assert.Equal(t, uint64(defaultMaxMessageSize), st.MaxMessageSize())
	assert.EqualValues(t, defaultMaxDataChannels, st.MaxChannels())
}

func TestSCTPTransportStartPrefersRemoteMaxMessageSize(t *testing.T) {
	st := newSCTPTransport(testLoggerFactory())
	assoc := sctpfacade.NewFakeAssociation(131072)

	st.Start(assoc, 16384)
	assert.Equal(t, SCTPTransportStateConnected, st.State())
	assert.Equal(t, uint64(16384), st.MaxMessageSize())
}

func TestSCTPTransportStartFallsBackToLocalMaxMessageSize(t *testing.T) {
	st := newSCTPTransport(testLoggerFactory())
	assoc := sctpfacade.NewFakeAssociation(131072)

	st.Start(assoc, 0)
	assert.Equal(t, uint64(131072), st.MaxMessageSize())
}

func TestSCTPTransportAssociationErrorsBeforeStart(t *testing.T) {
	st := newSCTPTransport(testLoggerFactory())
	_, err := st.association()
	assert.ErrorIs(t, err, ErrNoSCTPTransport)
}

func TestSCTPTransportAssociationAvailableAfterStart(t *testing.T) {
	st := newSCTPTransport(testLoggerFactory())
	assoc := sctpfacade.NewFakeAssociation(65536)
	st.Start(assoc, 0)

	got, err := st.association()
	require.NoError(t, err)
	assert.Same(t, assoc, got)
}

func TestSCTPTransportCloseClosesAssociationAndMarksClosed(t *testing.T) {
	st := newSCTPTransport(testLoggerFactory())
	assoc := sctpfacade.NewFakeAssociation(65536)
	st.Start(assoc, 0)

	require.NoError(t, st.Close())
	assert.Equal(t, SCTPTransportStateClosed, st.State())
}

func TestSCTPTransportCloseWithoutAssociationIsNoop(t *testing.T) {
	st := newSCTPTransport(testLoggerFactory())
	assert.NoError(t, st.Close())
	assert.Equal(t, SCTPTransportStateClosed, st.State())
}
