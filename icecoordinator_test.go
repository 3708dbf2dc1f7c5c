// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCandidateStripsPrefix(t *testing.T) {
	assert.Equal(t, "candidate:1 1 udp 1 1.1.1.1 5000 typ host", normalizeCandidate("a=candidate:1 1 udp 1 1.1.1.1 5000 typ host"))
	assert.Equal(t, "candidate:1 1 udp 1 1.1.1.1 5000 typ host", normalizeCandidate("candidate:1 1 udp 1 1.1.1.1 5000 typ host"))
}

func TestIsEndOfCandidates(t *testing.T) {
	assert.True(t, isEndOfCandidates(""))
	assert.True(t, isEndOfCandidates("   "))
	assert.False(t, isEndOfCandidates("candidate:1 1 udp 1 1.1.1.1 5000 typ host"))
}

func TestValidateCandidateStringAcceptsEndOfCandidates(t *testing.T) {
	assert.NoError(t, validateCandidateString(""))
}

func TestValidateCandidateStringRejectsMalformed(t *testing.T) {
	err := validateCandidateString("garbage")
	assert.ErrorIs(t, err, ErrSDPSyntax)
}

func TestValidateCandidateStringAcceptsWellFormed(t *testing.T) {
	err := validateCandidateString("candidate:1 1 udp 2130706431 10.0.0.1 5000 typ host")
	assert.NoError(t, err)
}

func TestICECoordinatorQueueAndDrainRemoteCandidates(t *testing.T) {
	c := newICECoordinator(testLoggerFactory())
	c.queueRemoteCandidate(IceCandidateItem{MlineIndex: 0, Candidate: "candidate:1"})
	c.queueRemoteCandidate(IceCandidateItem{MlineIndex: 1, Candidate: "candidate:2"})

	drained := c.drainRemoteCandidates()
	require.Len(t, drained, 2)
	assert.Equal(t, "candidate:1", drained[0].Candidate)

	assert.Empty(t, c.drainRemoteCandidates())
}

func TestICECoordinatorQueueAndDrainLocalCandidates(t *testing.T) {
	c := newICECoordinator(testLoggerFactory())
	c.queueLocalCandidate(IceCandidateItem{MlineIndex: 0, Candidate: "candidate:1"})

	drained := c.drainLocalCandidates()
	require.Len(t, drained, 1)
	assert.Empty(t, c.drainLocalCandidates())
}

func TestEstablishControllerLatchesOnInitialOffer(t *testing.T) {
	c := newICECoordinator(testLoggerFactory())
	c.establishController(true, false)
	assert.True(t, c.IsController())

	c.establishController(false, false)
	assert.True(t, c.IsController())
}

func TestEstablishControllerLatchesOnRemoteIceLite(t *testing.T) {
	c := newICECoordinator(testLoggerFactory())
	c.establishController(false, true)
	assert.True(t, c.IsController())
}

func TestEstablishControllerDoesNotLatchWithoutCondition(t *testing.T) {
	c := newICECoordinator(testLoggerFactory())
	c.establishController(false, false)
	assert.False(t, c.IsController())
}
