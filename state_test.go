// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateICEConnectionStateEmptyIsNew(t *testing.T) {
	assert.Equal(t, ICEConnectionStateNew, aggregateICEConnectionState(nil))
}

func TestAggregateICEConnectionStateAnyFailedWins(t *testing.T) {
	views := []transportStateView{
		{ice: ICEConnectionStateConnected},
		{ice: ICEConnectionStateFailed},
	}
	assert.Equal(t, ICEConnectionStateFailed, aggregateICEConnectionState(views))
}

func TestAggregateICEConnectionStateAllCompletedOrClosed(t *testing.T) {
	views := []transportStateView{
		{ice: ICEConnectionStateCompleted},
		{ice: ICEConnectionStateClosed},
	}
	assert.Equal(t, ICEConnectionStateCompleted, aggregateICEConnectionState(views))
}

func TestAggregateICEConnectionStateAllConnected(t *testing.T) {
	views := []transportStateView{
		{ice: ICEConnectionStateConnected},
		{ice: ICEConnectionStateCompleted},
	}
	assert.Equal(t, ICEConnectionStateConnected, aggregateICEConnectionState(views))
}

func TestAggregateICEConnectionStateCheckingWhileOneIsNew(t *testing.T) {
	views := []transportStateView{
		{ice: ICEConnectionStateConnected},
		{ice: ICEConnectionStateNew},
	}
	assert.Equal(t, ICEConnectionStateChecking, aggregateICEConnectionState(views))
}

func TestAggregateICEGatheringStateAnyGatheringWins(t *testing.T) {
	views := []transportStateView{
		{gathering: ICEGatheringStateComplete},
		{gathering: ICEGatheringStateGathering},
	}
	assert.Equal(t, ICEGatheringStateGathering, aggregateICEGatheringState(views))
}

func TestAggregateICEGatheringStateAllComplete(t *testing.T) {
	views := []transportStateView{
		{gathering: ICEGatheringStateComplete},
		{gathering: ICEGatheringStateComplete},
	}
	assert.Equal(t, ICEGatheringStateComplete, aggregateICEGatheringState(views))
}

func TestAggregatePeerConnectionStateClosedTakesPriority(t *testing.T) {
	views := []transportStateView{
		{ice: ICEConnectionStateConnected, dtls: DTLSTransportStateConnected},
	}
	assert.Equal(t, PeerConnectionStateClosed, aggregatePeerConnectionState(true, views))
}

func TestAggregatePeerConnectionStateEmptyIsNew(t *testing.T) {
	assert.Equal(t, PeerConnectionStateNew, aggregatePeerConnectionState(false, nil))
}

func TestAggregatePeerConnectionStateAllConnected(t *testing.T) {
	views := []transportStateView{
		{ice: ICEConnectionStateConnected, dtls: DTLSTransportStateConnected},
		{ice: ICEConnectionStateCompleted, dtls: DTLSTransportStateConnected},
	}
	assert.Equal(t, PeerConnectionStateConnected, aggregatePeerConnectionState(false, views))
}

func TestAggregatePeerConnectionStateFailedFromDTLS(t *testing.T) {
	views := []transportStateView{
		{ice: ICEConnectionStateConnected, dtls: DTLSTransportStateFailed},
	}
	assert.Equal(t, PeerConnectionStateFailed, aggregatePeerConnectionState(false, views))
}

func TestAggregatePeerConnectionStateAllNew(t *testing.T) {
	views := []transportStateView{
		{ice: ICEConnectionStateNew, dtls: DTLSTransportStateNew},
	}
	assert.Equal(t, PeerConnectionStateNew, aggregatePeerConnectionState(false, views))
}

func TestAggregatePeerConnectionStateConnectingWhileChecking(t *testing.T) {
	views := []transportStateView{
		{ice: ICEConnectionStateChecking, dtls: DTLSTransportStateNew},
	}
	assert.Equal(t, PeerConnectionStateConnecting, aggregatePeerConnectionState(false, views))
}
