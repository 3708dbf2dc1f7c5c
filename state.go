// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

// transportStateView is the minimal per-transport state the aggregator
// needs, decoupled from TransportStream so it can be computed from any
// snapshot (including tests), per spec.md §4.4.
type transportStateView struct {
	ice       ICEConnectionState
	gathering ICEGatheringState
	dtls      DTLSTransportState
}

// aggregateICEConnectionState implements spec.md §4.4's rules, evaluated
// over the per-transport ICE states of every non-stopped transceiver with a
// mid, plus the data channel transport.
func aggregateICEConnectionState(views []transportStateView) ICEConnectionState {
	if len(views) == 0 {
		return ICEConnectionStateNew
	}

	var anyFailed, anyDisconnected, anyCheckingOrNew, allCompletedOrClosed, allConnectedCompletedClosed, allNewOrClosed bool
	allCompletedOrClosed = true
	allConnectedCompletedClosed = true
	allNewOrClosed = true

	for _, v := range views {
		switch v.ice {
		case ICEConnectionStateFailed:
			anyFailed = true
		case ICEConnectionStateDisconnected:
			anyDisconnected = true
		case ICEConnectionStateChecking, ICEConnectionStateNew:
			anyCheckingOrNew = true
		}
		if v.ice != ICEConnectionStateCompleted && v.ice != ICEConnectionStateClosed {
			allCompletedOrClosed = false
		}
		if v.ice != ICEConnectionStateConnected && v.ice != ICEConnectionStateCompleted && v.ice != ICEConnectionStateClosed {
			allConnectedCompletedClosed = false
		}
		if v.ice != ICEConnectionStateNew && v.ice != ICEConnectionStateClosed {
			allNewOrClosed = false
		}
	}

	switch {
	case anyFailed:
		return ICEConnectionStateFailed
	case anyDisconnected:
		return ICEConnectionStateDisconnected
	case allNewOrClosed:
		return ICEConnectionStateNew
	case anyCheckingOrNew:
		return ICEConnectionStateChecking
	case allCompletedOrClosed:
		return ICEConnectionStateCompleted
	case allConnectedCompletedClosed:
		return ICEConnectionStateConnected
	default:
		return ICEConnectionStateChecking
	}
}

// aggregateICEGatheringState implements spec.md §4.4.
func aggregateICEGatheringState(views []transportStateView) ICEGatheringState {
	if len(views) == 0 {
		return ICEGatheringStateNew
	}
	anyGathering := false
	allComplete := true
	for _, v := range views {
		if v.gathering == ICEGatheringStateGathering {
			anyGathering = true
		}
		if v.gathering != ICEGatheringStateComplete {
			allComplete = false
		}
	}
	switch {
	case anyGathering:
		return ICEGatheringStateGathering
	case allComplete:
		return ICEGatheringStateComplete
	default:
		return ICEGatheringStateNew
	}
}

// aggregatePeerConnectionState implements spec.md §4.4's W3C rules
// combining ICE and DTLS per-transport states; closed takes priority.
func aggregatePeerConnectionState(closed bool, views []transportStateView) PeerConnectionState {
	if closed {
		return PeerConnectionStateClosed
	}
	if len(views) == 0 {
		return PeerConnectionStateNew
	}

	anyFailed, anyDisconnected, anyConnecting, anyNew := false, false, false, false
	allConnected := true
	allNew := true

	for _, v := range views {
		if v.ice == ICEConnectionStateFailed || v.dtls == DTLSTransportStateFailed {
			anyFailed = true
		}
		if v.ice == ICEConnectionStateDisconnected {
			anyDisconnected = true
		}
		if v.ice == ICEConnectionStateChecking || v.dtls == DTLSTransportStateConnecting {
			anyConnecting = true
		}
		if v.ice == ICEConnectionStateNew && v.dtls == DTLSTransportStateNew {
			anyNew = true
		} else {
			allNew = false
		}
		connected := (v.ice == ICEConnectionStateConnected || v.ice == ICEConnectionStateCompleted) &&
			v.dtls == DTLSTransportStateConnected
		if !connected {
			allConnected = false
		}
	}

	switch {
	case anyFailed:
		return PeerConnectionStateFailed
	case anyDisconnected:
		return PeerConnectionStateDisconnected
	case allConnected:
		return PeerConnectionStateConnected
	case anyConnecting:
		return PeerConnectionStateConnecting
	case allNew || anyNew:
		return PeerConnectionStateNew
	default:
		return PeerConnectionStateConnecting
	}
}
