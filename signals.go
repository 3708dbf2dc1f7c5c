// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import "sync"

// signals is the application-visible event boundary of spec.md §6.3/§9:
// typed callback fields rather than string-named dynamic signals, mirroring
// pion/webrtc's on*Handler field family on PeerConnection and DataChannel.
type signals struct {
	mu sync.Mutex

	onNegotiationNeeded       func()
	onICECandidate            func(mlineIndex uint32, candidate string)
	onNewTransceiver          func(*RTPTransceiver)
	onDataChannel             func(*DataChannel)
	onPrepareDataChannel      func(dc *DataChannel, isLocal bool)
	onSignalingStateChange    func(SignalingState)
	onICEConnectionStateChange func(ICEConnectionState)
	onICEGatheringStateChange func(ICEGatheringState)
	onConnectionStateChange   func(PeerConnectionState)
}

func (s *signals) OnNegotiationNeeded(f func())                                { s.mu.Lock(); s.onNegotiationNeeded = f; s.mu.Unlock() }
func (s *signals) OnICECandidate(f func(uint32, string))                       { s.mu.Lock(); s.onICECandidate = f; s.mu.Unlock() }
func (s *signals) OnNewTransceiver(f func(*RTPTransceiver))                    { s.mu.Lock(); s.onNewTransceiver = f; s.mu.Unlock() }
func (s *signals) OnDataChannel(f func(*DataChannel))                          { s.mu.Lock(); s.onDataChannel = f; s.mu.Unlock() }
func (s *signals) OnPrepareDataChannel(f func(*DataChannel, bool))             { s.mu.Lock(); s.onPrepareDataChannel = f; s.mu.Unlock() }
func (s *signals) OnSignalingStateChange(f func(SignalingState))              { s.mu.Lock(); s.onSignalingStateChange = f; s.mu.Unlock() }
func (s *signals) OnICEConnectionStateChange(f func(ICEConnectionState))      { s.mu.Lock(); s.onICEConnectionStateChange = f; s.mu.Unlock() }
func (s *signals) OnICEGatheringStateChange(f func(ICEGatheringState))        { s.mu.Lock(); s.onICEGatheringStateChange = f; s.mu.Unlock() }
func (s *signals) OnConnectionStateChange(f func(PeerConnectionState))        { s.mu.Lock(); s.onConnectionStateChange = f; s.mu.Unlock() }

// fireNegotiationNeeded etc. are called with the pc-lock released, per
// spec.md §5 ("signals are fired with the lock temporarily released to
// avoid re-entrant deadlock, then the lock is reacquired").
func (s *signals) fireNegotiationNeeded() {
	s.mu.Lock()
	f := s.onNegotiationNeeded
	s.mu.Unlock()
	if f != nil {
		f()
	}
}

func (s *signals) fireICECandidate(mlineIndex uint32, candidate string) {
	s.mu.Lock()
	f := s.onICECandidate
	s.mu.Unlock()
	if f != nil {
		f(mlineIndex, candidate)
	}
}

func (s *signals) fireNewTransceiver(t *RTPTransceiver) {
	s.mu.Lock()
	f := s.onNewTransceiver
	s.mu.Unlock()
	if f != nil {
		f(t)
	}
}

func (s *signals) fireDataChannel(dc *DataChannel) {
	s.mu.Lock()
	f := s.onDataChannel
	s.mu.Unlock()
	if f != nil {
		f(dc)
	}
}

func (s *signals) firePrepareDataChannel(dc *DataChannel, isLocal bool) {
	s.mu.Lock()
	f := s.onPrepareDataChannel
	s.mu.Unlock()
	if f != nil {
		f(dc, isLocal)
	}
}

func (s *signals) fireSignalingStateChange(st SignalingState) {
	s.mu.Lock()
	f := s.onSignalingStateChange
	s.mu.Unlock()
	if f != nil {
		f(st)
	}
}

func (s *signals) fireICEConnectionStateChange(st ICEConnectionState) {
	s.mu.Lock()
	f := s.onICEConnectionStateChange
	s.mu.Unlock()
	if f != nil {
		f(st)
	}
}

func (s *signals) fireICEGatheringStateChange(st ICEGatheringState) {
	s.mu.Lock()
	f := s.onICEGatheringStateChange
	s.mu.Unlock()
	if f != nil {
		f(st)
	}
}

func (s *signals) fireConnectionStateChange(st PeerConnectionState) {
	s.mu.Lock()
	f := s.onConnectionStateChange
	s.mu.Unlock()
	if f != nil {
		f(st)
	}
}
