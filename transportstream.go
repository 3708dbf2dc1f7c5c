// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import "sync"

// TransportStream is the per-RTP-session DTLS+ICE+send/receive abstraction
// of spec.md §3/§4.1.6. Its session-id equals the mline index for
// unbundled sections, or the bundle leader's mline index when bundled.
type TransportStream struct {
	mu sync.Mutex

	sessionID int

	iceConnectionState ICEConnectionState
	iceGatheringState  ICEGatheringState
	dtlsState          DTLSTransportState
	dtlsRole           DTLSRole

	localUfrag, localPwd   string
	remoteUfrag, remotePwd string

	payloadTypeMap map[int]mediaIndexPTs // keyed by media-index

	ssrcMap []ssrcMapEntry

	active bool

	hasRTX, hasRED bool
	fecDecoders    int
}

func newTransportStream(sessionID int) *TransportStream {
	return &TransportStream{
		sessionID:          sessionID,
		iceConnectionState: ICEConnectionStateNew,
		iceGatheringState:  ICEGatheringStateNew,
		dtlsState:          DTLSTransportStateNew,
		payloadTypeMap:     map[int]mediaIndexPTs{},
	}
}

func (ts *TransportStream) SessionID() int {
	return ts.sessionID
}

func (ts *TransportStream) setLocalCredentials(ufrag, pwd string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.localUfrag, ts.localPwd = ufrag, pwd
}

func (ts *TransportStream) setRemoteCredentials(ufrag, pwd string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.remoteUfrag, ts.remotePwd = ufrag, pwd
}

func (ts *TransportStream) setDTLSClientMode(isClient bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if isClient {
		ts.dtlsRole = DTLSRoleClient
	} else {
		ts.dtlsRole = DTLSRoleServer
	}
}

func (ts *TransportStream) setActive(active bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if active {
		ts.active = true
	}
	// active is sticky within a negotiation round: spec.md §4.1.4 only ever
	// asks us to mark it active, never to clear it mid-round.
}

func (ts *TransportStream) setICEConnectionState(s ICEConnectionState) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.iceConnectionState = s
}

func (ts *TransportStream) setICEGatheringState(s ICEGatheringState) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.iceGatheringState = s
}

func (ts *TransportStream) setDTLSState(s DTLSTransportState) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.dtlsState = s
}

func (ts *TransportStream) snapshot() (ice ICEConnectionState, gathering ICEGatheringState, dtls DTLSTransportState) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.iceConnectionState, ts.iceGatheringState, ts.dtlsState
}

func (ts *TransportStream) addSSRCEntry(e ssrcMapEntry) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.ssrcMap = append(ts.ssrcMap, e)
}

func (ts *TransportStream) setPayloadTypeMap(mediaIndex int, pts mediaIndexPTs) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.payloadTypeMap[mediaIndex] = pts
}

// transportStreamSet is the id-indexed collection of TransportStreams,
// created on first need for a session-id and persisting for the life of the
// PeerConnection (spec.md §3 lifecycle note).
type transportStreamSet struct {
	mu      sync.Mutex
	byID    map[int]*TransportStream
}

func newTransportStreamSet() *transportStreamSet {
	return &transportStreamSet{byID: map[int]*TransportStream{}}
}

// findOrCreate implements the ICE coordinator's find-or-create on
// session-id, spec.md §4.3.
func (s *transportStreamSet) findOrCreate(sessionID int) *TransportStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ts, ok := s.byID[sessionID]; ok {
		return ts
	}
	ts := newTransportStream(sessionID)
	s.byID[sessionID] = ts
	return ts
}

func (s *transportStreamSet) get(sessionID int) *TransportStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[sessionID]
}

func (s *transportStreamSet) all() []*TransportStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*TransportStream, 0, len(s.byID))
	for _, ts := range s.byID {
		out = append(out, ts)
	}
	return out
}
