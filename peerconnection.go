// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pion/ice/v4"
	"github.com/pion/logging"

	"github.com/webrtcbin/webrtcbin/internal/dcep"
	"github.com/webrtcbin/webrtcbin/internal/sctpfacade"
)

// OfferOptions carries the (currently empty) create-offer extension points
// of spec.md §4.1.1/§6.4.
type OfferOptions struct{}

// AnswerOptions carries the (currently empty) create-answer extension points
// of spec.md §4.1.2/§6.4.
type AnswerOptions struct{}

// PeerConnection is the aggregate root of spec.md §3: signaling state,
// session-description slots, the transceiver registry, transport streams,
// the ICE coordinator, the SCTP association facade, and the data-channel
// registry, all mutated only from the task queue (spec.md §4.6/§5).
type PeerConnection struct {
	signals

	mu sync.RWMutex // pc-lock, spec.md §5 (also guards getters called off-queue)

	queue *taskQueue

	config        Configuration
	settingEngine SettingEngine

	signalingState SignalingState
	closed         bool

	currentLocal  *SessionDescription
	pendingLocal  *SessionDescription
	currentRemote *SessionDescription
	pendingRemote *SessionDescription

	lastOffer  *SessionDescription
	lastAnswer *SessionDescription

	offerLastSections  []*mediaSection // the media sections of lastOffer, for the §4.1.1 first pass
	answerBundleLeader int

	needNegotiation bool

	offerCount        int
	mediaIndexCounter int
	sinkPadSerial     int
	sourcePadSerial   int
	groupID           string

	transceivers *transceiverRegistry
	transports   *transportStreamSet
	ice          *iceCoordinator
	sctp         *SCTPTransport

	dcLock       sync.Mutex // dc-lock, acquired after pc-lock per spec.md §5
	dataChannels map[int]*DataChannel

	// localPendingChannels holds locally-created channels still waiting for
	// an id and/or an open SCTP stream, spec.md §4.5.1's two deferred
	// allocation triggers ("association establish" / "remote SDP apply").
	localPendingChannels []*DataChannel

	// dataChannelSessionID is the TransportStream session-id the data
	// channel's SCTP association rides on, set once negotiation resolves the
	// application m-line (or its bundle leader); -1 until then.
	dataChannelSessionID int

	isDTLSClient bool // established once the first TransportStream sets its role

	// localFingerprintAlgo/Value are placed on every emitted media section's
	// a=fingerprint line. Certificate generation is explicitly out of scope
	// (spec.md §1 Non-goals); this is a per-PeerConnection stand-in value
	// rather than a real DTLS certificate digest.
	localFingerprintAlgo  string
	localFingerprintValue string

	log *logging.LeveledLogger
}

// NewPeerConnection constructs a PeerConnection per spec.md §3's initial
// state: signaling state stable, no descriptions, an empty transceiver
// registry, and a fresh task queue.
func NewPeerConnection(config Configuration, setting SettingEngine) (*PeerConnection, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config = config.populateDefaults()
	factory := setting.loggerFactory()

	fingerprintValue, err := generateFingerprint()
	if err != nil {
		return nil, err
	}

	pc := &PeerConnection{
		config:                config,
		settingEngine:         setting,
		signalingState:        SignalingStateStable,
		queue:                 newTaskQueue(factory),
		transceivers:          newTransceiverRegistry(),
		transports:            newTransportStreamSet(),
		ice:                   newICECoordinator(factory),
		sctp:                  newSCTPTransport(factory),
		dataChannels:          map[int]*DataChannel{},
		groupID:               uuid.New().String(),
		answerBundleLeader:    -1,
		dataChannelSessionID:  -1,
		localFingerprintAlgo:  "sha-256",
		localFingerprintValue: fingerprintValue,
		log:                   factory.NewLogger(logScopeNegotiation),
	}
	return pc, nil
}

func (pc *PeerConnection) SignalingState() SignalingState {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.signalingState
}

func (pc *PeerConnection) CurrentLocalDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.currentLocal
}

func (pc *PeerConnection) PendingLocalDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.pendingLocal
}

func (pc *PeerConnection) CurrentRemoteDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.currentRemote
}

func (pc *PeerConnection) PendingRemoteDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.pendingRemote
}

// ConnectionState recomputes the aggregate PeerConnection state on demand
// from every TransportStream, per spec.md §4.4.
func (pc *PeerConnection) ConnectionState() PeerConnectionState {
	pc.mu.RLock()
	closed := pc.closed
	pc.mu.RUnlock()
	return aggregatePeerConnectionState(closed, pc.transportViews())
}

func (pc *PeerConnection) ICEConnectionState() ICEConnectionState {
	return aggregateICEConnectionState(pc.transportViews())
}

func (pc *PeerConnection) ICEGatheringState() ICEGatheringState {
	return aggregateICEGatheringState(pc.transportViews())
}

func (pc *PeerConnection) transportViews() []transportStateView {
	streams := pc.transports.all()
	views := make([]transportStateView, 0, len(streams))
	for _, ts := range streams {
		ice, gathering, dtls := ts.snapshot()
		views = append(views, transportStateView{ice: ice, gathering: gathering, dtls: dtls})
	}
	return views
}

// GetTransceivers returns a snapshot of every transceiver ever created on
// this PeerConnection, spec.md §6.4 (stopped ones are never removed).
func (pc *PeerConnection) GetTransceivers() []*RTPTransceiver {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.transceivers.all()
}

// AddTransceiver implements the add-transceiver(direction, caps?) operation
// of spec.md §6.4: create an unassociated transceiver and request
// negotiation.
func (pc *PeerConnection) AddTransceiver(kind RTPTransceiverKind, direction RTPTransceiverDirection, codecPreferences []CodecCapability) (*RTPTransceiver, error) {
	v, err := pc.queue.SubmitSync(func() (interface{}, error) {
		if pc.isClosedLocked() {
			return nil, ErrConnectionClosed
		}
		pc.mu.Lock()
		t := pc.transceivers.add(kind, direction)
		t.codecPreferences = codecPreferences
		pc.mu.Unlock()
		pc.setNeedNegotiation(true)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*RTPTransceiver), nil
}

// CreateDataChannel implements spec.md §4.5.1's application-initiated
// creation path plus the §6.4 operation surface. An id is assigned
// immediately only when it is given explicitly or an SCTP association is
// already established; otherwise allocation (and stream open) is deferred to
// the first of AttachSCTPAssociation / a remote SDP apply that resolves the
// DTLS role, per spec.md §4.5.1/§4.5.4.
func (pc *PeerConnection) CreateDataChannel(label string, init DataChannelInit) (*DataChannel, error) {
	v, err := pc.queue.SubmitSync(func() (interface{}, error) {
		if pc.isClosedLocked() {
			return nil, ErrConnectionClosed
		}

		dc, err := newDataChannel(label, init, pc.settingEngine.loggerFactory())
		if err != nil {
			return nil, err
		}

		pc.dcLock.Lock()
		if dc.id >= 0 {
			if _, exists := pc.dataChannels[dc.id]; exists {
				pc.dcLock.Unlock()
				return nil, fail(ErrChannelIDInUse, "id %d already in use", dc.id)
			}
			pc.dataChannels[dc.id] = dc
		}

		assoc, assocErr := pc.sctp.association()
		if assocErr == nil && dc.id < 0 {
			id, allocErr := pc.allocateChannelIDLocked()
			if allocErr != nil {
				pc.dcLock.Unlock()
				return nil, allocErr
			}
			dc.id = id
			pc.dataChannels[dc.id] = dc
		}

		opensNow := assocErr == nil && dc.id >= 0
		if !opensNow {
			pc.localPendingChannels = append(pc.localPendingChannels, dc)
		}
		pc.dcLock.Unlock()

		pc.firePrepareDataChannel(dc, true)
		if opensNow {
			pc.openLocalDataChannel(dc, assoc)
		}

		pc.setNeedNegotiation(true)
		return dc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*DataChannel), nil
}

// openLocalDataChannel opens the SCTP stream for a locally-created channel.
// Negotiated channels (both ends created their own end out of band) skip
// the DCEP OPEN/ACK handshake entirely and go straight to open, spec.md
// §4.5.1/§4.5.2; non-negotiated channels send OPEN and wait for the ACK.
func (pc *PeerConnection) openLocalDataChannel(dc *DataChannel, assoc Association) {
	stream, err := assoc.OpenStream(uint16(dc.id), sctpfacade.PPID(dcep.PPIDControl))
	if err != nil {
		dc.handleSendFailure(0, fail(ErrDataChannelFailure, "open stream %d: %v", dc.id, err))
		return
	}
	dc.attachStream(stream, pc.sctp)
	if dc.negotiated {
		dc.markOpen()
		return
	}
	if err := dc.sendOpen(); err != nil {
		dc.handleSendFailure(0, err)
	}
}

// tryAllocatePendingChannelIDs implements spec.md §4.5.1's "allocate ... on
// remote SDP apply" trigger: once the DTLS role is known, any channel still
// waiting on an id (but not yet on an association) can get one. The stream
// itself still opens only once AttachSCTPAssociation runs.
func (pc *PeerConnection) tryAllocatePendingChannelIDs() {
	pc.dcLock.Lock()
	defer pc.dcLock.Unlock()
	for _, dc := range pc.localPendingChannels {
		if dc.id < 0 {
			if id, err := pc.allocateChannelIDLocked(); err == nil {
				dc.id = id
				pc.dataChannels[dc.id] = dc
			}
		}
	}
}

// AttachSCTPAssociation hands the established SCTP association to the
// engine: the single integration point an external SCTP layer (out of scope,
// spec.md §1) calls once DTLS is up and the negotiated sctp parameters are
// known. It unblocks channel-open/id-allocation for every channel still
// waiting, and starts the remote-initiated receive loop, spec.md §4.5.1.
func (pc *PeerConnection) AttachSCTPAssociation(assoc Association, remoteMaxMessageSize uint64) error {
	_, err := pc.queue.SubmitSync(func() (interface{}, error) {
		if pc.isClosedLocked() {
			return nil, ErrConnectionClosed
		}

		pc.sctp.Start(assoc, remoteMaxMessageSize)

		pc.mu.RLock()
		dcSession := pc.dataChannelSessionID
		pc.mu.RUnlock()
		if dcSession >= 0 {
			pc.transports.findOrCreate(dcSession).setDTLSState(DTLSTransportStateConnected)
			pc.fireConnectionStateChange(pc.ConnectionState())
		}

		pc.dcLock.Lock()
		pending := pc.localPendingChannels
		pc.localPendingChannels = nil
		pc.dcLock.Unlock()

		for _, dc := range pending {
			pc.dcLock.Lock()
			if dc.id < 0 {
				id, allocErr := pc.allocateChannelIDLocked()
				if allocErr != nil {
					pc.dcLock.Unlock()
					dc.handleSendFailure(0, allocErr)
					continue
				}
				dc.id = id
				pc.dataChannels[dc.id] = dc
			}
			pc.dcLock.Unlock()
			pc.openLocalDataChannel(dc, assoc)
		}

		pc.startSCTPReceiveLoop(assoc)
		return nil, nil
	})
	return err
}

// startSCTPReceiveLoop implements spec.md §4.5.1's "Receive (remote-
// initiated)" operation: block on AcceptStream and hand every inbound
// stream off, until the association closes.
func (pc *PeerConnection) startSCTPReceiveLoop(assoc Association) {
	go func() {
		for {
			stream, err := assoc.AcceptStream()
			if err != nil {
				return
			}
			pc.handleInboundStream(stream)
		}
	}()
}

// handleInboundStream instantiates a fresh channel bound to the stream's id
// when no local channel claims it yet, spec.md §4.5.1, then starts that
// stream's own read loop.
func (pc *PeerConnection) handleInboundStream(stream sctpfacade.Stream) {
	id := int(stream.StreamIdentifier())

	pc.dcLock.Lock()
	dc, exists := pc.dataChannels[id]
	if !exists {
		var err error
		dc, err = newDataChannel("", DataChannelInit{}, pc.settingEngine.loggerFactory())
		if err != nil {
			pc.dcLock.Unlock()
			pc.log.Errorf("remote data channel %d: %v", id, err)
			return
		}
		dc.id = id
		pc.dataChannels[id] = dc
	}
	pc.dcLock.Unlock()

	dc.attachStream(stream, pc.sctp)

	if !exists {
		pc.firePrepareDataChannel(dc, false)
		pc.fireDataChannel(dc)
	}

	go pc.readStreamLoop(dc, stream)
}

// readStreamLoop implements spec.md §4.5.6's per-stream receive dispatch; a
// read error is treated as the remote resetting the stream.
func (pc *PeerConnection) readStreamLoop(dc *DataChannel, stream sctpfacade.Stream) {
	buf := make([]byte, dataChannelBufferSize)
	for {
		n, ppid, err := stream.ReadSCTP(buf)
		if err != nil {
			dc.onRemoteReset()
			return
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		dc.deliver(payload, dcep.PPID(ppid))
	}
}

// allocateChannelIDLocked implements spec.md §4.5.4; caller holds dcLock.
func (pc *PeerConnection) allocateChannelIDLocked() (int, error) {
	start := 0
	if !pc.isDTLSClient {
		start = 1
	}
	max := int(pc.sctp.MaxChannels())
	if max <= 0 {
		max = defaultMaxDataChannels
	}
	for id := start; id < max; id += 2 {
		if _, used := pc.dataChannels[id]; !used {
			return id, nil
		}
	}
	return 0, ErrChannelIDExhausted
}

// AddICECandidate implements spec.md §4.3/§6.4: queue the candidate if both
// descriptions are not yet set, otherwise apply it immediately.
func (pc *PeerConnection) AddICECandidate(mlineIndex int, candidate string) error {
	_, err := pc.queue.SubmitSync(func() (interface{}, error) {
		if pc.isClosedLocked() {
			return nil, ErrConnectionClosed
		}
		if err := validateCandidateString(candidate); err != nil {
			return nil, err
		}

		item := IceCandidateItem{MlineIndex: mlineIndex, Candidate: normalizeCandidate(candidate)}

		if pc.localDescription() == nil || pc.remoteDescription() == nil {
			pc.ice.queueRemoteCandidate(item)
			return nil, nil
		}

		pc.applyRemoteCandidate(item)
		return nil, nil
	})
	return err
}

func (pc *PeerConnection) localDescription() *SessionDescription {
	if pc.pendingLocal != nil {
		return pc.pendingLocal
	}
	return pc.currentLocal
}

func (pc *PeerConnection) remoteDescription() *SessionDescription {
	if pc.pendingRemote != nil {
		return pc.pendingRemote
	}
	return pc.currentRemote
}

// applyRemoteCandidate routes one candidate to the external ICE agent
// attached to its TransportStream session, spec.md §4.3. Bundled mlines all
// share the leader's session, mirroring transportForSection's routing during
// negotiation.
func (pc *PeerConnection) applyRemoteCandidate(item IceCandidateItem) {
	pc.log.Debugf("applying remote ice candidate mline=%d candidate=%q", item.MlineIndex, item.Candidate)

	if isEndOfCandidates(item.Candidate) {
		return
	}

	pc.mu.RLock()
	bundleLeader := pc.answerBundleLeader
	pc.mu.RUnlock()

	sessionID := item.MlineIndex
	if pc.bundled() && bundleLeader >= 0 {
		sessionID = bundleLeader
	}

	agent, ok := pc.ice.agentFor(sessionID)
	if !ok {
		pc.log.Debugf("no ice agent attached for session %d, dropping candidate", sessionID)
		return
	}

	cand, err := ice.UnmarshalCandidate(normalizeCandidate(item.Candidate))
	if err != nil {
		pc.log.Warnf("failed to parse remote ice candidate %q: %v", item.Candidate, err)
		return
	}
	if err := agent.AddRemoteCandidate(cand); err != nil {
		pc.log.Warnf("failed to add remote ice candidate: %v", err)
	}
}

// AttachICEAgent binds an external ICE agent (out of scope, spec.md §1) to
// one TransportStream session: wires its candidate/state callbacks into the
// signals/state-aggregator boundary and starts gathering, spec.md §4.1.3
// step 5/§4.3.
func (pc *PeerConnection) AttachICEAgent(sessionID int, agent IceAgent) error {
	_, err := pc.queue.SubmitSync(func() (interface{}, error) {
		if pc.isClosedLocked() {
			return nil, ErrConnectionClosed
		}
		pc.ice.attachAgent(sessionID, agent)
		ts := pc.transports.findOrCreate(sessionID)

		agent.OnCandidate(func(c ice.Candidate) {
			pc.handleLocalCandidate(sessionID, ts, c)
		})
		agent.OnConnectionStateChange(func(s ice.ConnectionState) {
			pc.handleICEConnectionStateChange(ts, s)
		})

		ts.setICEGatheringState(ICEGatheringStateGathering)
		pc.fireICEGatheringStateChange(ICEGatheringStateGathering)

		return nil, agent.GatherCandidates()
	})
	return err
}

// handleLocalCandidate implements spec.md §4.3's local-candidate delivery: a
// nil candidate from the agent signals end-of-gathering for this mline.
func (pc *PeerConnection) handleLocalCandidate(sessionID int, ts *TransportStream, c ice.Candidate) {
	if c == nil {
		ts.setICEGatheringState(ICEGatheringStateComplete)
		pc.fireICEGatheringStateChange(pc.ICEGatheringState())
		return
	}
	pc.ice.queueLocalCandidate(IceCandidateItem{MlineIndex: sessionID, Candidate: c.Marshal()})
	pc.fireICECandidate(uint32(sessionID), c.Marshal())
}

func (pc *PeerConnection) handleICEConnectionStateChange(ts *TransportStream, s ice.ConnectionState) {
	ts.setICEConnectionState(mapICEConnectionState(s))
	pc.fireICEConnectionStateChange(pc.ICEConnectionState())
	pc.fireConnectionStateChange(pc.ConnectionState())
}

func (pc *PeerConnection) isClosedLocked() bool {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.closed
}

// setNeedNegotiation implements spec.md §4.1.3 step 8's recompute-and-fire
// behaviour; callers must hold no lock beyond the task queue's implicit
// serialization.
func (pc *PeerConnection) setNeedNegotiation(need bool) {
	pc.mu.Lock()
	pc.needNegotiation = need
	pc.mu.Unlock()
	if need {
		pc.fireNegotiationNeeded()
	}
}

// Close implements spec.md §4.5/§5's shutdown: mark closed, drain the task
// queue (failing every pending task with invalid-state), close every data
// channel's SCTP stream and the association.
func (pc *PeerConnection) Close() error {
	pc.mu.Lock()
	if pc.closed {
		pc.mu.Unlock()
		return nil
	}
	pc.closed = true
	pc.signalingState = SignalingStateClosed
	pc.mu.Unlock()

	pc.queue.Close()

	pc.dcLock.Lock()
	channels := make([]*DataChannel, 0, len(pc.dataChannels))
	for _, dc := range pc.dataChannels {
		channels = append(channels, dc)
	}
	pc.dcLock.Unlock()
	for _, dc := range channels {
		_ = dc.Close()
	}

	return pc.sctp.Close()
}
