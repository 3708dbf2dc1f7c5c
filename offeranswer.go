// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/pion/randutil"
	"github.com/pion/sdp/v3"
)

const iceCredentialCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const dataChannelMediaLabel = "data"

// generateICEUfrag/generateICEPwd produce fresh per-TransportStream ICE
// credentials, spec.md §4.1.1 step 2 ("generating fresh credentials").
// Grounded on rtpsender.go's use of the same generator for track ids.
func generateICEUfrag() (string, error) {
	return randutil.GenerateCryptoRandomString(8, iceCredentialCharset)
}

func generateICEPwd() (string, error) {
	return randutil.GenerateCryptoRandomString(24, iceCredentialCharset)
}

// generateFingerprint produces a stand-in sha-256 certificate fingerprint.
// Real certificate generation is out of scope (spec.md §1 Non-goals); the
// core still needs a wire-format value for every a=fingerprint line, so a
// random digest is generated once per PeerConnection lifetime.
func generateFingerprint() (string, error) {
	nonce, err := randutil.GenerateCryptoRandomString(32, iceCredentialCharset)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(nonce))
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":"), nil
}

func generateMid(kind RTPTransceiverKind, counter int) string {
	return fmt.Sprintf("%s%d", mediaNameForKind(kind), counter)
}

// CreateOffer implements spec.md §4.1.1.
func (pc *PeerConnection) CreateOffer(options *OfferOptions) (*SessionDescription, error) {
	v, err := pc.queue.SubmitSync(func() (interface{}, error) {
		if pc.isClosedLocked() {
			return nil, ErrConnectionClosed
		}
		return pc.createOfferLocked()
	})
	if err != nil {
		return nil, err
	}
	return v.(*SessionDescription), nil
}

func (pc *PeerConnection) bundled() bool {
	return pc.config.BundlePolicy == BundlePolicyMaxBundle || pc.config.BundlePolicy == BundlePolicyMaxCompat
}

// bundleLeaderCredentials reuses the previous offer's leader ufrag/pwd, or
// generates fresh ones, spec.md §4.1.1 step 2.
func (pc *PeerConnection) bundleLeaderCredentials() (string, string, error) {
	if len(pc.offerLastSections) > 0 {
		for _, s := range pc.offerLastSections {
			if !s.rejected && s.iceUfrag != "" {
				return s.iceUfrag, s.icePwd, nil
			}
		}
	}
	ufrag, err := generateICEUfrag()
	if err != nil {
		return "", "", err
	}
	pwd, err := generateICEPwd()
	if err != nil {
		return "", "", err
	}
	return ufrag, pwd, nil
}

func (pc *PeerConnection) hasDataChannels() bool {
	pc.dcLock.Lock()
	defer pc.dcLock.Unlock()
	return len(pc.dataChannels) > 0
}

func hasDataChannelSection(sections []*mediaSection) bool {
	for _, s := range sections {
		if s.isDataChannel {
			return true
		}
	}
	return false
}

// createOfferLocked builds a fresh offer per spec.md §4.1.1. The caller
// must be running inside a task (the task queue is this engine's pc-lock).
func (pc *PeerConnection) createOfferLocked() (*SessionDescription, error) {
	pc.mu.Lock()
	pc.offerCount++
	sessVersion := uint64(pc.offerCount)
	pc.mu.Unlock()

	sessID := pc.sessionIDLocked()
	bundled := pc.bundled()

	leaderUfrag, leaderPwd, err := pc.bundleLeaderCredentials()
	if err != nil {
		return nil, err
	}

	allocator := newPayloadTypeAllocator()
	usedMids := map[string]bool{}
	reservedMids := map[string]bool{}

	var sections []*mediaSection
	var bundleMids []string

	// Step 3: first pass, renegotiate existing m-lines.
	for i, prev := range pc.offerLastSections {
		var ms *mediaSection
		if prev.isDataChannel {
			ms = pc.buildDataChannelSection(prev.mid, leaderUfrag, leaderPwd)
		} else if t := pc.transceivers.byPendingOrMid(prev.mid); t != nil && !t.Stopped() {
			ms, err = pc.buildMediaSectionForOffer(t, prev.mid, prev.setup, leaderUfrag, leaderPwd, allocator)
			if err != nil {
				return nil, err
			}
		} else {
			ms = &mediaSection{mid: prev.mid, kind: prev.kind, rejected: true}
		}
		ms.bundleOnly = bundled && i > 0
		sections = append(sections, ms)
		usedMids[ms.mid] = true
		if !ms.rejected {
			bundleMids = append(bundleMids, ms.mid)
		}
	}

	// Step 4: gather reserved mids from remaining transceivers.
	for _, t := range pc.transceivers.all() {
		t.mu.Lock()
		mid, pending := t.mid, t.pendingMid
		t.mu.Unlock()
		if mid != "" {
			reservedMids[mid] = true
		}
		if pending != "" {
			reservedMids[pending] = true
		}
	}

	// Step 5: second pass, extend.
	mline := len(sections)
	midCounters := map[RTPTransceiverKind]int{}
	dataChannelEmitted := hasDataChannelSection(pc.offerLastSections)

	for {
		t := pc.transceivers.byMlineLock(mline)
		if t == nil {
			t = pc.transceivers.firstUnassociatedAny()
		}

		if t == nil {
			if !dataChannelEmitted && pc.hasDataChannels() {
				mid := uniqueDataChannelMid(usedMids)
				ms := pc.buildDataChannelSection(mid, leaderUfrag, leaderPwd)
				ms.bundleOnly = bundled && mline > 0
				sections = append(sections, ms)
				usedMids[mid] = true
				bundleMids = append(bundleMids, mid)
				dataChannelEmitted = true
				mline++
				continue
			}
			break
		}

		mid := pc.assignMid(t, reservedMids, usedMids, midCounters)
		if usedMids[mid] {
			return nil, fail(ErrInvalidModification, "mid %q collides within this offer", mid)
		}
		usedMids[mid] = true

		t.mu.Lock()
		t.mid = mid
		t.mline = mline
		t.mu.Unlock()

		ms, err := pc.buildMediaSectionForOffer(t, mid, SetupRoleActpass, leaderUfrag, leaderPwd, allocator)
		if err != nil {
			return nil, err
		}
		ms.bundleOnly = bundled && mline > 0
		sections = append(sections, ms)
		bundleMids = append(bundleMids, mid)
		mline++
	}

	raw, err := pc.renderSessionDescription(sessID, sessVersion, sections, bundleMids)
	if err != nil {
		return nil, err
	}

	offer := &SessionDescription{Type: SDPTypeOffer, SDP: raw}

	pc.mu.Lock()
	pc.lastOffer = offer
	pc.offerLastSections = sections
	pc.mu.Unlock()

	return offer, nil
}

// assignMid implements spec.md §4.1.1 step 5's mid-assignment rule: the
// first of (existing mid, existing pending-mid not reserved, auto-generated)
// that is unique.
func (pc *PeerConnection) assignMid(t *RTPTransceiver, reserved, used map[string]bool, counters map[RTPTransceiverKind]int) string {
	t.mu.Lock()
	mid, pending, kind := t.mid, t.pendingMid, t.kind
	t.mu.Unlock()

	if mid != "" && !used[mid] {
		return mid
	}
	if pending != "" && !used[pending] {
		return pending
	}
	for {
		candidate := generateMid(kind, counters[kind])
		counters[kind]++
		if !used[candidate] && !reserved[candidate] {
			return candidate
		}
	}
}

func uniqueDataChannelMid(used map[string]bool) string {
	if !used[dataChannelMediaLabel] {
		return dataChannelMediaLabel
	}
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("%s%d", dataChannelMediaLabel, i)
		if !used[candidate] {
			return candidate
		}
	}
}

func (pc *PeerConnection) buildDataChannelSection(mid, ufrag, pwd string) *mediaSection {
	return &mediaSection{
		mid:              mid,
		isDataChannel:    true,
		setup:            SetupRoleActpass,
		iceUfrag:         ufrag,
		icePwd:           pwd,
		fingerprintAlgo:  pc.localFingerprintAlgo,
		fingerprintValue: pc.localFingerprintValue,
		sctpPort:         5000,
		maxMessageSize:   pc.sctp.MaxMessageSize(),
	}
}

// buildMediaSectionForOffer builds one outgoing RTP media section from a
// transceiver's codec preferences, spec.md §4.1.1 step 5 + §4.2.
func (pc *PeerConnection) buildMediaSectionForOffer(t *RTPTransceiver, mid string, setup SetupRole, ufrag, pwd string, allocator *payloadTypeAllocator) (*mediaSection, error) {
	t.mu.Lock()
	kind := t.kind
	direction := t.direction
	prefs := append([]CodecCapability(nil), t.codecPreferences...)
	t.mu.Unlock()

	ms := &mediaSection{
		mid:              mid,
		kind:             kind,
		direction:        direction,
		setup:            setup,
		iceUfrag:         ufrag,
		icePwd:           pwd,
		fingerprintAlgo:  pc.localFingerprintAlgo,
		fingerprintValue: pc.localFingerprintValue,
		rtcpMux:          true,
		rtcpRsize:        true,
	}

	for _, codec := range prefs {
		pts, entries, err := allocator.allocateForTransceiver(t, codec)
		if err != nil {
			return nil, err
		}
		ms.payloadTypes = append(ms.payloadTypes, entries...)
		_ = pts
	}

	return ms, nil
}

// renderSessionDescription assembles the final SDP text, spec.md §6.1.
func (pc *PeerConnection) renderSessionDescription(sessID, sessVersion uint64, sections []*mediaSection, bundleMids []string) (string, error) {
	sd := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      sessID,
			SessionVersion: sessVersion,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: "0.0.0.0",
		},
		SessionName:      "-",
		TimeDescriptions: []sdp.TimeDescription{{Timing: sdp.Timing{StartTime: 0, StopTime: 0}}},
	}
	sd.WithPropertyAttribute(attrKeyICEOptions + ":trickle")
	if len(bundleMids) > 0 {
		sd.WithValueAttribute(attrKeyGroup, groupSemanticBundle+" "+strings.Join(bundleMids, " "))
	}

	for _, ms := range sections {
		md, err := buildMediaDescription(ms)
		if err != nil {
			return "", err
		}
		sd.MediaDescriptions = append(sd.MediaDescriptions, md)
	}

	raw, err := sd.Marshal()
	if err != nil {
		return "", fail(ErrInternalFailure, "marshal session description: %v", err)
	}
	return string(raw), nil
}

// sessionIDLocked reuses the session-id from the last generated offer, or
// mints a fresh random one, spec.md §4.1.1 step 1.
func (pc *PeerConnection) sessionIDLocked() uint64 {
	pc.mu.RLock()
	last := pc.lastOffer
	pc.mu.RUnlock()
	if last != nil {
		if parsed, err := last.Unmarshal(); err == nil {
			return parsed.Origin.SessionID
		}
	}
	// Combine two Math-random uint32s into a session-id, grounded on
	// sdp_helper.go's identical construction.
	gen := randutil.NewMathRandomGenerator()
	hi, lo := uint64(gen.Uint32()), uint64(gen.Uint32())
	return (hi<<32 | lo) & 0x7FFFFFFFFFFFFFFF
}

// CreateAnswer implements spec.md §4.1.2.
func (pc *PeerConnection) CreateAnswer(options *AnswerOptions) (*SessionDescription, error) {
	v, err := pc.queue.SubmitSync(func() (interface{}, error) {
		if pc.isClosedLocked() {
			return nil, ErrConnectionClosed
		}
		return pc.createAnswerLocked()
	})
	if err != nil {
		return nil, err
	}
	return v.(*SessionDescription), nil
}

func (pc *PeerConnection) createAnswerLocked() (*SessionDescription, error) {
	pc.mu.RLock()
	remote := pc.pendingRemote
	pc.mu.RUnlock()
	if remote == nil {
		return nil, fail(ErrInvalidState, "create-answer requires a pending remote offer")
	}

	remoteParsed, err := remote.Unmarshal()
	if err != nil {
		return nil, err
	}
	remoteSections := make([]*mediaSection, 0, len(remoteParsed.MediaDescriptions))
	for _, md := range remoteParsed.MediaDescriptions {
		ms, err := parseMediaSection(md)
		if err != nil {
			return nil, err
		}
		if ms.rid != "" {
			return nil, fail(ErrSDPSyntax, "a=rid / simulcast is not supported")
		}
		remoteSections = append(remoteSections, ms)
	}

	leaderIndex := -1
	for i, ms := range remoteSections {
		if !ms.rejected {
			leaderIndex = i
			break
		}
	}

	allocator := newPayloadTypeAllocator()
	usedMids := map[string]bool{}
	var answerSections []*mediaSection
	var bundleMids []string
	bundled := pc.bundled()

	for i, remoteMS := range remoteSections {
		if remoteMS.rejected {
			answerSections = append(answerSections, &mediaSection{mid: remoteMS.mid, kind: remoteMS.kind, rejected: true, isDataChannel: remoteMS.isDataChannel})
			continue
		}

		localSetup, err := intersectSetup(SetupRoleActpass, remoteMS.setup)
		if err != nil {
			return nil, err
		}

		var ms *mediaSection
		if remoteMS.isDataChannel {
			ms = pc.buildDataChannelSection(remoteMS.mid, remoteMS.iceUfrag, remoteMS.icePwd)
			ms.setup = localSetup
			ms.maxMessageSize = minNonZero(ms.maxMessageSize, remoteMS.maxMessageSize)
		} else {
			direction := RTPTransceiverDirectionSendrecv.intersect(remoteMS.direction)
			if direction == RTPTransceiverDirectionNone {
				answerSections = append(answerSections, &mediaSection{mid: remoteMS.mid, kind: remoteMS.kind, rejected: true})
				continue
			}

			t := pc.findOrSynthesizeTransceiver(remoteMS)
			if t == nil {
				answerSections = append(answerSections, &mediaSection{mid: remoteMS.mid, kind: remoteMS.kind, rejected: true})
				continue
			}

			intersected := intersectCodecs(t.codecPreferences, remoteMS.payloadTypes)
			if len(intersected) == 0 {
				answerSections = append(answerSections, &mediaSection{mid: remoteMS.mid, kind: remoteMS.kind, rejected: true})
				continue
			}

			t.mu.Lock()
			t.mid = remoteMS.mid
			t.mline = i
			t.direction = direction
			t.codecPreferences = intersected
			t.mu.Unlock()

			ms, err = pc.buildMediaSectionForOffer(t, remoteMS.mid, localSetup, remoteMS.iceUfrag, remoteMS.icePwd, allocator)
			if err != nil {
				return nil, err
			}
			ms.direction = direction
		}

		ms.bundleOnly = bundled && i != leaderIndex
		answerSections = append(answerSections, ms)
		usedMids[ms.mid] = true
		bundleMids = append(bundleMids, ms.mid)
	}

	sessVersion := uint64(1)
	pc.mu.RLock()
	if pc.lastAnswer != nil {
		sessVersion = 2 // answers never reuse sess-id across renegotiations in this engine; version is informational only
	}
	pc.mu.RUnlock()

	raw, err := pc.renderSessionDescription(pc.sessionIDLocked(), sessVersion, answerSections, bundleMids)
	if err != nil {
		return nil, err
	}

	answer := &SessionDescription{Type: SDPTypeAnswer, SDP: raw}

	pc.mu.Lock()
	pc.lastAnswer = answer
	pc.mu.Unlock()

	// The answerer is always ICE-controlled for the initial answer, spec.md
	// §4.1.2 step 7.
	pc.ice.establishController(false, isIceLite(remoteParsed))

	return answer, nil
}

func minNonZero(a, b uint64) uint64 {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	case a < b:
		return a
	default:
		return b
	}
}

// findOrSynthesizeTransceiver implements spec.md §4.1.2 step 4.
func (pc *PeerConnection) findOrSynthesizeTransceiver(remoteMS *mediaSection) *RTPTransceiver {
	if remoteMS.mid != "" {
		if t := pc.transceivers.byMid(remoteMS.mid); t != nil {
			return t
		}
	}
	if t := pc.transceivers.firstUnassociated(remoteMS.kind); t != nil {
		return t
	}
	t := pc.transceivers.add(remoteMS.kind, RTPTransceiverDirectionRecvonly)
	t.mu.Lock()
	t.codecPreferences = codecsFromRemote(remoteMS.payloadTypes)
	t.mu.Unlock()
	return t
}

// codecsFromRemote converts parsed payloadTypeEntry rows back into
// CodecCapability rows for a synthesized transceiver.
func codecsFromRemote(entries []payloadTypeEntry) []CodecCapability {
	out := make([]CodecCapability, 0, len(entries))
	for _, e := range entries {
		if e.name == "rtx" || e.name == "red" || e.name == "ulpfec" {
			continue
		}
		out = append(out, CodecCapability{
			PayloadType: e.pt,
			MimeType:    e.name,
			ClockRate:   e.clockRate,
			Channels:    e.channels,
			SDPFmtpLine: e.fmtpParams,
		})
	}
	return out
}

// intersectCodecs implements spec.md §4.1.2 step 5: keep local preferences
// whose mime type also appears among the remote-offered payload types.
func intersectCodecs(local []CodecCapability, remote []payloadTypeEntry) []CodecCapability {
	remoteNames := map[string]uint8{}
	for _, e := range remote {
		if e.name == "rtx" || e.name == "red" || e.name == "ulpfec" {
			continue
		}
		remoteNames[strings.ToLower(e.name)] = e.pt
	}
	var out []CodecCapability
	for _, c := range local {
		if pt, ok := remoteNames[strings.ToLower(c.name())]; ok {
			cc := c
			cc.PayloadType = pt
			out = append(out, cc)
		}
	}
	return out
}

// SetLocalDescription implements the local half of spec.md §4.1.3.
func (pc *PeerConnection) SetLocalDescription(desc SessionDescription) error {
	_, err := pc.queue.SubmitSync(func() (interface{}, error) {
		return nil, pc.setDescriptionLocked(sdpSourceLocal, desc)
	})
	return err
}

// SetRemoteDescription implements the remote half of spec.md §4.1.3.
func (pc *PeerConnection) SetRemoteDescription(desc SessionDescription) error {
	_, err := pc.queue.SubmitSync(func() (interface{}, error) {
		return nil, pc.setDescriptionLocked(sdpSourceRemote, desc)
	})
	return err
}

// setDescriptionLocked implements the shared set-description procedure of
// spec.md §4.1.3.
func (pc *PeerConnection) setDescriptionLocked(source sdpSource, desc SessionDescription) error {
	if pc.isClosedLocked() {
		return ErrConnectionClosed
	}

	pc.mu.RLock()
	current := pc.signalingState
	pc.mu.RUnlock()

	next, err := nextSignalingState(current, source, desc.Type)
	if err != nil {
		return err
	}

	parsed, err := desc.Unmarshal()
	if err != nil {
		return err
	}

	sections := make([]*mediaSection, 0, len(parsed.MediaDescriptions))
	for _, md := range parsed.MediaDescriptions {
		ms, err := parseMediaSection(md)
		if err != nil {
			return err
		}
		sections = append(sections, ms)
	}

	// Validate mline-locked transceivers, spec.md §4.1.3 validation step.
	for i, ms := range sections {
		if t := pc.transceivers.byMlineLock(i); t != nil {
			if t.Mid() != "" && t.Mid() != ms.mid {
				return fail(ErrInvalidModification, "mline %d is locked to a different mid", i)
			}
		}
	}

	pc.mu.Lock()
	switch desc.Type {
	case SDPTypeOffer:
		if source == sdpSourceLocal {
			pc.pendingLocal = &desc
		} else {
			pc.pendingRemote = &desc
		}
	case SDPTypeAnswer:
		if source == sdpSourceLocal {
			pc.currentLocal = &desc
			pc.pendingLocal = nil
			pc.currentRemote = pc.pendingRemote
			pc.pendingRemote = nil
		} else {
			pc.currentRemote = &desc
			pc.pendingRemote = nil
			pc.currentLocal = pc.pendingLocal
			pc.pendingLocal = nil
		}
	case SDPTypePranswer:
		if source == sdpSourceLocal {
			pc.pendingLocal = &desc
		} else {
			pc.pendingRemote = &desc
		}
	case SDPTypeRollback:
		if source == sdpSourceLocal {
			pc.pendingLocal = nil
		} else {
			pc.pendingRemote = nil
		}
	}
	pc.signalingState = next
	pc.mu.Unlock()

	pc.fireSignalingStateChange(next)

	pc.mu.RLock()
	snapshotCurrentLocal, snapshotCurrentRemote := pc.currentLocal, pc.currentRemote
	pc.mu.RUnlock()

	bundleLeader := -1
	for i, ms := range sections {
		if !ms.rejected {
			bundleLeader = i
			break
		}
	}
	pc.mu.Lock()
	pc.answerBundleLeader = bundleLeader
	pc.mu.Unlock()

	// Apply ICE credentials and remote ssrc entries, spec.md §4.1.3 step 4.
	for i, ms := range sections {
		ts := pc.transportForSection(i, bundleLeader)
		if source == sdpSourceLocal {
			ts.setLocalCredentials(ms.iceUfrag, ms.icePwd)
		} else {
			ts.setRemoteCredentials(ms.iceUfrag, ms.icePwd)
			for _, e := range ms.ssrcEntries {
				e.mid = ms.mid
				ts.addSSRCEntry(e)
			}
		}
	}

	if next == SignalingStateStable {
		var localSections, remoteSections []*mediaSection
		if source == sdpSourceLocal {
			localSections = sections
			if snapshotCurrentRemote != nil {
				if p, err := snapshotCurrentRemote.Unmarshal(); err == nil {
					remoteSections = mustParseMediaSections(p)
				}
			}
		} else {
			remoteSections = sections
			if snapshotCurrentLocal != nil {
				if p, err := snapshotCurrentLocal.Unmarshal(); err == nil {
					localSections = mustParseMediaSections(p)
				}
			}
		}
		if err := pc.updateTransceiversFromSDP(localSections, remoteSections, bundleLeader); err != nil {
			return err
		}
	}

	if source == sdpSourceLocal && (desc.Type == SDPTypeOffer || next == SignalingStateStable) {
		for _, i := range sectionIndices(sections) {
			pc.transportForSection(i, bundleLeader).setActive(true)
		}
	}

	if snapshotCurrentLocal != nil && snapshotCurrentRemote != nil {
		for _, item := range pc.ice.drainRemoteCandidates() {
			pc.applyRemoteCandidate(item)
		}
	}

	remoteIsIceLite := isIceLite(parsed)
	pc.ice.establishController(source == sdpSourceLocal && desc.Type == SDPTypeOffer, remoteIsIceLite)

	if next == SignalingStateStable {
		pc.setNeedNegotiation(false)
	}

	return nil
}

func sectionIndices(sections []*mediaSection) []int {
	out := make([]int, len(sections))
	for i := range sections {
		out[i] = i
	}
	return out
}

func mustParseMediaSections(sd *sdp.SessionDescription) []*mediaSection {
	out := make([]*mediaSection, 0, len(sd.MediaDescriptions))
	for _, md := range sd.MediaDescriptions {
		if ms, err := parseMediaSection(md); err == nil {
			out = append(out, ms)
		}
	}
	return out
}

// transportForSection resolves the TransportStream a media section routes
// through, spec.md §4.1.6: unbundled sections get session-id = mline index;
// bundled sections share the leader's.
func (pc *PeerConnection) transportForSection(i, bundleLeader int) *TransportStream {
	sessionID := i
	if pc.bundled() && bundleLeader >= 0 {
		sessionID = bundleLeader
	}
	return pc.transports.findOrCreate(sessionID)
}

// updateTransceiversFromSDP implements spec.md §4.1.4.
func (pc *PeerConnection) updateTransceiversFromSDP(localSections, remoteSections []*mediaSection, bundleLeader int) error {
	n := len(localSections)
	if len(remoteSections) < n {
		n = len(remoteSections)
	}

	for i := 0; i < n; i++ {
		local, remote := localSections[i], remoteSections[i]
		if local.rejected || remote.rejected {
			continue
		}

		direction := local.direction.intersect(remote.direction)
		if direction == RTPTransceiverDirectionNone {
			return fail(ErrInvalidModification, "mline %d: direction intersection is none", i)
		}
		setup, err := intersectSetup(local.setup, remote.setup)
		if err != nil {
			return fail(ErrInvalidModification, "mline %d: %v", i, err)
		}

		mid := firstNonEmpty(local.mid, remote.mid)

		if local.isDataChannel || remote.isDataChannel {
			sessionID := i
			if pc.bundled() && bundleLeader >= 0 {
				sessionID = bundleLeader
			}
			ts := pc.transports.findOrCreate(sessionID)
			ts.setDTLSClientMode(setup == SetupRoleActive)
			ts.setActive(true)
			pc.mu.Lock()
			pc.isDTLSClient = setup == SetupRoleActive
			pc.dataChannelSessionID = sessionID
			pc.mu.Unlock()
			pc.tryAllocatePendingChannelIDs()
			continue
		}

		t := pc.transceivers.byPendingOrMid(mid)
		if t == nil {
			t = pc.transceivers.byMid(mid)
		}
		if t == nil {
			continue
		}

		t.mu.Lock()
		t.mid = mid
		t.mline = i
		t.currentDirection = direction
		t.mu.Unlock()
		if err := t.setKind(kindFromMediaName(remoteMediaName(remote))); err != nil {
			return err
		}

		sessionID := i
		if pc.bundled() && bundleLeader >= 0 {
			sessionID = bundleLeader
		}
		ts := pc.transports.findOrCreate(sessionID)
		ts.setDTLSClientMode(setup == SetupRoleActive)
		if direction != RTPTransceiverDirectionInactive {
			ts.setActive(true)
		}
		ts.setPayloadTypeMap(i, firstPayloadTypeMapEntry(local.payloadTypes))

		for _, e := range remote.ssrcEntries {
			e.mid = mid
			ts.addSSRCEntry(e)
		}
	}

	return nil
}

func remoteMediaName(ms *mediaSection) string {
	return mediaNameForKind(ms.kind)
}

func firstPayloadTypeMapEntry(entries []payloadTypeEntry) mediaIndexPTs {
	var out mediaIndexPTs
	for _, e := range entries {
		switch e.name {
		case "rtx":
			pt := e.pt
			out.rtxPT = &pt
		case "red":
			pt := e.pt
			out.redPT = &pt
		case "ulpfec":
			pt := e.pt
			out.ulpfecPT = &pt
		default:
			if out.mediaPT == 0 {
				out.mediaPT = e.pt
			}
		}
	}
	return out
}
