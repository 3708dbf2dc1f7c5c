// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import "sync"

// RTPTransceiver is the negotiation-level pairing of an RTP sender and
// receiver at one m-line, spec.md §3.
type RTPTransceiver struct {
	mu sync.Mutex

	id int // dense arena id, spec.md §9

	mid        string
	pendingMid string
	mline      int // -1 until associated

	kind RTPTransceiverKind

	direction        RTPTransceiverDirection
	currentDirection RTPTransceiverDirection

	codecPreferences []CodecCapability

	mlineLocked bool
	stopped     bool

	doNack  bool
	fecType FECType

	localRTXSSRCMap map[uint32]uint32 // original ssrc -> rtx ssrc, keyed by rtx pt for allocation bookkeeping
	rtxSSRCsByPT    map[uint8]uint32

	transportSessionID int // which TransportStream this transceiver routes through; -1 if unbound

	hasSinkPad   bool
	hasSourcePad bool
}

func newRTPTransceiver(id int, kind RTPTransceiverKind, direction RTPTransceiverDirection) *RTPTransceiver {
	return &RTPTransceiver{
		id:                  id,
		mline:               -1,
		kind:                kind,
		direction:           direction,
		currentDirection:    RTPTransceiverDirectionInactive,
		localRTXSSRCMap:     map[uint32]uint32{},
		rtxSSRCsByPT:        map[uint8]uint32{},
		transportSessionID:  -1,
	}
}

// associated reports whether both mid and mline are set, per the invariant
// in spec.md §3: a non-stopped transceiver either has both set or neither.
func (t *RTPTransceiver) associated() bool {
	return t.mid != "" && t.mline >= 0
}

func (t *RTPTransceiver) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Stop marks the transceiver stopped. Transceivers are never removed from
// the registry (spec.md §3 lifecycle note).
func (t *RTPTransceiver) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *RTPTransceiver) Mid() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mid
}

func (t *RTPTransceiver) Direction() RTPTransceiverDirection {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.direction
}

func (t *RTPTransceiver) SetDirection(d RTPTransceiverDirection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.direction = d
}

func (t *RTPTransceiver) Kind() RTPTransceiverKind {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.kind
}

// setKind enforces the monotonic-from-unknown invariant of spec.md §3.
func (t *RTPTransceiver) setKind(k RTPTransceiverKind) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.kind == RTPTransceiverKindUnknown {
		t.kind = k
		return nil
	}
	if t.kind != k && k != RTPTransceiverKindUnknown {
		return fail(ErrInvalidModification, "transceiver kind cannot change from %s to %s", t.kind, k)
	}
	return nil
}

// addLocalRTXSSRC generates and records a random rtx ssrc for the given RTX
// payload type, spec.md §4.2 step 4.
func (t *RTPTransceiver) addLocalRTXSSRC(rtxPT uint8) error {
	ssrc, err := randomSSRC()
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rtxSSRCsByPT[rtxPT] = ssrc
	return nil
}

// transceiverRegistry is the ordered, id-indexed arena of transceivers,
// spec.md §9 (ids not pointers, to trivialise iterate-during-mutation under
// the single pc-lock).
type transceiverRegistry struct {
	items []*RTPTransceiver
}

func newTransceiverRegistry() *transceiverRegistry {
	return &transceiverRegistry{}
}

func (r *transceiverRegistry) add(kind RTPTransceiverKind, direction RTPTransceiverDirection) *RTPTransceiver {
	t := newRTPTransceiver(len(r.items), kind, direction)
	r.items = append(r.items, t)
	return t
}

func (r *transceiverRegistry) all() []*RTPTransceiver {
	out := make([]*RTPTransceiver, len(r.items))
	copy(out, r.items)
	return out
}

func (r *transceiverRegistry) byMid(mid string) *RTPTransceiver {
	if mid == "" {
		return nil
	}
	for _, t := range r.items {
		t.mu.Lock()
		match := t.mid == mid
		t.mu.Unlock()
		if match {
			return t
		}
	}
	return nil
}

func (r *transceiverRegistry) byPendingOrMid(mid string) *RTPTransceiver {
	if mid == "" {
		return nil
	}
	for _, t := range r.items {
		t.mu.Lock()
		match := t.mid == mid || t.pendingMid == mid
		t.mu.Unlock()
		if match {
			return t
		}
	}
	return nil
}

func (r *transceiverRegistry) byMlineLock(mline int) *RTPTransceiver {
	for _, t := range r.items {
		t.mu.Lock()
		match := t.mlineLocked && t.mline == mline
		t.mu.Unlock()
		if match {
			return t
		}
	}
	return nil
}

// firstUnassociatedAny returns the first non-stopped, unassociated,
// non-mline-locked transceiver regardless of kind, for offer-building's
// second pass over whatever transceivers remain unassigned an m-line.
func (r *transceiverRegistry) firstUnassociatedAny() *RTPTransceiver {
	for _, t := range r.items {
		t.mu.Lock()
		eligible := !t.stopped && !t.associated() && !t.mlineLocked
		t.mu.Unlock()
		if eligible {
			return t
		}
	}
	return nil
}

// firstUnassociated returns the first non-stopped, unassociated transceiver
// whose kind either matches want or is still unknown.
func (r *transceiverRegistry) firstUnassociated(want RTPTransceiverKind) *RTPTransceiver {
	var fallback *RTPTransceiver
	for _, t := range r.items {
		t.mu.Lock()
		eligible := !t.stopped && !t.associated() && !t.mlineLocked
		kind := t.kind
		t.mu.Unlock()
		if !eligible {
			continue
		}
		if kind == want {
			return t
		}
		if kind == RTPTransceiverKindUnknown && fallback == nil {
			fallback = t
		}
	}
	return fallback
}
