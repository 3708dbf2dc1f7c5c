// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package sctpfacade

import (
	"fmt"
	"sync"
)

// FakeAssociation is an in-memory Association used by webrtcbin's tests, in
// place of a real pion/sctp association (out of scope per spec.md §1).
type FakeAssociation struct {
	mu              sync.Mutex
	streams         map[uint16]*FakeStream
	maxMessageSize  uint32
	maxDataChannels uint16
	Sent            []FakeSentMessage

	accept chan *FakeStream
	closed bool
}

// FakeSentMessage records one WriteSCTP call for assertions in tests.
type FakeSentMessage struct {
	StreamID uint16
	Payload  []byte
	PPID     PPID
}

func NewFakeAssociation(maxMessageSize uint32) *FakeAssociation {
	return &FakeAssociation{
		streams:        map[uint16]*FakeStream{},
		maxMessageSize: maxMessageSize,
		accept:         make(chan *FakeStream, 16),
	}
}

func (a *FakeAssociation) OpenStream(id uint16, defaultPPID PPID) (Stream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.streams[id]; ok {
		return s, nil
	}
	s := newFakeStream(id, a)
	a.streams[id] = s
	return s, nil
}

// AcceptStream blocks until a remote-initiated stream is simulated via
// SimulateIncomingStream, or the association is closed.
func (a *FakeAssociation) AcceptStream() (Stream, error) {
	s, ok := <-a.accept
	if !ok {
		return nil, fmt.Errorf("sctpfacade: association closed")
	}
	return s, nil
}

func (a *FakeAssociation) MaxMessageSize() uint32  { return a.maxMessageSize }
func (a *FakeAssociation) MaxDataChannels() uint16 { return a.maxDataChannels }

func (a *FakeAssociation) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.closed = true
		close(a.accept)
	}
	return nil
}

func (a *FakeAssociation) record(m FakeSentMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Sent = append(a.Sent, m)
}

// SimulateIncomingStream registers (or reuses) an inbound stream with id and
// hands it to the next AcceptStream call, for tests exercising the
// remote-initiated data channel path.
func (a *FakeAssociation) SimulateIncomingStream(id uint16) *FakeStream {
	a.mu.Lock()
	s, ok := a.streams[id]
	if !ok {
		s = newFakeStream(id, a)
		a.streams[id] = s
	}
	a.mu.Unlock()
	a.accept <- s
	return s
}

// fakeInboundMessage is one queued ReadSCTP result.
type fakeInboundMessage struct {
	payload []byte
	ppid    PPID
}

// FakeStream is an in-memory Stream backing FakeAssociation.
type FakeStream struct {
	id      uint16
	assoc   *FakeAssociation
	mu      sync.Mutex
	closed  bool
	inbound chan fakeInboundMessage
}

func newFakeStream(id uint16, assoc *FakeAssociation) *FakeStream {
	return &FakeStream{id: id, assoc: assoc, inbound: make(chan fakeInboundMessage, 16)}
}

func (s *FakeStream) StreamIdentifier() uint16 { return s.id }

func (s *FakeStream) SetReliabilityParams(unordered bool, relType ReliabilityType, relParameter uint32) {
}

func (s *FakeStream) WriteSCTP(payload []byte, ppid PPID) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, fmt.Errorf("sctpfacade: stream %d closed", s.id)
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	s.assoc.record(FakeSentMessage{StreamID: s.id, Payload: buf, PPID: ppid})
	return len(payload), nil
}

// ReadSCTP blocks until a message is queued via DeliverIncoming, or the
// stream is closed.
func (s *FakeStream) ReadSCTP(buf []byte) (int, PPID, error) {
	msg, ok := <-s.inbound
	if !ok {
		return 0, 0, fmt.Errorf("sctpfacade: stream %d closed", s.id)
	}
	n := copy(buf, msg.payload)
	return n, msg.ppid, nil
}

// DeliverIncoming queues a message that a subsequent ReadSCTP call on this
// stream will return, simulating the remote peer sending on it.
func (s *FakeStream) DeliverIncoming(payload []byte, ppid PPID) {
	s.inbound <- fakeInboundMessage{payload: payload, ppid: ppid}
}

func (s *FakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.inbound)
	}
	return nil
}
