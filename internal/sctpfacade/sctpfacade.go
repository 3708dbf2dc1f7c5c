// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package sctpfacade narrows github.com/pion/sctp's Association/Stream
// surface to exactly what the "SCTP association facade" component of
// spec.md §2/§4.5 consumes: "send on stream id N with PPID/ordering/
// reliability" and "receive on stream id N". The concrete SCTP association
// implementation is explicitly out of scope (spec.md §1); this package is
// the defined interface boundary plus an in-memory fake for tests.
package sctpfacade

import "github.com/pion/sctp"

// ReliabilityType mirrors github.com/pion/sctp's ReliabilityType, selecting
// how a stream's outbound messages are retransmitted.
type ReliabilityType = sctp.ReliabilityType

// PPID mirrors github.com/pion/sctp's PayloadProtocolIdentifier.
type PPID = sctp.PayloadProtocolIdentifier

// Reliability type constants, re-exported from github.com/pion/sctp so
// callers never need to import it directly, spec.md §1's external
// collaborator boundary.
const (
	ReliabilityTypeReliable = sctp.ReliabilityTypeReliable
	ReliabilityTypeRexmit   = sctp.ReliabilityTypeRexmit
	ReliabilityTypeTimed    = sctp.ReliabilityTypeTimed
)

// SendParams is the per-message metadata attached to an outbound SCTP
// buffer, spec.md §4.5.5 ("send-metadata for SCTP outbound").
type SendParams struct {
	PPID                 PPID
	Unordered            bool
	ReliabilityType      ReliabilityType
	ReliabilityParameter uint32
}

// Stream is the narrow per-data-channel-stream interface the data channel
// manager drives; shaped after *sctp.Stream.
type Stream interface {
	StreamIdentifier() uint16
	SetReliabilityParams(unordered bool, relType ReliabilityType, relParameter uint32)
	WriteSCTP(payload []byte, ppid PPID) (int, error)
	ReadSCTP(buf []byte) (int, PPID, error)
	Close() error
}

// Association is the narrow interface the SCTP association facade (§4.5.4's
// "SCTP max-channels limit", §4.5.5's "max-message-size") drives against the
// external library; shaped after *sctp.Association.
type Association interface {
	OpenStream(streamIdentifier uint16, defaultPayloadType PPID) (Stream, error)
	// AcceptStream blocks until the peer opens a new stream, or the
	// association closes, spec.md §4.5.1's "Receive (remote-initiated)".
	AcceptStream() (Stream, error)
	MaxMessageSize() uint32
	MaxDataChannels() uint16 // 0 means unknown; caller defaults to 65534 per spec.md §4.5.4
	Close() error
}
