// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy in spec.md §7. Call sites wrap these with
// fmt.Errorf("...: %w", ...) rather than inventing new sentinels, so that
// errors.Is keeps working across the task queue boundary.
var (
	// ErrInvalidState is returned when an operation is invalid for the
	// current signaling state or data channel ready-state.
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrInvalidModification is returned when a renegotiation would violate
	// an invariant (e.g. a media section was removed, an mline-locked
	// transceiver's mline moved).
	ErrInvalidModification = errors.New("invalid modification of session description")

	// ErrSDPSyntax is returned when a session description fails to parse.
	ErrSDPSyntax = errors.New("sdp syntax error")

	// ErrInternalFailure covers failures finding/creating a transceiver or
	// an empty codec-preference intersection.
	ErrInternalFailure = errors.New("internal negotiation failure")

	// ErrTypeError covers synchronous application misuse: oversized
	// messages, conflicting reliability parameters, bad channel ids.
	ErrTypeError = errors.New("type error")

	// ErrDataChannelFailure covers DCEP parse errors, unknown PPIDs, and
	// send-pipeline failures; it is delivered to the channel's on-error
	// handler rather than returned synchronously.
	ErrDataChannelFailure = errors.New("data channel failure")

	// ErrConnectionClosed indicates the PeerConnection has already been
	// closed.
	ErrConnectionClosed = errors.New("peerconnection closed")

	// ErrNoSCTPTransport indicates a data channel operation was attempted
	// before any SCTP transport exists.
	ErrNoSCTPTransport = errors.New("no sctp transport")

	// ErrChannelIDExhausted indicates the data channel id space for this
	// controller role parity has been exhausted.
	ErrChannelIDExhausted = errors.New("data channel id space exhausted")

	// ErrChannelIDInUse indicates the requested/negotiated id collides with
	// a live data channel.
	ErrChannelIDInUse = errors.New("data channel id already in use")
)

func fail(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{kind}, args...)...)
}
