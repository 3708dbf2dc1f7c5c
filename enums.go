// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import "github.com/webrtcbin/webrtcbin/internal/dcep"

// SignalingState indicates the signaling state of the offer/answer process,
// per spec.md §3/§4.1.5.
type SignalingState int

const (
	// SignalingStateStable indicates there is no offer/answer exchange in
	// progress. This is also the initial state.
	SignalingStateStable SignalingState = iota + 1
	SignalingStateHaveLocalOffer
	SignalingStateHaveRemoteOffer
	SignalingStateHaveLocalPranswer
	SignalingStateHaveRemotePranswer
	SignalingStateClosed
)

func (s SignalingState) String() string {
	switch s {
	case SignalingStateStable:
		return "stable"
	case SignalingStateHaveLocalOffer:
		return "have-local-offer"
	case SignalingStateHaveRemoteOffer:
		return "have-remote-offer"
	case SignalingStateHaveLocalPranswer:
		return "have-local-pranswer"
	case SignalingStateHaveRemotePranswer:
		return "have-remote-pranswer"
	case SignalingStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// BundlePolicy affects which media tracks are negotiated if the remote
// endpoint is not bundle-aware, and what ICE candidates are gathered.
type BundlePolicy int

const (
	BundlePolicyNone BundlePolicy = iota + 1
	BundlePolicyMaxBundle
	BundlePolicyMaxCompat
)

func (b BundlePolicy) String() string {
	switch b {
	case BundlePolicyNone:
		return "none"
	case BundlePolicyMaxBundle:
		return "max-bundle"
	case BundlePolicyMaxCompat:
		return "max-compat"
	default:
		return "unknown"
	}
}

// ICETransportPolicy defines the ICE candidate policy surface the ice
// coordinator is allowed to use when gathering.
type ICETransportPolicy int

const (
	ICETransportPolicyAll ICETransportPolicy = iota + 1
	ICETransportPolicyRelay
)

func (p ICETransportPolicy) String() string {
	switch p {
	case ICETransportPolicyAll:
		return "all"
	case ICETransportPolicyRelay:
		return "relay"
	default:
		return "unknown"
	}
}

// ICEConnectionState is the aggregate ICE connection state computed per
// spec.md §4.4.
type ICEConnectionState int

const (
	ICEConnectionStateNew ICEConnectionState = iota + 1
	ICEConnectionStateChecking
	ICEConnectionStateConnected
	ICEConnectionStateCompleted
	ICEConnectionStateDisconnected
	ICEConnectionStateFailed
	ICEConnectionStateClosed
)

func (s ICEConnectionState) String() string {
	switch s {
	case ICEConnectionStateNew:
		return "new"
	case ICEConnectionStateChecking:
		return "checking"
	case ICEConnectionStateConnected:
		return "connected"
	case ICEConnectionStateCompleted:
		return "completed"
	case ICEConnectionStateDisconnected:
		return "disconnected"
	case ICEConnectionStateFailed:
		return "failed"
	case ICEConnectionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ICEGatheringState is the aggregate ICE gathering state, spec.md §4.4.
type ICEGatheringState int

const (
	ICEGatheringStateNew ICEGatheringState = iota + 1
	ICEGatheringStateGathering
	ICEGatheringStateComplete
)

func (s ICEGatheringState) String() string {
	switch s {
	case ICEGatheringStateNew:
		return "new"
	case ICEGatheringStateGathering:
		return "gathering"
	case ICEGatheringStateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// DTLSTransportState is the per-transport DTLS state contributing to the
// state aggregator.
type DTLSTransportState int

const (
	DTLSTransportStateNew DTLSTransportState = iota + 1
	DTLSTransportStateConnecting
	DTLSTransportStateConnected
	DTLSTransportStateClosed
	DTLSTransportStateFailed
)

func (s DTLSTransportState) String() string {
	switch s {
	case DTLSTransportStateNew:
		return "new"
	case DTLSTransportStateConnecting:
		return "connecting"
	case DTLSTransportStateConnected:
		return "connected"
	case DTLSTransportStateClosed:
		return "closed"
	case DTLSTransportStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PeerConnectionState is the overall aggregate state, combining ICE and DTLS
// per-transport states, spec.md §4.4.
type PeerConnectionState int

const (
	PeerConnectionStateNew PeerConnectionState = iota + 1
	PeerConnectionStateConnecting
	PeerConnectionStateConnected
	PeerConnectionStateDisconnected
	PeerConnectionStateFailed
	PeerConnectionStateClosed
)

func (s PeerConnectionState) String() string {
	switch s {
	case PeerConnectionStateNew:
		return "new"
	case PeerConnectionStateConnecting:
		return "connecting"
	case PeerConnectionStateConnected:
		return "connected"
	case PeerConnectionStateDisconnected:
		return "disconnected"
	case PeerConnectionStateFailed:
		return "failed"
	case PeerConnectionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// RTPTransceiverDirection indicates the direction intent of a transceiver.
type RTPTransceiverDirection int

const (
	RTPTransceiverDirectionSendrecv RTPTransceiverDirection = iota + 1
	RTPTransceiverDirectionSendonly
	RTPTransceiverDirectionRecvonly
	RTPTransceiverDirectionInactive
	RTPTransceiverDirectionNone
)

func (d RTPTransceiverDirection) String() string {
	switch d {
	case RTPTransceiverDirectionSendrecv:
		return "sendrecv"
	case RTPTransceiverDirectionSendonly:
		return "sendonly"
	case RTPTransceiverDirectionRecvonly:
		return "recvonly"
	case RTPTransceiverDirectionInactive:
		return "inactive"
	case RTPTransceiverDirectionNone:
		return "none"
	default:
		return "unknown"
	}
}

// intersect implements the direction-intersection rules of spec.md §4.1.2
// step 3: sendrecv ∩ sendrecv = sendrecv; sendonly ∩ recvonly = sendonly
// (and mirror); any with inactive = inactive; none ∩ anything = none.
func (d RTPTransceiverDirection) intersect(other RTPTransceiverDirection) RTPTransceiverDirection {
	if d == RTPTransceiverDirectionNone || other == RTPTransceiverDirectionNone {
		return RTPTransceiverDirectionNone
	}
	if d == RTPTransceiverDirectionInactive || other == RTPTransceiverDirectionInactive {
		return RTPTransceiverDirectionInactive
	}

	canSend := func(dir RTPTransceiverDirection) bool {
		return dir == RTPTransceiverDirectionSendrecv || dir == RTPTransceiverDirectionSendonly
	}
	canRecv := func(dir RTPTransceiverDirection) bool {
		return dir == RTPTransceiverDirectionSendrecv || dir == RTPTransceiverDirectionRecvonly
	}

	send := canSend(d) && canRecv(other)
	recv := canRecv(d) && canSend(other)

	switch {
	case send && recv:
		return RTPTransceiverDirectionSendrecv
	case send:
		return RTPTransceiverDirectionSendonly
	case recv:
		return RTPTransceiverDirectionRecvonly
	default:
		return RTPTransceiverDirectionInactive
	}
}

// RTPTransceiverKind narrows the media kind of a transceiver. It is
// monotonic from unknown to a specific value per spec.md §3.
type RTPTransceiverKind int

const (
	RTPTransceiverKindUnknown RTPTransceiverKind = iota
	RTPTransceiverKindAudio
	RTPTransceiverKindVideo
)

func (k RTPTransceiverKind) String() string {
	switch k {
	case RTPTransceiverKindAudio:
		return "audio"
	case RTPTransceiverKindVideo:
		return "video"
	default:
		return "unknown"
	}
}

func kindFromMediaName(media string) RTPTransceiverKind {
	switch media {
	case "audio":
		return RTPTransceiverKindAudio
	case "video":
		return RTPTransceiverKindVideo
	default:
		return RTPTransceiverKindUnknown
	}
}

// DTLSRole mirrors github.com/pion/dtls/v3's client/server role, derived
// from the negotiated SDP a=setup attribute per spec.md §4.1.4.
type DTLSRole int

const (
	DTLSRoleAuto DTLSRole = iota + 1
	DTLSRoleClient
	DTLSRoleServer
)

// SetupRole is the SDP a=setup attribute value.
type SetupRole int

const (
	SetupRoleActpass SetupRole = iota + 1
	SetupRoleActive
	SetupRolePassive
)

func (s SetupRole) String() string {
	switch s {
	case SetupRoleActpass:
		return "actpass"
	case SetupRoleActive:
		return "active"
	case SetupRolePassive:
		return "passive"
	default:
		return "unknown"
	}
}

func parseSetupRole(s string) (SetupRole, error) {
	switch s {
	case "actpass":
		return SetupRoleActpass, nil
	case "active":
		return SetupRoleActive, nil
	case "passive":
		return SetupRolePassive, nil
	default:
		return 0, fail(ErrSDPSyntax, "unknown a=setup value %q", s)
	}
}

// intersect implements spec.md §4.1.2/§4.1.3 setup intersection: remote
// actpass -> local active; remote active -> local passive; remote passive
// -> local active. Symmetric helper used by both offerer and answerer paths.
func intersectSetup(local, remote SetupRole) (SetupRole, error) {
	switch remote {
	case SetupRoleActpass:
		if local == SetupRoleActpass {
			return SetupRoleActive, nil
		}
		return local, nil
	case SetupRoleActive:
		return SetupRolePassive, nil
	case SetupRolePassive:
		return SetupRoleActive, nil
	default:
		return 0, fail(ErrInternalFailure, "invalid remote setup role")
	}
}

// PriorityType is the priority of a data channel, spec.md §4.5.2.
type PriorityType int

const (
	PriorityTypeVeryLow PriorityType = iota + 1
	PriorityTypeLow
	PriorityTypeMedium
	PriorityTypeHigh
)

func (p PriorityType) String() string {
	switch p {
	case PriorityTypeVeryLow:
		return "very-low"
	case PriorityTypeLow:
		return "low"
	case PriorityTypeMedium:
		return "medium"
	case PriorityTypeHigh:
		return "high"
	default:
		return "unknown"
	}
}

// wireValue is the big-endian priority field value sent in a DCEP OPEN
// message per spec.md §4.5.2.
func (p PriorityType) wireValue() uint16 {
	switch p {
	case PriorityTypeVeryLow:
		return dcep.PriorityVeryLow
	case PriorityTypeLow:
		return dcep.PriorityLow
	case PriorityTypeMedium:
		return dcep.PriorityMedium
	case PriorityTypeHigh:
		return dcep.PriorityHigh
	default:
		return dcep.PriorityMedium
	}
}

// priorityFromWireValue reverses wireValue per spec.md §4.5.2: 1..128 ->
// very-low, 129..256 -> low, 257..512 -> medium, 513+ -> high.
func priorityFromWireValue(v uint16) PriorityType {
	switch {
	case v <= 128:
		return PriorityTypeVeryLow
	case v <= 256:
		return PriorityTypeLow
	case v <= 512:
		return PriorityTypeMedium
	default:
		return PriorityTypeHigh
	}
}

// DataChannelState is the ready-state of a DataChannel, spec.md §3/§4.5.1.
type DataChannelState int

const (
	DataChannelStateConnecting DataChannelState = iota + 1
	DataChannelStateOpen
	DataChannelStateClosing
	DataChannelStateClosed
)

func (s DataChannelState) String() string {
	switch s {
	case DataChannelStateConnecting:
		return "connecting"
	case DataChannelStateOpen:
		return "open"
	case DataChannelStateClosing:
		return "closing"
	case DataChannelStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// FECType identifies the forward-error-correction scheme configured on a
// transceiver, spec.md §3.
type FECType int

const (
	FECTypeNone FECType = iota
	FECTypeUlpRed
)

// SDPType is the type tag of a SessionDescription, per RFC 8866/JSEP.
type SDPType int

const (
	SDPTypeOffer SDPType = iota + 1
	SDPTypePranswer
	SDPTypeAnswer
	SDPTypeRollback
)

func (t SDPType) String() string {
	switch t {
	case SDPTypeOffer:
		return "offer"
	case SDPTypePranswer:
		return "pranswer"
	case SDPTypeAnswer:
		return "answer"
	case SDPTypeRollback:
		return "rollback"
	default:
		return "unknown"
	}
}

func parseSDPType(s string) (SDPType, error) {
	switch s {
	case "offer":
		return SDPTypeOffer, nil
	case "pranswer":
		return SDPTypePranswer, nil
	case "answer":
		return SDPTypeAnswer, nil
	case "rollback":
		return SDPTypeRollback, nil
	default:
		return 0, fail(ErrSDPSyntax, "unknown sdp type %q", s)
	}
}
