// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

// sdpSource distinguishes a set-local-description from a set-remote-description
// call for the shared procedure in spec.md §4.1.3.
type sdpSource int

const (
	sdpSourceLocal sdpSource = iota + 1
	sdpSourceRemote
)

// nextSignalingState implements the transition table of spec.md §4.1.5.
// Unlisted transitions are rejected with ErrInvalidModification.
func nextSignalingState(current SignalingState, source sdpSource, typ SDPType) (SignalingState, error) {
	if typ == SDPTypeRollback {
		switch current {
		case SignalingStateHaveLocalOffer, SignalingStateHaveRemoteOffer,
			SignalingStateHaveLocalPranswer, SignalingStateHaveRemotePranswer:
			return SignalingStateStable, nil
		case SignalingStateStable:
			return SignalingStateStable, nil
		default:
			return 0, fail(ErrInvalidModification, "rollback not valid from %s", current)
		}
	}

	switch current {
	case SignalingStateStable:
		if typ == SDPTypeOffer {
			if source == sdpSourceLocal {
				return SignalingStateHaveLocalOffer, nil
			}
			return SignalingStateHaveRemoteOffer, nil
		}

	case SignalingStateHaveLocalOffer:
		if source == sdpSourceLocal && typ == SDPTypeOffer {
			return SignalingStateHaveLocalOffer, nil
		}
		if source == sdpSourceRemote {
			switch typ {
			case SDPTypeAnswer:
				return SignalingStateStable, nil
			case SDPTypePranswer:
				return SignalingStateHaveRemotePranswer, nil
			}
		}

	case SignalingStateHaveRemoteOffer:
		if source == sdpSourceRemote && typ == SDPTypeOffer {
			return SignalingStateHaveRemoteOffer, nil
		}
		if source == sdpSourceLocal {
			switch typ {
			case SDPTypeAnswer:
				return SignalingStateStable, nil
			case SDPTypePranswer:
				return SignalingStateHaveLocalPranswer, nil
			}
		}

	case SignalingStateHaveLocalPranswer:
		if source == sdpSourceRemote && typ == SDPTypeAnswer {
			return SignalingStateStable, nil
		}

	case SignalingStateHaveRemotePranswer:
		if source == sdpSourceLocal && typ == SDPTypeAnswer {
			return SignalingStateStable, nil
		}
	}

	return 0, fail(ErrInvalidModification, "invalid signaling transition: state=%s source=%d type=%s", current, source, typ)
}
