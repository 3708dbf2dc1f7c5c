// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package dcep implements the WebRTC Data Channel Establishment Protocol
// control messages (OPEN/ACK), bit-exact per spec.md §4.5.2, generalizing
// the wire layout github.com/pion/datachannel's ChannelOpen stubs out
// (priority/reliability-parameter there are left unparsed; here they round
// trip).
package dcep

import (
	"encoding/binary"
	"fmt"
)

// Message types, spec.md §4.5.2.
const (
	messageTypeACK  byte = 0x02
	messageTypeOpen byte = 0x03
)

// PPID is the SCTP Payload Protocol Identifier selecting how a message on a
// data channel stream is interpreted, spec.md §4.5.3.
type PPID uint32

const (
	PPIDControl           PPID = 50
	PPIDString            PPID = 51
	PPIDBinaryPartial     PPID = 52 // legacy, accepted on receive only
	PPIDBinary            PPID = 53
	PPIDStringPartial     PPID = 54 // legacy, accepted on receive only
	PPIDBinaryEmpty       PPID = 56
	PPIDStringEmpty       PPID = 57
)

// ChannelType is the DCEP OPEN channel-type byte: bit 7 marks unordered,
// the low bits select the reliability mode, spec.md §4.5.2.
type ChannelType byte

const (
	ChannelTypeReliable               ChannelType = 0x00
	ChannelTypeReliableUnordered      ChannelType = 0x80
	ChannelTypePartialReliableRexmit  ChannelType = 0x01
	ChannelTypePartialReliableRexmitU ChannelType = 0x81
	ChannelTypePartialReliableTimed   ChannelType = 0x02
	ChannelTypePartialReliableTimedU  ChannelType = 0x82
)

func (c ChannelType) Unordered() bool {
	return c&0x80 != 0
}

func (c ChannelType) reliabilityMode() byte {
	return byte(c) & 0x7f
}

const (
	reliabilityModeReliable              byte = 0x00
	reliabilityModePartialReliableRexmit byte = 0x01
	reliabilityModePartialReliableTimed  byte = 0x02
)

// Priority wire values, spec.md §4.5.2.
const (
	PriorityVeryLow uint16 = 64
	PriorityLow     uint16 = 192
	PriorityMedium  uint16 = 384
	PriorityHigh    uint16 = 768
)

// Open is the DATA_CHANNEL_OPEN message, spec.md §4.5.2.
type Open struct {
	Unordered            bool
	MaxRetransmits       *uint16 // set iff reliability mode is rexmit-limited
	MaxPacketLifeTime    *uint16 // set iff reliability mode is time-limited
	Priority             uint16  // raw wire value; see PriorityFromWire helpers in the webrtcbin package
	Label                string
	Protocol             string
}

const openHeaderLength = 12

// Marshal renders an OPEN message per the bit layout in spec.md §4.5.2.
func (o Open) Marshal() ([]byte, error) {
	if len(o.Label) > 65535 {
		return nil, fmt.Errorf("dcep: label too long (%d bytes)", len(o.Label))
	}
	if len(o.Protocol) > 65535 {
		return nil, fmt.Errorf("dcep: protocol too long (%d bytes)", len(o.Protocol))
	}

	var channelType ChannelType
	var reliabilityParam uint16
	switch {
	case o.MaxRetransmits != nil && o.MaxPacketLifeTime != nil:
		return nil, fmt.Errorf("dcep: only one of max-retransmits/max-packet-lifetime may be set")
	case o.MaxRetransmits != nil:
		channelType = ChannelTypePartialReliableRexmit
		reliabilityParam = *o.MaxRetransmits
	case o.MaxPacketLifeTime != nil:
		channelType = ChannelTypePartialReliableTimed
		reliabilityParam = *o.MaxPacketLifeTime
	default:
		channelType = ChannelTypeReliable
	}
	if o.Unordered {
		channelType |= 0x80
	}

	buf := make([]byte, openHeaderLength+len(o.Label)+len(o.Protocol))
	buf[0] = messageTypeOpen
	buf[1] = byte(channelType)
	binary.BigEndian.PutUint16(buf[2:4], o.Priority)
	binary.BigEndian.PutUint32(buf[4:8], uint32(reliabilityParam))
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(o.Label)))
	binary.BigEndian.PutUint16(buf[10:12], uint16(len(o.Protocol)))
	copy(buf[openHeaderLength:], o.Label)
	copy(buf[openHeaderLength+len(o.Label):], o.Protocol)

	return buf, nil
}

// UnmarshalOpen parses a DATA_CHANNEL_OPEN message per spec.md §4.5.2.
func UnmarshalOpen(raw []byte) (Open, error) {
	if len(raw) < openHeaderLength {
		return Open{}, fmt.Errorf("dcep: open message too short (%d bytes)", len(raw))
	}
	if raw[0] != messageTypeOpen {
		return Open{}, fmt.Errorf("dcep: not an open message (type 0x%02x)", raw[0])
	}

	channelType := ChannelType(raw[1])
	priority := binary.BigEndian.Uint16(raw[2:4])
	reliabilityParam := binary.BigEndian.Uint32(raw[4:8])
	labelLen := binary.BigEndian.Uint16(raw[8:10])
	protoLen := binary.BigEndian.Uint16(raw[10:12])

	if len(raw) != openHeaderLength+int(labelLen)+int(protoLen) {
		return Open{}, fmt.Errorf("dcep: label/protocol length mismatch with message size")
	}

	o := Open{
		Unordered: channelType.Unordered(),
		Priority:  priority,
		Label:     string(raw[openHeaderLength : openHeaderLength+labelLen]),
		Protocol:  string(raw[openHeaderLength+labelLen : openHeaderLength+labelLen+protoLen]),
	}

	switch channelType.reliabilityMode() {
	case reliabilityModePartialReliableRexmit:
		v := uint16(reliabilityParam)
		o.MaxRetransmits = &v
	case reliabilityModePartialReliableTimed:
		v := uint16(reliabilityParam)
		o.MaxPacketLifeTime = &v
	case reliabilityModeReliable:
		// neither set: fully reliable
	default:
		return Open{}, fmt.Errorf("dcep: unknown reliability mode 0x%02x", channelType.reliabilityMode())
	}

	return o, nil
}

// MarshalAck renders the single-byte ACK message, spec.md §4.5.2.
func MarshalAck() []byte {
	return []byte{messageTypeACK}
}

// IsAck reports whether raw is a DCEP ACK message.
func IsAck(raw []byte) bool {
	return len(raw) == 1 && raw[0] == messageTypeACK
}

// IsOpen reports whether raw is a DCEP OPEN message.
func IsOpen(raw []byte) bool {
	return len(raw) >= 1 && raw[0] == messageTypeOpen
}
