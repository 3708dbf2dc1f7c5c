// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"testing"

	"github.com/pion/logging"
	"github.com/stretchr/testify/assert"

	"github.com/webrtcbin/webrtcbin/internal/dcep"
	"github.com/webrtcbin/webrtcbin/internal/sctpfacade"
)

func testLoggerFactory() logging.LoggerFactory {
	return logging.NewDefaultLoggerFactory()
}

func TestNewDataChannelValidation(t *testing.T) {
	maxRetrans := uint16(3)
	maxLife := uint16(500)

	_, err := newDataChannel("ok", DataChannelInit{Ordered: true}, testLoggerFactory())
	assert.NoError(t, err)

	_, err = newDataChannel("ok", DataChannelInit{
		MaxRetransmits:    &maxRetrans,
		MaxPacketLifeTime: &maxLife,
	}, testLoggerFactory())
	assert.ErrorIs(t, err, ErrTypeError)
}

func TestDataChannelSendOpenBitExact(t *testing.T) {
	dc, err := newDataChannel("chat", DataChannelInit{
		Ordered: true,
	}, testLoggerFactory())
	assert.NoError(t, err)
	dc.priority = PriorityTypeLow

	assoc := sctpfacade.NewFakeAssociation(65536)
	stream, err := assoc.OpenStream(1, sctpfacade.PPID(dcep.PPIDControl))
	assert.NoError(t, err)
	dc.attachStream(stream, nil)

	assert.NoError(t, dc.sendOpen())

	want := []byte{0x03, 0x00, 0x00, 0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x63, 0x68, 0x61, 0x74}
	assert.Len(t, assoc.Sent, 1)
	assert.Equal(t, want, assoc.Sent[0].Payload)
	assert.Equal(t, sctpfacade.PPID(dcep.PPIDControl), assoc.Sent[0].PPID)
}

func TestDataChannelRemoteOpenSendsAckAndOpens(t *testing.T) {
	dc, err := newDataChannel("", DataChannelInit{}, testLoggerFactory())
	assert.NoError(t, err)

	assoc := sctpfacade.NewFakeAssociation(65536)
	stream, err := assoc.OpenStream(3, sctpfacade.PPID(dcep.PPIDControl))
	assert.NoError(t, err)
	dc.attachStream(stream, nil)

	opened := false
	dc.OnOpen(func() { opened = true })

	o := dcep.Open{Label: "chat", Protocol: "", Priority: PriorityTypeMedium.wireValue()}
	raw, err := o.Marshal()
	assert.NoError(t, err)

	dc.deliver(raw, dcep.PPIDControl)

	assert.True(t, opened)
	assert.Equal(t, DataChannelStateOpen, dc.ReadyState())
	assert.Equal(t, "chat", dc.Label())

	assert.Len(t, assoc.Sent, 1)
	assert.True(t, dcep.IsAck(assoc.Sent[0].Payload))
}

func TestDataChannelAckMarksOpen(t *testing.T) {
	dc, err := newDataChannel("chat", DataChannelInit{}, testLoggerFactory())
	assert.NoError(t, err)

	var opened bool
	dc.OnOpen(func() { opened = true })

	dc.deliver(dcep.MarshalAck(), dcep.PPIDControl)

	assert.True(t, opened)
	assert.Equal(t, DataChannelStateOpen, dc.ReadyState())
}

func TestDataChannelSendRejectedWhenNotOpen(t *testing.T) {
	dc, err := newDataChannel("chat", DataChannelInit{}, testLoggerFactory())
	assert.NoError(t, err)

	err = dc.Send([]byte("hello"))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDataChannelSendAndBufferedAmountAccounting(t *testing.T) {
	dc, err := newDataChannel("chat", DataChannelInit{}, testLoggerFactory())
	assert.NoError(t, err)

	assoc := sctpfacade.NewFakeAssociation(65536)
	stream, err := assoc.OpenStream(1, sctpfacade.PPID(dcep.PPIDControl))
	assert.NoError(t, err)
	sctpTransport := newSCTPTransport(testLoggerFactory())
	sctpTransport.Start(assoc, 65536)
	dc.attachStream(stream, sctpTransport)
	dc.markOpen()

	assert.NoError(t, dc.Send([]byte("hello")))
	assert.Equal(t, uint64(0), dc.BufferedAmount())

	stats := dc.Stats()
	assert.Equal(t, uint64(1), stats.MessagesSent)
	assert.Equal(t, uint64(5), stats.BytesSent)

	assert.Len(t, assoc.Sent, 1)
	assert.Equal(t, []byte("hello"), assoc.Sent[0].Payload)
	assert.Equal(t, sctpfacade.PPID(dcep.PPIDBinary), assoc.Sent[0].PPID)
}

func TestDataChannelSendOversizedRejected(t *testing.T) {
	dc, err := newDataChannel("chat", DataChannelInit{}, testLoggerFactory())
	assert.NoError(t, err)

	assoc := sctpfacade.NewFakeAssociation(8)
	stream, err := assoc.OpenStream(1, sctpfacade.PPID(dcep.PPIDControl))
	assert.NoError(t, err)
	sctpTransport := newSCTPTransport(testLoggerFactory())
	sctpTransport.Start(assoc, 8)
	dc.attachStream(stream, sctpTransport)
	dc.markOpen()

	err = dc.Send([]byte("this message is far too long"))
	assert.ErrorIs(t, err, ErrTypeError)
	assert.Empty(t, assoc.Sent)
}

func TestDataChannelReceiveDispatch(t *testing.T) {
	dc, err := newDataChannel("chat", DataChannelInit{}, testLoggerFactory())
	assert.NoError(t, err)

	var got DataChannelMessage
	dc.OnMessage(func(m DataChannelMessage) { got = m })

	dc.deliver([]byte("hi"), dcep.PPIDString)
	assert.Equal(t, "hi", string(got.Data))
	assert.True(t, got.IsString)

	dc.deliver(nil, dcep.PPIDBinaryEmpty)
	assert.Nil(t, got.Data)
	assert.False(t, got.IsString)

	stats := dc.Stats()
	assert.Equal(t, uint64(2), stats.MessagesReceived)
}

func TestDataChannelGracefulCloseDrainsBeforeReset(t *testing.T) {
	dc, err := newDataChannel("chat", DataChannelInit{}, testLoggerFactory())
	assert.NoError(t, err)

	assoc := sctpfacade.NewFakeAssociation(65536)
	stream, err := assoc.OpenStream(1, sctpfacade.PPID(dcep.PPIDControl))
	assert.NoError(t, err)
	sctpTransport := newSCTPTransport(testLoggerFactory())
	sctpTransport.Start(assoc, 65536)
	dc.attachStream(stream, sctpTransport)
	dc.markOpen()

	var closed bool
	dc.OnClose(func() { closed = true })

	assert.NoError(t, dc.Close())
	assert.True(t, closed)
	assert.Equal(t, DataChannelStateClosed, dc.ReadyState())
}

func TestDataChannelOnRemoteReset(t *testing.T) {
	dc, err := newDataChannel("chat", DataChannelInit{}, testLoggerFactory())
	assert.NoError(t, err)

	var closed bool
	dc.OnClose(func() { closed = true })

	dc.onRemoteReset()

	assert.True(t, closed)
	assert.Equal(t, DataChannelStateClosed, dc.ReadyState())
}
