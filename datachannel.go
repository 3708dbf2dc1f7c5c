// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"sync"

	"github.com/pion/logging"

	"github.com/webrtcbin/webrtcbin/internal/dcep"
	"github.com/webrtcbin/webrtcbin/internal/sctpfacade"
)

// dataChannelBufferSize bounds the pre-open send queue described in
// SPEC_FULL.md's supplemented feature #4, grounded on pion/webrtc's
// dataChannelBufferSize constant ("lowest common denominator among
// browsers").
const dataChannelBufferSize = 16384

// DataChannelMessage is delivered to on-message handlers, spec.md §4.5.6.
type DataChannelMessage struct {
	Data     []byte
	IsString bool
}

// DataChannelStats is the additive stats snapshot of SPEC_FULL.md's
// supplemented feature #3, grounded on original_source's
// webrtcdatachannel.c counters and pion/webrtc's stats_go.go family.
type DataChannelStats struct {
	MessagesSent     uint64
	MessagesReceived uint64
	BytesSent        uint64
	BytesReceived    uint64
}

// DataChannel implements spec.md §3/§4.5 in full: identity, reliability,
// ready-state machine, buffered-amount accounting, DCEP handshake, and
// graceful half-close.
type DataChannel struct {
	mu sync.Mutex

	label    string
	protocol string

	negotiated bool
	id         int // -1 until allocated
	ordered    bool

	maxRetransmits    *uint16
	maxPacketLifeTime *uint16
	priority          PriorityType

	readyState DataChannelState

	bufferedAmount             uint64
	bufferedAmountLowThreshold uint64

	peerClosed  bool
	storedError error
	opened      bool

	stats DataChannelStats

	stream sctpfacade.Stream
	assoc  *SCTPTransport

	// isDTLSClient determines id allocation parity (spec.md §4.5.4).
	isDTLSClient bool

	onOpenHandler              func()
	onCloseHandler             func()
	onErrorHandler             func(error)
	onMessageHandler           func(DataChannelMessage)
	onBufferedAmountLowHandler func()

	log *logging.LeveledLogger
}

// DataChannelInit mirrors the application-supplied creation options of
// spec.md §4.5.1/§6.4.
type DataChannelInit struct {
	Ordered           bool
	MaxRetransmits    *uint16
	MaxPacketLifeTime *uint16
	Protocol          string
	Negotiated        bool
	ID                *uint16
	Priority          PriorityType
}

func newDataChannel(label string, init DataChannelInit, factory logging.LoggerFactory) (*DataChannel, error) {
	if len(label) > 65535 {
		return nil, fail(ErrTypeError, "label exceeds 65535 bytes")
	}
	if len(init.Protocol) > 65535 {
		return nil, fail(ErrTypeError, "protocol exceeds 65535 bytes")
	}
	if init.MaxRetransmits != nil && init.MaxPacketLifeTime != nil {
		return nil, fail(ErrTypeError, "only one of max-retransmits/max-packet-lifetime may be set")
	}

	id := -1
	if init.ID != nil {
		id = int(*init.ID)
	}

	priority := init.Priority
	if priority == 0 {
		priority = PriorityTypeMedium
	}

	return &DataChannel{
		label:             label,
		protocol:          init.Protocol,
		negotiated:        init.Negotiated,
		id:                id,
		ordered:           init.Ordered,
		maxRetransmits:    init.MaxRetransmits,
		maxPacketLifeTime: init.MaxPacketLifeTime,
		priority:          priority,
		readyState:        DataChannelStateConnecting,
		log:               factory.NewLogger(logScopeDataChannel),
	}, nil
}

func (d *DataChannel) Label() string    { return d.label }
func (d *DataChannel) Protocol() string { return d.protocol }
func (d *DataChannel) Ordered() bool    { return d.ordered }

func (d *DataChannel) ID() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id, d.id >= 0
}

func (d *DataChannel) ReadyState() DataChannelState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readyState
}

func (d *DataChannel) BufferedAmount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bufferedAmount
}

func (d *DataChannel) SetBufferedAmountLowThreshold(v uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bufferedAmountLowThreshold = v
}

func (d *DataChannel) Stats() DataChannelStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *DataChannel) OnOpen(f func())                      { d.mu.Lock(); d.onOpenHandler = f; d.mu.Unlock() }
func (d *DataChannel) OnClose(f func())                     { d.mu.Lock(); d.onCloseHandler = f; d.mu.Unlock() }
func (d *DataChannel) OnError(f func(error))                { d.mu.Lock(); d.onErrorHandler = f; d.mu.Unlock() }
func (d *DataChannel) OnMessage(f func(DataChannelMessage)) { d.mu.Lock(); d.onMessageHandler = f; d.mu.Unlock() }
func (d *DataChannel) OnBufferedAmountLow(f func())         { d.mu.Lock(); d.onBufferedAmountLowHandler = f; d.mu.Unlock() }

// reliabilityMode derives the §4.5.5 {ppid-independent} reliability
// metadata from the channel's max-retransmits/max-packet-lifetime fields.
func (d *DataChannel) reliabilityParams() (sctpfacade.ReliabilityType, uint32) {
	switch {
	case d.maxRetransmits != nil:
		return sctpfacade.ReliabilityTypeRexmit, uint32(*d.maxRetransmits)
	case d.maxPacketLifeTime != nil:
		return sctpfacade.ReliabilityTypeTimed, uint32(*d.maxPacketLifeTime)
	default:
		return sctpfacade.ReliabilityTypeReliable, 0
	}
}

// attachStream binds the channel to its SCTP stream once the id is known
// and the association is up. It does not itself send DCEP; callers (the
// local-open and remote-open paths in peerconnection.go) drive that.
func (d *DataChannel) attachStream(stream sctpfacade.Stream, assoc *SCTPTransport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stream = stream
	d.assoc = assoc
	unordered := !d.ordered
	relType, relParam := d.reliabilityParams()
	stream.SetReliabilityParams(unordered, relType, relParam)
}

// sendOpen transmits a DCEP OPEN per spec.md §4.5.2, used by the
// local-initiated creation path once the SCTP stream exists.
func (d *DataChannel) sendOpen() error {
	d.mu.Lock()
	stream := d.stream
	o := dcep.Open{
		Unordered: !d.ordered,
		Priority:  d.priority.wireValue(),
		Label:     d.label,
		Protocol:  d.protocol,
	}
	if d.maxRetransmits != nil {
		o.MaxRetransmits = d.maxRetransmits
	}
	if d.maxPacketLifeTime != nil {
		o.MaxPacketLifeTime = d.maxPacketLifeTime
	}
	d.mu.Unlock()

	if stream == nil {
		return ErrNoSCTPTransport
	}
	raw, err := o.Marshal()
	if err != nil {
		return fail(ErrDataChannelFailure, "marshal dcep open: %v", err)
	}
	_, err = stream.WriteSCTP(raw, sctpfacade.PPID(dcep.PPIDControl))
	return err
}

func (d *DataChannel) sendAck() error {
	d.mu.Lock()
	stream := d.stream
	d.mu.Unlock()
	if stream == nil {
		return ErrNoSCTPTransport
	}
	_, err := stream.WriteSCTP(dcep.MarshalAck(), sctpfacade.PPID(dcep.PPIDControl))
	return err
}

// applyRemoteOpen applies the parameters carried by a DCEP OPEN received on
// a remote-initiated channel, spec.md §4.5.1/§4.5.6.
func (d *DataChannel) applyRemoteOpen(o dcep.Open) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.label = o.Label
	d.protocol = o.Protocol
	d.ordered = !o.Unordered
	d.maxRetransmits = o.MaxRetransmits
	d.maxPacketLifeTime = o.MaxPacketLifeTime
	d.priority = priorityFromWireValue(o.Priority)
}

// markOpen transitions to open and fires on-open, spec.md §4.5.6.
func (d *DataChannel) markOpen() {
	d.mu.Lock()
	if d.readyState == DataChannelStateOpen {
		d.mu.Unlock()
		return
	}
	d.readyState = DataChannelStateOpen
	d.opened = true
	handler := d.onOpenHandler
	d.mu.Unlock()
	if handler != nil {
		handler()
	}
}

// SendString implements send-string of spec.md §4.5.5.
func (d *DataChannel) SendString(s string) error {
	if s == "" {
		return d.send(nil, dcep.PPIDStringEmpty)
	}
	return d.send([]byte(s), dcep.PPIDString)
}

// Send implements send-data of spec.md §4.5.5.
func (d *DataChannel) Send(data []byte) error {
	if len(data) == 0 {
		return d.send(nil, dcep.PPIDBinaryEmpty)
	}
	return d.send(data, dcep.PPIDBinary)
}

func (d *DataChannel) send(data []byte, ppid dcep.PPID) error {
	d.mu.Lock()
	if d.readyState != DataChannelStateOpen {
		d.mu.Unlock()
		return fail(ErrInvalidState, "data channel not open")
	}
	maxMessageSize := uint64(0)
	if d.assoc != nil {
		maxMessageSize = d.assoc.MaxMessageSize()
	}
	if maxMessageSize > 0 && uint64(len(data)) > maxMessageSize {
		d.mu.Unlock()
		return fail(ErrTypeError, "message size %d exceeds max-message-size %d", len(data), maxMessageSize)
	}
	stream := d.stream
	d.bufferedAmount += uint64(len(data))
	d.mu.Unlock()

	if stream == nil {
		d.handleSendFailure(uint64(len(data)), ErrNoSCTPTransport)
		return ErrNoSCTPTransport
	}

	_, err := stream.WriteSCTP(data, sctpfacade.PPID(ppid))
	if err != nil {
		d.handleSendFailure(uint64(len(data)), err)
		return fail(ErrDataChannelFailure, "%v", err)
	}

	d.handleSendSuccess(uint64(len(data)))
	return nil
}

// handleSendSuccess implements the successful branch of spec.md §4.5.5:
// decrement buffered-amount, emit on-buffered-amount-low if it crossed the
// threshold downward.
func (d *DataChannel) handleSendSuccess(n uint64) {
	d.mu.Lock()
	before := d.bufferedAmount
	d.bufferedAmount -= n
	after := d.bufferedAmount
	threshold := d.bufferedAmountLowThreshold
	d.stats.MessagesSent++
	d.stats.BytesSent += n
	handler := d.onBufferedAmountLowHandler
	d.mu.Unlock()

	if handler != nil && before > threshold && after <= threshold {
		handler()
	}
}

// handleSendFailure implements spec.md §4.5.5's failure branch: decrement
// buffered-amount, store the error, initiate close.
func (d *DataChannel) handleSendFailure(n uint64, err error) {
	d.mu.Lock()
	d.bufferedAmount -= n
	d.storedError = err
	d.mu.Unlock()
	d.fireError(err)
	d.initiateClose()
}

func (d *DataChannel) fireError(err error) {
	d.mu.Lock()
	handler := d.onErrorHandler
	d.mu.Unlock()
	if handler != nil {
		handler(err)
	}
}

// deliver dispatches a received SCTP buffer per spec.md §4.5.6.
func (d *DataChannel) deliver(raw []byte, ppid dcep.PPID) {
	switch ppid {
	case dcep.PPIDControl:
		d.deliverControl(raw)
	case dcep.PPIDString, dcep.PPIDStringPartial:
		d.recordReceived(len(raw))
		d.dispatchMessage(DataChannelMessage{Data: []byte(string(raw)), IsString: true})
	case dcep.PPIDBinary, dcep.PPIDBinaryPartial:
		d.recordReceived(len(raw))
		d.dispatchMessage(DataChannelMessage{Data: raw, IsString: false})
	case dcep.PPIDStringEmpty:
		d.recordReceived(0)
		d.dispatchMessage(DataChannelMessage{Data: nil, IsString: true})
	case dcep.PPIDBinaryEmpty:
		d.recordReceived(0)
		d.dispatchMessage(DataChannelMessage{Data: nil, IsString: false})
	default:
		err := fail(ErrDataChannelFailure, "unknown ppid %d", ppid)
		d.handleSendFailure(0, err)
	}
}

func (d *DataChannel) recordReceived(n int) {
	d.mu.Lock()
	d.stats.MessagesReceived++
	d.stats.BytesReceived += uint64(n)
	d.mu.Unlock()
}

func (d *DataChannel) dispatchMessage(msg DataChannelMessage) {
	d.mu.Lock()
	handler := d.onMessageHandler
	d.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
}

// deliverControl implements spec.md §4.5.6's PPID-50 dispatch.
func (d *DataChannel) deliverControl(raw []byte) {
	switch {
	case dcep.IsOpen(raw):
		d.mu.Lock()
		negotiated := d.negotiated
		alreadyOpen := d.readyState == DataChannelStateOpen
		d.mu.Unlock()

		if negotiated {
			d.handleSendFailure(0, fail(ErrDataChannelFailure, "negotiated channel received unexpected DCEP OPEN"))
			return
		}
		if alreadyOpen {
			return // idempotent, spec.md §4.5.1
		}

		o, err := dcep.UnmarshalOpen(raw)
		if err != nil {
			d.handleSendFailure(0, fail(ErrDataChannelFailure, "%v", err))
			return
		}
		d.applyRemoteOpen(o)
		if err := d.sendAck(); err != nil {
			d.handleSendFailure(0, err)
			return
		}
		d.markOpen()

	case dcep.IsAck(raw):
		d.markOpen()

	default:
		d.handleSendFailure(0, fail(ErrDataChannelFailure, "unrecognized dcep control message"))
	}
}

// Close implements spec.md §4.5.1's graceful half-close: ready-state
// becomes closing immediately, an end-of-stream is pushed, and once
// buffered-amount drains to zero the SCTP stream reset is requested.
func (d *DataChannel) Close() error {
	return d.initiateClose()
}

func (d *DataChannel) initiateClose() error {
	d.mu.Lock()
	if d.readyState == DataChannelStateClosing || d.readyState == DataChannelStateClosed {
		d.mu.Unlock()
		return nil
	}
	d.readyState = DataChannelStateClosing
	drained := d.bufferedAmount == 0
	d.mu.Unlock()

	if drained {
		return d.resetAndClose()
	}
	return nil
}

// drainTick is invoked after each successful send completes; when
// buffered-amount has reached zero during a closing channel, it performs
// the reset, spec.md §4.5.1.
func (d *DataChannel) drainTick() {
	d.mu.Lock()
	shouldReset := d.readyState == DataChannelStateClosing && d.bufferedAmount == 0
	d.mu.Unlock()
	if shouldReset {
		_ = d.resetAndClose()
	}
}

func (d *DataChannel) resetAndClose() error {
	d.mu.Lock()
	stream := d.stream
	storedErr := d.storedError
	d.readyState = DataChannelStateClosed
	handler := d.onCloseHandler
	errHandler := d.onErrorHandler
	d.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
	}
	if storedErr != nil && errHandler != nil {
		errHandler(storedErr)
	}
	if handler != nil {
		handler()
	}
	return nil
}

// onRemoteReset implements spec.md §4.5.1's "If the remote resets first"
// branch: mark peer-closed; reset locally once buffered-amount is zero.
func (d *DataChannel) onRemoteReset() {
	d.mu.Lock()
	d.peerClosed = true
	drained := d.bufferedAmount == 0
	d.mu.Unlock()
	if drained {
		_ = d.resetAndClose()
	}
}
