// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"strconv"

	"github.com/pion/randutil"
)

// CodecCapability is a codec preference carried on a transceiver, spec.md §3.
type CodecCapability struct {
	PayloadType uint8 // 0 means "allocate one"
	MimeType    string
	ClockRate   uint32
	Channels    uint16
	SDPFmtpLine string
}

func (c CodecCapability) name() string {
	// MimeType is "audio/opus"-shaped; the rtpmap name is the part after '/'.
	for i := len(c.MimeType) - 1; i >= 0; i-- {
		if c.MimeType[i] == '/' {
			return c.MimeType[i+1:]
		}
	}
	return c.MimeType
}

// mediaIndexPTs is the per-media-index payload-type allocation state of
// spec.md §4.2: media-pt, and optional red/ulpfec/rtx/red-rtx pts.
type mediaIndexPTs struct {
	mediaPT  uint8
	redPT    *uint8
	ulpfecPT *uint8
	rtxPT    *uint8
	redRtxPT *uint8
}

// payloadTypeAllocator implements spec.md §4.2 across the whole offer/answer
// being built: PTs must be unique across every media-index map, not just
// within one.
type payloadTypeAllocator struct {
	used map[uint8]bool
	rng  randutil.MathRandomGenerator
}

func newPayloadTypeAllocator() *payloadTypeAllocator {
	return &payloadTypeAllocator{used: map[uint8]bool{}}
}

func (p *payloadTypeAllocator) reserve(pt uint8) {
	p.used[pt] = true
}

// allocate returns the lowest unused PT in [96, 127], per spec.md §4.2 step 2.
func (p *payloadTypeAllocator) allocate() (uint8, error) {
	for pt := 96; pt <= 127; pt++ {
		if !p.used[uint8(pt)] {
			p.used[uint8(pt)] = true
			return uint8(pt), nil
		}
	}
	return 0, fail(ErrInternalFailure, "payload type space [96,127] exhausted")
}

// allocateForTransceiver runs the full §4.2 algorithm for one codec being
// added to an outgoing media section, mutating t's local-rtx-ssrc-map.
func (p *payloadTypeAllocator) allocateForTransceiver(t *RTPTransceiver, codec CodecCapability) (mediaIndexPTs, []payloadTypeEntry, error) {
	entries := make([]payloadTypeEntry, 0, 4)

	result := mediaIndexPTs{mediaPT: codec.PayloadType}
	if codec.PayloadType != 0 {
		p.reserve(codec.PayloadType)
	} else {
		pt, err := p.allocate()
		if err != nil {
			return mediaIndexPTs{}, nil, err
		}
		result.mediaPT = pt
	}
	entries = append(entries, payloadTypeEntry{
		pt: result.mediaPT, name: codec.name(), clockRate: codec.ClockRate,
		channels: codec.Channels, fmtpParams: codec.SDPFmtpLine,
	})

	if t.fecType == FECTypeUlpRed {
		redPT, err := p.allocate()
		if err != nil {
			return mediaIndexPTs{}, nil, err
		}
		ulpfecPT, err := p.allocate()
		if err != nil {
			return mediaIndexPTs{}, nil, err
		}
		result.redPT = &redPT
		result.ulpfecPT = &ulpfecPT
		entries = append(entries,
			payloadTypeEntry{pt: redPT, name: "red", clockRate: codec.ClockRate},
			payloadTypeEntry{pt: ulpfecPT, name: "ulpfec", clockRate: codec.ClockRate},
		)
	}

	if t.doNack {
		rtxPT, err := p.allocate()
		if err != nil {
			return mediaIndexPTs{}, nil, err
		}
		result.rtxPT = &rtxPT
		aptTarget := result.mediaPT
		entries = append(entries, payloadTypeEntry{
			pt: rtxPT, name: "rtx", clockRate: codec.ClockRate,
			fmtpParams: fmtApt(aptTarget),
		})
		if err := t.addLocalRTXSSRC(rtxPT); err != nil {
			return mediaIndexPTs{}, nil, err
		}

		if result.redPT != nil {
			redRtxPT, err := p.allocate()
			if err != nil {
				return mediaIndexPTs{}, nil, err
			}
			result.redRtxPT = &redRtxPT
			entries = append(entries, payloadTypeEntry{
				pt: redRtxPT, name: "rtx", clockRate: codec.ClockRate,
				fmtpParams: fmtApt(*result.redPT),
			})
			if err := t.addLocalRTXSSRC(redRtxPT); err != nil {
				return mediaIndexPTs{}, nil, err
			}
		}
	}

	return result, entries, nil
}

func fmtApt(pt uint8) string {
	return "apt=" + strconv.Itoa(int(pt))
}

// randomSSRC generates a random uint32 SSRC for a local RTX target, §4.2
// step 4, grounded on github.com/pion/randutil (the same generator
// pion/webrtc uses for SSRC/session id generation).
func randomSSRC() (uint32, error) {
	gen := randutil.NewMathRandomGenerator()
	return gen.Uint32(), nil
}
