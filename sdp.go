// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"
)

// SessionDescription mirrors the W3C RTCSessionDescription: a type tag plus
// the raw SDP text, spec.md §3/§6.1. The parsed model is cached lazily.
type SessionDescription struct {
	Type SDPType
	SDP  string

	parsed *sdp.SessionDescription
}

// Unmarshal parses SDP into the pion/sdp/v3 structural model, caching the
// result. Used by set-local/set-remote-description (§4.1.3).
func (d *SessionDescription) Unmarshal() (*sdp.SessionDescription, error) {
	if d.parsed != nil {
		return d.parsed, nil
	}
	parsed := &sdp.SessionDescription{}
	if err := parsed.Unmarshal([]byte(d.SDP)); err != nil {
		return nil, fail(ErrSDPSyntax, "%v", err)
	}
	d.parsed = parsed
	return parsed, nil
}

// Attribute keys not already exported by pion/sdp/v3's AttrKey* constants.
const (
	attrKeyICEUfrag       = "ice-ufrag"
	attrKeyICEPwd         = "ice-pwd"
	attrKeyICEOptions     = "ice-options"
	attrKeyICELite        = "ice-lite"
	attrKeySetup          = "setup"
	attrKeyFingerprint    = "fingerprint"
	attrKeySCTPPort       = "sctp-port"
	attrKeyMaxMessageSize = "max-message-size"
	attrKeyBundleOnly     = "bundle-only"
	attrKeyRTCPMux        = "rtcp-mux"
	attrKeyRTCPRsize      = "rtcp-mux-only"
	attrKeyRTPMap         = "rtpmap"
	attrKeyFmtp           = "fmtp"
	attrKeyRid            = "rid"
	attrKeyEndOfCandidates = "end-of-candidates"
	attrKeyCandidate      = "candidate"
	attrKeyMID            = "mid"
	attrKeyGroup          = "group"
	attrKeySSRC           = "ssrc"
	attrKeyMsid           = "msid"
	groupSemanticBundle   = "BUNDLE"
)

// payloadTypeEntry is one rtpmap/fmtp pairing within a media section.
type payloadTypeEntry struct {
	pt         uint8
	name       string
	clockRate  uint32
	channels   uint16
	fmtpParams string // e.g. "apt=111"
}

func (e payloadTypeEntry) rtpmapValue() string {
	if e.channels > 1 {
		return fmt.Sprintf("%d %s/%d/%d", e.pt, e.name, e.clockRate, e.channels)
	}
	return fmt.Sprintf("%d %s/%d", e.pt, e.name, e.clockRate)
}

// ssrcMapEntry is one a=ssrc:<num> cname:<val> line, used to populate the
// TransportStream ssrc-map per spec.md §3/§4.1.4.
type ssrcMapEntry struct {
	ssrc uint32
	cname string
	mid   string
}

// mediaSection is the internal, direction-agnostic representation of one
// m= line, used both when building a new offer/answer and when parsing an
// applied remote description. This is the "SDP model" component of spec.md
// §2's component table.
type mediaSection struct {
	mid         string
	kind        RTPTransceiverKind
	isDataChannel bool
	rejected    bool // m=... 0, i.e. port 0
	bundleOnly  bool

	direction RTPTransceiverDirection
	setup     SetupRole

	iceUfrag, icePwd string

	fingerprintAlgo, fingerprintValue string

	sctpPort       uint16
	maxMessageSize uint64

	payloadTypes []payloadTypeEntry
	ssrcEntries  []ssrcMapEntry
	msid         string
	rid          string

	rtcpMux   bool
	rtcpRsize bool
}

const mediaSectionApplication = "application"

func mediaNameForKind(k RTPTransceiverKind) string {
	switch k {
	case RTPTransceiverKindAudio:
		return "audio"
	case RTPTransceiverKindVideo:
		return "video"
	default:
		return "audio"
	}
}

// buildMediaDescription renders a mediaSection into a *sdp.MediaDescription
// per the attribute list in spec.md §6.1.
func buildMediaDescription(ms *mediaSection) (*sdp.MediaDescription, error) {
	if ms.rejected {
		md := &sdp.MediaDescription{
			MediaName: sdp.MediaName{
				Media:  mediaNameOrApplication(ms),
				Port:   sdp.RangedPort{Value: 0},
				Protos: protosFor(ms),
			},
			ConnectionInformation: loopbackConnectionInfo(),
		}
		md.WithValueAttribute(attrKeyMID, ms.mid)
		return md, nil
	}

	formats := make([]string, 0, len(ms.payloadTypes))
	if ms.isDataChannel {
		formats = []string{"webrtc-datachannel"}
	} else {
		for _, pt := range ms.payloadTypes {
			formats = append(formats, strconv.Itoa(int(pt.pt)))
		}
	}

	md := &sdp.MediaDescription{
		MediaName: sdp.MediaName{
			Media:   mediaNameOrApplication(ms),
			Port:    sdp.RangedPort{Value: 9},
			Protos:  protosFor(ms),
			Formats: formats,
		},
		ConnectionInformation: loopbackConnectionInfo(),
	}

	md.WithValueAttribute(attrKeyMID, ms.mid)
	if ms.bundleOnly {
		md.WithPropertyAttribute(attrKeyBundleOnly)
	}
	md.WithValueAttribute(attrKeyICEUfrag, ms.iceUfrag)
	md.WithValueAttribute(attrKeyICEPwd, ms.icePwd)
	md.WithValueAttribute(attrKeySetup, ms.setup.String())
	if ms.fingerprintAlgo != "" {
		md.WithFingerprint(ms.fingerprintAlgo, strings.ToUpper(ms.fingerprintValue))
	}

	if ms.isDataChannel {
		md.WithValueAttribute(attrKeySCTPPort, strconv.Itoa(int(ms.sctpPort)))
		if ms.maxMessageSize > 0 {
			md.WithValueAttribute(attrKeyMaxMessageSize, strconv.FormatUint(ms.maxMessageSize, 10))
		}
		return md, nil
	}

	md.WithPropertyAttribute(attrKeyRTCPMux)
	md.WithPropertyAttribute(attrKeyRTCPRsize)
	md.WithPropertyAttribute(ms.direction.String())

	for _, pt := range ms.payloadTypes {
		md.WithValueAttribute(attrKeyRTPMap, pt.rtpmapValue())
		if pt.fmtpParams != "" {
			md.WithValueAttribute(attrKeyFmtp, fmt.Sprintf("%d %s", pt.pt, pt.fmtpParams))
		}
	}

	for _, ssrc := range ms.ssrcEntries {
		md.WithValueAttribute(attrKeySSRC, fmt.Sprintf("%d cname:%s", ssrc.ssrc, ssrc.cname))
		if ms.msid != "" {
			md.WithValueAttribute(attrKeySSRC, fmt.Sprintf("%d msid:%s", ssrc.ssrc, ms.msid))
		}
	}

	return md, nil
}

func mediaNameOrApplication(ms *mediaSection) string {
	if ms.isDataChannel {
		return mediaSectionApplication
	}
	return mediaNameForKind(ms.kind)
}

func protosFor(ms *mediaSection) []string {
	if ms.isDataChannel {
		return []string{"UDP", "DTLS", "SCTP"}
	}
	return []string{"UDP", "TLS", "RTP", "SAVPF"}
}

func loopbackConnectionInfo() *sdp.ConnectionInformation {
	return &sdp.ConnectionInformation{
		NetworkType: "IN",
		AddressType: "IP4",
		Address:     &sdp.Address{Address: "0.0.0.0"},
	}
}

// parseMediaSection reverses buildMediaDescription, extracting the fields
// the negotiation engine needs from an applied remote (or re-parsed local)
// description, per spec.md §4.1.3/§4.1.4.
func parseMediaSection(md *sdp.MediaDescription) (*mediaSection, error) {
	ms := &mediaSection{
		rejected:   md.MediaName.Port.Value == 0,
		isDataChannel: md.MediaName.Media == mediaSectionApplication,
		kind:       kindFromMediaName(md.MediaName.Media),
	}

	for _, a := range md.Attributes {
		switch a.Key {
		case attrKeyMID:
			ms.mid = a.Value
		case attrKeyBundleOnly:
			ms.bundleOnly = true
		case attrKeyICEUfrag:
			ms.iceUfrag = a.Value
		case attrKeyICEPwd:
			ms.icePwd = a.Value
		case attrKeySetup:
			setup, err := parseSetupRole(a.Value)
			if err != nil {
				return nil, err
			}
			ms.setup = setup
		case attrKeyFingerprint:
			parts := strings.SplitN(a.Value, " ", 2)
			if len(parts) == 2 {
				ms.fingerprintAlgo = parts[0]
				ms.fingerprintValue = parts[1]
			}
		case attrKeySCTPPort:
			port, err := strconv.ParseUint(a.Value, 10, 16)
			if err != nil {
				return nil, fail(ErrSDPSyntax, "invalid sctp-port %q", a.Value)
			}
			ms.sctpPort = uint16(port)
		case attrKeyMaxMessageSize:
			size, err := strconv.ParseUint(a.Value, 10, 64)
			if err != nil {
				return nil, fail(ErrSDPSyntax, "invalid max-message-size %q", a.Value)
			}
			ms.maxMessageSize = size
		case attrKeyRTCPMux:
			ms.rtcpMux = true
		case attrKeyRTCPRsize:
			ms.rtcpRsize = true
		case "sendrecv":
			ms.direction = RTPTransceiverDirectionSendrecv
		case "sendonly":
			ms.direction = RTPTransceiverDirectionSendonly
		case "recvonly":
			ms.direction = RTPTransceiverDirectionRecvonly
		case "inactive":
			ms.direction = RTPTransceiverDirectionInactive
		case attrKeyRTPMap:
			pt, err := parseRTPMap(a.Value)
			if err != nil {
				return nil, err
			}
			ms.payloadTypes = append(ms.payloadTypes, pt)
		case attrKeyFmtp:
			applyFmtp(ms.payloadTypes, a.Value)
		case attrKeySSRC:
			entry, ok := parseSSRCLine(a.Value)
			if ok {
				ms.ssrcEntries = append(ms.ssrcEntries, entry)
				ms.mid = firstNonEmpty(ms.mid, entry.mid)
			}
		case attrKeyMsid:
			ms.msid = a.Value
		case attrKeyRid:
			ms.rid = a.Value
		}
	}

	if ms.direction == 0 && !ms.isDataChannel {
		ms.direction = RTPTransceiverDirectionSendrecv
	}

	return ms, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// parseRTPMap parses "a=rtpmap:<pt> <name>/<clockrate>[/<channels>]".
func parseRTPMap(value string) (payloadTypeEntry, error) {
	sp := strings.IndexByte(value, ' ')
	if sp < 0 {
		return payloadTypeEntry{}, fail(ErrSDPSyntax, "invalid rtpmap %q", value)
	}
	pt, err := strconv.ParseUint(value[:sp], 10, 8)
	if err != nil {
		return payloadTypeEntry{}, fail(ErrSDPSyntax, "invalid rtpmap payload type %q", value)
	}
	rest := strings.Split(value[sp+1:], "/")
	entry := payloadTypeEntry{pt: uint8(pt), name: rest[0]}
	if len(rest) > 1 {
		clock, err := strconv.ParseUint(rest[1], 10, 32)
		if err != nil {
			return payloadTypeEntry{}, fail(ErrSDPSyntax, "invalid clock rate %q", value)
		}
		entry.clockRate = uint32(clock)
	}
	if len(rest) > 2 {
		channels, err := strconv.ParseUint(rest[2], 10, 16)
		if err == nil {
			entry.channels = uint16(channels)
		}
	}
	return entry, nil
}

// applyFmtp attaches "a=fmtp:<pt> <params>" to the matching payloadTypeEntry.
func applyFmtp(entries []payloadTypeEntry, value string) {
	sp := strings.IndexByte(value, ' ')
	if sp < 0 {
		return
	}
	pt, err := strconv.ParseUint(value[:sp], 10, 8)
	if err != nil {
		return
	}
	for i := range entries {
		if entries[i].pt == uint8(pt) {
			entries[i].fmtpParams = value[sp+1:]
			return
		}
	}
}

// rtxTargetFromFmtp extracts the "apt=<pt>" target from an fmtp parameter
// string, per spec.md §4.2 step 3.
func rtxTargetFromFmtp(params string) (uint8, bool) {
	for _, kv := range strings.Split(params, ";") {
		kv = strings.TrimSpace(kv)
		if strings.HasPrefix(kv, "apt=") {
			v, err := strconv.ParseUint(strings.TrimPrefix(kv, "apt="), 10, 8)
			if err == nil {
				return uint8(v), true
			}
		}
	}
	return 0, false
}

// parseSSRCLine parses "a=ssrc:<num> cname:<val>" (and tolerates other
// ssrc attribute kinds such as msid: by ignoring them).
func parseSSRCLine(value string) (ssrcMapEntry, bool) {
	sp := strings.IndexByte(value, ' ')
	if sp < 0 {
		return ssrcMapEntry{}, false
	}
	ssrc, err := strconv.ParseUint(value[:sp], 10, 32)
	if err != nil {
		return ssrcMapEntry{}, false
	}
	attr := value[sp+1:]
	if !strings.HasPrefix(attr, "cname:") {
		return ssrcMapEntry{}, false
	}
	return ssrcMapEntry{ssrc: uint32(ssrc), cname: strings.TrimPrefix(attr, "cname:")}, true
}

// bundleGroup extracts the mids listed in "a=group:BUNDLE ...", if present.
func bundleGroup(sd *sdp.SessionDescription) []string {
	for _, a := range sd.Attributes {
		if a.Key != attrKeyGroup {
			continue
		}
		fields := strings.Fields(a.Value)
		if len(fields) > 0 && fields[0] == groupSemanticBundle {
			return fields[1:]
		}
	}
	return nil
}

func isIceLite(sd *sdp.SessionDescription) bool {
	for _, a := range sd.Attributes {
		if a.Key == attrKeyICELite {
			return true
		}
	}
	return false
}
