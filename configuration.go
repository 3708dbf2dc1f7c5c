// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"net/url"
	"time"

	"github.com/pion/ice/v4"
	"github.com/pion/logging"
)

// ICECredentialType indicates the type of credentials used by an ICEServer.
type ICECredentialType int

const (
	ICECredentialTypePassword ICECredentialType = iota + 1
	ICECredentialTypeOauth
)

// ICEServer describes a STUN or TURN server usable by the ICE coordinator,
// spec.md §6.5 (stun-server, turn-server, add-turn-server knobs).
type ICEServer struct {
	URLs           []string
	Username       string
	Credential     string
	CredentialType ICECredentialType
}

func (s ICEServer) urls() ([]*ice.URL, error) {
	parsed := make([]*ice.URL, 0, len(s.URLs))
	for _, raw := range s.URLs {
		u, err := ice.ParseURL(raw)
		if err != nil {
			return nil, fail(ErrSDPSyntax, "parse ice server url %q: %v", raw, err)
		}
		if u.Scheme == ice.SchemeTypeTURN || u.Scheme == ice.SchemeTypeTURNS {
			if s.Username == "" || s.Credential == "" {
				return nil, fail(ErrInternalFailure, "turn server %q requires username/credential", raw)
			}
			u.Username = s.Username
			u.Password = s.Credential
		}
		parsed = append(parsed, u)
	}
	return parsed, nil
}

// Configuration defines a set of parameters to configure how the
// peer-to-peer communication via PeerConnection is established or
// re-established. It is the public, offer/answer-affecting surface; knobs
// that never appear on the wire live in SettingEngine instead.
type Configuration struct {
	ICEServers          []ICEServer
	ICETransportPolicy  ICETransportPolicy
	BundlePolicy        BundlePolicy
}

func (c Configuration) validate() error {
	for _, s := range c.ICEServers {
		if _, err := s.urls(); err != nil {
			return err
		}
	}
	if c.BundlePolicy == 0 {
		return nil // zero value defaulted by populateDefaults
	}
	return nil
}

func (c Configuration) populateDefaults() Configuration {
	if c.BundlePolicy == 0 {
		c.BundlePolicy = BundlePolicyMaxBundle
	}
	if c.ICETransportPolicy == 0 {
		c.ICETransportPolicy = ICETransportPolicyAll
	}
	return c
}

// SettingEngine carries knobs that are not part of the offer/answer
// negotiated surface: jitter-buffer latency, the HTTP proxy used for
// TURN-TCP traversal, and the logger factory every subsystem pulls its
// scoped logger from. Mirrors pion/webrtc's SettingEngine split from
// Configuration.
type SettingEngine struct {
	LoggerFactory logging.LoggerFactory

	// Latency is the jitter-buffer depth in milliseconds, spec.md §6.5.
	Latency time.Duration

	// HTTPProxy configures outbound TURN-TCP traversal through an HTTP
	// CONNECT proxy, spec.md §6.5. Backed by golang.org/x/net/http/httpproxy
	// semantics: when set, it takes precedence over environment proxy vars.
	HTTPProxy *url.URL
}

func (s SettingEngine) loggerFactory() logging.LoggerFactory {
	if s.LoggerFactory != nil {
		return s.LoggerFactory
	}
	return defaultLoggerFactory()
}

// AddTurnServer implements the add-turn-server(uri) configuration knob of
// spec.md §6.5 by appending a bare TURN ICEServer entry.
func (c *Configuration) AddTurnServer(uri, username, credential string) {
	c.ICEServers = append(c.ICEServers, ICEServer{
		URLs:           []string{uri},
		Username:       username,
		Credential:     credential,
		CredentialType: ICECredentialTypePassword,
	})
}
