// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"strings"
	"sync"

	"github.com/pion/ice/v4"
	"github.com/pion/logging"
)

// IceCandidateItem is one queued ICE candidate, spec.md §3: {mline-index,
// candidate-string, optional promise}.
type IceCandidateItem struct {
	MlineIndex int
	Candidate  string // SDP form ("a=candidate:...") or bare ("candidate:...")
	Promise    chan error
}

// normalizeCandidate strips a leading "a=" per spec.md §4.3.
func normalizeCandidate(raw string) string {
	return strings.TrimPrefix(raw, "a=")
}

// isEndOfCandidates reports whether raw signals end-of-candidates for its
// mline, spec.md §4.3: an empty or null candidate string.
func isEndOfCandidates(raw string) bool {
	return strings.TrimSpace(raw) == ""
}

// iceCoordinator is the "stream→session mapping, local/remote candidate
// queues, credential storage, gathering completion tracking" component of
// spec.md §2/§4.3. The fine-grained ice-lock (spec.md §5) guards only the
// two queues, independent of pc-lock.
type iceCoordinator struct {
	iceLock sync.Mutex

	pendingRemote []IceCandidateItem
	pendingLocal  []IceCandidateItem

	controllerRoleSet bool
	isController      bool

	// agents holds the attached external ICE agent per TransportStream
	// session-id, spec.md §4.3's "the concrete ICE agent implementation is
	// out of scope" collaborator boundary.
	agents map[int]IceAgent

	log *logging.LeveledLogger
}

func newICECoordinator(factory logging.LoggerFactory) *iceCoordinator {
	return &iceCoordinator{agents: map[int]IceAgent{}, log: factory.NewLogger(logScopeICE)}
}

// attachAgent records the external ICE agent driving one TransportStream's
// session, spec.md §4.1.3 step 5/§4.3.
func (c *iceCoordinator) attachAgent(sessionID int, agent IceAgent) {
	c.iceLock.Lock()
	defer c.iceLock.Unlock()
	c.agents[sessionID] = agent
}

func (c *iceCoordinator) agentFor(sessionID int) (IceAgent, bool) {
	c.iceLock.Lock()
	defer c.iceLock.Unlock()
	a, ok := c.agents[sessionID]
	return a, ok
}

// queueRemoteCandidate implements the "addIceCandidate called before both
// descriptions are set queues the candidate" behaviour of spec.md §4.3/§8.
func (c *iceCoordinator) queueRemoteCandidate(item IceCandidateItem) {
	c.iceLock.Lock()
	defer c.iceLock.Unlock()
	c.pendingRemote = append(c.pendingRemote, item)
}

// drainRemoteCandidates returns and clears the pending-remote queue, called
// once both descriptions are set (spec.md §4.1.3 step 6).
func (c *iceCoordinator) drainRemoteCandidates() []IceCandidateItem {
	c.iceLock.Lock()
	defer c.iceLock.Unlock()
	items := c.pendingRemote
	c.pendingRemote = nil
	return items
}

func (c *iceCoordinator) queueLocalCandidate(item IceCandidateItem) {
	c.iceLock.Lock()
	defer c.iceLock.Unlock()
	c.pendingLocal = append(c.pendingLocal, item)
}

func (c *iceCoordinator) drainLocalCandidates() []IceCandidateItem {
	c.iceLock.Lock()
	defer c.iceLock.Unlock()
	items := c.pendingLocal
	c.pendingLocal = nil
	return items
}

// establishController latches the ICE controller role true on the first
// local offer, or observing ice-lite remotely; once true it never reverts,
// spec.md §4.3/§4.1.3 step 7.
func (c *iceCoordinator) establishController(sentInitialOffer, remoteIsIceLite bool) {
	c.iceLock.Lock()
	defer c.iceLock.Unlock()
	if c.controllerRoleSet {
		return
	}
	if sentInitialOffer || remoteIsIceLite {
		c.isController = true
		c.controllerRoleSet = true
	}
}

func (c *iceCoordinator) IsController() bool {
	c.iceLock.Lock()
	defer c.iceLock.Unlock()
	return c.isController
}

// validateCandidateString parses a candidate line with pion/ice purely to
// reject syntactically invalid candidates early (spec.md §4.3's normalised
// candidate form); the external ICE agent itself is out of scope (spec.md
// §1) and is reached only through the IceAgent collaborator interface.
func validateCandidateString(raw string) error {
	normalized := normalizeCandidate(raw)
	if isEndOfCandidates(normalized) {
		return nil
	}
	if _, err := ice.UnmarshalCandidate(normalized); err != nil {
		return fail(ErrSDPSyntax, "invalid ice candidate %q: %v", raw, err)
	}
	return nil
}

// IceAgent is the external ICE agent collaborator, accessed only through
// this interface per spec.md §1 ("the concrete ICE agent implementation" is
// explicitly out of scope). Shaped after pion/ice/v4's *ice.Agent surface.
type IceAgent interface {
	GatherCandidates() error
	AddRemoteCandidate(c ice.Candidate) error
	OnCandidate(func(ice.Candidate))
	OnConnectionStateChange(func(ice.ConnectionState))
	Close() error
}

// mapICEConnectionState converts pion/ice's raw connection state into this
// package's aggregate-friendly enum, grounded on the teacher's
// newICETransportStateFromICE mapping table.
func mapICEConnectionState(s ice.ConnectionState) ICEConnectionState {
	switch s {
	case ice.ConnectionStateNew:
		return ICEConnectionStateNew
	case ice.ConnectionStateChecking:
		return ICEConnectionStateChecking
	case ice.ConnectionStateConnected:
		return ICEConnectionStateConnected
	case ice.ConnectionStateCompleted:
		return ICEConnectionStateCompleted
	case ice.ConnectionStateFailed:
		return ICEConnectionStateFailed
	case ice.ConnectionStateDisconnected:
		return ICEConnectionStateDisconnected
	case ice.ConnectionStateClosed:
		return ICEConnectionStateClosed
	default:
		return ICEConnectionStateNew
	}
}
