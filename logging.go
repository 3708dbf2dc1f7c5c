// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import "github.com/pion/logging"

// loggerScopes are the subsystem names each long-lived object pulls its own
// *logging.LeveledLogger under, mirroring pion/webrtc's per-object log field.
const (
	logScopeNegotiation = "negotiation"
	logScopeICE         = "ice"
	logScopeDataChannel = "datachannel"
	logScopeSCTP        = "sctp"
	logScopeTaskQueue   = "taskqueue"
)

// defaultLoggerFactory is used when a Configuration does not supply one.
func defaultLoggerFactory() logging.LoggerFactory {
	return logging.NewDefaultLoggerFactory()
}
