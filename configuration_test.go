// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationPopulateDefaults(t *testing.T) {
	c := Configuration{}.populateDefaults()
	assert.Equal(t, BundlePolicyMaxBundle, c.BundlePolicy)
	assert.Equal(t, ICETransportPolicyAll, c.ICETransportPolicy)
}

func TestConfigurationPopulateDefaultsPreservesExplicitValues(t *testing.T) {
	c := Configuration{BundlePolicy: BundlePolicyMaxCompat, ICETransportPolicy: ICETransportPolicyRelay}.populateDefaults()
	assert.Equal(t, BundlePolicyMaxCompat, c.BundlePolicy)
	assert.Equal(t, ICETransportPolicyRelay, c.ICETransportPolicy)
}

func TestConfigurationValidateRejectsMalformedICEServerURL(t *testing.T) {
	c := Configuration{ICEServers: []ICEServer{{URLs: []string{"not a url"}}}}
	assert.Error(t, c.validate())
}

func TestConfigurationValidateRejectsTurnWithoutCredentials(t *testing.T) {
	c := Configuration{ICEServers: []ICEServer{{URLs: []string{"turn:turn.example.com"}}}}
	assert.ErrorIs(t, c.validate(), ErrInternalFailure)
}

func TestConfigurationValidateAcceptsStunServer(t *testing.T) {
	c := Configuration{ICEServers: []ICEServer{{URLs: []string{"stun:stun.example.com"}}}}
	assert.NoError(t, c.validate())
}

func TestConfigurationValidateAcceptsTurnWithCredentials(t *testing.T) {
	c := Configuration{ICEServers: []ICEServer{{
		URLs: []string{"turn:turn.example.com"}, Username: "u", Credential: "p",
	}}}
	assert.NoError(t, c.validate())
}

func TestAddTurnServerAppendsICEServer(t *testing.T) {
	c := Configuration{}
	c.AddTurnServer("turn:turn.example.com", "user", "pass")
	require.Len(t, c.ICEServers, 1)
	assert.Equal(t, "user", c.ICEServers[0].Username)
	assert.Equal(t, ICECredentialTypePassword, c.ICEServers[0].CredentialType)
}

func TestSettingEngineLoggerFactoryFallsBackToDefault(t *testing.T) {
	var s SettingEngine
	assert.NotNil(t, s.loggerFactory())
}

func TestSettingEngineLoggerFactoryUsesProvided(t *testing.T) {
	factory := testLoggerFactory()
	s := SettingEngine{LoggerFactory: factory}
	assert.Equal(t, factory, s.loggerFactory())
}
