// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dcep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRoundTrip(t *testing.T) {
	maxRetransmits := uint16(3)

	cases := []Open{
		{Label: "chat", Protocol: "", Priority: 384},
		{Label: "chat", Protocol: "proto", Unordered: true, Priority: 64},
		{Label: "", Protocol: "", MaxRetransmits: &maxRetransmits, Priority: 768},
	}

	for _, c := range cases {
		raw, err := c.Marshal()
		require.NoError(t, err)

		got, err := UnmarshalOpen(raw)
		require.NoError(t, err)

		assert.Equal(t, c.Label, got.Label)
		assert.Equal(t, c.Protocol, got.Protocol)
		assert.Equal(t, c.Unordered, got.Unordered)
		assert.Equal(t, c.Priority, got.Priority)
		if c.MaxRetransmits != nil {
			require.NotNil(t, got.MaxRetransmits)
			assert.Equal(t, *c.MaxRetransmits, *got.MaxRetransmits)
		} else {
			assert.Nil(t, got.MaxRetransmits)
		}
	}
}

// TestOpenBitExact reproduces spec.md §8 scenario 2: a data channel
// label="chat" ordered=true max-retransmits=-1 max-packet-lifetime=-1
// serializes to exactly 03 00 00 C0 00 00 00 00 00 04 00 00 63 68 61 74.
func TestOpenBitExact(t *testing.T) {
	o := Open{
		Label:    "chat",
		Priority: PriorityLow,
	}

	raw, err := o.Marshal()
	require.NoError(t, err)

	want := []byte{0x03, 0x00, 0x00, 0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x63, 0x68, 0x61, 0x74}
	assert.Equal(t, want, raw)
}

func TestAckRoundTrip(t *testing.T) {
	raw := MarshalAck()
	assert.Equal(t, []byte{0x02}, raw)
	assert.True(t, IsAck(raw))
	assert.False(t, IsOpen(raw))
}

func TestUnmarshalOpenTooShort(t *testing.T) {
	_, err := UnmarshalOpen([]byte{0x03, 0x00})
	require.Error(t, err)
}

func TestUnmarshalOpenLengthMismatch(t *testing.T) {
	o := Open{Label: "chat", Priority: 384}
	raw, err := o.Marshal()
	require.NoError(t, err)

	_, err = UnmarshalOpen(raw[:len(raw)-1])
	require.Error(t, err)
}
