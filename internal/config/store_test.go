// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPrecedence(t *testing.T) {
	s := NewStore()

	require.NoError(t, Set(s, Operator, KeyMDSModeEnabled, true))
	v, layer := Get[bool](s, KeyMDSModeEnabled)
	assert.True(t, v)
	assert.Equal(t, Operator, layer)

	// Lower layer cannot shadow a higher owner.
	err := Set(s, Default, KeyMDSModeEnabled, false)
	assert.Error(t, err)
	v, layer = Get[bool](s, KeyMDSModeEnabled)
	assert.True(t, v)
	assert.Equal(t, Operator, layer)

	// Equal-or-higher layer may override.
	require.NoError(t, Set(s, Tune, KeyMDSModeEnabled, false))
	v, layer = Get[bool](s, KeyMDSModeEnabled)
	assert.False(t, v)
	assert.Equal(t, Tune, layer)
}

func TestRestoreRevertsToPriorOwner(t *testing.T) {
	s := NewStore()

	require.NoError(t, Set(s, Operator, KeySessionSlotCount, 10))
	require.NoError(t, Set(s, Tune, KeySessionSlotCount, 20))

	v, layer := Get[int](s, KeySessionSlotCount)
	assert.Equal(t, 20, v)
	assert.Equal(t, Tune, layer)

	Restore(s, Tune)

	v, layer = Get[int](s, KeySessionSlotCount)
	assert.Equal(t, 10, v)
	assert.Equal(t, Operator, layer)
}

func TestSetRejectsOutOfRange(t *testing.T) {
	s := NewStore()
	err := Set(s, Operator, KeySessionSlotCount, 99)
	assert.ErrorIs(t, err, ErrOutOfRange)

	v, layer := Get[int](s, KeySessionSlotCount)
	assert.Equal(t, 6, v) // unchanged default
	assert.Equal(t, Default, layer)
}

func TestToggle(t *testing.T) {
	s := NewStore()
	require.NoError(t, Toggle(s, Operator, KeyFakeTuneEnabled))
	v, _ := Get[bool](s, KeyFakeTuneEnabled)
	assert.True(t, v)

	require.NoError(t, Toggle(s, Operator, KeyFakeTuneEnabled))
	v, _ = Get[bool](s, KeyFakeTuneEnabled)
	assert.False(t, v)
}

func TestLoadFromText(t *testing.T) {
	s := NewStore()
	payload := "# comment line\n" +
		"drm.session_slot_count 12\n" +
		"drm.mds_mode_enabled true\n" +
		"unknown.key ignored\n" +
		"malformed-line\n"

	LoadFromText(s, payload, Operator)

	v, _ := Get[int](s, KeySessionSlotCount)
	assert.Equal(t, 12, v)
	b, _ := Get[bool](s, KeyMDSModeEnabled)
	assert.True(t, b)
}

func TestLoadFromJson(t *testing.T) {
	s := NewStore()
	payload := []byte(`{"drm.session_slot_count": 9, "drm.license_server_url_override": "https://lic.example.com"}`)

	LoadFromJson(s, payload, Operator)

	v, _ := Get[int](s, KeySessionSlotCount)
	assert.Equal(t, 9, v)
	str, _ := Get[string](s, KeyLicenseServerURL)
	assert.Equal(t, "https://lic.example.com", str)
}

func TestChannelOverrideAndCustomSearch(t *testing.T) {
	s := NewStore()
	s.SetChannelOverride("ch1", "https://override.example.com/ch1")

	url, ok := s.GetChannelOverride("ch1")
	assert.True(t, ok)
	assert.Equal(t, "https://override.example.com/ch1", url)

	_, ok = s.GetChannelOverride("missing")
	assert.False(t, ok)

	s.RegisterCustomConfig("license.example.com", "", "")
	assert.True(t, s.CustomSearch("https://license.example.com/req", "player1", "app1"))
	assert.False(t, s.CustomSearch("https://other.example.com/req", "player1", "app1"))
}
