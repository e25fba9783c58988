package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValue_EveryMetadataKey(t *testing.T) {
	s := DefaultSettings()
	for _, cat := range CategoryOrder() {
		for _, meta := range GetSettingsMetadata()[cat] {
			_, err := s.FormatValue(meta.Key)
			assert.NoError(t, err, meta.Key)
		}
	}

	_, err := s.FormatValue("volume")
	assert.ErrorIs(t, err, ErrUnknownSetting)
}

func TestFormatValue(t *testing.T) {
	s := DefaultSettings()
	s.Downloads.PageTimeout = 45 * time.Second
	s.Library.UpdateRestrictions = nil

	cases := map[string]string{
		"theme":               "System",
		"auto_start":          "on",
		"user_agent":          "default",
		"page_timeout":        "45s",
		"update_interval":     "every 24 hours",
		"update_restrictions": "none",
		"incognito_mode":      "off",
	}
	for key, want := range cases {
		got, err := s.FormatValue(key)
		require.NoError(t, err)
		assert.Equal(t, want, got, key)
	}

	s.Library.UpdateInterval = 0
	got, _ := s.FormatValue("update_interval")
	assert.Equal(t, "never", got)
}

func TestCycle(t *testing.T) {
	s := DefaultSettings()

	var seen []int
	for range UpdateIntervals() {
		require.NoError(t, s.Cycle("update_interval"))
		seen = append(seen, s.Library.UpdateInterval)
	}
	assert.Equal(t, []int{48, 72, 168, 0, 12, 24}, seen, "wraps back to the start")
	assert.NoError(t, s.Validate())

	require.NoError(t, s.Cycle("theme"))
	assert.Equal(t, ThemeLight, s.General.Theme)
	require.NoError(t, s.Cycle("theme"))
	require.NoError(t, s.Cycle("theme"))
	assert.Equal(t, ThemeAdaptive, s.General.Theme)

	require.NoError(t, s.Cycle("auto_start"))
	assert.False(t, s.Downloads.AutoStart)

	assert.ErrorIs(t, s.Cycle("download_dir"), ErrNotCyclable)
	assert.ErrorIs(t, s.Cycle("volume"), ErrUnknownSetting)
}

func TestToggleChoice(t *testing.T) {
	s := DefaultSettings()
	s.Library.UpdateRestrictions = []string{RestrictUnmetered}

	require.NoError(t, s.ToggleChoice("update_restrictions", RestrictCompleted))
	require.NoError(t, s.ToggleChoice("update_restrictions", RestrictCharging))
	assert.Equal(t, []string{RestrictUnmetered, RestrictCharging, RestrictCompleted}, s.Library.UpdateRestrictions)

	require.NoError(t, s.ToggleChoice("update_restrictions", RestrictUnmetered))
	assert.Equal(t, []string{RestrictCharging, RestrictCompleted}, s.Library.UpdateRestrictions)

	assert.Error(t, s.ToggleChoice("update_restrictions", "moon-phase"))
	assert.ErrorIs(t, s.ToggleChoice("theme", "Dark"), ErrNotCyclable)
}
