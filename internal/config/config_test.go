package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.InDelta(t, 100.0, cfg.Budget, 1e-9)
	assert.Equal(t, "3-4-3", cfg.Formation)
	assert.Equal(t, "balanced", cfg.Strategy)
	assert.Equal(t, 3, cfg.ClubCap)
	assert.Equal(t, 50, cfg.RepairIterationCap)
	assert.Equal(t, 5, cfg.HorizonGameweeks)
	assert.InDelta(t, 6.0, cfg.WeeklyPointsScale, 1e-9)
	assert.InDelta(t, 4.0, cfg.TransferHitCost, 1e-9)
	assert.Equal(t, 110, cfg.PremiumThreshold)
	assert.False(t, cfg.CacheEnabled)
}

func TestLoadConfig_DefaultChipWindows(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	wildcards, err := cfg.ParseWildcardWindows()
	require.NoError(t, err)
	require.Len(t, wildcards, 3)
	assert.Equal(t, GameweekWindow{Start: 8, End: 10}, wildcards[0])
	assert.Equal(t, GameweekWindow{Start: 16, End: 18}, wildcards[1])
	assert.Equal(t, GameweekWindow{Start: 25, End: 27}, wildcards[2])

	freeHit, err := cfg.ParseFreeHitWindow()
	require.NoError(t, err)
	assert.Equal(t, GameweekWindow{Start: 29, End: 33}, freeHit)
}

func TestGameweekWindow(t *testing.T) {
	w := GameweekWindow{Start: 8, End: 10}
	assert.True(t, w.Contains(8))
	assert.True(t, w.Contains(10))
	assert.False(t, w.Contains(7))
	assert.False(t, w.Contains(11))
	assert.Equal(t, "GW8-10", w.String())
}

func TestParseWildcardWindows_Malformed(t *testing.T) {
	cases := []struct {
		name    string
		windows string
	}{
		{"not a range", "eight"},
		{"out of order", "10-8"},
		{"zero start", "0-3"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{WildcardWindows: tc.windows}
			_, err := cfg.ParseWildcardWindows()
			assert.Error(t, err)
		})
	}
}

func TestParseFreeHitWindow_RejectsMultipleWindows(t *testing.T) {
	cfg := &Config{FreeHitWindow: "29-33,35-36"}
	_, err := cfg.ParseFreeHitWindow()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected one free-hit window")
}

func TestParseWildcardWindows_TrimsWhitespace(t *testing.T) {
	cfg := &Config{WildcardWindows: " 8-10 , 16-18 "}
	windows, err := cfg.ParseWildcardWindows()
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, GameweekWindow{Start: 16, End: 18}, windows[1])
}
