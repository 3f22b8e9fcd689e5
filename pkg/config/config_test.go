package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PASS_MONTHLY_PERIOD_DAYS", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 30, cfg.Passes.MonthlyPeriodDays)
	assert.Equal(t, 8, cfg.Passes.DefaultClassPackSize)
	assert.Equal(t, 5*time.Minute, cfg.Reports.CacheTTL)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("CLUB_TIMEZONE", "Asia/Kolkata")
	t.Setenv("PASS_DEFAULT_CLASS_PACK_SIZE", "10")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Passes.DefaultClassPackSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "Asia/Kolkata", cfg.Club.Location().String())
}

func TestClubLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, ClubConfig{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, time.UTC, ClubConfig{}.Location())
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("nope", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
