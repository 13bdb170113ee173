package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.LaserPointTTL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 5, cfg.SeatLimitDefault)
	assert.Equal(t, 10, cfg.BcryptCost)
}

func TestLoad_RequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LASER_POINT_TTL", "10s")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("SESSION_SWEEP_INTERVAL", "30s")
	t.Setenv("SEAT_LIMIT_DEFAULT", "42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.LaserPointTTL)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 42, cfg.SeatLimitDefault)
}

func TestLoad_RejectsInvalidDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_TTL", "tomorrow")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsNonPositiveTTL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LASER_POINT_TTL", "-5s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LASER_POINT_TTL")
}

func TestLoad_RejectsNegativeSeatLimit(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SEAT_LIMIT_DEFAULT", "-1")

	_, err := Load()
	assert.Error(t, err)
}
