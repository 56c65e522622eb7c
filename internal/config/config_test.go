package config

import (
	"testing"

	"github.com/joeshaw/envdecode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/econ_test")

	var cfg Config
	require.NoError(t, envdecode.Decode(&cfg))
	return &cfg
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaultConfig(t)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 0.05, cfg.Economy.BustChance)
	assert.Equal(t, 10, cfg.Economy.MaxInventory)
	assert.Equal(t, 3, cfg.Economy.MaxEscrow)
	assert.Equal(t, 100, cfg.Economy.TokenHardCap)
	assert.Equal(t, int64(250000), cfg.Economy.BondCost)
	assert.Equal(t, 8, cfg.Economy.BusinessCollections)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Economy.BustChance = 1.5
	cfg.Economy.TokenHardCap = 10 // below soft cap of 50
	cfg.Economy.LotteryDrawHourUTC = 99

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ECON_BUST_CHANCE")
	assert.Contains(t, err.Error(), "token caps")
	assert.Contains(t, err.Error(), "ECON_LOTTERY_DRAW_HOUR_UTC")
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ECON_MIN_BET", "500")
	t.Setenv("ECON_JACKPOT_BASE", "99999")
	cfg := defaultConfig(t)

	assert.Equal(t, int64(500), cfg.Economy.MinBet)
	assert.Equal(t, int64(99999), cfg.Economy.JackpotBase)
}
