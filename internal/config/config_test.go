package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Simulation.Days)
	assert.Equal(t, 200, cfg.Simulation.EnsembleSize)
	assert.Equal(t, "USD", cfg.Wallet.BaseCurrency)
	assert.True(t, cfg.Wallet.InitialBalance.Equal(decimal.NewFromInt(2500)))
	assert.Empty(t, cfg.Metrics.Addr)
	assert.NotEmpty(t, cfg.Rates.Pairs)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SIM_DAYS", "30")
	t.Setenv("SIM_SEED", "987654321")
	t.Setenv("WALLET_BASE_CURRENCY", "EUR")
	t.Setenv("WALLET_DAILY_NET", "-12.50")
	t.Setenv("RATE_PAIRS", "EUR/USD=1.08")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Simulation.Days)
	assert.EqualValues(t, 987654321, cfg.Simulation.Seed)
	assert.Equal(t, "EUR", cfg.Wallet.BaseCurrency)
	assert.True(t, cfg.Wallet.DailyNet.Equal(decimal.RequireFromString("-12.50")))
	require.Len(t, cfg.Rates.Pairs, 1)
	assert.True(t, cfg.Rates.Pairs["EUR/USD"].Equal(decimal.RequireFromString("1.08")))
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SIM_DAYS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Simulation.Days)
}

func TestLoad_RejectsBadConfig(t *testing.T) {
	t.Setenv("SIM_DAYS", "-5")
	_, err := Load()
	assert.Error(t, err)
}

func TestParsePairs(t *testing.T) {
	pairs, err := parsePairs("USD/EUR=0.92, EUR/PKR=302.7")
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.True(t, pairs["USD/EUR"].Equal(decimal.RequireFromString("0.92")))
	assert.True(t, pairs["EUR/PKR"].Equal(decimal.RequireFromString("302.7")))

	for _, bad := range []string{"USD/EUR", "USDEUR=1", "USD/=1", "USD/EUR=zero", "USD/EUR=0"} {
		_, err := parsePairs(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
