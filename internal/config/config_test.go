package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfig_Load_Defaults(t *testing.T) {
	t.Setenv("ONDEMAND_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8000", cfg.ListenAddr)
	require.Equal(t, "test-key", cfg.OnDemandAPIKey)
	require.Empty(t, cfg.OnDemandBaseURL)
	require.Equal(t, "https://fullnode.testnet.aptoslabs.com/v1", cfg.AptosNodeURL)
	require.Equal(t, "testnet", cfg.AptosNetwork)
	require.Equal(t, 5*time.Second, cfg.MonitorPollInterval)
	require.Equal(t, 25, cfg.MaxTransactionsPerQuery)
	require.Equal(t, uint64(1_000_000_000_000), cfg.MaxTransactionValue)
	require.Equal(t, 70, cfg.RiskThresholdHigh)
	require.Equal(t, 90, cfg.RiskThresholdCritical)
}

func TestConfig_Load_Overrides(t *testing.T) {
	t.Setenv("ONDEMAND_API_KEY", "test-key")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("APTOS_NETWORK", "mainnet")
	t.Setenv("MONITOR_POLL_INTERVAL", "30")
	t.Setenv("MAX_TRANSACTION_VALUE", "5000000")
	t.Setenv("RISK_THRESHOLD_HIGH", "60")
	t.Setenv("RISK_THRESHOLD_CRITICAL", "80")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.ListenAddr)
	require.Equal(t, "mainnet", cfg.AptosNetwork)
	require.Equal(t, 30*time.Second, cfg.MonitorPollInterval)
	require.Equal(t, uint64(5_000_000), cfg.MaxTransactionValue)
	require.Equal(t, 60, cfg.RiskThresholdHigh)
	require.Equal(t, 80, cfg.RiskThresholdCritical)
}

func TestConfig_Load_DurationString(t *testing.T) {
	t.Setenv("ONDEMAND_API_KEY", "test-key")
	t.Setenv("MONITOR_POLL_INTERVAL", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 2*time.Minute, cfg.MonitorPollInterval)
}

func TestConfig_Load_Failures(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		t.Setenv("ONDEMAND_API_KEY", "")
		_, err := Load()
		require.ErrorContains(t, err, "ONDEMAND_API_KEY")
	})

	t.Run("bad integer", func(t *testing.T) {
		t.Setenv("ONDEMAND_API_KEY", "test-key")
		t.Setenv("MAX_TRANSACTIONS_PER_QUERY", "lots")
		_, err := Load()
		require.ErrorContains(t, err, "MAX_TRANSACTIONS_PER_QUERY")
	})

	t.Run("poll interval too small", func(t *testing.T) {
		t.Setenv("ONDEMAND_API_KEY", "test-key")
		t.Setenv("MONITOR_POLL_INTERVAL", "100ms")
		_, err := Load()
		require.ErrorContains(t, err, "below 1s")
	})

	t.Run("inverted risk thresholds", func(t *testing.T) {
		t.Setenv("ONDEMAND_API_KEY", "test-key")
		t.Setenv("RISK_THRESHOLD_HIGH", "95")
		_, err := Load()
		require.ErrorContains(t, err, "must be below critical")
	})
}
