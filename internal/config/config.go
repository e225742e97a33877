// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultListenAddr      = ":8000"
	defaultAptosNodeURL    = "https://fullnode.testnet.aptoslabs.com/v1"
	defaultAptosNetwork    = "testnet"
	defaultPollInterval    = 5 * time.Second
	defaultMaxTransactions = 25
	defaultMaxValue        = 1_000_000_000_000
	defaultGasThreshold    = 100_000
	defaultFrontendDir     = "frontend"
)

type Config struct {
	ListenAddr string

	OnDemandAPIKey  string
	OnDemandBaseURL string

	AptosNodeURL string
	AptosNetwork string

	MonitorPollInterval     time.Duration
	MaxTransactionsPerQuery int
	MaxTransactionValue     uint64
	GasUsedThreshold        uint64
	RiskThresholdHigh       int
	RiskThresholdCritical   int

	FrontendDir string
}

// Load reads configuration from the environment, applying defaults for
// everything except the On-Demand API key.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:            getEnv("LISTEN_ADDR", defaultListenAddr),
		OnDemandAPIKey:        os.Getenv("ONDEMAND_API_KEY"),
		OnDemandBaseURL:       os.Getenv("ONDEMAND_BASE_URL"),
		AptosNodeURL:          getEnv("APTOS_NODE_URL", defaultAptosNodeURL),
		AptosNetwork:          getEnv("APTOS_NETWORK", defaultAptosNetwork),
		FrontendDir:           getEnv("FRONTEND_DIR", defaultFrontendDir),
		RiskThresholdHigh:     70,
		RiskThresholdCritical: 90,
	}

	var err error
	if cfg.MonitorPollInterval, err = getEnvDuration("MONITOR_POLL_INTERVAL", defaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.MaxTransactionsPerQuery, err = getEnvInt("MAX_TRANSACTIONS_PER_QUERY", defaultMaxTransactions); err != nil {
		return nil, err
	}
	if cfg.MaxTransactionValue, err = getEnvUint("MAX_TRANSACTION_VALUE", defaultMaxValue); err != nil {
		return nil, err
	}
	if cfg.GasUsedThreshold, err = getEnvUint("GAS_USED_THRESHOLD", defaultGasThreshold); err != nil {
		return nil, err
	}
	if cfg.RiskThresholdHigh, err = getEnvInt("RISK_THRESHOLD_HIGH", cfg.RiskThresholdHigh); err != nil {
		return nil, err
	}
	if cfg.RiskThresholdCritical, err = getEnvInt("RISK_THRESHOLD_CRITICAL", cfg.RiskThresholdCritical); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.OnDemandAPIKey == "" {
		return errors.New("ONDEMAND_API_KEY is required")
	}
	if c.MonitorPollInterval < time.Second {
		return fmt.Errorf("monitor poll interval %s is below 1s", c.MonitorPollInterval)
	}
	if c.RiskThresholdHigh >= c.RiskThresholdCritical {
		return fmt.Errorf("risk threshold high (%d) must be below critical (%d)", c.RiskThresholdHigh, c.RiskThresholdCritical)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvUint(key string, fallback uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	// Accept bare seconds as well as Go duration strings.
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
