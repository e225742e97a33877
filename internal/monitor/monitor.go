// Package monitor polls an Aptos fullnode for recent transactions and raises
// compliance alerts for the ones that trip a rule.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/jonboulle/clockwork"
	"github.com/movelabs/moveguard/internal/aptos"
	"github.com/movelabs/moveguard/internal/metrics"
)

const (
	defaultPollInterval    = 5 * time.Second
	defaultMaxTransactions = 25
	defaultMaxValue        = 1_000_000_000_000 // 10,000 APT in octas
	defaultGasThreshold    = 100_000
	defaultSeenTTL         = 10 * time.Minute
	fetchRetries           = 3
)

// Per-rule base risk scores. Severity follows from the configured thresholds.
const (
	scoreMaxValue = 92
	scoreGas      = 75
	scoreFailed   = 60
)

// Transfer entry functions whose final argument is an octa amount.
var transferFunctions = map[string]struct{}{
	"0x1::coin::transfer":                   {},
	"0x1::aptos_account::transfer":          {},
	"0x1::aptos_account::transfer_coins":    {},
	"0x1::primary_fungible_store::transfer": {},
}

// ChainReader is the fullnode surface the monitor polls.
type ChainReader interface {
	RecentTransactions(ctx context.Context, limit int) ([]aptos.Transaction, error)
}

type Config struct {
	Chain ChainReader
	Sink  Sink

	// Optional configuration.
	Clock                 clockwork.Clock
	PollInterval          time.Duration
	MaxTransactions       int
	MaxTransactionValue   uint64
	GasUsedThreshold      uint64
	RiskThresholdHigh     int
	RiskThresholdCritical int
	SeenTTL               time.Duration
}

func (c *Config) Validate() error {
	if c.Chain == nil {
		return errors.New("chain reader is required")
	}
	if c.Sink == nil {
		return errors.New("alert sink is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.MaxTransactions <= 0 {
		c.MaxTransactions = defaultMaxTransactions
	}
	if c.MaxTransactionValue == 0 {
		c.MaxTransactionValue = defaultMaxValue
	}
	if c.GasUsedThreshold == 0 {
		c.GasUsedThreshold = defaultGasThreshold
	}
	if c.RiskThresholdHigh <= 0 {
		c.RiskThresholdHigh = 70
	}
	if c.RiskThresholdCritical <= 0 {
		c.RiskThresholdCritical = 90
	}
	if c.SeenTTL <= 0 {
		c.SeenTTL = defaultSeenTTL
	}
	return nil
}

// Monitor runs the poll loop. Each transaction version is evaluated once per
// rule; the seen cache suppresses re-alerting while the version stays in the
// fullnode's recent window.
type Monitor struct {
	log  *slog.Logger
	cfg  Config
	seen *ttlcache.Cache[string, struct{}]
}

func New(log *slog.Logger, cfg Config) (*Monitor, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitor config: %w", err)
	}
	return &Monitor{
		log:  log,
		cfg:  cfg,
		seen: ttlcache.New(ttlcache.WithTTL[string, struct{}](cfg.SeenTTL)),
	}, nil
}

// Run polls until the context is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	go m.seen.Start()
	defer m.seen.Stop()

	m.log.Info("starting transaction monitor", "interval", m.cfg.PollInterval, "max_transactions", m.cfg.MaxTransactions)

	ticker := m.cfg.Clock.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if err := m.poll(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				m.log.Warn("poll failed", "error", err)
			}
		}
	}
}

func (m *Monitor) poll(ctx context.Context) error {
	var txs []aptos.Transaction
	op := func() error {
		var err error
		txs, err = m.cfg.Chain.RecentTransactions(ctx, m.cfg.MaxTransactions)
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), fetchRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("failed to fetch transactions: %w", err)
	}

	for _, tx := range txs {
		if !tx.IsUser() {
			continue
		}
		for _, alert := range m.evaluate(tx) {
			key := tx.Version + "/" + alert.Rule
			if m.seen.Has(key) {
				continue
			}
			m.seen.Set(key, struct{}{}, ttlcache.DefaultTTL)

			m.log.Info("compliance alert",
				"rule", alert.Rule,
				"severity", alert.Severity,
				"risk_score", alert.RiskScore,
				"tx_version", alert.Version,
				"sender", alert.Sender,
			)
			metrics.RecordMonitorAlert(alert.Rule, alert.Severity)
			m.cfg.Sink.Publish(alert)
		}
	}
	return nil
}

func (m *Monitor) evaluate(tx aptos.Transaction) []Alert {
	var alerts []Alert

	if !tx.Success {
		alerts = append(alerts, m.newAlert(tx, RuleFailedTransaction, scoreFailed,
			fmt.Sprintf("transaction aborted: %s", tx.VMStatus)))
	}

	if amount, ok := transferAmount(tx); ok && amount > m.cfg.MaxTransactionValue {
		alerts = append(alerts, m.newAlert(tx, RuleMaxValue, scoreMaxValue,
			fmt.Sprintf("transfer of %d octas exceeds limit of %d", amount, m.cfg.MaxTransactionValue)))
	}

	if gas := tx.GasUsedValue(); gas > m.cfg.GasUsedThreshold {
		alerts = append(alerts, m.newAlert(tx, RuleGasAnomaly, scoreGas,
			fmt.Sprintf("gas used %d exceeds threshold of %d", gas, m.cfg.GasUsedThreshold)))
	}

	return alerts
}

func (m *Monitor) newAlert(tx aptos.Transaction, rule string, score int, message string) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Rule:      rule,
		Severity:  m.severity(score),
		RiskScore: score,
		Version:   tx.Version,
		Hash:      tx.Hash,
		Sender:    tx.Sender,
		Message:   message,
		Time:      m.cfg.Clock.Now().UTC(),
	}
}

func (m *Monitor) severity(score int) string {
	switch {
	case score >= m.cfg.RiskThresholdCritical:
		return SeverityCritical
	case score >= m.cfg.RiskThresholdHigh:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// transferAmount extracts the octa amount from a known transfer payload.
// Amounts arrive as JSON strings, occasionally as bare numbers.
func transferAmount(tx aptos.Transaction) (uint64, bool) {
	if tx.Payload == nil || len(tx.Payload.Arguments) == 0 {
		return 0, false
	}
	if _, ok := transferFunctions[tx.Payload.Function]; !ok {
		return 0, false
	}

	raw := tx.Payload.Arguments[len(tx.Payload.Arguments)-1]
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	return 0, false
}
