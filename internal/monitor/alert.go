package monitor

import "time"

// Rules the compliance monitor evaluates against each user transaction.
const (
	RuleMaxValue          = "max_transaction_value"
	RuleFailedTransaction = "failed_transaction"
	RuleGasAnomaly        = "gas_anomaly"
)

const (
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert is a compliance finding for a single on-chain transaction.
type Alert struct {
	ID        string    `json:"id"`
	Rule      string    `json:"rule"`
	Severity  string    `json:"severity"`
	RiskScore int       `json:"risk_score"`
	Version   string    `json:"tx_version"`
	Hash      string    `json:"tx_hash"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Time      time.Time `json:"time"`
}

// Sink receives alerts as the monitor raises them. Publish must not block.
type Sink interface {
	Publish(alert Alert)
}
