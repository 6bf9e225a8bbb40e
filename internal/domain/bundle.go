package domain

import (
	"time"

	"github.com/google/uuid"
)

// Strategy selects which admission policy the Bundle Composer applies.
// Mirrors config.Strategy so the domain package has no import on config.
type Strategy string

const (
	StrategyMaximizeProfit Strategy = "MAXIMIZE_PROFIT"
	StrategyBalanced       Strategy = "BALANCED"
	StrategyMinimizeRisk   Strategy = "MINIMIZE_RISK"
)

// TipAccount is the process-wide target address for bundle tip payments.
type TipAccount [32]byte

// Transaction is one signed transaction within a Bundle. The Bundle
// Composer assembles these from an Opportunity's Inputs; the tip
// transaction is appended last by the composer itself.
type Transaction struct {
	SourceOpportunity uuid.UUID // zero value for the tip transaction
	ComputeUnitLimit  uint64
	ReadAccounts      [][32]byte
	WriteAccounts     [][32]byte
	IsTip             bool
	Payload           []byte // opaque, base64-ready on the wire
}

// Bundle is the ordered, atomic group of transactions produced by the
// Bundle Composer. Either every transaction lands or none do.
type Bundle struct {
	ID           uuid.UUID
	Transactions []Transaction // len 1..MAX_BUNDLE_TXS, tip last

	AggregateGasLamports     int64
	AggregateComputeBudget   uint64
	ExpectedNetProfitLamports int64
	AggregateRiskScore       float64
	Strategy                 Strategy
	ComposedAtMonotonicNs    int64
	ComposedAt               time.Time
}

// TipTransaction returns the bundle's terminal tip transaction, or nil if
// the bundle has not yet had one appended.
func (b *Bundle) TipTransaction() *Transaction {
	if len(b.Transactions) == 0 {
		return nil
	}
	last := &b.Transactions[len(b.Transactions)-1]
	if last.IsTip {
		return last
	}
	return nil
}
