package domain

import "github.com/google/uuid"

// OpportunityKind tags which detector produced an Opportunity.
type OpportunityKind int

const (
	OpportunityArbitrage OpportunityKind = iota
	OpportunityLiquidation
	OpportunitySandwich
)

func (k OpportunityKind) String() string {
	switch k {
	case OpportunityArbitrage:
		return "arbitrage"
	case OpportunityLiquidation:
		return "liquidation"
	case OpportunitySandwich:
		return "sandwich"
	default:
		return "unknown"
	}
}

// ArbitrageInputs carries the cycle path and chosen input size for an
// arbitrage Opportunity. Opaque to everything but the Bundle Composer's
// transaction-building step and the Arbitrage Detector that produced it.
type ArbitrageInputs struct {
	Path      []PoolID
	StartToken Token
	InputAmount uint64
}

// LiquidationInputs carries the target position for a Liquidation
// Opportunity.
type LiquidationInputs struct {
	Position LendingPositionID
	RepayAmount uint64
}

// SandwichInputs carries the computed front/back sizing for a Sandwich
// Opportunity.
type SandwichInputs struct {
	TargetPool  PoolID
	FrontSize   uint64
	BackSize    uint64
	VictimSlippageBps uint32
}

// Opportunity is the tagged-variant record shared by all three detectors.
// Exactly one of ArbitrageData/LiquidationData/SandwichData is populated,
// selected by Kind.
type Opportunity struct {
	ID     uuid.UUID
	Kind   OpportunityKind

	DetectedAtMonotonicNs int64

	GrossProfitLamports   int64
	EstimatedGasLamports  int64
	EstimatedTipLamports  int64
	RiskScore             float64 // 0..10
	Confidence            float64 // 0..1

	// ReadAccounts/WriteAccounts drive the Bundle Composer's dependency
	// graph: A -> B iff a writable account of A is a readable account of B
	// (or vice versa for write-after-read).
	ReadAccounts  [][32]byte
	WriteAccounts [][32]byte

	ArbitrageData   *ArbitrageInputs
	LiquidationData *LiquidationInputs
	SandwichData    *SandwichInputs
}

// NetExpectedProfit is gross profit less estimated gas and tip, the
// ordering key the Bundle Composer admits opportunities by.
func (o *Opportunity) NetExpectedProfit() int64 {
	return o.GrossProfitLamports - o.EstimatedGasLamports - o.EstimatedTipLamports
}

// ConflictsWith reports whether o and other share any account where at
// least one side writes it — the Bundle Composer's edge condition.
func (o *Opportunity) ConflictsWith(other *Opportunity) bool {
	for _, w := range o.WriteAccounts {
		for _, a := range other.WriteAccounts {
			if w == a {
				return true
			}
		}
		for _, r := range other.ReadAccounts {
			if w == r {
				return true
			}
		}
	}
	for _, r := range o.ReadAccounts {
		for _, w := range other.WriteAccounts {
			if r == w {
				return true
			}
		}
	}
	return false
}
