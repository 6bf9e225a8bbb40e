package domain

import "time"

// RawNotification is the undecoded payload delivered by the Chain
// Client's push stream: an account or program update tagged with the
// slot it was observed at. The Event Normalizer decodes these into the
// typed events below.
type RawNotification struct {
	ProgramID [32]byte
	AccountID [32]byte
	Slot      uint64
	Data      []byte
	ObservedAt time.Time
}

// SequenceGap marks a reconnection in the Chain Client's push stream.
// Downstream consumers treat it as a cache-invalidation hint for
// accounts that may have changed state during the gap.
type SequenceGap struct {
	LastGoodSlot     uint64
	ReconnectedAtSlot uint64
}

// SwapEvent is a decoded DEX swap instruction.
type SwapEvent struct {
	Pool       PoolID
	Slot       uint64
	AmountIn   uint64
	AmountOut  uint64
	TokenIn    Token
	TokenOut   Token
	Trader     [32]byte
	ObservedAt time.Time
}

// PoolStateEvent is a decoded pool-reserve (or CLMM tick/liquidity)
// update, the sole input to the Market Graph's apply operation.
type PoolStateEvent struct {
	Pool           PoolID
	Slot           uint64
	TokenA         Token
	TokenB         Token
	ReserveA       uint64
	ReserveB       uint64
	Liquidity      uint64
	TickLower      int32
	TickUpper      int32
	SqrtPriceX64   uint64
	FeeBps         uint32
	ObservedAt     time.Time
}

// LendingPositionEvent is a decoded collateral/debt update for one
// borrower on one lending protocol.
type LendingPositionEvent struct {
	Position                LendingPositionID
	Slot                    uint64
	CollateralToken         Token
	CollateralAmount        uint64
	DebtToken               Token
	DebtAmount              uint64
	LiquidationThresholdBps uint32
	LiquidationBonusBps     uint32
	CloseFactorBps          uint32
	ObservedAt              time.Time
}

// BlockRewardEvent is a decoded block-producer reward notification. Core
// uses its slot to advance the current-slot counter.
type BlockRewardEvent struct {
	Slot        uint64
	Builder     string
	RewardLamports uint64
	ObservedAt  time.Time
}

// SimulationResult is the Chain Client's response to a simulate() call.
type SimulationResult struct {
	Success              bool
	Logs                 []string
	ConsumedComputeUnits uint64
	BalanceDeltas        map[[32]byte]int64
}

// HealthSnapshot reports Chain Client connectivity. CPUPercent and
// MemPercent are process-health fields that WSClient.Health leaves zero.
type HealthSnapshot struct {
	ChainConnected    bool
	LastGoodSlot      uint64
	ReconnectAttempts int
	CPUPercent        float64
	MemPercent        float64
	ObservedAt        time.Time
}
