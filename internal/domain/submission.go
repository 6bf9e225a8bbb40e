package domain

import "github.com/google/uuid"

// TerminalState is a SubmissionRecord's lifecycle state. PENDING is the
// only non-terminal value; a record advances out of PENDING exactly once.
type TerminalState int

const (
	StatusPending TerminalState = iota
	StatusLanded
	StatusFailed
	StatusExpired
	StatusRejected
)

func (s TerminalState) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusLanded:
		return "LANDED"
	case StatusFailed:
		return "FAILED"
	case StatusExpired:
		return "EXPIRED"
	case StatusRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether s is a final state.
func (s TerminalState) IsTerminal() bool {
	return s != StatusPending
}

// SubmissionRecord tracks one submitted Bundle from submission through
// its terminal outcome. LandedSlot, ObservedLatencyNs and
// RealizedProfitLamports are only meaningful once TerminalState is
// StatusLanded.
type SubmissionRecord struct {
	BundleID             uuid.UUID
	SubmittedAtMonotonicNs int64
	TerminalState        TerminalState

	LandedSlot             *uint64
	ObservedLatencyNs      *int64
	RealizedProfitLamports *int64
}
