// Package chainclient provides a durable, reconnecting push stream of
// chain notifications plus an on-demand read/simulate interface,
// abstracting the underlying RPC/WebSocket endpoint.
package chainclient

import (
	"context"

	"github.com/aristath/mevengine/internal/domain"
)

// Filter specifies which program ids and account scopes a subscription
// cares about.
type Filter struct {
	ProgramIDs    [][32]byte
	AccountScopes [][32]byte
}

// Transaction is the opaque, already-signed payload passed to Simulate.
type Transaction struct {
	Payload []byte
}

// StreamItem is one element of a subscription stream. Exactly one of
// Notification or Gap is set: a SequenceGap marker interleaves with
// ordinary notifications whenever the underlying connection reconnects,
// and downstream consumers treat it as a cache-invalidation hint rather
// than an error.
type StreamItem struct {
	Notification *domain.RawNotification
	Gap          *domain.SequenceGap
}

// Client is the Chain Client contract: a restartable push stream, a
// request/response simulate facility, and a health probe.
type Client interface {
	// Subscribe returns a channel of StreamItems honoring filter. The
	// channel is lazy and infinite; it closes only when ctx is done.
	Subscribe(ctx context.Context, filter Filter) (<-chan StreamItem, error)

	// Simulate runs tx against the most recent known chain state.
	Simulate(ctx context.Context, tx Transaction) (domain.SimulationResult, error)

	// Health reports current connectivity and reconnect-attempt counters.
	Health() domain.HealthSnapshot
}
