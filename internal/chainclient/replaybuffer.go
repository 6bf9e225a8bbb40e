package chainclient

import (
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/mevengine/internal/domain"
)

// replayBuffer is a bounded ring of recently observed notifications,
// stored msgpack-encoded to keep the buffer compact. After a reconnect,
// the client replays everything the buffer still holds onto the stream
// ahead of the SequenceGap marker, so a notification dropped earlier by
// a full consumer queue gets a second chance.
type replayBuffer struct {
	mu       sync.Mutex
	entries  [][]byte
	capacity int
	next     int
	full     bool
}

func newReplayBuffer(capacity int) *replayBuffer {
	return &replayBuffer{
		entries:  make([][]byte, capacity),
		capacity: capacity,
	}
}

// push encodes and stores n, overwriting the oldest entry once the ring
// is full.
func (b *replayBuffer) push(n domain.RawNotification) error {
	encoded, err := msgpack.Marshal(&n)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = encoded
	b.next = (b.next + 1) % b.capacity
	if b.next == 0 {
		b.full = true
	}
	return nil
}

// snapshot decodes and returns every buffered notification in the order
// it was pushed.
func (b *replayBuffer) snapshot() ([]domain.RawNotification, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := b.next
	start := 0
	if b.full {
		count = b.capacity
		start = b.next
	}

	out := make([]domain.RawNotification, 0, count)
	for i := 0; i < count; i++ {
		idx := (start + i) % b.capacity
		raw := b.entries[idx]
		if raw == nil {
			continue
		}
		var n domain.RawNotification
		if err := msgpack.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
