// Package nssnap contains the bounded history of received world snapshots.
package nssnap

import (
	"fmt"
	"iter"

	"github.com/gordian-engine/netsync/nswire"
)

// DefaultCapacity is the snapshot history length used when none is configured.
const DefaultCapacity = 64

// Buffer is a fixed-capacity FIFO of snapshots in arrival order.
//
// Snapshots are neither reordered by tick nor deduplicated;
// a tick received twice is stored twice.
// Readers that assume tick order must tolerate out-of-order arrival.
//
// Buffer is not safe for concurrent use.
type Buffer struct {
	ring []nswire.Snapshot

	// Index of the oldest element in ring.
	head int
	n    int
}

// NewBuffer returns an empty Buffer holding at most capacity snapshots.
// It panics if capacity is not positive.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		panic(fmt.Errorf("BUG: snapshot buffer capacity must be positive (got %d)", capacity))
	}
	return &Buffer{
		ring: make([]nswire.Snapshot, capacity),
	}
}

// Push appends a copy of s.
// If the buffer was already full, the single oldest snapshot is evicted
// and returned with ok set to true.
func (b *Buffer) Push(s nswire.Snapshot) (evicted nswire.Snapshot, ok bool) {
	s = s.Clone()

	if b.n < len(b.ring) {
		b.ring[(b.head+b.n)%len(b.ring)] = s
		b.n++
		return nswire.Snapshot{}, false
	}

	evicted = b.ring[b.head]
	b.ring[b.head] = s
	b.head = (b.head + 1) % len(b.ring)
	return evicted, true
}

// Len returns the number of buffered snapshots.
func (b *Buffer) Len() int { return b.n }

// Cap returns the maximum number of buffered snapshots.
func (b *Buffer) Cap() int { return len(b.ring) }

// At returns the i'th snapshot in arrival order, where 0 is the oldest.
// It panics if i is out of range.
func (b *Buffer) At(i int) nswire.Snapshot {
	if i < 0 || i >= b.n {
		panic(fmt.Errorf("BUG: snapshot index %d out of range [0, %d)", i, b.n))
	}
	return b.ring[(b.head+i)%len(b.ring)]
}

// Latest returns the most recently pushed snapshot.
func (b *Buffer) Latest() (nswire.Snapshot, bool) {
	if b.n == 0 {
		return nswire.Snapshot{}, false
	}
	return b.At(b.n - 1), true
}

// All iterates over the buffered snapshots from oldest to newest.
//
// The yielded snapshots share entity slices with the buffer
// and must not be modified.
func (b *Buffer) All() iter.Seq2[int, nswire.Snapshot] {
	return func(yield func(int, nswire.Snapshot) bool) {
		for i := range b.n {
			if !yield(i, b.ring[(b.head+i)%len(b.ring)]) {
				return
			}
		}
	}
}

// Clear removes every buffered snapshot.
func (b *Buffer) Clear() {
	clear(b.ring)
	b.head = 0
	b.n = 0
}
