package nsack

import (
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// Ledger tracks our own outgoing sequence numbers
// and resolves them against the ack values the remote peer sends back.
//
// Each outstanding packet occupies the slot seq%WindowSize.
// A packet is lost when the peer's ack window moves past it,
// or when a newer packet needs its slot before any ack arrived.
//
// Ledger is not safe for concurrent use.
type Ledger struct {
	// Bit i set means slots[i] holds an unresolved sequence number.
	outstanding *bitset.BitSet
	slots       [WindowSize]uint32
}

// LedgerUpdate reports sequence numbers resolved by a Ledger operation,
// in ascending order.
type LedgerUpdate struct {
	Acked []uint32
	Lost  []uint32
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		outstanding: bitset.New(WindowSize),
	}
}

// Sent records that seq was transmitted.
//
// If an older packet still occupied seq's slot,
// it can no longer be acknowledged and is reported as lost.
func (l *Ledger) Sent(seq uint32) LedgerUpdate {
	var u LedgerUpdate

	slot := uint(seq % WindowSize)
	if l.outstanding.Test(slot) && l.slots[slot] != seq {
		u.Lost = append(u.Lost, l.slots[slot])
	}

	l.slots[slot] = seq
	l.outstanding.Set(slot)

	return u
}

// Apply resolves outstanding packets against an ack and ack bitfield
// received from the peer.
func (l *Ledger) Apply(ack, ackBits uint32) LedgerUpdate {
	var u LedgerUpdate

	for i, ok := l.outstanding.NextSet(0); ok; i, ok = l.outstanding.NextSet(i + 1) {
		seq := l.slots[i]
		if seq > ack {
			// Not yet covered by the peer's window.
			continue
		}

		d := ack - seq
		switch {
		case d >= WindowSize:
			u.Lost = append(u.Lost, seq)
			l.outstanding.Clear(i)
		case ackBits&(uint32(1)<<d) != 0:
			u.Acked = append(u.Acked, seq)
			l.outstanding.Clear(i)
		}
	}

	slices.Sort(u.Acked)
	slices.Sort(u.Lost)
	return u
}

// Outstanding returns the number of sent packets
// that have been neither acknowledged nor declared lost.
func (l *Ledger) Outstanding() int {
	return int(l.outstanding.Count())
}

// Pending reports whether seq is still awaiting acknowledgment.
func (l *Ledger) Pending(seq uint32) bool {
	slot := uint(seq % WindowSize)
	return l.outstanding.Test(slot) && l.slots[slot] == seq
}
