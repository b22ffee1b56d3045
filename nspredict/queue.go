package nspredict

import (
	"fmt"

	"github.com/gordian-engine/netsync/nswire"
)

// DefaultMaxPending bounds the prediction queue when no limit is configured.
// It covers roughly two seconds of unacknowledged input at 60 commands per second.
const DefaultMaxPending = 128

// OverflowPolicy decides what happens when a full [Queue] receives a new command.
type OverflowPolicy uint8

const (
	// DropOldest evicts the oldest pending command to make room.
	DropOldest OverflowPolicy = iota

	// Reject refuses the new command and leaves the queue unchanged.
	Reject
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", uint8(p))
	}
}

// Pending is a command issued under an outbound sequence number
// that the server has not yet confirmed.
type Pending struct {
	Seq     uint32
	Command nswire.Command
}

// QueueFullError is returned from [*Queue.Push] when the queue is at capacity.
// It is a resource-pressure signal, not a fatal condition.
type QueueFullError struct {
	Policy OverflowPolicy

	// Set when Policy is DropOldest: the entry evicted to make room.
	// When Policy is Reject, the new entry was not queued.
	Dropped Pending
}

func (e *QueueFullError) Error() string {
	if e.Policy == DropOldest {
		return fmt.Sprintf(
			"prediction queue full: dropped oldest pending command (seq=%d)",
			e.Dropped.Seq,
		)
	}
	return "prediction queue full: command rejected"
}

// Queue is an insertion-ordered, bounded list of pending commands.
//
// Queue is not safe for concurrent use.
type Queue struct {
	entries []Pending
	max     int
	policy  OverflowPolicy
}

// NewQueue returns an empty Queue holding at most limit entries.
// A non-positive limit uses [DefaultMaxPending].
func NewQueue(limit int, policy OverflowPolicy) *Queue {
	if limit <= 0 {
		limit = DefaultMaxPending
	}
	return &Queue{
		entries: make([]Pending, 0, limit),
		max:     limit,
		policy:  policy,
	}
}

// Push appends cmd tagged with seq.
//
// On overflow Push returns a *QueueFullError.
// Under DropOldest the command is still queued.
func (q *Queue) Push(seq uint32, cmd nswire.Command) error {
	p := Pending{Seq: seq, Command: cmd}

	if len(q.entries) < q.max {
		q.entries = append(q.entries, p)
		return nil
	}

	if q.policy == Reject {
		return &QueueFullError{Policy: Reject}
	}

	dropped := q.entries[0]
	copy(q.entries, q.entries[1:])
	q.entries[len(q.entries)-1] = p
	return &QueueFullError{Policy: DropOldest, Dropped: dropped}
}

// PruneThrough removes every entry whose Seq is at most ack
// and returns the number removed.
func (q *Queue) PruneThrough(ack uint32) int {
	kept := q.entries[:0]
	for _, p := range q.entries {
		if p.Seq > ack {
			kept = append(kept, p)
		}
	}
	n := len(q.entries) - len(kept)
	clear(q.entries[len(kept):])
	q.entries = kept
	return n
}

// Len returns the number of pending entries.
func (q *Queue) Len() int { return len(q.entries) }

// Max returns the queue capacity.
func (q *Queue) Max() int { return q.max }

// Pending returns a copy of the pending entries in insertion order.
func (q *Queue) Pending() []Pending {
	if len(q.entries) == 0 {
		return nil
	}
	out := make([]Pending, len(q.entries))
	copy(out, q.entries)
	return out
}

// Commands returns the pending commands in insertion order,
// suitable for redundant retransmission.
func (q *Queue) Commands() []nswire.Command {
	if len(q.entries) == 0 {
		return nil
	}
	out := make([]nswire.Command, len(q.entries))
	for i, p := range q.entries {
		out[i] = p.Command
	}
	return out
}
