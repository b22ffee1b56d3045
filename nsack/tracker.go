package nsack

// WindowSize is the number of sequence numbers covered by an ack bitfield,
// including the ack itself at bit 0.
const WindowSize = 32

// Observation describes how [*Tracker.Observe] treated a sequence number.
type Observation uint8

const (
	// The sequence number advanced the window.
	ObservedNewer Observation = iota + 1

	// The sequence number was older than the current ack
	// but still within the window, and has now been recorded.
	ObservedOlder

	// The sequence number was already recorded.
	ObservedDuplicate

	// The sequence number was too old to fit in the window.
	ObservedStale
)

func (o Observation) String() string {
	switch o {
	case ObservedNewer:
		return "newer"
	case ObservedOlder:
		return "older"
	case ObservedDuplicate:
		return "duplicate"
	case ObservedStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Tracker maintains the highest remote sequence number seen
// and a bitfield of recently seen sequence numbers relative to it.
//
// The zero value is ready to use and reports nothing received.
type Tracker struct {
	// Highest sequence number observed.
	Ack uint32

	// Bit k set means Ack-k was observed.
	AckBits uint32
}

// Observe records the arrival of a packet with sequence number seq.
//
// Observing the same sequence number more than once
// leaves the tracker in the same state as observing it once.
func (t *Tracker) Observe(seq uint32) Observation {
	switch {
	case seq > t.Ack:
		// Shifting by 32 or more clears the field in Go,
		// which is exactly the aging we want for large jumps.
		t.AckBits = (t.AckBits << (seq - t.Ack)) | 1
		t.Ack = seq
		return ObservedNewer

	case seq < t.Ack:
		d := t.Ack - seq
		if d >= WindowSize {
			return ObservedStale
		}
		bit := uint32(1) << d
		if t.AckBits&bit != 0 {
			return ObservedDuplicate
		}
		t.AckBits |= bit
		return ObservedOlder

	default:
		return ObservedDuplicate
	}
}

// Received reports whether seq is recorded within the current window.
// Sequence numbers that have aged out of the window report false.
func (t Tracker) Received(seq uint32) bool {
	if seq > t.Ack {
		return false
	}
	d := t.Ack - seq
	return d < WindowSize && t.AckBits&(uint32(1)<<d) != 0
}
