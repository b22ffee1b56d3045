package nswire

import "github.com/go-gl/mathgl/mgl32"

// EntityState is the state of a single entity within a [Snapshot].
type EntityState struct {
	ID uint32

	Position mgl32.Vec3

	// Carried through interpolation unchanged.
	Orientation mgl32.Quat
}

// Snapshot is a capture of world state at one simulation tick.
//
// Snapshots are treated as immutable once constructed.
// Use [Snapshot.Clone] before handing a snapshot to code
// that may modify its Entities slice.
type Snapshot struct {
	Tick uint32

	// Entity IDs are unique within a snapshot,
	// but the set of IDs may differ between snapshots.
	// An empty slice decodes as nil.
	Entities []EntityState
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Tick: s.Tick}
	if len(s.Entities) > 0 {
		out.Entities = make([]EntityState, len(s.Entities))
		copy(out.Entities, s.Entities)
	}
	return out
}

// Command is a single input directed at an entity.
// The core never interprets Input.
type Command struct {
	EntityID uint32
	Input    uint8

	// Not interpreted by netsync; carried on the wire for application use.
	Reserved uint64
}

// Packet is one wire message.
//
// The wire format does not distinguish empty slices from nil,
// so Decode always produces nil for empty Commands and Entities.
type Packet struct {
	// Sender's outbound sequence number.
	Seq uint32

	// Highest remote sequence number the sender has observed,
	// and the bitfield of recently observed sequence numbers relative to it.
	// Bit k set means Ack-k was received; bit 0 is Ack itself.
	Ack     uint32
	AckBits uint32

	// An empty slice decodes as nil.
	Commands []Command

	// Set only on packets carrying a state update.
	Snapshot *Snapshot
}
