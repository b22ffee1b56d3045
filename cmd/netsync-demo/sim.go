package main

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gordian-engine/netsync/nswire"
)

// Input bits understood by applyCommand.
const (
	inputRight uint8 = 1 << iota
	inputLeft
	inputUp
	inputDown
)

const stepSize = 0.25

// initialWorld places n entities along the x axis.
func initialWorld(n int) nswire.Snapshot {
	s := nswire.Snapshot{Entities: make([]nswire.EntityState, n)}
	for i := range s.Entities {
		s.Entities[i] = nswire.EntityState{
			ID:          uint32(i),
			Position:    mgl32.Vec3{float32(i) * 2, 0, 0},
			Orientation: mgl32.QuatIdent(),
		}
	}
	return s
}

// applyCommand moves the commanded entity one step.
// It does not modify s.
// Commands for unknown entities are ignored.
func applyCommand(s nswire.Snapshot, c nswire.Command) nswire.Snapshot {
	out := s.Clone()
	for i := range out.Entities {
		e := &out.Entities[i]
		if e.ID != c.EntityID {
			continue
		}

		var d mgl32.Vec3
		if c.Input&inputRight != 0 {
			d[0] += stepSize
		}
		if c.Input&inputLeft != 0 {
			d[0] -= stepSize
		}
		if c.Input&inputUp != 0 {
			d[1] += stepSize
		}
		if c.Input&inputDown != 0 {
			d[1] -= stepSize
		}
		e.Position = e.Position.Add(d)
		if d.Len() > 0 {
			e.Orientation = mgl32.QuatBetweenVectors(mgl32.Vec3{1, 0, 0}, d.Normalize())
		}
		return out
	}
	return out
}

// scriptedInput produces a repeating square path for the client's entity.
func scriptedInput(tick uint32) uint8 {
	switch (tick / 64) % 4 {
	case 0:
		return inputRight
	case 1:
		return inputUp
	case 2:
		return inputLeft
	default:
		return inputDown
	}
}

// unappliedCommands returns the commands in p first sent after packet applied.
//
// The demo client stamps each command's Reserved field
// with the sequence number of the first packet carrying it,
// and resends every pending command until the server acknowledges it.
func unappliedCommands(p nswire.Packet, applied uint32) []nswire.Command {
	var out []nswire.Command
	for _, c := range p.Commands {
		if c.Reserved > uint64(applied) {
			out = append(out, c)
		}
	}
	return out
}
