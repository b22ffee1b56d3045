// Package nsinterp produces smoothed entity state between buffered snapshots.
//
// Interpolation trades a fixed display latency for smoothness:
// the renderer asks for a tick a few steps behind the newest one,
// so that there is usually a later snapshot to interpolate toward.
//
// Only positions are interpolated.
// Orientation is taken from the earlier snapshot unchanged;
// callers that need smooth rotation must slerp themselves.
package nsinterp

import (
	"iter"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gordian-engine/netsync/nswire"
)

// DefaultDelay is the default interpolation delay, in ticks.
const DefaultDelay uint32 = 3

// Mode selects how entities in two snapshots are paired.
type Mode uint8

const (
	// MatchByID pairs entities by ID.
	// Entities present in only one of the two snapshots pass through
	// at that snapshot's state without interpolation.
	MatchByID Mode = iota

	// MatchByIndex pairs entities by position in the Entities slice,
	// truncating to the shorter snapshot.
	// Output is meaningless for any tail where the two snapshots'
	// entity sets differ in order or membership.
	MatchByIndex
)

func (m Mode) String() string {
	switch m {
	case MatchByID:
		return "id"
	case MatchByIndex:
		return "index"
	default:
		return "unknown"
	}
}

// RenderTick returns the tick to interpolate for,
// given the current local tick and interpolation delay.
// The result saturates at zero.
func RenderTick(localTick, delay uint32) uint32 {
	if delay > localTick {
		return 0
	}
	return localTick - delay
}

// Interpolate scans consecutive pairs of snapshots in iteration order
// and selects the first pair (s0, s1) where s0.Tick <= target < s1.Tick.
// It returns false if there is no such pair,
// which includes having fewer than two snapshots.
//
// Returned entity IDs and orientations come from s0
// (or from s1, for entities that only appear in s1 under [MatchByID]).
func Interpolate(
	snaps iter.Seq2[int, nswire.Snapshot],
	target uint32,
	mode Mode,
) ([]nswire.EntityState, bool) {
	s0, s1, ok := bracket(snaps, target)
	if !ok {
		return nil, false
	}

	a := fraction(target-s0.Tick, s1.Tick-s0.Tick)

	switch mode {
	case MatchByIndex:
		return byIndex(s0, s1, a), true
	default:
		return byID(s0, s1, a), true
	}
}

// fraction returns num/den as a float32 in [0, 1), given num < den.
// Over large tick gaps the float32 quotient can round up to 1,
// so it is clamped just below.
func fraction(num, den uint32) float32 {
	a := float32(float64(num) / float64(den))
	if a >= 1 {
		return math.Nextafter32(1, 0)
	}
	return a
}

func bracket(
	snaps iter.Seq2[int, nswire.Snapshot],
	target uint32,
) (s0, s1 nswire.Snapshot, ok bool) {
	var prev nswire.Snapshot
	havePrev := false
	for _, cur := range snaps {
		if havePrev && prev.Tick <= target && target < cur.Tick {
			return prev, cur, true
		}
		prev = cur
		havePrev = true
	}
	return nswire.Snapshot{}, nswire.Snapshot{}, false
}

func byIndex(s0, s1 nswire.Snapshot, a float32) []nswire.EntityState {
	n := min(len(s0.Entities), len(s1.Entities))
	out := make([]nswire.EntityState, n)
	for i := range n {
		e0, e1 := s0.Entities[i], s1.Entities[i]
		out[i] = nswire.EntityState{
			ID:          e0.ID,
			Position:    lerp(e0, e1, a),
			Orientation: e0.Orientation,
		}
	}
	return out
}

func byID(s0, s1 nswire.Snapshot, a float32) []nswire.EntityState {
	later := make(map[uint32]int, len(s1.Entities))
	for i, e := range s1.Entities {
		later[e.ID] = i
	}

	out := make([]nswire.EntityState, 0, max(len(s0.Entities), len(s1.Entities)))
	inEarlier := make(map[uint32]struct{}, len(s0.Entities))
	for _, e0 := range s0.Entities {
		inEarlier[e0.ID] = struct{}{}

		j, ok := later[e0.ID]
		if !ok {
			out = append(out, e0)
			continue
		}
		out = append(out, nswire.EntityState{
			ID:          e0.ID,
			Position:    lerp(e0, s1.Entities[j], a),
			Orientation: e0.Orientation,
		})
	}

	for _, e1 := range s1.Entities {
		if _, ok := inEarlier[e1.ID]; !ok {
			out = append(out, e1)
		}
	}

	return out
}

// lerp computes p0 + a*(p1-p0) per axis.
func lerp(e0, e1 nswire.EntityState, a float32) mgl32.Vec3 {
	return e0.Position.Add(e1.Position.Sub(e0.Position).Mul(a))
}
