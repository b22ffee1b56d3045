package nsinterp_test

import (
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gordian-engine/netsync/nsinterp"
	"github.com/gordian-engine/netsync/nssnap"
	"github.com/gordian-engine/netsync/nswire"
	"github.com/stretchr/testify/require"
)

func TestInterpolate_boundaries(t *testing.T) {
	t.Parallel()

	rot := mgl32.QuatRotate(1, mgl32.Vec3{0, 1, 0})

	b := nssnap.NewBuffer(nssnap.DefaultCapacity)
	b.Push(nswire.Snapshot{
		Tick:     10,
		Entities: []nswire.EntityState{{ID: 1, Position: mgl32.Vec3{0, 0, 0}, Orientation: rot}},
	})
	b.Push(nswire.Snapshot{
		Tick:     20,
		Entities: []nswire.EntityState{{ID: 1, Position: mgl32.Vec3{10, 0, 0}, Orientation: mgl32.QuatIdent()}},
	})

	for _, mode := range []nsinterp.Mode{nsinterp.MatchByID, nsinterp.MatchByIndex} {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()

			got, ok := nsinterp.Interpolate(b.All(), 10, mode)
			require.True(t, ok)
			require.Equal(t, []nswire.EntityState{
				{ID: 1, Position: mgl32.Vec3{0, 0, 0}, Orientation: rot},
			}, got)

			got, ok = nsinterp.Interpolate(b.All(), 15, mode)
			require.True(t, ok)
			require.Equal(t, mgl32.Vec3{5, 0, 0}, got[0].Position)

			// Orientation is passed through from the earlier snapshot.
			require.Equal(t, rot, got[0].Orientation)

			for _, target := range []uint32{20, 21, 1000, 9, 0} {
				_, ok = nsinterp.Interpolate(b.All(), target, mode)
				require.Falsef(t, ok, "target %d should have no bracket", target)
			}
		})
	}
}

func TestInterpolate_singleSnapshot(t *testing.T) {
	t.Parallel()

	snaps := []nswire.Snapshot{
		{Tick: 5, Entities: []nswire.EntityState{{ID: 1}}},
	}
	for _, target := range []uint32{0, 4, 5, 6, 100} {
		got, ok := nsinterp.Interpolate(slices.All(snaps), target, nsinterp.MatchByID)
		require.False(t, ok)
		require.Nil(t, got)
	}

	_, ok := nsinterp.Interpolate(slices.All([]nswire.Snapshot(nil)), 0, nsinterp.MatchByID)
	require.False(t, ok)
}

func TestInterpolate_firstMatchingPairInArrivalOrder(t *testing.T) {
	t.Parallel()

	// Out-of-order arrival: 30 came before 10 and 20.
	// Pair (30, 10) never brackets, so (10, 20) is selected.
	snaps := []nswire.Snapshot{
		{Tick: 30, Entities: []nswire.EntityState{{ID: 1, Position: mgl32.Vec3{30, 0, 0}}}},
		{Tick: 10, Entities: []nswire.EntityState{{ID: 1, Position: mgl32.Vec3{10, 0, 0}}}},
		{Tick: 20, Entities: []nswire.EntityState{{ID: 1, Position: mgl32.Vec3{20, 0, 0}}}},
	}

	got, ok := nsinterp.Interpolate(slices.All(snaps), 12, nsinterp.MatchByIndex)
	require.True(t, ok)
	require.InDelta(t, 12, got[0].Position[0], 1e-5)

	// 25 is between 20 and 30 by tick, but those are not consecutive in the buffer.
	_, ok = nsinterp.Interpolate(slices.All(snaps), 25, nsinterp.MatchByIndex)
	require.False(t, ok)
}

func TestInterpolate_entityChurn(t *testing.T) {
	t.Parallel()

	snaps := []nswire.Snapshot{
		{Tick: 0, Entities: []nswire.EntityState{
			{ID: 1, Position: mgl32.Vec3{0, 0, 0}},
			{ID: 2, Position: mgl32.Vec3{100, 0, 0}},
		}},
		{Tick: 4, Entities: []nswire.EntityState{
			{ID: 3, Position: mgl32.Vec3{-4, 0, 0}},
			{ID: 1, Position: mgl32.Vec3{0, 8, 0}},
		}},
	}

	t.Run("by id", func(t *testing.T) {
		t.Parallel()

		got, ok := nsinterp.Interpolate(slices.All(snaps), 1, nsinterp.MatchByID)
		require.True(t, ok)
		require.Equal(t, []nswire.EntityState{
			// Present in both: interpolated.
			{ID: 1, Position: mgl32.Vec3{0, 2, 0}},
			// Only in the earlier snapshot: passed through.
			{ID: 2, Position: mgl32.Vec3{100, 0, 0}},
			// Only in the later snapshot: passed through, appended.
			{ID: 3, Position: mgl32.Vec3{-4, 0, 0}},
		}, got)
	})

	t.Run("by index", func(t *testing.T) {
		t.Parallel()

		// Positional pairing blends unrelated entities;
		// IDs come from the earlier snapshot.
		got, ok := nsinterp.Interpolate(slices.All(snaps), 1, nsinterp.MatchByIndex)
		require.True(t, ok)
		require.Equal(t, []nswire.EntityState{
			{ID: 1, Position: mgl32.Vec3{-1, 0, 0}},
			{ID: 2, Position: mgl32.Vec3{75, 2, 0}},
		}, got)
	})
}

func TestRenderTick(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint32(7), nsinterp.RenderTick(10, nsinterp.DefaultDelay))
	require.Equal(t, uint32(0), nsinterp.RenderTick(3, nsinterp.DefaultDelay))
	require.Equal(t, uint32(0), nsinterp.RenderTick(1, nsinterp.DefaultDelay))
}

func TestInterpolate_largeTickGapStaysBeforeLaterSnapshot(t *testing.T) {
	t.Parallel()

	const gap = 1 << 25
	snaps := []nswire.Snapshot{
		{Tick: 0, Entities: []nswire.EntityState{{ID: 1}}},
		{Tick: gap, Entities: []nswire.EntityState{{ID: 1, Position: mgl32.Vec3{100, 0, 0}}}},
	}

	got, ok := nsinterp.Interpolate(slices.All(snaps), gap-1, nsinterp.MatchByID)
	require.True(t, ok)
	require.Less(t, got[0].Position[0], float32(100))
	require.InDelta(t, 100, got[0].Position[0], 1e-4)
}
