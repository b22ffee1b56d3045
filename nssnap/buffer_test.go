package nssnap_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gordian-engine/netsync/nssnap"
	"github.com/gordian-engine/netsync/nswire"
	"github.com/stretchr/testify/require"
)

func TestBuffer_bound(t *testing.T) {
	t.Parallel()

	b := nssnap.NewBuffer(nssnap.DefaultCapacity)
	var evicted []uint32
	for tick := range uint32(70) {
		if old, ok := b.Push(nswire.Snapshot{Tick: tick}); ok {
			evicted = append(evicted, old.Tick)
		}
	}

	require.Equal(t, 64, b.Len())
	require.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, evicted)

	var got []uint32
	for i, s := range b.All() {
		require.Equal(t, s, b.At(i))
		got = append(got, s.Tick)
	}
	require.Len(t, got, 64)
	for i, tick := range got {
		require.Equal(t, uint32(i+6), tick)
	}

	latest, ok := b.Latest()
	require.True(t, ok)
	require.Equal(t, uint32(69), latest.Tick)
}

func TestBuffer_keepsArrivalOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	b := nssnap.NewBuffer(8)
	for _, tick := range []uint32{5, 3, 5, 4} {
		b.Push(nswire.Snapshot{Tick: tick})
	}

	var got []uint32
	for _, s := range b.All() {
		got = append(got, s.Tick)
	}
	require.Equal(t, []uint32{5, 3, 5, 4}, got)
}

func TestBuffer_pushCopies(t *testing.T) {
	t.Parallel()

	b := nssnap.NewBuffer(2)
	s := nswire.Snapshot{
		Tick:     1,
		Entities: []nswire.EntityState{{ID: 1, Position: mgl32.Vec3{1, 1, 1}}},
	}
	b.Push(s)
	s.Entities[0].Position[0] = 9

	require.Equal(t, float32(1), b.At(0).Entities[0].Position[0])
}

func TestBuffer_clearAndEmpty(t *testing.T) {
	t.Parallel()

	b := nssnap.NewBuffer(3)
	_, ok := b.Latest()
	require.False(t, ok)

	b.Push(nswire.Snapshot{Tick: 1})
	b.Push(nswire.Snapshot{Tick: 2})
	b.Clear()
	require.Zero(t, b.Len())
	require.Equal(t, 3, b.Cap())

	b.Push(nswire.Snapshot{Tick: 3})
	require.Equal(t, uint32(3), b.At(0).Tick)

	require.Panics(t, func() { b.At(1) })
	require.Panics(t, func() { nssnap.NewBuffer(0) })
}
