package nspredict_test

import (
	"testing"

	"github.com/gordian-engine/netsync/nspredict"
	"github.com/gordian-engine/netsync/nswire"
	"github.com/stretchr/testify/require"
)

func TestQueue_pruneThrough(t *testing.T) {
	t.Parallel()

	q := nspredict.NewQueue(0, nspredict.DropOldest)
	require.Equal(t, nspredict.DefaultMaxPending, q.Max())

	for seq := uint32(3); seq <= 6; seq++ {
		require.NoError(t, q.Push(seq, nswire.Command{EntityID: 1, Input: uint8(seq)}))
	}

	require.Equal(t, 3, q.PruneThrough(5))
	require.Equal(t, []nspredict.Pending{
		{Seq: 6, Command: nswire.Command{EntityID: 1, Input: 6}},
	}, q.Pending())

	// Pruning below every remaining entry is a no-op.
	require.Zero(t, q.PruneThrough(2))
	require.Equal(t, 1, q.Len())
}

func TestQueue_dropOldest(t *testing.T) {
	t.Parallel()

	q := nspredict.NewQueue(2, nspredict.DropOldest)
	require.NoError(t, q.Push(1, nswire.Command{Input: 1}))
	require.NoError(t, q.Push(2, nswire.Command{Input: 2}))

	err := q.Push(3, nswire.Command{Input: 3})
	var full *nspredict.QueueFullError
	require.ErrorAs(t, err, &full)
	require.Equal(t, nspredict.DropOldest, full.Policy)
	require.Equal(t, uint32(1), full.Dropped.Seq)

	require.Equal(t, []nswire.Command{{Input: 2}, {Input: 3}}, q.Commands())
}

func TestQueue_reject(t *testing.T) {
	t.Parallel()

	q := nspredict.NewQueue(2, nspredict.Reject)
	require.NoError(t, q.Push(1, nswire.Command{Input: 1}))
	require.NoError(t, q.Push(2, nswire.Command{Input: 2}))

	err := q.Push(3, nswire.Command{Input: 3})
	var full *nspredict.QueueFullError
	require.ErrorAs(t, err, &full)
	require.Equal(t, nspredict.Reject, full.Policy)

	require.Equal(t, []nswire.Command{{Input: 1}, {Input: 2}}, q.Commands())
}

func TestQueue_empty(t *testing.T) {
	t.Parallel()

	q := nspredict.NewQueue(4, nspredict.Reject)
	require.Nil(t, q.Pending())
	require.Nil(t, q.Commands())
	require.Zero(t, q.PruneThrough(100))
}
