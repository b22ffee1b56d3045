package nsack_test

import (
	"testing"

	"github.com/gordian-engine/netsync/nsack"
	"github.com/stretchr/testify/require"
)

func TestTracker_outOfOrder(t *testing.T) {
	t.Parallel()

	var tr nsack.Tracker
	require.Equal(t, nsack.ObservedNewer, tr.Observe(5))
	require.Equal(t, nsack.ObservedNewer, tr.Observe(6))
	require.Equal(t, nsack.ObservedNewer, tr.Observe(8))
	require.Equal(t, nsack.ObservedOlder, tr.Observe(7))

	require.Equal(t, uint32(8), tr.Ack)
	require.Equal(t, uint32(0b1111), tr.AckBits)

	for _, seq := range []uint32{5, 6, 7, 8} {
		require.Truef(t, tr.Received(seq), "expected %d to be received", seq)
	}
	for _, seq := range []uint32{0, 1, 2, 3, 4, 9} {
		require.Falsef(t, tr.Received(seq), "expected %d not to be received", seq)
	}
}

func TestTracker_duplicateIdempotent(t *testing.T) {
	t.Parallel()

	for _, seqs := range [][]uint32{
		{3},
		{3, 1},
		{10, 4, 7},
	} {
		var once, twice nsack.Tracker
		for _, s := range seqs {
			once.Observe(s)
			twice.Observe(s)
		}

		// Replay every sequence number on the second tracker.
		for _, s := range seqs {
			require.Equal(t, nsack.ObservedDuplicate, twice.Observe(s))
		}

		require.Equal(t, once, twice)
	}
}

func TestTracker_agesOutOfWindow(t *testing.T) {
	t.Parallel()

	var tr nsack.Tracker
	tr.Observe(1)
	tr.Observe(2)

	// Advancing by exactly the window size clears everything older.
	tr.Observe(2 + nsack.WindowSize)
	require.Equal(t, uint32(1), tr.AckBits)
	require.False(t, tr.Received(2))
	require.False(t, tr.Received(1))

	// A jump far larger than the window must not panic or wrap.
	tr.Observe(1000)
	require.Equal(t, uint32(1000), tr.Ack)
	require.Equal(t, uint32(1), tr.AckBits)

	// Too old to record.
	require.Equal(t, nsack.ObservedStale, tr.Observe(1000-nsack.WindowSize))
	require.Equal(t, uint32(1), tr.AckBits)

	// Oldest slot still in the window.
	require.Equal(t, nsack.ObservedOlder, tr.Observe(1000-(nsack.WindowSize-1)))
	require.Equal(t, uint32(1<<31|1), tr.AckBits)
}

func TestTracker_zeroValue(t *testing.T) {
	t.Parallel()

	var tr nsack.Tracker
	require.False(t, tr.Received(0))

	// Sequence zero matches the initial ack and is indistinguishable
	// from the empty state, so it is treated as a duplicate.
	require.Equal(t, nsack.ObservedDuplicate, tr.Observe(0))
	require.Equal(t, nsack.Tracker{}, tr)
}
