package nsack_test

import (
	"testing"

	"github.com/gordian-engine/netsync/nsack"
	"github.com/stretchr/testify/require"
)

func TestLedger_ackedThroughTracker(t *testing.T) {
	t.Parallel()

	l := nsack.NewLedger()
	for seq := uint32(1); seq <= 5; seq++ {
		require.Empty(t, l.Sent(seq).Lost)
	}
	require.Equal(t, 5, l.Outstanding())

	// The peer only received 1, 2, and 4.
	var remote nsack.Tracker
	remote.Observe(1)
	remote.Observe(2)
	remote.Observe(4)

	u := l.Apply(remote.Ack, remote.AckBits)
	require.Equal(t, []uint32{1, 2, 4}, u.Acked)
	require.Empty(t, u.Lost)

	// 3 is still within the window so it may yet arrive;
	// 5 is newer than the peer's ack.
	require.Equal(t, 2, l.Outstanding())
	require.True(t, l.Pending(3))
	require.True(t, l.Pending(5))

	// Late arrival of 3 is reported as an ack.
	remote.Observe(3)
	u = l.Apply(remote.Ack, remote.AckBits)
	require.Equal(t, []uint32{3}, u.Acked)
	require.False(t, l.Pending(3))
}

func TestLedger_lostWhenWindowPasses(t *testing.T) {
	t.Parallel()

	l := nsack.NewLedger()
	l.Sent(1)
	l.Sent(2)

	// Peer acknowledges something far enough ahead
	// that 1 and 2 cannot be represented in its bitfield.
	u := l.Apply(40, 1)
	require.Empty(t, u.Acked)
	require.Equal(t, []uint32{1, 2}, u.Lost)
	require.Zero(t, l.Outstanding())
}

func TestLedger_slotReuseReportsLoss(t *testing.T) {
	t.Parallel()

	l := nsack.NewLedger()
	l.Sent(3)

	u := l.Sent(3 + nsack.WindowSize)
	require.Equal(t, []uint32{3}, u.Lost)
	require.False(t, l.Pending(3))
	require.True(t, l.Pending(3+nsack.WindowSize))
	require.Equal(t, 1, l.Outstanding())
}

func TestLedger_emptyAckResolvesNothing(t *testing.T) {
	t.Parallel()

	l := nsack.NewLedger()
	l.Sent(1)

	// Zero-value tracker state from a peer that has received nothing.
	u := l.Apply(0, 0)
	require.Empty(t, u.Acked)
	require.Empty(t, u.Lost)
	require.Equal(t, 1, l.Outstanding())
}
