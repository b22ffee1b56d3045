package nsnet_test

import (
	"net"
	"testing"

	"github.com/gordian-engine/netsync/internal/nstest"
	"github.com/gordian-engine/netsync/nsnet"
	"github.com/stretchr/testify/require"
)

func TestUDPTransport_exchange(t *testing.T) {
	t.Parallel()

	log := nstest.NewLogger(t)

	a, err := nsnet.ListenUDP(log.With("side", "a"), "127.0.0.1:0")
	require.NoError(t, err)
	defer a.Close()

	b, err := nsnet.ListenUDP(log.With("side", "b"), "127.0.0.1:0")
	require.NoError(t, err)
	defer b.Close()

	// Nothing queued: returns immediately.
	_, _, ok := b.Receive()
	require.False(t, ok)

	require.NoError(t, a.SendTo([]byte("hello"), b.LocalAddr()))

	type recv struct {
		b    []byte
		from net.Addr
	}
	got := nstest.PollSoon(t, func() (recv, bool) {
		data, from, ok := b.Receive()
		return recv{b: data, from: from}, ok
	})
	require.Equal(t, "hello", string(got.b))
	require.Equal(t, a.LocalAddr().String(), got.from.String())
}

func TestListenUDP_bindFailure(t *testing.T) {
	t.Parallel()

	log := nstest.NewLogger(t)

	a, err := nsnet.ListenUDP(log, "127.0.0.1:0")
	require.NoError(t, err)
	defer a.Close()

	// The port is already taken.
	_, err = nsnet.ListenUDP(log, a.LocalAddr().String())
	require.Error(t, err)

	_, err = nsnet.ListenUDP(log, "not an address")
	require.Error(t, err)
}

func TestUDPTransport_closed(t *testing.T) {
	t.Parallel()

	a, err := nsnet.ListenUDP(nstest.NewLogger(t), "127.0.0.1:0")
	require.NoError(t, err)

	require.NoError(t, a.Close())

	// Second close is harmless and reports the same result.
	require.NoError(t, a.Close())

	require.ErrorIs(t, a.SendTo([]byte("x"), a.LocalAddr()), nsnet.ErrClosed)
}
