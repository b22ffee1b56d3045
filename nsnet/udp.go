package nsnet

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// maxUDPPayload is the largest datagram the receive loop can read in one call.
const maxUDPPayload = 1 << 16

// UDPTransport is a [Transport] over a UDP socket.
type UDPTransport struct {
	log *slog.Logger

	conn *net.UDPConn
	in   *inbox

	closeOnce  sync.Once
	closeErr   error
	closed     chan struct{}
	readerDone chan struct{}
}

var _ Transport = (*UDPTransport)(nil)

// ListenUDP binds a UDP socket at addr (for example "0.0.0.0:7000")
// and returns a transport over it.
// Failure to bind is returned immediately; nothing is left running.
func ListenUDP(log *slog.Logger, addr string) (*UDPTransport, error) {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address %q: %w", addr, err)
	}

	conn, err := net.ListenUDP("udp", ua)
	if err != nil {
		return nil, fmt.Errorf("failed to bind UDP socket: %w", err)
	}

	return NewUDPTransport(log, conn, DefaultInboxSize), nil
}

// NewUDPTransport wraps an already bound UDP connection.
// The transport owns conn from this point on and closes it in Close.
func NewUDPTransport(log *slog.Logger, conn *net.UDPConn, inboxSize int) *UDPTransport {
	t := &UDPTransport{
		log: log,

		conn: conn,
		in:   newInbox(inboxSize),

		closed:     make(chan struct{}),
		readerDone: make(chan struct{}),
	}

	go t.readLoop()

	return t
}

func (t *UDPTransport) readLoop() {
	defer close(t.readerDone)

	buf := make([]byte, maxUDPPayload)
	for {
		n, from, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			// Errors such as ICMP-induced connection refusals are transient
			// for an unconnected socket; keep reading.
			t.log.Debug("UDP read failed", "err", err)
			continue
		}

		b := make([]byte, n)
		copy(b, buf[:n])
		t.in.offer(datagram{b: b, from: from})
	}
}

// SendTo implements [Transport].
func (t *UDPTransport) SendTo(b []byte, addr net.Addr) error {
	select {
	case <-t.closed:
		return ErrClosed
	default:
	}

	if addr == nil {
		return errors.New("no destination address given")
	}
	if _, err := t.conn.WriteTo(b, addr); err != nil {
		return fmt.Errorf("failed to write datagram to %s: %w", addr, err)
	}
	return nil
}

// Receive implements [Transport].
func (t *UDPTransport) Receive() ([]byte, net.Addr, bool) {
	d, ok := t.in.poll()
	if !ok {
		return nil, nil, false
	}
	return d.b, d.from, true
}

// LocalAddr implements [Transport].
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Dropped returns the number of received datagrams discarded
// because the inbox was full.
func (t *UDPTransport) Dropped() uint64 {
	return t.in.dropped.Load()
}

// Close implements [Transport].
// It blocks until the background receiver has stopped.
func (t *UDPTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.closeErr = t.conn.Close()
		<-t.readerDone
	})
	return t.closeErr
}
