package nsnet

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
)

// NextProto is the ALPN protocol identifier for netsync over QUIC.
const NextProto = "netsync/1"

// ApplicationErrorCode is used for [DatagramConn.CloseWithError].
type ApplicationErrorCode uint64

// DatagramConn is the subset of a QUIC connection used by [QUICTransport].
// [*quic.Conn] satisfies it through [WrapConn].
type DatagramConn interface {
	SendDatagram([]byte) error
	ReceiveDatagram(context.Context) ([]byte, error)

	CloseWithError(code ApplicationErrorCode, msg string) error

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

var _ DatagramConn = ConnAdapter{}

// ConnAdapter wraps a [*quic.Conn], implementing the [DatagramConn] interface.
//
// Create an instance with [WrapConn].
type ConnAdapter struct {
	qc *quic.Conn
}

// WrapConn wraps the given connection,
// returning a value implementing [DatagramConn].
func WrapConn(qc *quic.Conn) ConnAdapter {
	return ConnAdapter{qc: qc}
}

func (c ConnAdapter) SendDatagram(p []byte) error {
	return c.qc.SendDatagram(p)
}

func (c ConnAdapter) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	return c.qc.ReceiveDatagram(ctx)
}

func (c ConnAdapter) CloseWithError(code ApplicationErrorCode, msg string) error {
	if (code >> 62) > 0 {
		panic(fmt.Errorf(
			"BUG: application error code must fit in 62 bits (got 0x%x)", code,
		))
	}
	return c.qc.CloseWithError(quic.ApplicationErrorCode(code), msg)
}

func (c ConnAdapter) LocalAddr() net.Addr { return c.qc.LocalAddr() }

func (c ConnAdapter) RemoteAddr() net.Addr { return c.qc.RemoteAddr() }

// DefaultQUICConfig returns the QUIC configuration netsync expects:
// datagrams enabled, and keepalives so an idle tick loop
// does not lose its connection.
func DefaultQUICConfig() *quic.Config {
	return &quic.Config{
		EnableDatagrams: true,
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 5 * time.Second,
	}
}

// QUICTransport is a [Transport] over the unreliable datagrams
// of a single QUIC connection.
//
// Because the connection already identifies the peer,
// SendTo only accepts a nil address or the connection's remote address.
type QUICTransport struct {
	log *slog.Logger

	conn DatagramConn
	in   *inbox

	cancel context.CancelCauseFunc

	closeOnce  sync.Once
	closeErr   error
	closed     chan struct{}
	readerDone chan struct{}
}

var _ Transport = (*QUICTransport)(nil)

// NewQUICTransport starts receiving datagrams from conn in the background.
// The receiver stops when ctx is canceled or the transport is closed.
func NewQUICTransport(
	ctx context.Context,
	log *slog.Logger,
	conn DatagramConn,
	inboxSize int,
) *QUICTransport {
	ctx, cancel := context.WithCancelCause(ctx)

	t := &QUICTransport{
		log: log,

		conn: conn,
		in:   newInbox(inboxSize),

		cancel: cancel,

		closed:     make(chan struct{}),
		readerDone: make(chan struct{}),
	}

	go t.readLoop(ctx)

	return t
}

func (t *QUICTransport) readLoop(ctx context.Context) {
	defer close(t.readerDone)

	from := t.conn.RemoteAddr()
	for {
		b, err := t.conn.ReceiveDatagram(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.log.Debug(
					"Stopping QUIC datagram receiver due to context cancellation",
					"cause", context.Cause(ctx),
				)
			} else {
				t.log.Info("QUIC datagram receive failed; stopping receiver", "err", err)
			}
			return
		}

		t.in.offer(datagram{b: b, from: from})
	}
}

// SendTo implements [Transport].
func (t *QUICTransport) SendTo(b []byte, addr net.Addr) error {
	select {
	case <-t.closed:
		return ErrClosed
	default:
	}

	remote := t.conn.RemoteAddr()
	if addr != nil && addr.String() != remote.String() {
		return AddrMismatchError{Want: remote, Got: addr}
	}

	if err := t.conn.SendDatagram(b); err != nil {
		return fmt.Errorf("failed to send QUIC datagram: %w", err)
	}
	return nil
}

// Receive implements [Transport].
func (t *QUICTransport) Receive() ([]byte, net.Addr, bool) {
	d, ok := t.in.poll()
	if !ok {
		return nil, nil, false
	}
	return d.b, d.from, true
}

// LocalAddr implements [Transport].
func (t *QUICTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// RemoteAddr returns the address of the connection's peer.
func (t *QUICTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

// Dropped returns the number of received datagrams discarded
// because the inbox was full.
func (t *QUICTransport) Dropped() uint64 {
	return t.in.dropped.Load()
}

// Close implements [Transport].
// It closes the QUIC connection and waits for the background receiver.
func (t *QUICTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		t.cancel(ErrClosed)
		t.closeErr = t.conn.CloseWithError(0, "closing")
		<-t.readerDone
	})
	return t.closeErr
}
