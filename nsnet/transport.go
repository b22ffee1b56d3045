package nsnet

import (
	"errors"
	"net"
	"sync/atomic"
)

// Transport is a non-blocking datagram socket.
type Transport interface {
	// SendTo writes b as a single datagram to addr.
	// A nil error only means the datagram was handed to the network.
	SendTo(b []byte, addr net.Addr) error

	// Receive returns the next queued datagram, if any, without blocking.
	// The returned slice is owned by the caller.
	Receive() (b []byte, from net.Addr, ok bool)

	LocalAddr() net.Addr

	// Close releases the underlying socket
	// and stops the background receiver.
	Close() error
}

// DefaultInboxSize is the number of received datagrams
// a transport queues between polls before dropping new arrivals.
const DefaultInboxSize = 256

// ErrClosed is returned from SendTo after the transport has been closed.
var ErrClosed = errors.New("transport closed")

// AddrMismatchError is returned from a connection-oriented transport's SendTo
// when the destination is not the connection's remote address.
type AddrMismatchError struct {
	Want, Got net.Addr
}

func (e AddrMismatchError) Error() string {
	return "destination " + e.Got.String() + " does not match connection peer " + e.Want.String()
}

// datagram is a received datagram and its source.
type datagram struct {
	b    []byte
	from net.Addr
}

// inbox is the bounded queue between a background receiver and Receive.
type inbox struct {
	ch      chan datagram
	dropped atomic.Uint64
}

func newInbox(size int) *inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &inbox{ch: make(chan datagram, size)}
}

// offer queues d, or counts it as dropped if the queue is full.
func (in *inbox) offer(d datagram) {
	select {
	case in.ch <- d:
	default:
		in.dropped.Add(1)
	}
}

func (in *inbox) poll() (datagram, bool) {
	select {
	case d := <-in.ch:
		return d, true
	default:
		return datagram{}, false
	}
}
