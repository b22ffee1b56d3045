// Package nsnettest contains [nsnet.Transport] implementations
// and fixtures for tests.
package nsnettest

import (
	"net"
	"sync"

	"github.com/gordian-engine/netsync/nsnet"
)

// PipeAddr is the address of one end of a [Pipe].
type PipeAddr string

func (a PipeAddr) Network() string { return "pipe" }
func (a PipeAddr) String() string  { return string(a) }

// PipeEnd is one side of an in-memory datagram pipe.
// Datagrams sent to the peer's address are delivered
// to the peer's queue, dropped if the queue is full,
// and never reordered or duplicated.
type PipeEnd struct {
	addr PipeAddr
	peer *PipeEnd

	mu     sync.Mutex
	queue  [][]byte
	limit  int
	closed bool
}

var _ nsnet.Transport = (*PipeEnd)(nil)

// NewPipe returns two connected pipe ends with addresses "a" and "b".
func NewPipe() (a, b *PipeEnd) {
	a = &PipeEnd{addr: "a", limit: nsnet.DefaultInboxSize}
	b = &PipeEnd{addr: "b", limit: nsnet.DefaultInboxSize}
	a.peer, b.peer = b, a
	return a, b
}

// SendTo implements [nsnet.Transport].
// Datagrams addressed anywhere other than the peer are silently discarded,
// as they would be on a real network.
func (p *PipeEnd) SendTo(b []byte, addr net.Addr) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nsnet.ErrClosed
	}

	if addr == nil || addr.String() != p.peer.addr.String() {
		return nil
	}

	p.peer.deliver(append([]byte(nil), b...))
	return nil
}

func (p *PipeEnd) deliver(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || len(p.queue) >= p.limit {
		return
	}
	p.queue = append(p.queue, b)
}

// Receive implements [nsnet.Transport].
func (p *PipeEnd) Receive() ([]byte, net.Addr, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil, nil, false
	}
	b := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	return b, p.peer.addr, true
}

// Inject queues b as though it had arrived from the peer.
// This is useful for feeding malformed datagrams to a receiver.
func (p *PipeEnd) Inject(b []byte) {
	p.deliver(b)
}

// LocalAddr implements [nsnet.Transport].
func (p *PipeEnd) LocalAddr() net.Addr { return p.addr }

// PeerAddr returns the address of the other end of the pipe.
func (p *PipeEnd) PeerAddr() net.Addr { return p.peer.addr }

// Close implements [nsnet.Transport].
func (p *PipeEnd) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.queue = nil
	return nil
}
