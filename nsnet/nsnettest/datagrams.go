package nsnettest

import (
	"net"

	"github.com/gordian-engine/netsync/nsnet"
)

// DatagramDropper wraps a transport and turns SendTo into a no-op.
//
// This is useful for tests that need to simulate
// datagrams that do not reach the destination.
type DatagramDropper struct {
	nsnet.Transport
}

func (d DatagramDropper) SendTo([]byte, net.Addr) error {
	return nil
}

// FailingSender wraps a transport and makes every SendTo return Err.
type FailingSender struct {
	nsnet.Transport

	Err error
}

func (s FailingSender) SendTo([]byte, net.Addr) error {
	return s.Err
}

// RecordingSender wraps a transport and keeps a copy of every datagram
// passed to SendTo before forwarding it.
//
// RecordingSender is not safe for concurrent use.
type RecordingSender struct {
	nsnet.Transport

	Sent [][]byte
}

func (s *RecordingSender) SendTo(b []byte, addr net.Addr) error {
	s.Sent = append(s.Sent, append([]byte(nil), b...))
	return s.Transport.SendTo(b, addr)
}
