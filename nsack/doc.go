// Package nsack tracks which sequence numbers have been seen,
// in both directions of a netsync connection.
//
// [Tracker] records the remote peer's sequence numbers as packets arrive,
// producing the ack and ack-bits values carried on every outgoing packet.
// [Ledger] records our own outgoing sequence numbers
// and interprets the ack values the peer sends back,
// reporting which packets were delivered and which fell out of the window.
//
// Both are best-effort over a 32-packet window.
// Neither can distinguish a packet that was never sent
// from one that was sent, lost, and aged out.
package nsack
