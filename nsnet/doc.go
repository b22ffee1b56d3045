// Package nsnet is the datagram transport boundary for netsync.
//
// A [Transport] sends opaque byte buffers to a peer address
// and hands back received datagrams without ever blocking the caller.
// Receiving is driven by a background goroutine per transport,
// which queues datagrams for the next poll and drops them when the queue is full,
// in keeping with the unreliable delivery the layer above already assumes.
//
// Two implementations are provided:
// [UDPTransport] over a plain UDP socket,
// and [QUICTransport] over the unreliable datagram extension of a QUIC connection.
package nsnet
