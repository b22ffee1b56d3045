// Package netsync is a client-server state-synchronization layer
// for real-time simulations exchanging packets over an unreliable,
// unordered datagram transport.
//
// A [Session] owns one connection's worth of state:
// the outbound sequence counter, the record of which remote packets arrived,
// a bounded history of received snapshots for interpolation,
// and, on clients, the queue of predicted commands awaiting acknowledgment.
//
// Sessions are poll-driven.
// A tick loop calls [*Session.Send] and [*Session.Recv] at most once each per tick,
// and neither call blocks.
// The simulation step and the renderer are the caller's concern;
// see the subpackages for the individual pieces:
// nswire for the wire format, nsack for sequence tracking,
// nssnap for snapshot history, nsinterp for interpolation,
// nspredict for prediction and reconciliation,
// and nsnet for transports.
package netsync
