// Package nswire contains the packet types exchanged between netsync peers
// and the deterministic binary codec for them.
//
// Every packet fits in a single datagram.
// There is no framing beyond the datagram boundary,
// so [Decode] must be handed exactly one datagram's bytes.
// A packet that fails to decode is dropped by the caller;
// nothing in this package retains partial input.
package nswire
