// Package nspubsub contains a single-publisher, many-subscriber value stream.
//
// A netsync Session publishes packet delivery outcomes to a [Stream]
// so that observers, such as a congestion monitor or a debug overlay,
// can follow them without polling the session.
package nspubsub
