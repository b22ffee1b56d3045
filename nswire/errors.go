package nswire

import "fmt"

// DecodeError is returned from [Decode] for any input
// that is not a well-formed packet.
// Decode errors are never fatal; the datagram is simply discarded.
type DecodeError struct {
	Reason string

	// Byte offset where decoding stopped.
	Offset int
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("failed to decode packet at offset %d: %s", e.Offset, e.Reason)
}

// EncodeError is returned from [Encode]
// when a packet cannot be represented in the wire format.
type EncodeError struct {
	Reason string
}

func (e EncodeError) Error() string {
	return "failed to encode packet: " + e.Reason
}
