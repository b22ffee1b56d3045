// Package nsrecord persists a sequence of snapshots to a zstd-compressed stream
// and reads it back, for offline inspection and replay of a session.
//
// A recording is a short header followed by length-prefixed frames.
// Each frame is a wire packet (see [nswire.Encode]) carrying one snapshot,
// with the frame index as its sequence number,
// so recordings share the wire format's checksums and limits.
package nsrecord
