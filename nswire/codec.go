package nswire

import (
	"encoding/binary"
	"hash/crc32"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang/snappy"
)

const (
	magic0 byte = 'N'
	magic1 byte = 'S'

	// Version is the only wire version this package understands.
	Version byte = 1
)

const (
	flagSnapshot   byte = 1 << 0
	flagCompressed byte = 1 << 1

	knownFlags = flagSnapshot | flagCompressed
)

const (
	headerSize   = 2 + 1 + 1 + 4 + 4 + 4
	commandSize  = 4 + 1 + 8
	entitySize   = 4 + 3*4 + 4*4
	checksumSize = 4

	sectionHeaderSize = 4 + 2

	// Largest raw snapshot section representable,
	// used to bound snappy output before allocating.
	maxSectionSize = sectionHeaderSize + math.MaxUint16*entitySize

	// MinPacketSize is the encoded size of a packet
	// with no commands and no snapshot.
	MinPacketSize = headerSize + 2 + checksumSize

	// MaxDatagramSize is the largest UDP payload over IPv4.
	// Encode refuses to produce anything larger.
	MaxDatagramSize = 65507
)

// Encode returns the wire representation of p.
func Encode(p Packet) ([]byte, error) {
	return AppendEncode(nil, p)
}

// AppendEncode appends the wire representation of p to dst
// and returns the extended slice.
//
// Encoding is deterministic: equal packets produce equal bytes.
func AppendEncode(dst []byte, p Packet) ([]byte, error) {
	if len(p.Commands) > math.MaxUint16 {
		return dst, EncodeError{Reason: "too many commands"}
	}

	var section []byte
	flags := byte(0)
	if p.Snapshot != nil {
		if len(p.Snapshot.Entities) > math.MaxUint16 {
			return dst, EncodeError{Reason: "too many entities in snapshot"}
		}
		flags |= flagSnapshot

		section = appendSection(nil, *p.Snapshot)

		// Only keep the snappy form if it actually saves bytes.
		// Small snapshots usually grow slightly under compression.
		enc := snappy.Encode(nil, section)
		if len(enc) < len(section) {
			section = enc
			flags |= flagCompressed
		}
	}

	start := len(dst)

	dst = append(dst, magic0, magic1, Version, flags)
	dst = binary.BigEndian.AppendUint32(dst, p.Seq)
	dst = binary.BigEndian.AppendUint32(dst, p.Ack)
	dst = binary.BigEndian.AppendUint32(dst, p.AckBits)

	dst = binary.BigEndian.AppendUint16(dst, uint16(len(p.Commands)))
	for _, c := range p.Commands {
		dst = binary.BigEndian.AppendUint32(dst, c.EntityID)
		dst = append(dst, c.Input)
		dst = binary.BigEndian.AppendUint64(dst, c.Reserved)
	}

	if flags&flagSnapshot != 0 {
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(section)))
		dst = append(dst, section...)
	}

	dst = binary.BigEndian.AppendUint32(dst, crc32.ChecksumIEEE(dst[start:]))

	if n := len(dst) - start; n > MaxDatagramSize {
		return dst[:start], EncodeError{Reason: "encoded packet exceeds maximum datagram size"}
	}

	return dst, nil
}

func appendSection(dst []byte, s Snapshot) []byte {
	dst = binary.BigEndian.AppendUint32(dst, s.Tick)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(s.Entities)))
	for _, e := range s.Entities {
		dst = binary.BigEndian.AppendUint32(dst, e.ID)
		for _, f := range e.Position {
			dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(f))
		}

		// Quaternion goes out as x, y, z, w.
		for _, f := range e.Orientation.V {
			dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(f))
		}
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(e.Orientation.W))
	}
	return dst
}

// Decode parses a single datagram into a Packet.
//
// Any malformed input, including truncated buffers,
// checksum mismatches, and unsupported versions,
// results in a [DecodeError].
// Decode does not retain references to b.
func Decode(b []byte) (Packet, error) {
	if len(b) < MinPacketSize {
		return Packet{}, DecodeError{Reason: "datagram shorter than minimum packet", Offset: len(b)}
	}

	body := b[:len(b)-checksumSize]
	want := binary.BigEndian.Uint32(b[len(b)-checksumSize:])
	if crc32.ChecksumIEEE(body) != want {
		return Packet{}, DecodeError{Reason: "checksum mismatch", Offset: len(body)}
	}

	if body[0] != magic0 || body[1] != magic1 {
		return Packet{}, DecodeError{Reason: "bad magic"}
	}
	if body[2] != Version {
		return Packet{}, DecodeError{Reason: "unsupported version", Offset: 2}
	}
	flags := body[3]
	if flags&^knownFlags != 0 {
		return Packet{}, DecodeError{Reason: "unknown flags", Offset: 3}
	}
	if flags&flagCompressed != 0 && flags&flagSnapshot == 0 {
		return Packet{}, DecodeError{Reason: "compressed flag without snapshot", Offset: 3}
	}

	r := reader{b: body, off: 4}

	var p Packet
	p.Seq = r.u32()
	p.Ack = r.u32()
	p.AckBits = r.u32()

	nCmds := int(r.u16())
	if !r.has(nCmds * commandSize) {
		return Packet{}, r.fail("command count exceeds datagram")
	}
	if nCmds > 0 {
		p.Commands = make([]Command, nCmds)
		for i := range p.Commands {
			p.Commands[i] = Command{
				EntityID: r.u32(),
				Input:    r.u8(),
				Reserved: r.u64(),
			}
		}
	}

	if flags&flagSnapshot != 0 {
		sz := int(r.u32())
		if r.err != nil {
			return Packet{}, r.err
		}
		if !r.has(sz) {
			return Packet{}, r.fail("snapshot length exceeds datagram")
		}
		section := r.take(sz)

		if flags&flagCompressed != 0 {
			n, err := snappy.DecodedLen(section)
			if err != nil {
				return Packet{}, r.fail("corrupt compressed snapshot")
			}
			if n > maxSectionSize {
				return Packet{}, r.fail("compressed snapshot too large")
			}
			section, err = snappy.Decode(make([]byte, n), section)
			if err != nil {
				return Packet{}, r.fail("corrupt compressed snapshot")
			}
		}

		snap, err := decodeSection(section)
		if err != nil {
			return Packet{}, err
		}
		p.Snapshot = &snap
	}

	if r.err != nil {
		return Packet{}, r.err
	}
	if r.off != len(body) {
		return Packet{}, r.fail("trailing bytes after packet")
	}

	return p, nil
}

func decodeSection(section []byte) (Snapshot, error) {
	r := reader{b: section}

	var s Snapshot
	s.Tick = r.u32()
	n := int(r.u16())
	if r.err != nil {
		return Snapshot{}, r.err
	}
	if len(section)-r.off != n*entitySize {
		return Snapshot{}, r.fail("snapshot entity count does not match section length")
	}

	if n > 0 {
		s.Entities = make([]EntityState, n)
		for i := range s.Entities {
			e := &s.Entities[i]
			e.ID = r.u32()
			e.Position = mgl32.Vec3{r.f32(), r.f32(), r.f32()}
			e.Orientation.V = mgl32.Vec3{r.f32(), r.f32(), r.f32()}
			e.Orientation.W = r.f32()
		}
	}

	return s, r.err
}

// reader is a bounds-checked big endian cursor.
// After the first short read, every accessor returns zero
// and err holds the first failure.
type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) has(n int) bool {
	return r.err == nil && n >= 0 && len(r.b)-r.off >= n
}

func (r *reader) fail(reason string) error {
	if r.err == nil {
		r.err = DecodeError{Reason: reason, Offset: r.off}
	}
	return r.err
}

func (r *reader) take(n int) []byte {
	if !r.has(n) {
		_ = r.fail("truncated packet")
		return nil
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) u8() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}
