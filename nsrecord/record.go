package nsrecord

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/gordian-engine/netsync/nswire"
	"github.com/klauspost/compress/zstd"
)

// header is written once at the start of the decompressed stream.
var header = [8]byte{'N', 'S', 'R', 'E', 'C', 0, 0, 1}

// Writer appends snapshots to a compressed recording.
//
// Writer is safe for concurrent use.
type Writer struct {
	mu sync.Mutex

	enc *zstd.Encoder
	w   *bufio.Writer

	n      uint32
	encBuf []byte
	closed bool
}

// NewWriter starts a recording on w.
// The caller must call [*Writer.Close] to flush the final frames;
// Close does not close w.
func NewWriter(w io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	bw := bufio.NewWriterSize(enc, 64*1024)
	if _, err := bw.Write(header[:]); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("failed to write recording header: %w", err)
	}

	return &Writer{enc: enc, w: bw}, nil
}

// Write appends one snapshot.
func (w *Writer) Write(s nswire.Snapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	// Reserve the length prefix, then encode directly after it.
	buf := append(w.encBuf[:0], 0, 0, 0, 0)
	buf, err := nswire.AppendEncode(buf, nswire.Packet{Seq: w.n, Snapshot: &s})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot at tick %d: %w", s.Tick, err)
	}
	binary.BigEndian.PutUint32(buf, uint32(len(buf)-4))
	w.encBuf = buf

	if _, err := w.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", w.n, err)
	}
	w.n++
	return nil
}

// Frames returns the number of snapshots written so far.
func (w *Writer) Frames() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Flush pushes buffered frames through the compressor to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush recording: %w", err)
	}
	if err := w.enc.Flush(); err != nil {
		return fmt.Errorf("failed to flush zstd encoder: %w", err)
	}
	return nil
}

// Close flushes and finishes the compressed stream.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	flushErr := w.w.Flush()
	closeErr := w.enc.Close()
	if err := errors.Join(flushErr, closeErr); err != nil {
		return fmt.Errorf("failed to close recording: %w", err)
	}
	return nil
}

// ErrClosed is returned from writes to a closed [Writer].
var ErrClosed = errors.New("recording closed")

// FormatError indicates that a recording is not well formed.
type FormatError struct {
	Frame  uint32
	Reason string
	Err    error
}

func (e FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed recording at frame %d: %s: %v", e.Frame, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed recording at frame %d: %s", e.Frame, e.Reason)
}

func (e FormatError) Unwrap() error { return e.Err }

// Reader reads snapshots back from a recording.
//
// Reader is not safe for concurrent use.
type Reader struct {
	dec *zstd.Decoder
	r   *bufio.Reader

	n   uint32
	buf []byte
}

// NewReader validates the recording header on r
// and returns a Reader positioned at the first frame.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	br := bufio.NewReaderSize(dec, 64*1024)

	var got [len(header)]byte
	if _, err := io.ReadFull(br, got[:]); err != nil {
		dec.Close()
		return nil, FormatError{Reason: "missing header", Err: err}
	}
	if got != header {
		dec.Close()
		return nil, FormatError{Reason: "unrecognized header"}
	}

	return &Reader{dec: dec, r: br}, nil
}

// Next returns the next snapshot.
// At the clean end of the recording it returns [io.EOF].
func (r *Reader) Next() (nswire.Snapshot, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nswire.Snapshot{}, io.EOF
		}
		return nswire.Snapshot{}, FormatError{Frame: r.n, Reason: "truncated length prefix", Err: err}
	}

	sz := binary.BigEndian.Uint32(lenBuf[:])
	if sz > nswire.MaxDatagramSize {
		return nswire.Snapshot{}, FormatError{
			Frame:  r.n,
			Reason: fmt.Sprintf("frame size %d exceeds maximum", sz),
		}
	}

	if cap(r.buf) < int(sz) {
		r.buf = make([]byte, sz)
	}
	r.buf = r.buf[:sz]
	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		return nswire.Snapshot{}, FormatError{Frame: r.n, Reason: "truncated frame", Err: err}
	}

	p, err := nswire.Decode(r.buf)
	if err != nil {
		return nswire.Snapshot{}, FormatError{Frame: r.n, Reason: "undecodable frame", Err: err}
	}
	if p.Seq != r.n {
		return nswire.Snapshot{}, FormatError{
			Frame:  r.n,
			Reason: fmt.Sprintf("frame carries index %d", p.Seq),
		}
	}
	if p.Snapshot == nil {
		return nswire.Snapshot{}, FormatError{Frame: r.n, Reason: "frame has no snapshot"}
	}

	r.n++
	return *p.Snapshot, nil
}

// All iterates the remaining snapshots.
// Iteration stops after the first error, which is yielded;
// the clean end of the recording is not reported as an error.
func (r *Reader) All() iter.Seq2[nswire.Snapshot, error] {
	return func(yield func(nswire.Snapshot, error) bool) {
		for {
			s, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(s, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the decoder. It does not close the underlying reader.
func (r *Reader) Close() {
	r.dec.Close()
}
