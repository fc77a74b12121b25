package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MaxStringLen bounds length-prefixed strings so a corrupt prefix cannot
// trigger a huge allocation.
const MaxStringLen = 1 << 20

// Reader is a loading cursor over an in-memory record.
// Not safe for concurrent use.
type Reader struct {
	buf  []byte
	pos  int64
	name string
}

// NewReader returns a Reader positioned at the start of buf.
// name identifies the archive in diagnostics.
func NewReader(buf []byte, name string) *Reader {
	return &Reader{buf: buf, name: name}
}

// Tell returns the current cursor position.
func (r *Reader) Tell() int64 { return r.pos }

// Seek moves the cursor to pos. pos may equal Len (end of stream).
func (r *Reader) Seek(pos int64) error {
	if pos < 0 || pos > int64(len(r.buf)) {
		return fmt.Errorf("%w: %d (len %d)", ErrSeekRange, pos, len(r.buf))
	}
	r.pos = pos
	return nil
}

// IsLoading always reports true for a Reader.
func (r *Reader) IsLoading() bool { return true }

// Name returns the archive name given to NewReader.
func (r *Reader) Name() string { return r.name }

// Len returns the total stream length.
func (r *Reader) Len() int64 { return int64(len(r.buf)) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int64 { return int64(len(r.buf)) - r.pos }

func (r *Reader) next(n int) ([]byte, error) {
	if n < 0 || int64(n) > r.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, r.pos, r.Remaining())
	}
	b := r.buf[r.pos : r.pos+int64(n)]
	r.pos += int64(n)
	return b, nil
}

// ReadBytes reads n raw bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadBool reads a single byte; any non-zero value is true.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	return v != 0, err
}

// ReadString reads an int32 length prefix followed by that many bytes.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return "", err
	}
	if n < 0 || n > MaxStringLen {
		return "", fmt.Errorf("%w: string length %d at offset %d", ErrInvalidLength, n, r.pos-4)
	}
	b, err := r.next(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadName reads a string and validates it as an identifier.
// The cursor advances past the string even when the name is invalid.
func (r *Reader) ReadName() (string, error) {
	s, err := r.ReadString()
	if err != nil {
		return "", err
	}
	if !ValidName(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, truncateForError(s))
	}
	return s, nil
}

// ReadCount reads an int32 element count and checks it against the bytes
// left in the stream. Every element occupies at least one byte, so a count
// larger than Remaining can only come from a corrupt stream.
func (r *Reader) ReadCount() (int, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 || int64(n) > r.Remaining() {
		return 0, fmt.Errorf("%w: count %d with %d bytes remaining", ErrInvalidLength, n, r.Remaining())
	}
	return int(n), nil
}

func truncateForError(s string) string {
	const max = 32
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
