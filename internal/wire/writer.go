package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer is a saving cursor. Writes at the cursor overwrite existing bytes
// and extend the buffer when they run past its end, so a caller can Seek
// back to patch a size field and then Seek forward to continue.
type Writer struct {
	buf  []byte
	pos  int64
	name string
}

// NewWriter returns an empty Writer.
func NewWriter(name string) *Writer {
	return &Writer{name: name}
}

// Tell returns the current cursor position.
func (w *Writer) Tell() int64 { return w.pos }

// Seek moves the cursor to pos, which must be within the written bytes.
func (w *Writer) Seek(pos int64) error {
	if pos < 0 || pos > int64(len(w.buf)) {
		return fmt.Errorf("%w: %d (len %d)", ErrSeekRange, pos, len(w.buf))
	}
	w.pos = pos
	return nil
}

// IsLoading always reports false for a Writer.
func (w *Writer) IsLoading() bool { return false }

// Name returns the archive name given to NewWriter.
func (w *Writer) Name() string { return w.name }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int64 { return int64(len(w.buf)) }

// Bytes returns the written stream. The slice aliases the Writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) put(b []byte) {
	end := w.pos + int64(len(b))
	if end > int64(len(w.buf)) {
		w.buf = append(w.buf, make([]byte, end-int64(len(w.buf)))...)
	}
	copy(w.buf[w.pos:end], b)
	w.pos = end
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(b []byte) { w.put(b) }

func (w *Writer) WriteUint8(v uint8) { w.put([]byte{v}) }

func (w *Writer) WriteInt8(v int8) { w.WriteUint8(uint8(v)) }

func (w *Writer) WriteUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.put(b[:])
}

func (w *Writer) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }

func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.put(b[:])
}

func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.put(b[:])
}

func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

func (w *Writer) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }

func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
		return
	}
	w.WriteUint8(0)
}

// WriteString writes an int32 length prefix followed by the bytes of s.
func (w *Writer) WriteString(s string) {
	w.WriteInt32(int32(len(s)))
	w.put([]byte(s))
}

// PatchInt32 overwrites the int32 at offset at without moving the cursor.
func (w *Writer) PatchInt32(at int64, v int32) error {
	if at < 0 || at+4 > int64(len(w.buf)) {
		return fmt.Errorf("%w: patch at %d (len %d)", ErrSeekRange, at, len(w.buf))
	}
	binary.LittleEndian.PutUint32(w.buf[at:at+4], uint32(v))
	return nil
}
