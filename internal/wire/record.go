package wire

import "fmt"

// Magic identifies a record file.
var Magic = [4]byte{'P', 'M', 'R', 'C'}

// FormatVersion is the record container version written by WriteHeader.
// It versions the container layout, not the schema of the record's class.
const FormatVersion uint16 = 1

// Header precedes the reference table and property stream of a record file.
type Header struct {
	Format uint16
	Class  string
}

// WriteHeader writes the record file header for class.
func WriteHeader(w *Writer, class string) {
	w.WriteBytes(Magic[:])
	w.WriteUint16(FormatVersion)
	w.WriteString(class)
}

// ReadHeader reads and validates a record file header.
func ReadHeader(r *Reader) (Header, error) {
	magic, err := r.ReadBytes(len(Magic))
	if err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	if [4]byte(magic) != Magic {
		return Header{}, ErrBadMagic
	}
	var h Header
	if h.Format, err = r.ReadUint16(); err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	if h.Format != FormatVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedFormat, h.Format)
	}
	if h.Class, err = r.ReadName(); err != nil {
		return Header{}, fmt.Errorf("read header class: %w", err)
	}
	return h, nil
}
