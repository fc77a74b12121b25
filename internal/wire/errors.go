package wire

import "errors"

var (
	// ErrShortBuffer indicates a read ran past the end of the stream.
	ErrShortBuffer = errors.New("wire: unexpected end of stream")

	// ErrSeekRange indicates a seek outside the stream bounds.
	ErrSeekRange = errors.New("wire: seek out of range")

	// ErrInvalidLength indicates a negative or oversized length or count prefix.
	ErrInvalidLength = errors.New("wire: invalid length prefix")

	// ErrInvalidName indicates a property or type name that is not a valid identifier.
	ErrInvalidName = errors.New("wire: invalid name")

	// ErrBadMagic indicates the stream does not start with a record header.
	ErrBadMagic = errors.New("wire: not a record file")

	// ErrUnsupportedFormat indicates a record header with an unknown format version.
	ErrUnsupportedFormat = errors.New("wire: unsupported record format")
)
