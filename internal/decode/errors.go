package decode

import "errors"

var (
	// ErrTooDeep indicates struct nesting beyond Decoder.MaxDepth.
	ErrTooDeep = errors.New("decode: struct nesting too deep")

	// ErrUnknownKind indicates a type tag the decoder cannot read.
	ErrUnknownKind = errors.New("decode: unknown type tag")

	// ErrFieldOverrun indicates a tag whose size runs past the end of the stream.
	ErrFieldOverrun = errors.New("decode: field size exceeds stream")
)
