package object

import "errors"

var (
	// ErrBadType indicates a field type expression that does not parse.
	ErrBadType = errors.New("object: bad field type")

	// ErrUnknownClass indicates a class name the catalog does not hold.
	ErrUnknownClass = errors.New("object: unknown class")

	// ErrUnknownField indicates a field name the class does not declare.
	ErrUnknownField = errors.New("object: unknown field")

	// ErrTypeMismatch indicates a value that does not fit the field type.
	ErrTypeMismatch = errors.New("object: type mismatch")

	// ErrUnencodable indicates a property that cannot be written back to
	// a stream, such as one kept without a value after an unknown tag.
	ErrUnencodable = errors.New("object: property cannot be encoded")
)
