package scope

// Object is a record instance that knows its class.
type Object interface {
	Class() Class
}

// Class describes a record type: its fields and its default instance.
// The default instance carries the class's current code version in the
// version field.
type Class interface {
	Name() string
	Field(name string) (Field, bool)
	Default() Object
}

// Field reads and writes one uint64 field through an object.
// Uint64 reports false when the field is not a uint64 on obj.
type Field interface {
	Name() string
	Uint64(obj Object) (uint64, bool)
	SetUint64(obj Object, v uint64) error
}
