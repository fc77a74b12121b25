package prop

// Value is a sealed interface holding one decoded datum.
// Only the types in this package implement it.
type Value interface {
	propValue() // Sealed - only these types implement it
}

type Bool bool

func (Bool) propValue() {}

type Int8 int8

func (Int8) propValue() {}

type Int16 int16

func (Int16) propValue() {}

type Int32 int32

func (Int32) propValue() {}

type Int64 int64

func (Int64) propValue() {}

type UInt8 uint8

func (UInt8) propValue() {}

type UInt16 uint16

func (UInt16) propValue() {}

type UInt32 uint32

func (UInt32) propValue() {}

type UInt64 uint64

func (UInt64) propValue() {}

type Float float32

func (Float) propValue() {}

type Double float64

func (Double) propValue() {}

// Name holds names and strings. Both decode to the same variant.
type Name string

func (Name) propValue() {}

// Vector is a 3D vector.
type Vector struct {
	X, Y, Z float32
}

func (Vector) propValue() {}

// Vector2D is a 2D vector.
type Vector2D struct {
	X, Y float32
}

func (Vector2D) propValue() {}

// IntPoint is an integer 2D point.
type IntPoint struct {
	X, Y int32
}

func (IntPoint) propValue() {}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Vector
	IsValid  bool
}

func (Box) propValue() {}

// Color is an 8-bit color, stored in BGRA order.
type Color struct {
	B, G, R, A uint8
}

func (Color) propValue() {}

// Plane is a plane in Hessian normal form.
type Plane struct {
	X, Y, Z, W float32
}

func (Plane) propValue() {}

// LinearColor is a floating point RGBA color.
type LinearColor struct {
	R, G, B, A float32
}

func (LinearColor) propValue() {}

// Opaque holds a struct decoded by a host-registered codec.
type Opaque struct {
	StructName string
	Data       any
}

func (Opaque) propValue() {}

// ObjectImport describes an object reference that has not been resolved.
// It carries enough to locate the object later.
type ObjectImport struct {
	ClassPackage string
	ClassName    string
	ObjectName   string
	SourceFile   string // file that defines the object
	Index        int32  // reference-table index the descriptor came from
}

func (ObjectImport) propValue() {}

// ObjectHandle is a resolved reference to a live object.
// Object is nil for a null reference.
type ObjectHandle struct {
	Object any
	Index  int32
}

func (ObjectHandle) propValue() {}

// IsNil reports whether the handle refers to no object.
func (h ObjectHandle) IsNil() bool {
	return h.Object == nil
}

// KindName returns a short label for the variant held by v.
func KindName(v Value) string {
	switch v.(type) {
	case nil:
		return "none"
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case UInt8:
		return "uint8"
	case UInt16:
		return "uint16"
	case UInt32:
		return "uint32"
	case UInt64:
		return "uint64"
	case Float:
		return "float"
	case Double:
		return "double"
	case Name:
		return "name"
	case Vector:
		return "vector"
	case Vector2D:
		return "vector2d"
	case IntPoint:
		return "intpoint"
	case Box:
		return "box"
	case Color:
		return "color"
	case Plane:
		return "plane"
	case LinearColor:
		return "linearcolor"
	case Opaque:
		return "opaque"
	case ObjectImport:
		return "import"
	case ObjectHandle:
		return "object"
	case Tree:
		return "tree"
	default:
		return "unknown"
	}
}

// AsInt64 widens any integer variant to int64.
func AsInt64(v Value) (int64, bool) {
	switch n := v.(type) {
	case Int8:
		return int64(n), true
	case Int16:
		return int64(n), true
	case Int32:
		return int64(n), true
	case Int64:
		return int64(n), true
	case UInt8:
		return int64(n), true
	case UInt16:
		return int64(n), true
	case UInt32:
		return int64(n), true
	case UInt64:
		if n > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	case Bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// AsFloat64 widens any numeric variant to float64.
func AsFloat64(v Value) (float64, bool) {
	switch n := v.(type) {
	case Float:
		return float64(n), true
	case Double:
		return float64(n), true
	case UInt64:
		return float64(n), true
	}
	if i, ok := AsInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
