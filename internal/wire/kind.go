package wire

// Kind is the declared type tag of a property as written in the stream.
// Kinds are stored as names so that readers can report tags they do not know.
type Kind string

const (
	KindNone       Kind = ""
	KindBool       Kind = "BoolProperty"
	KindInt8       Kind = "Int8Property"
	KindInt16      Kind = "Int16Property"
	KindInt        Kind = "IntProperty"
	KindInt64      Kind = "Int64Property"
	KindByte       Kind = "ByteProperty"
	KindUInt16     Kind = "UInt16Property"
	KindUInt32     Kind = "UInt32Property"
	KindUInt64     Kind = "UInt64Property"
	KindFloat      Kind = "FloatProperty"
	KindDouble     Kind = "DoubleProperty"
	KindName       Kind = "NameProperty"
	KindStr        Kind = "StrProperty"
	KindStruct     Kind = "StructProperty"
	KindArray      Kind = "ArrayProperty"
	KindSet        Kind = "SetProperty"
	KindMap        Kind = "MapProperty"
	KindObject     Kind = "ObjectProperty"
	KindSoftObject Kind = "SoftObjectProperty"
)

var knownKinds = map[Kind]bool{
	KindBool:       true,
	KindInt8:       true,
	KindInt16:      true,
	KindInt:        true,
	KindInt64:      true,
	KindByte:       true,
	KindUInt16:     true,
	KindUInt32:     true,
	KindUInt64:     true,
	KindFloat:      true,
	KindDouble:     true,
	KindName:       true,
	KindStr:        true,
	KindStruct:     true,
	KindArray:      true,
	KindSet:        true,
	KindMap:        true,
	KindObject:     true,
	KindSoftObject: true,
}

// Known reports whether k is one of the kinds this package can decode.
func (k Kind) Known() bool {
	return knownKinds[k]
}

// IsContainer reports whether k is an array, set, or map.
func (k Kind) IsContainer() bool {
	return k == KindArray || k == KindSet || k == KindMap
}

// FixedSize returns the encoded width of a fixed-size scalar kind, or 0.
func (k Kind) FixedSize() int {
	switch k {
	case KindInt8, KindByte:
		return 1
	case KindInt16, KindUInt16:
		return 2
	case KindInt, KindUInt32, KindFloat:
		return 4
	case KindInt64, KindUInt64, KindDouble:
		return 8
	default:
		return 0
	}
}

func (k Kind) String() string {
	if k == KindNone {
		return "<none>"
	}
	return string(k)
}
