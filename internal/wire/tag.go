package wire

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// NoneName terminates a property list.
const NoneName = "None"

// MaxNameLen bounds property, type, and struct names.
const MaxNameLen = 1024

// Tag is the header written before each property value.
type Tag struct {
	Name       string
	Type       Kind
	Size       int32 // encoded value size in bytes; 0 for inline bools
	ArrayIndex int32

	StructName      string // struct shape for Type, InnerType (or map key) when struct
	ValueStructName string // struct shape for a map's ValueType when struct
	InnerType       Kind   // element kind for arrays and sets, key kind for maps
	ValueType       Kind   // value kind for maps

	BoolVal bool // value of a top-level bool, packed into the tag

	// InContainer marks a synthetic tag derived for a container element.
	// It is never written; element bools carry their value in the stream.
	InContainer bool
}

// EndTag returns the terminating tag of a property list.
func EndTag() Tag {
	return Tag{Name: NoneName}
}

// IsEnd reports whether t terminates a property list.
func (t Tag) IsEnd() bool {
	return t.Name == NoneName
}

// Element returns the synthetic tag used to decode one element of a
// container: a copy of t with Type replaced by kind.
func (t Tag) Element(kind Kind) Tag {
	e := t
	e.Type = kind
	e.Size = 0
	e.BoolVal = false
	e.InContainer = true
	return e
}

// MapValue returns the synthetic tag used to decode the value half of a map entry.
func (t Tag) MapValue() Tag {
	e := t.Element(t.ValueType)
	e.StructName = t.ValueStructName
	return e
}

func (t Tag) String() string {
	switch t.Type {
	case KindStruct:
		return fmt.Sprintf("%s %s<%s>", t.Name, t.Type, t.StructName)
	case KindArray, KindSet:
		return fmt.Sprintf("%s %s<%s>", t.Name, t.Type, t.InnerType)
	case KindMap:
		return fmt.Sprintf("%s %s<%s,%s>", t.Name, t.Type, t.InnerType, t.ValueType)
	default:
		return fmt.Sprintf("%s %s", t.Name, t.Type)
	}
}

// ValidName reports whether s can be used as a property, type, or struct name.
func ValidName(s string) bool {
	if s == "" || len(s) > MaxNameLen || !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// ReadTag reads one property tag. For the terminating tag only Name is set.
func ReadTag(r *Reader) (Tag, error) {
	name, err := r.ReadName()
	if err != nil {
		return Tag{}, err
	}
	if name == NoneName {
		return EndTag(), nil
	}

	typ, err := r.ReadName()
	if err != nil {
		return Tag{}, fmt.Errorf("type of %q: %w", name, err)
	}
	t := Tag{Name: name, Type: Kind(typ)}

	if t.Size, err = r.ReadInt32(); err != nil {
		return Tag{}, err
	}
	if t.Size < 0 {
		return Tag{}, fmt.Errorf("%w: size %d for %q", ErrInvalidLength, t.Size, name)
	}
	if t.ArrayIndex, err = r.ReadInt32(); err != nil {
		return Tag{}, err
	}

	switch t.Type {
	case KindStruct:
		t.StructName, err = r.ReadName()
	case KindBool:
		t.BoolVal, err = r.ReadBool()
	case KindArray, KindSet:
		var inner string
		if inner, err = r.ReadName(); err == nil {
			t.InnerType = Kind(inner)
			if t.InnerType == KindStruct {
				t.StructName, err = r.ReadName()
			}
		}
	case KindMap:
		err = readMapExtras(r, &t)
	}
	if err != nil {
		return Tag{}, fmt.Errorf("tag %q: %w", name, err)
	}
	return t, nil
}

func readMapExtras(r *Reader, t *Tag) error {
	key, err := r.ReadName()
	if err != nil {
		return err
	}
	val, err := r.ReadName()
	if err != nil {
		return err
	}
	t.InnerType, t.ValueType = Kind(key), Kind(val)
	if t.InnerType == KindStruct {
		if t.StructName, err = r.ReadName(); err != nil {
			return err
		}
	}
	if t.ValueType == KindStruct {
		if t.ValueStructName, err = r.ReadName(); err != nil {
			return err
		}
	}
	return nil
}

// WriteTag writes t and returns the offset of its size field so the caller
// can patch it once the value has been written.
func WriteTag(w *Writer, t Tag) int64 {
	w.WriteString(t.Name)
	if t.IsEnd() {
		return -1
	}
	w.WriteString(string(t.Type))
	sizeAt := w.Tell()
	w.WriteInt32(t.Size)
	w.WriteInt32(t.ArrayIndex)

	switch t.Type {
	case KindStruct:
		w.WriteString(t.StructName)
	case KindBool:
		w.WriteBool(t.BoolVal)
	case KindArray, KindSet:
		w.WriteString(string(t.InnerType))
		if t.InnerType == KindStruct {
			w.WriteString(t.StructName)
		}
	case KindMap:
		w.WriteString(string(t.InnerType))
		w.WriteString(string(t.ValueType))
		if t.InnerType == KindStruct {
			w.WriteString(t.StructName)
		}
		if t.ValueType == KindStruct {
			w.WriteString(t.ValueStructName)
		}
	}
	return sizeAt
}

// FieldWriter back-fills a tag's size once its value has been written.
type FieldWriter struct {
	w      *Writer
	sizeAt int64
	start  int64
}

// BeginField writes t with a placeholder size and returns a FieldWriter
// positioned at the start of the value.
func BeginField(w *Writer, t Tag) *FieldWriter {
	t.Size = 0
	sizeAt := WriteTag(w, t)
	return &FieldWriter{w: w, sizeAt: sizeAt, start: w.Tell()}
}

// End patches the tag size with the number of bytes written since BeginField.
func (f *FieldWriter) End() error {
	size := f.w.Tell() - f.start
	if size > int64(^uint32(0)>>1) {
		return fmt.Errorf("%w: value of %d bytes", ErrInvalidLength, size)
	}
	return f.w.PatchInt32(f.sizeAt, int32(size))
}

// WriteEnd terminates a property list.
func WriteEnd(w *Writer) {
	WriteTag(w, EndTag())
}
