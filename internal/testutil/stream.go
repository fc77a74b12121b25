// Package testutil builds property streams by hand for tests, including
// deliberately malformed ones.
package testutil

import (
	"github.com/roach88/propmig/internal/wire"
)

// Stream writes a tagged property list. Each field helper writes the tag,
// the value, and back-fills the size. Nothing is validated, so tests can
// produce streams the real encoder never would.
//
// Example:
//
//	r := testutil.NewStream("orc").
//		Int32("Health", 40).
//		Str("Name", "Orc").
//		End().
//		Reader()
type Stream struct {
	w *wire.Writer
}

// NewStream returns an empty Stream.
func NewStream(name string) *Stream {
	return &Stream{w: wire.NewWriter(name)}
}

// Writer exposes the underlying writer.
func (s *Stream) Writer() *wire.Writer { return s.w }

// Bytes returns the stream written so far.
func (s *Stream) Bytes() []byte { return s.w.Bytes() }

// Len returns the number of bytes written.
func (s *Stream) Len() int64 { return s.w.Len() }

// Reader returns a Reader over the stream written so far.
func (s *Stream) Reader() *wire.Reader {
	buf := make([]byte, len(s.w.Bytes()))
	copy(buf, s.w.Bytes())
	return wire.NewReader(buf, s.w.Name())
}

// Field writes tag followed by whatever value writes, patching the size.
func (s *Stream) Field(tag wire.Tag, value func(w *wire.Writer)) *Stream {
	f := wire.BeginField(s.w, tag)
	if value != nil {
		value(s.w)
	}
	if err := f.End(); err != nil {
		panic(err)
	}
	return s
}

// End writes the list terminator.
func (s *Stream) End() *Stream {
	wire.WriteEnd(s.w)
	return s
}

// Raw appends bytes verbatim.
func (s *Stream) Raw(b []byte) *Stream {
	s.w.WriteBytes(b)
	return s
}

// RawString appends a length-prefixed string verbatim, e.g. an invalid name.
func (s *Stream) RawString(str string) *Stream {
	s.w.WriteString(str)
	return s
}

func (s *Stream) Bool(name string, v bool) *Stream {
	return s.Field(wire.Tag{Name: name, Type: wire.KindBool, BoolVal: v}, nil)
}

func (s *Stream) Int8(name string, v int8) *Stream {
	return s.Field(wire.Tag{Name: name, Type: wire.KindInt8}, func(w *wire.Writer) { w.WriteInt8(v) })
}

func (s *Stream) Int32(name string, v int32) *Stream {
	return s.Field(wire.Tag{Name: name, Type: wire.KindInt}, func(w *wire.Writer) { w.WriteInt32(v) })
}

func (s *Stream) Int64(name string, v int64) *Stream {
	return s.Field(wire.Tag{Name: name, Type: wire.KindInt64}, func(w *wire.Writer) { w.WriteInt64(v) })
}

func (s *Stream) UInt64(name string, v uint64) *Stream {
	return s.Field(wire.Tag{Name: name, Type: wire.KindUInt64}, func(w *wire.Writer) { w.WriteUint64(v) })
}

func (s *Stream) Float(name string, v float32) *Stream {
	return s.Field(wire.Tag{Name: name, Type: wire.KindFloat}, func(w *wire.Writer) { w.WriteFloat32(v) })
}

func (s *Stream) Double(name string, v float64) *Stream {
	return s.Field(wire.Tag{Name: name, Type: wire.KindDouble}, func(w *wire.Writer) { w.WriteFloat64(v) })
}

func (s *Stream) Str(name, v string) *Stream {
	return s.Field(wire.Tag{Name: name, Type: wire.KindStr}, func(w *wire.Writer) { w.WriteString(v) })
}

func (s *Stream) Name(name, v string) *Stream {
	return s.Field(wire.Tag{Name: name, Type: wire.KindName}, func(w *wire.Writer) { w.WriteString(v) })
}

// Version writes the default version field.
func (s *Stream) Version(v uint64) *Stream {
	return s.UInt64("DeprecationVersion", v)
}

// Object writes an object reference with the given reference-table index.
func (s *Stream) Object(name string, index int32) *Stream {
	return s.Field(wire.Tag{Name: name, Type: wire.KindObject}, func(w *wire.Writer) { w.WriteInt32(index) })
}

// Soft writes a soft reference.
func (s *Stream) Soft(name, path, subPath string) *Stream {
	return s.Field(wire.Tag{Name: name, Type: wire.KindSoftObject}, func(w *wire.Writer) {
		w.WriteString(path)
		w.WriteString(subPath)
	})
}

// Vector writes a built-in Vector struct.
func (s *Stream) Vector(name string, x, y, z float32) *Stream {
	return s.Field(wire.Tag{Name: name, Type: wire.KindStruct, StructName: "Vector"}, func(w *wire.Writer) {
		w.WriteFloat32(x)
		w.WriteFloat32(y)
		w.WriteFloat32(z)
	})
}

// Struct writes a struct field whose body is a nested property list.
// body must not write the terminator; Struct adds it.
func (s *Stream) Struct(name, structName string, body func(*Stream)) *Stream {
	return s.Field(wire.Tag{Name: name, Type: wire.KindStruct, StructName: structName}, func(*wire.Writer) {
		body(s)
		s.End()
	})
}

// Strings writes an array or set of strings. For sets, removed is written
// as the removal list first.
func (s *Stream) Strings(name string, kind wire.Kind, removed []string, values ...string) *Stream {
	tag := wire.Tag{Name: name, Type: kind, InnerType: wire.KindStr}
	return s.Field(tag, func(w *wire.Writer) {
		if kind == wire.KindSet {
			w.WriteInt32(int32(len(removed)))
			for _, v := range removed {
				w.WriteString(v)
			}
		}
		w.WriteInt32(int32(len(values)))
		for _, v := range values {
			w.WriteString(v)
		}
	})
}

// Int32s writes an array of int32.
func (s *Stream) Int32s(name string, values ...int32) *Stream {
	tag := wire.Tag{Name: name, Type: wire.KindArray, InnerType: wire.KindInt}
	return s.Field(tag, func(w *wire.Writer) {
		w.WriteInt32(int32(len(values)))
		for _, v := range values {
			w.WriteInt32(v)
		}
	})
}

// Bools writes an array of bools, one byte each.
func (s *Stream) Bools(name string, values ...bool) *Stream {
	tag := wire.Tag{Name: name, Type: wire.KindArray, InnerType: wire.KindBool}
	return s.Field(tag, func(w *wire.Writer) {
		w.WriteInt32(int32(len(values)))
		for _, v := range values {
			w.WriteBool(v)
		}
	})
}

// Structs writes an array of structs, one nested list per body.
func (s *Stream) Structs(name, structName string, bodies ...func(*Stream)) *Stream {
	tag := wire.Tag{Name: name, Type: wire.KindArray, InnerType: wire.KindStruct, StructName: structName}
	return s.Field(tag, func(w *wire.Writer) {
		w.WriteInt32(int32(len(bodies)))
		for _, body := range bodies {
			body(s)
			s.End()
		}
	})
}

// StringInt32Map writes a map from string to int32. removed keys are
// written as the removal list.
func (s *Stream) StringInt32Map(name string, removed []string, keys []string, values []int32) *Stream {
	tag := wire.Tag{Name: name, Type: wire.KindMap, InnerType: wire.KindStr, ValueType: wire.KindInt}
	return s.Field(tag, func(w *wire.Writer) {
		w.WriteInt32(int32(len(removed)))
		for _, k := range removed {
			w.WriteString(k)
		}
		w.WriteInt32(int32(len(keys)))
		for i, k := range keys {
			w.WriteString(k)
			w.WriteInt32(values[i])
		}
	})
}

// StringStructMap writes a map from string to struct, one nested list per body.
func (s *Stream) StringStructMap(name, structName string, keys []string, bodies []func(*Stream)) *Stream {
	tag := wire.Tag{Name: name, Type: wire.KindMap, InnerType: wire.KindStr, ValueType: wire.KindStruct, ValueStructName: structName}
	return s.Field(tag, func(w *wire.Writer) {
		w.WriteInt32(0)
		w.WriteInt32(int32(len(keys)))
		for i, k := range keys {
			w.WriteString(k)
			bodies[i](s)
			s.End()
		}
	})
}

// StructInt32Map writes a map keyed by struct, one nested list per key.
func (s *Stream) StructInt32Map(name, structName string, keys []func(*Stream), values []int32) *Stream {
	tag := wire.Tag{Name: name, Type: wire.KindMap, InnerType: wire.KindStruct, StructName: structName, ValueType: wire.KindInt}
	return s.Field(tag, func(w *wire.Writer) {
		w.WriteInt32(0)
		w.WriteInt32(int32(len(keys)))
		for i, key := range keys {
			key(s)
			s.End()
			w.WriteInt32(values[i])
		}
	})
}

// Unknown writes a field with an arbitrary type name and raw payload.
func (s *Stream) Unknown(name string, kind wire.Kind, payload []byte) *Stream {
	return s.Field(wire.Tag{Name: name, Type: kind}, func(w *wire.Writer) { w.WriteBytes(payload) })
}
