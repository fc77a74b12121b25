package object

import (
	"fmt"

	"github.com/roach88/propmig/internal/prop"
	"github.com/roach88/propmig/internal/wire"
)

var defaultStructs = prop.DefaultStructs()

// WriteTree writes t as a property list in name order, followed by the
// terminator. Trees decoded from a stream re-encode to an equivalent
// stream; properties kept without a value cannot be written.
func WriteTree(w *wire.Writer, t prop.Tree, structs *prop.StructRegistry) error {
	for _, name := range t.SortedNames() {
		p := t[name]
		if err := WriteProperty(w, TypeOf(p).Tag(name), p, structs); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	wire.WriteEnd(w)
	return nil
}

// WriteProperty writes one field: its tag, then its value, then patches
// the tag size. On error the writer holds a partial field and should be
// discarded.
func WriteProperty(w *wire.Writer, tag wire.Tag, p *prop.Property, structs *prop.StructRegistry) error {
	if structs == nil {
		structs = defaultStructs
	}
	if !tag.Type.Known() {
		return fmt.Errorf("%w: unknown type %s", ErrUnencodable, tag.Type)
	}

	if tag.Type == wire.KindBool {
		// the value lives in the tag
		b, ok := p.FirstValue().(prop.Bool)
		if !ok {
			return fmt.Errorf("%w: bool field holds %s", ErrUnencodable, prop.KindName(p.FirstValue()))
		}
		tag.BoolVal = bool(b)
		return wire.BeginField(w, tag).End()
	}

	f := wire.BeginField(w, tag)
	if err := writeBody(w, tag, p, structs); err != nil {
		return err
	}
	return f.End()
}

func writeBody(w *wire.Writer, tag wire.Tag, p *prop.Property, structs *prop.StructRegistry) error {
	switch tag.Type {
	case wire.KindArray, wire.KindSet:
		if tag.Type == wire.KindSet {
			w.WriteInt32(0) // removals
		}
		elem := tag.Element(tag.InnerType)
		w.WriteInt32(int32(len(p.Values)))
		for i, v := range p.Values {
			if err := writeValue(w, elem, v, structs); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil

	case wire.KindMap:
		if len(p.Keys) != len(p.Values) {
			return fmt.Errorf("%w: map has %d keys and %d values", ErrUnencodable, len(p.Keys), len(p.Values))
		}
		keyTag, valTag := tag.Element(tag.InnerType), tag.MapValue()
		w.WriteInt32(0) // removals
		w.WriteInt32(int32(len(p.Values)))
		for i := range p.Values {
			if err := writeValue(w, keyTag, p.Keys[i], structs); err != nil {
				return fmt.Errorf("map key %d: %w", i, err)
			}
			if err := writeValue(w, valTag, p.Values[i], structs); err != nil {
				return fmt.Errorf("map value %d: %w", i, err)
			}
		}
		return nil
	}

	v := p.FirstValue()
	if v == nil {
		return fmt.Errorf("%w: no value", ErrUnencodable)
	}
	return writeValue(w, tag, v, structs)
}

func writeValue(w *wire.Writer, tag wire.Tag, v prop.Value, structs *prop.StructRegistry) error {
	bad := func() error {
		return fmt.Errorf("%w: %s cannot hold %s", ErrTypeMismatch, tag.Type, prop.KindName(v))
	}

	switch tag.Type {
	case wire.KindStruct:
		if t, ok := v.(prop.Tree); ok {
			return WriteTree(w, t, structs)
		}
		codec, ok := structs.Lookup(tag.StructName)
		if !ok || codec.Encode == nil {
			return fmt.Errorf("%w: no encoder for struct %q", ErrUnencodable, tag.StructName)
		}
		return codec.Encode(w, v)

	case wire.KindObject:
		switch o := v.(type) {
		case prop.ObjectHandle:
			w.WriteInt32(o.Index)
		case prop.ObjectImport:
			w.WriteInt32(o.Index)
		default:
			return bad()
		}
		return nil

	case wire.KindSoftObject:
		path, ok := v.(prop.Name)
		if !ok {
			return bad()
		}
		w.WriteString(string(path))
		w.WriteString("")
		return nil

	case wire.KindStr, wire.KindName:
		s, ok := v.(prop.Name)
		if !ok {
			return bad()
		}
		w.WriteString(string(s))
		return nil
	}

	switch n := v.(type) {
	case prop.Bool:
		if tag.Type != wire.KindBool {
			return bad()
		}
		w.WriteBool(bool(n))
	case prop.Int8:
		if tag.Type != wire.KindInt8 {
			return bad()
		}
		w.WriteInt8(int8(n))
	case prop.Int16:
		if tag.Type != wire.KindInt16 {
			return bad()
		}
		w.WriteInt16(int16(n))
	case prop.Int32:
		if tag.Type != wire.KindInt {
			return bad()
		}
		w.WriteInt32(int32(n))
	case prop.Int64:
		if tag.Type != wire.KindInt64 {
			return bad()
		}
		w.WriteInt64(int64(n))
	case prop.UInt8:
		if tag.Type != wire.KindByte {
			return bad()
		}
		w.WriteUint8(uint8(n))
	case prop.UInt16:
		if tag.Type != wire.KindUInt16 {
			return bad()
		}
		w.WriteUint16(uint16(n))
	case prop.UInt32:
		if tag.Type != wire.KindUInt32 {
			return bad()
		}
		w.WriteUint32(uint32(n))
	case prop.UInt64:
		if tag.Type != wire.KindUInt64 {
			return bad()
		}
		w.WriteUint64(uint64(n))
	case prop.Float:
		if tag.Type != wire.KindFloat {
			return bad()
		}
		w.WriteFloat32(float32(n))
	case prop.Double:
		if tag.Type != wire.KindDouble {
			return bad()
		}
		w.WriteFloat64(float64(n))
	default:
		return bad()
	}
	return nil
}
