package prop

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical renders t as deterministic JSON: keys sorted, strings
// NFC-normalized, no HTML escaping. It is the only encoding Fingerprint
// hashes, and the format golden files are compared in.
//
// Each property renders as an object with its declared type and a list of
// values; each value renders as a single-key object naming its variant:
//
//	{"Health":{"type":"IntProperty","values":[{"int32":40}]}}
func MarshalCanonical(t Tree) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTree(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTree(buf *bytes.Buffer, t Tree) error {
	buf.WriteByte('{')
	for i, name := range t.SortedNames() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, name); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeProperty(buf, t[name]); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeProperty(buf *bytes.Buffer, p *Property) error {
	fields := []struct {
		key string
		val string
	}{
		{"inner", string(p.InnerType)},
		{"struct", p.StructName},
		{"type", string(p.Type)},
		{"value_struct", p.ValueStructName},
		{"value_type", string(p.ValueType)},
	}

	buf.WriteByte('{')
	first := true
	sep := func() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
	}
	for _, f := range fields {
		// "keys" sorts between "inner" and "struct"
		if f.key == "struct" && p.IsMap() {
			sep()
			buf.WriteString(`"keys":`)
			if err := writeValues(buf, p.Keys); err != nil {
				return fmt.Errorf("keys: %w", err)
			}
		}
		if f.val == "" {
			continue
		}
		sep()
		buf.WriteString(strconv.Quote(f.key))
		buf.WriteByte(':')
		if err := writeString(buf, f.val); err != nil {
			return err
		}
	}
	sep()
	buf.WriteString(`"values":`)
	if err := writeValues(buf, p.Values); err != nil {
		return fmt.Errorf("values: %w", err)
	}
	buf.WriteByte('}')
	return nil
}

func writeValues(buf *bytes.Buffer, vs []Value) error {
	buf.WriteByte('[')
	for i, v := range vs {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeValue(buf, v); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeValue(buf *bytes.Buffer, v Value) error {
	buf.WriteString(`{"`)
	buf.WriteString(KindName(v))
	buf.WriteString(`":`)

	var err error
	switch val := v.(type) {
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Int8, Int16, Int32, Int64, UInt8, UInt16, UInt32:
		n, _ := AsInt64(val)
		buf.WriteString(strconv.FormatInt(n, 10))
	case UInt64:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case Float:
		writeFloat(buf, float64(val), 32)
	case Double:
		writeFloat(buf, float64(val), 64)
	case Name:
		err = writeString(buf, string(val))
	case Vector:
		writeFloatObject(buf, []string{"x", "y", "z"}, val.X, val.Y, val.Z)
	case Vector2D:
		writeFloatObject(buf, []string{"x", "y"}, val.X, val.Y)
	case IntPoint:
		fmt.Fprintf(buf, `{"x":%d,"y":%d}`, val.X, val.Y)
	case Box:
		buf.WriteString(`{"is_valid":`)
		buf.WriteString(strconv.FormatBool(val.IsValid))
		buf.WriteString(`,"max":`)
		writeFloatObject(buf, []string{"x", "y", "z"}, val.Max.X, val.Max.Y, val.Max.Z)
		buf.WriteString(`,"min":`)
		writeFloatObject(buf, []string{"x", "y", "z"}, val.Min.X, val.Min.Y, val.Min.Z)
		buf.WriteByte('}')
	case Color:
		fmt.Fprintf(buf, `{"a":%d,"b":%d,"g":%d,"r":%d}`, val.A, val.B, val.G, val.R)
	case Plane:
		writeFloatObject(buf, []string{"w", "x", "y", "z"}, val.W, val.X, val.Y, val.Z)
	case LinearColor:
		writeFloatObject(buf, []string{"a", "b", "g", "r"}, val.A, val.B, val.G, val.R)
	case Opaque:
		buf.WriteString(`{"data":`)
		if err = writeString(buf, fmt.Sprint(val.Data)); err == nil {
			buf.WriteString(`,"struct":`)
			err = writeString(buf, val.StructName)
		}
		buf.WriteByte('}')
	case ObjectImport:
		err = writeImport(buf, val)
	case ObjectHandle:
		fmt.Fprintf(buf, `{"index":%d,"nil":%t}`, val.Index, val.IsNil())
	case Tree:
		err = writeTree(buf, val)
	case nil:
		buf.WriteString("null")
	default:
		err = fmt.Errorf("unsupported value type %T", v)
	}
	buf.WriteByte('}')
	return err
}

func writeImport(buf *bytes.Buffer, imp ObjectImport) error {
	pairs := []struct{ k, v string }{
		{"class", imp.ClassName},
		{"class_package", imp.ClassPackage},
	}
	buf.WriteByte('{')
	for _, p := range pairs {
		buf.WriteString(strconv.Quote(p.k))
		buf.WriteByte(':')
		if err := writeString(buf, p.v); err != nil {
			return err
		}
		buf.WriteByte(',')
	}
	fmt.Fprintf(buf, `"index":%d,"object":`, imp.Index)
	if err := writeString(buf, imp.ObjectName); err != nil {
		return err
	}
	buf.WriteString(`,"source_file":`)
	if err := writeString(buf, imp.SourceFile); err != nil {
		return err
	}
	buf.WriteByte('}')
	return nil
}

func writeFloatObject(buf *bytes.Buffer, keys []string, vals ...float32) {
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(k))
		buf.WriteByte(':')
		writeFloat(buf, float64(vals[i]), 32)
	}
	buf.WriteByte('}')
}

// writeFloat emits the shortest representation that round-trips at the
// given bit size. NaN and infinities are not JSON numbers and are quoted.
func writeFloat(buf *bytes.Buffer, f float64, bits int) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		buf.WriteString(strconv.Quote(strconv.FormatFloat(f, 'g', -1, bits)))
		return
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
}

// writeString writes an NFC-normalized JSON string without HTML escaping.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	// json.Encoder adds trailing newline
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}
