package object

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/propmig/internal/prop"
	"github.com/roach88/propmig/internal/wire"
)

// Entry is one map pair in plain form.
type Entry struct {
	Key   any `json:"key" yaml:"key"`
	Value any `json:"value" yaml:"value"`
}

// Converter turns plain Go values (the shapes YAML and JSON decode into)
// into prop values. Classes, when set, supplies layouts for struct names
// that are declared as classes; such structs convert to nested trees.
type Converter struct {
	Classes *Catalog
}

// ToValue converts one plain value to the prop variant for kind.
func ToValue(kind wire.Kind, structName string, v any) (prop.Value, error) {
	return Converter{}.ToValue(kind, structName, v)
}

// ToProperty converts a plain field value to a property of type t.
func ToProperty(name string, t FieldType, v any) (*prop.Property, error) {
	return Converter{}.ToProperty(name, t, v)
}

// ToProperty converts a plain field value to a property of type t.
// Arrays and sets take a slice. Maps take a map with string keys or a
// []Entry. A *prop.Property of the same type is cloned.
func (c Converter) ToProperty(name string, t FieldType, v any) (*prop.Property, error) {
	if p, ok := v.(*prop.Property); ok {
		if TypeOf(p) != t {
			return nil, fmt.Errorf("%w: %s is %s, want %s", ErrTypeMismatch, name, TypeOf(p), t)
		}
		out := p.Clone()
		out.Name = name
		return out, nil
	}

	p := prop.NewProperty(t.Tag(name))
	switch t.Kind {
	case wire.KindArray, wire.KindSet:
		items, err := toSlice(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for i, item := range items {
			val, err := c.ToValue(t.Inner, t.StructName, item)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			p.Append(val, false)
		}
		return p, nil

	case wire.KindMap:
		entries, err := toEntries(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for _, e := range entries {
			key, err := c.ToValue(t.Inner, t.StructName, e.Key)
			if err != nil {
				return nil, fmt.Errorf("%s key %v: %w", name, e.Key, err)
			}
			val, err := c.ToValue(t.Value, t.ValueStructName, e.Value)
			if err != nil {
				return nil, fmt.Errorf("%s[%v]: %w", name, e.Key, err)
			}
			p.Append(key, true)
			p.Append(val, false)
		}
		return p, nil
	}

	val, err := c.ToValue(t.Kind, t.StructName, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	p.Append(val, false)
	return p, nil
}

// ToValue converts one plain value to the prop variant for kind. Values
// that already are prop values are copied after a type check, so a tree
// taken from a handler's input outlives the handler call.
func (c Converter) ToValue(kind wire.Kind, structName string, v any) (prop.Value, error) {
	if pv, ok := v.(prop.Value); ok {
		if !c.fits(kind, structName, pv) {
			return nil, mismatch(kind, structName, v)
		}
		return prop.CloneValue(pv), nil
	}

	switch kind {
	case wire.KindBool:
		if b, ok := v.(bool); ok {
			return prop.Bool(b), nil
		}

	case wire.KindInt8, wire.KindInt16, wire.KindInt, wire.KindInt64:
		n, ok := toInt64(v)
		if !ok {
			break
		}
		bits := map[wire.Kind]int{wire.KindInt8: 8, wire.KindInt16: 16, wire.KindInt: 32, wire.KindInt64: 64}[kind]
		if bits < 64 && (n < -1<<(bits-1) || n > 1<<(bits-1)-1) {
			return nil, fmt.Errorf("%w: %d overflows %s", ErrTypeMismatch, n, kind)
		}
		switch kind {
		case wire.KindInt8:
			return prop.Int8(n), nil
		case wire.KindInt16:
			return prop.Int16(n), nil
		case wire.KindInt:
			return prop.Int32(n), nil
		}
		return prop.Int64(n), nil

	case wire.KindByte, wire.KindUInt16, wire.KindUInt32, wire.KindUInt64:
		n, ok := toUint64(v)
		if !ok {
			break
		}
		bits := map[wire.Kind]int{wire.KindByte: 8, wire.KindUInt16: 16, wire.KindUInt32: 32, wire.KindUInt64: 64}[kind]
		if bits < 64 && n > 1<<bits-1 {
			return nil, fmt.Errorf("%w: %d overflows %s", ErrTypeMismatch, n, kind)
		}
		switch kind {
		case wire.KindByte:
			return prop.UInt8(n), nil
		case wire.KindUInt16:
			return prop.UInt16(n), nil
		case wire.KindUInt32:
			return prop.UInt32(n), nil
		}
		return prop.UInt64(n), nil

	case wire.KindFloat:
		if f, ok := toFloat64(v); ok {
			return prop.Float(float32(f)), nil
		}

	case wire.KindDouble:
		if f, ok := toFloat64(v); ok {
			return prop.Double(f), nil
		}

	case wire.KindStr, wire.KindName, wire.KindSoftObject:
		if s, ok := v.(string); ok {
			return prop.Name(s), nil
		}

	case wire.KindObject:
		if v == nil {
			return prop.ObjectHandle{}, nil
		}
		if n, ok := toInt64(v); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
			return prop.ObjectHandle{Index: int32(n)}, nil
		}

	case wire.KindStruct:
		if m, ok := toStringMap(v); ok {
			return c.structFromMap(structName, m)
		}
	}
	return nil, mismatch(kind, structName, v)
}

func mismatch(kind wire.Kind, structName string, v any) error {
	if structName != "" {
		return fmt.Errorf("%w: cannot use %T as %s<%s>", ErrTypeMismatch, v, kind, structName)
	}
	return fmt.Errorf("%w: cannot use %T as %s", ErrTypeMismatch, v, kind)
}

// fits reports whether pv is a valid variant for kind.
func (c Converter) fits(kind wire.Kind, structName string, pv prop.Value) bool {
	switch kind {
	case wire.KindObject:
		switch pv.(type) {
		case prop.ObjectHandle, prop.ObjectImport:
			return true
		}
		return false
	case wire.KindStruct:
		switch v := pv.(type) {
		case prop.Tree:
			return true
		case prop.Opaque:
			return v.StructName == structName
		}
	}
	return reflect.TypeOf(pv) == reflect.TypeOf(c.Zero(kind, structName))
}

// Zero returns the zero value of one kind: false, 0, the empty name, a
// null object reference, or an empty struct. Structs declared as classes
// in c.Classes zero to their class default.
func (c Converter) Zero(kind wire.Kind, structName string) prop.Value {
	switch kind {
	case wire.KindBool:
		return prop.Bool(false)
	case wire.KindInt8:
		return prop.Int8(0)
	case wire.KindInt16:
		return prop.Int16(0)
	case wire.KindInt:
		return prop.Int32(0)
	case wire.KindInt64:
		return prop.Int64(0)
	case wire.KindByte:
		return prop.UInt8(0)
	case wire.KindUInt16:
		return prop.UInt16(0)
	case wire.KindUInt32:
		return prop.UInt32(0)
	case wire.KindUInt64:
		return prop.UInt64(0)
	case wire.KindFloat:
		return prop.Float(0)
	case wire.KindDouble:
		return prop.Double(0)
	case wire.KindStr, wire.KindName, wire.KindSoftObject:
		return prop.Name("")
	case wire.KindObject:
		return prop.ObjectHandle{}
	case wire.KindStruct:
		if z, ok := shapeZero[structName]; ok {
			return z
		}
		if cls, ok := c.Classes.Class(structName); ok {
			return cls.def.Tree()
		}
		return prop.Tree{}
	}
	return nil
}

var shapeZero = map[string]prop.Value{
	"Vector":      prop.Vector{},
	"Vector2D":    prop.Vector2D{},
	"IntPoint":    prop.IntPoint{},
	"Box":         prop.Box{},
	"Color":       prop.Color{},
	"Plane":       prop.Plane{},
	"LinearColor": prop.LinearColor{},
}

func (c Converter) structFromMap(structName string, m map[string]any) (prop.Value, error) {
	f32 := func(key string) (float32, error) {
		v, ok := lookupFold(m, key)
		if !ok {
			return 0, nil
		}
		f, ok := toFloat64(v)
		if !ok {
			return 0, fmt.Errorf("%w: %s.%s is %T", ErrTypeMismatch, structName, key, v)
		}
		return float32(f), nil
	}
	floats := func(keys ...string) ([]float32, error) {
		out := make([]float32, len(keys))
		for i, k := range keys {
			f, err := f32(k)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}
	ints := func(bits int, keys ...string) ([]int64, error) {
		out := make([]int64, len(keys))
		for i, k := range keys {
			v, ok := lookupFold(m, k)
			if !ok {
				continue
			}
			n, ok := toInt64(v)
			if !ok || (bits == 8 && (n < 0 || n > 255)) || (bits == 32 && (n < math.MinInt32 || n > math.MaxInt32)) {
				return nil, fmt.Errorf("%w: %s.%s = %v", ErrTypeMismatch, structName, k, v)
			}
			out[i] = n
		}
		return out, nil
	}

	switch structName {
	case "Vector":
		f, err := floats("X", "Y", "Z")
		if err != nil {
			return nil, err
		}
		return prop.Vector{X: f[0], Y: f[1], Z: f[2]}, nil
	case "Vector2D":
		f, err := floats("X", "Y")
		if err != nil {
			return nil, err
		}
		return prop.Vector2D{X: f[0], Y: f[1]}, nil
	case "Plane":
		f, err := floats("X", "Y", "Z", "W")
		if err != nil {
			return nil, err
		}
		return prop.Plane{X: f[0], Y: f[1], Z: f[2], W: f[3]}, nil
	case "LinearColor":
		f, err := floats("R", "G", "B", "A")
		if err != nil {
			return nil, err
		}
		return prop.LinearColor{R: f[0], G: f[1], B: f[2], A: f[3]}, nil
	case "IntPoint":
		n, err := ints(32, "X", "Y")
		if err != nil {
			return nil, err
		}
		return prop.IntPoint{X: int32(n[0]), Y: int32(n[1])}, nil
	case "Color":
		n, err := ints(8, "R", "G", "B", "A")
		if err != nil {
			return nil, err
		}
		return prop.Color{R: uint8(n[0]), G: uint8(n[1]), B: uint8(n[2]), A: uint8(n[3])}, nil
	case "Box":
		var b prop.Box
		for key, dst := range map[string]*prop.Vector{"Min": &b.Min, "Max": &b.Max} {
			raw, ok := lookupFold(m, key)
			if !ok {
				continue
			}
			v, err := c.ToValue(wire.KindStruct, "Vector", raw)
			if err != nil {
				return nil, fmt.Errorf("Box.%s: %w", key, err)
			}
			*dst = v.(prop.Vector)
		}
		if raw, ok := lookupFold(m, "IsValid"); ok {
			valid, ok := raw.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: Box.IsValid is %T", ErrTypeMismatch, raw)
			}
			b.IsValid = valid
		}
		return b, nil
	}

	cls, ok := c.Classes.Class(structName)
	if !ok {
		return nil, fmt.Errorf("%w: no layout for struct %q", ErrTypeMismatch, structName)
	}
	inst := cls.New()
	for _, k := range sortedKeys(m) {
		if err := inst.Set(k, m[k]); err != nil {
			return nil, fmt.Errorf("%s: %w", structName, err)
		}
	}
	return inst.Tree(), nil
}

// FromValue converts a prop value to its plain form: Go scalars, strings,
// maps with the struct's field names, and map[string]any for nested trees.
// Null and unresolved object references convert to their table index.
func FromValue(v prop.Value) any {
	switch v := v.(type) {
	case nil:
		return nil
	case prop.Bool:
		return bool(v)
	case prop.Int8:
		return int8(v)
	case prop.Int16:
		return int16(v)
	case prop.Int32:
		return int32(v)
	case prop.Int64:
		return int64(v)
	case prop.UInt8:
		return uint8(v)
	case prop.UInt16:
		return uint16(v)
	case prop.UInt32:
		return uint32(v)
	case prop.UInt64:
		return uint64(v)
	case prop.Float:
		return float32(v)
	case prop.Double:
		return float64(v)
	case prop.Name:
		return string(v)
	case prop.Vector:
		return map[string]any{"X": v.X, "Y": v.Y, "Z": v.Z}
	case prop.Vector2D:
		return map[string]any{"X": v.X, "Y": v.Y}
	case prop.IntPoint:
		return map[string]any{"X": v.X, "Y": v.Y}
	case prop.Plane:
		return map[string]any{"X": v.X, "Y": v.Y, "Z": v.Z, "W": v.W}
	case prop.LinearColor:
		return map[string]any{"R": v.R, "G": v.G, "B": v.B, "A": v.A}
	case prop.Color:
		return map[string]any{"R": v.R, "G": v.G, "B": v.B, "A": v.A}
	case prop.Box:
		return map[string]any{"Min": FromValue(v.Min), "Max": FromValue(v.Max), "IsValid": v.IsValid}
	case prop.Opaque:
		return v.Data
	case prop.ObjectHandle:
		if v.Object != nil {
			return v.Object
		}
		return v.Index
	case prop.ObjectImport:
		return v.Index
	case prop.Tree:
		return FromTree(v)
	}
	return v
}

// FromProperty converts a property to its plain form: []any for arrays
// and sets, []Entry for maps, and the single value otherwise. A property
// without a value converts to nil.
func FromProperty(p *prop.Property) any {
	if p == nil {
		return nil
	}
	switch p.Type {
	case wire.KindArray, wire.KindSet:
		out := make([]any, len(p.Values))
		for i, v := range p.Values {
			out[i] = FromValue(v)
		}
		return out
	case wire.KindMap:
		out := make([]Entry, len(p.Values))
		for i := range p.Values {
			out[i] = Entry{Key: FromValue(p.Key(i)), Value: FromValue(p.Values[i])}
		}
		return out
	}
	return FromValue(p.FirstValue())
}

// FromTree converts every property of t with FromProperty.
func FromTree(t prop.Tree) map[string]any {
	out := make(map[string]any, len(t))
	for name, p := range t {
		out[name] = FromProperty(p)
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return toInt64(float64(n))
	}
	return 0, false
}

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint64:
		return n, true
	case float64:
		if n != math.Trunc(n) || n < 0 || n >= math.MaxUint64 {
			return 0, false
		}
		return uint64(n), true
	}
	i, ok := toInt64(v)
	if !ok || i < 0 {
		return 0, false
	}
	return uint64(i), true
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	if u, ok := v.(uint64); ok {
		return float64(u), true
	}
	return 0, false
}

func toSlice(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.([]any); ok {
		return s, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: want a list, got %T", ErrTypeMismatch, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// toEntries accepts []Entry, a map with string keys (ordered by key), or a
// list of {key, value} maps.
func toEntries(v any) ([]Entry, error) {
	switch m := v.(type) {
	case nil:
		return nil, nil
	case []Entry:
		return m, nil
	case []any:
		out := make([]Entry, 0, len(m))
		for i, item := range m {
			kv, ok := toStringMap(item)
			if !ok {
				return nil, fmt.Errorf("%w: entry %d is %T, want {key, value}", ErrTypeMismatch, i, item)
			}
			out = append(out, Entry{Key: kv["key"], Value: kv["value"]})
		}
		return out, nil
	}
	sm, ok := toStringMap(v)
	if !ok {
		return nil, fmt.Errorf("%w: want a map, got %T", ErrTypeMismatch, v)
	}
	out := make([]Entry, 0, len(sm))
	for _, k := range sortedKeys(sm) {
		out = append(out, Entry{Key: k, Value: sm[k]})
	}
	return out, nil
}

func toStringMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func lookupFold(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
