package prop

import "github.com/roach88/propmig/internal/wire"

// Property is one decoded field.
//
// Scalar and struct fields hold one entry in Values. Arrays and sets hold
// one entry per element in Values and never populate Keys. Maps hold one
// entry per pair in both Keys and Values, with Keys[i] paired to Values[i].
type Property struct {
	Name       string
	Type       wire.Kind
	StructName string
	InnerType  wire.Kind
	ValueType  wire.Kind

	// ValueStructName is the struct name of map values.
	ValueStructName string

	Keys   []Value
	Values []Value

	// HasKeyTrees and HasValueTrees mark that Keys or Values hold nested
	// trees, so walkers recurse instead of treating them as scalars.
	HasKeyTrees   bool
	HasValueTrees bool
}

// NewProperty creates an empty Property described by tag.
func NewProperty(tag wire.Tag) *Property {
	return &Property{
		Name:       tag.Name,
		Type:       tag.Type,
		StructName: tag.StructName,
		InnerType:  tag.InnerType,
		ValueType:  tag.ValueType,

		ValueStructName: tag.ValueStructName,
	}
}

// Append adds v to Keys when isKey is set, otherwise to Values.
func (p *Property) Append(v Value, isKey bool) {
	_, nested := v.(Tree)
	if isKey {
		p.Keys = append(p.Keys, v)
		p.HasKeyTrees = p.HasKeyTrees || nested
		return
	}
	p.Values = append(p.Values, v)
	p.HasValueTrees = p.HasValueTrees || nested
}

// Len returns the number of values.
func (p *Property) Len() int {
	return len(p.Values)
}

// HasValue reports whether at least one value was decoded.
func (p *Property) HasValue() bool {
	return len(p.Values) > 0
}

// Key returns the key at index i, or nil when out of range.
func (p *Property) Key(i int) Value {
	if i < 0 || i >= len(p.Keys) {
		return nil
	}
	return p.Keys[i]
}

// Value returns the value at index i, or nil when out of range.
func (p *Property) Value(i int) Value {
	if i < 0 || i >= len(p.Values) {
		return nil
	}
	return p.Values[i]
}

// FirstKey returns Key(0).
func (p *Property) FirstKey() Value { return p.Key(0) }

// FirstValue returns Value(0). For scalar fields this is the field value.
func (p *Property) FirstValue() Value { return p.Value(0) }

// IsMap reports whether the property was declared as a map.
func (p *Property) IsMap() bool {
	return p.Type == wire.KindMap
}

// Clone returns a deep copy of p, including nested trees.
func (p *Property) Clone() *Property {
	c := *p
	c.Keys = cloneValues(p.Keys)
	c.Values = cloneValues(p.Values)
	return &c
}

func cloneValues(vs []Value) []Value {
	if vs == nil {
		return nil
	}
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = CloneValue(v)
	}
	return out
}

// CloneValue returns v with any nested tree deep-copied. Scalar variants
// are returned as is.
func CloneValue(v Value) Value {
	if t, ok := v.(Tree); ok {
		return t.Clone()
	}
	return v
}

func (p *Property) release() {
	for _, vs := range [][]Value{p.Keys, p.Values} {
		for _, v := range vs {
			if t, ok := v.(Tree); ok {
				t.Release()
			}
		}
	}
	p.Keys = nil
	p.Values = nil
	p.HasKeyTrees = false
	p.HasValueTrees = false
}
