package object

import (
	"fmt"
	"reflect"

	"github.com/roach88/propmig/internal/prop"
	"github.com/roach88/propmig/internal/scope"
)

// Instance is an object of a Class: one property per declared field.
// It implements scope.Object. Not safe for concurrent use.
type Instance struct {
	class  *Class
	fields map[string]*prop.Property
}

// Class implements scope.Object.
func (i *Instance) Class() scope.Class { return i.class }

// Schema returns the instance's class.
func (i *Instance) Schema() *Class { return i.class }

// Get returns the plain value of the named field.
func (i *Instance) Get(name string) (any, bool) {
	p, ok := i.fields[name]
	if !ok {
		return nil, false
	}
	return FromProperty(p), true
}

// Set converts v to the field's type and assigns it.
func (i *Instance) Set(name string, v any) error {
	f, ok := i.class.Spec(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, i.class.name, name)
	}
	p, err := i.class.converter().ToProperty(name, f.Type, v)
	if err != nil {
		return err
	}
	i.fields[name] = p
	return nil
}

// Property returns the named field. The property is owned by the
// instance.
func (i *Instance) Property(name string) *prop.Property {
	return i.fields[name]
}

// SetProperty assigns a decoded property to the field of the same name.
// The property's type must match the declaration.
func (i *Instance) SetProperty(p *prop.Property) error {
	return i.Set(p.Name, p)
}

// Uint64 returns a uint64 field's value.
func (i *Instance) Uint64(name string) (uint64, bool) {
	p, ok := i.fields[name]
	if !ok {
		return 0, false
	}
	v, ok := p.FirstValue().(prop.UInt64)
	return uint64(v), ok
}

// Tree returns a copy of the instance's fields as a property tree.
func (i *Instance) Tree() prop.Tree {
	t := make(prop.Tree, len(i.fields))
	for name, p := range i.fields {
		t[name] = p.Clone()
	}
	return t
}

// Values returns every field in plain form.
func (i *Instance) Values() map[string]any {
	out := make(map[string]any, len(i.fields))
	for name, p := range i.fields {
		out[name] = FromProperty(p)
	}
	return out
}

// Clone returns a deep copy of i.
func (i *Instance) Clone() *Instance {
	c := &Instance{class: i.class, fields: make(map[string]*prop.Property, len(i.fields))}
	for name, p := range i.fields {
		c.fields[name] = p.Clone()
	}
	return c
}

// IsDefault reports whether the named field equals the class default.
func (i *Instance) IsDefault(name string) bool {
	return sameValues(i.fields[name], i.class.def.fields[name])
}

func sameValues(a, b *prop.Property) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(a.Keys, b.Keys) && reflect.DeepEqual(a.Values, b.Values)
}
