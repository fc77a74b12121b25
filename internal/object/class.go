package object

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/propmig/internal/prop"
	"github.com/roach88/propmig/internal/scope"
	"github.com/roach88/propmig/internal/wire"
)

// FieldSpec declares one field of a class.
type FieldSpec struct {
	Name string
	Type FieldType

	// Default is the plain value the class default holds; nil means the
	// zero value of Type.
	Default any
}

// ClassConfig describes a class to define.
type ClassConfig struct {
	Name    string
	Version uint64

	// VersionField names the uint64 field that records the version a
	// record was written at. It is added to Fields when not declared.
	// Empty means the class is unversioned, as struct layouts are.
	VersionField string

	Fields []FieldSpec
}

// Class is a schema-driven class. It implements scope.Class.
type Class struct {
	name         string
	version      uint64
	versionField string
	fields       []FieldSpec
	index        map[string]int
	def          *Instance
	catalog      *Catalog
}

// Catalog holds the classes of one schema. Struct fields whose struct name
// is a class in the same catalog are encoded as nested property lists.
// A Catalog is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	classes map[string]*Class
	structs *prop.StructRegistry
}

// NewCatalog creates an empty catalog. structs supplies the binary struct
// layouts; nil selects prop.DefaultStructs.
func NewCatalog(structs *prop.StructRegistry) *Catalog {
	if structs == nil {
		structs = prop.DefaultStructs()
	}
	return &Catalog{classes: make(map[string]*Class), structs: structs}
}

// NewClass defines a class in a catalog of its own.
func NewClass(cfg ClassConfig) (*Class, error) {
	return NewCatalog(nil).Define(cfg)
}

// Define builds a class from cfg and adds it to the catalog. Struct
// defaults given as plain maps may only name classes defined earlier.
func (cat *Catalog) Define(cfg ClassConfig) (*Class, error) {
	if !wire.ValidName(cfg.Name) || cfg.Name == wire.NoneName {
		return nil, fmt.Errorf("%w: class %q", wire.ErrInvalidName, cfg.Name)
	}

	c := &Class{
		name:         cfg.Name,
		version:      cfg.Version,
		versionField: cfg.VersionField,
		index:        make(map[string]int, len(cfg.Fields)+1),
		catalog:      cat,
	}
	for _, f := range cfg.Fields {
		if !wire.ValidName(f.Name) || f.Name == wire.NoneName {
			return nil, fmt.Errorf("%s: %w: field %q", cfg.Name, wire.ErrInvalidName, f.Name)
		}
		if _, dup := c.index[f.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate field %q", cfg.Name, f.Name)
		}
		c.index[f.Name] = len(c.fields)
		c.fields = append(c.fields, f)
	}
	if c.versionField != "" {
		if _, ok := c.index[c.versionField]; !ok {
			c.index[c.versionField] = len(c.fields)
			c.fields = append(c.fields, FieldSpec{Name: c.versionField, Type: FieldType{Kind: wire.KindUInt64}})
		}
	}

	conv := Converter{Classes: cat}
	def := &Instance{class: c, fields: make(map[string]*prop.Property, len(c.fields))}
	for _, f := range c.fields {
		var (
			p   *prop.Property
			err error
		)
		switch {
		case f.Name == c.versionField && f.Type.Kind == wire.KindUInt64:
			p, err = conv.ToProperty(f.Name, f.Type, prop.UInt64(c.version))
		case f.Default != nil:
			p, err = conv.ToProperty(f.Name, f.Type, f.Default)
		default:
			p = conv.zeroProperty(f)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: default: %w", cfg.Name, err)
		}
		def.fields[f.Name] = p
	}
	c.def = def

	cat.mu.Lock()
	defer cat.mu.Unlock()
	if _, dup := cat.classes[c.name]; dup {
		return nil, fmt.Errorf("duplicate class %q", c.name)
	}
	cat.classes[c.name] = c
	return c, nil
}

func (c Converter) zeroProperty(f FieldSpec) *prop.Property {
	p := prop.NewProperty(f.Type.Tag(f.Name))
	if !f.Type.Kind.IsContainer() {
		p.Append(c.Zero(f.Type.Kind, f.Type.StructName), false)
	}
	return p
}

// Class returns the class called name. It is safe on a nil catalog.
func (cat *Catalog) Class(name string) (*Class, bool) {
	if cat == nil {
		return nil, false
	}
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	c, ok := cat.classes[name]
	return c, ok
}

// Names returns the class names in sorted order.
func (cat *Catalog) Names() []string {
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	names := make([]string, 0, len(cat.classes))
	for n := range cat.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Structs returns the binary struct layouts used by the catalog.
func (cat *Catalog) Structs() *prop.StructRegistry { return cat.structs }

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Version returns the code version.
func (c *Class) Version() uint64 { return c.version }

// VersionField returns the version field name, or "" for unversioned classes.
func (c *Class) VersionField() string { return c.versionField }

// Catalog returns the catalog the class was defined in.
func (c *Class) Catalog() *Catalog { return c.catalog }

// Fields returns the declared fields in declaration order, the version
// field last when it was added implicitly.
func (c *Class) Fields() []FieldSpec {
	out := make([]FieldSpec, len(c.fields))
	copy(out, c.fields)
	return out
}

// Spec returns the declaration of the named field.
func (c *Class) Spec(name string) (FieldSpec, bool) {
	i, ok := c.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return c.fields[i], true
}

// Field implements scope.Class. Every declared field is returned; the
// accessor reports ok=false for fields that are not uint64.
func (c *Class) Field(name string) (scope.Field, bool) {
	if _, ok := c.index[name]; !ok {
		return nil, false
	}
	return uint64Field{name: name}, true
}

// Default implements scope.Class. The returned instance is shared and must
// not be modified.
func (c *Class) Default() scope.Object { return c.def }

// New returns a copy of the class default.
func (c *Class) New() *Instance { return c.def.Clone() }

func (c *Class) converter() Converter { return Converter{Classes: c.catalog} }

type uint64Field struct{ name string }

func (f uint64Field) Name() string { return f.name }

func (f uint64Field) Uint64(obj scope.Object) (uint64, bool) {
	inst, ok := obj.(*Instance)
	if !ok {
		return 0, false
	}
	return inst.Uint64(f.name)
}

func (f uint64Field) SetUint64(obj scope.Object, v uint64) error {
	inst, ok := obj.(*Instance)
	if !ok {
		return fmt.Errorf("%w: %T is not an object instance", ErrTypeMismatch, obj)
	}
	return inst.Set(f.name, prop.UInt64(v))
}
