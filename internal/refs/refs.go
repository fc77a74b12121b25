// Package refs implements the reference table stored with each record and
// resolves object-reference indices read by the decoder.
//
// Indices follow the package-index convention: 0 is a null reference, a
// negative index -i-1 names Imports[i] (an object defined in another file),
// and a positive index i+1 names Exports[i] (an object defined in this file).
package refs

import (
	"errors"
	"fmt"

	"github.com/roach88/propmig/internal/prop"
	"github.com/roach88/propmig/internal/wire"
)

// ErrBadIndex indicates a reference index outside the table.
var ErrBadIndex = errors.New("refs: index out of range")

// Import is an object defined in another file.
type Import struct {
	ClassPackage string
	ClassName    string
	ObjectName   string
	SourceFile   string
}

// Export is an object defined in this file. Object is set once the export
// has been materialized.
type Export struct {
	ClassName  string
	ObjectName string
	Object     any
}

// Table is a record's reference table.
type Table struct {
	File    string // file the table belongs to, used for unresolved exports
	Imports []Import
	Exports []Export
}

// AddImport appends imp and returns its reference index.
func (t *Table) AddImport(imp Import) int32 {
	t.Imports = append(t.Imports, imp)
	return -int32(len(t.Imports))
}

// AddExport appends exp and returns its reference index.
func (t *Table) AddExport(exp Export) int32 {
	t.Exports = append(t.Exports, exp)
	return int32(len(t.Exports))
}

// Materialize attaches a live object to the export at index.
func (t *Table) Materialize(index int32, obj any) error {
	if index <= 0 || int(index) > len(t.Exports) {
		return fmt.Errorf("%w: export %d", ErrBadIndex, index)
	}
	t.Exports[index-1].Object = obj
	return nil
}

// ResolveObject returns the descriptor for index: an ObjectImport for
// imports and unmaterialized exports, an ObjectHandle for materialized
// exports and for the null reference.
func (t *Table) ResolveObject(index int32) (prop.Value, error) {
	switch {
	case index == 0:
		return prop.ObjectHandle{}, nil
	case index < 0:
		i := int(-index - 1)
		if i >= len(t.Imports) {
			return nil, fmt.Errorf("%w: import %d of %d", ErrBadIndex, i, len(t.Imports))
		}
		imp := t.Imports[i]
		return prop.ObjectImport{
			ClassPackage: imp.ClassPackage,
			ClassName:    imp.ClassName,
			ObjectName:   imp.ObjectName,
			SourceFile:   imp.SourceFile,
			Index:        index,
		}, nil
	default:
		i := int(index - 1)
		if i >= len(t.Exports) {
			return nil, fmt.Errorf("%w: export %d of %d", ErrBadIndex, i, len(t.Exports))
		}
		exp := t.Exports[i]
		if exp.Object != nil {
			return prop.ObjectHandle{Object: exp.Object, Index: index}, nil
		}
		return prop.ObjectImport{
			ClassName:  exp.ClassName,
			ObjectName: exp.ObjectName,
			SourceFile: t.File,
			Index:      index,
		}, nil
	}
}

// Loader loads the object described by an import descriptor.
type Loader interface {
	LoadObject(imp prop.ObjectImport) (any, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(imp prop.ObjectImport) (any, error)

func (f LoaderFunc) LoadObject(imp prop.ObjectImport) (any, error) { return f(imp) }

// LoadFromImport returns the live object behind a decoded reference. A
// resolved handle is returned directly; an import descriptor is handed to
// loader. A null reference yields nil.
func LoadFromImport(v prop.Value, loader Loader) (any, error) {
	switch ref := v.(type) {
	case prop.ObjectHandle:
		return ref.Object, nil
	case prop.ObjectImport:
		if loader == nil {
			return nil, fmt.Errorf("load %s.%s: no loader", ref.SourceFile, ref.ObjectName)
		}
		obj, err := loader.LoadObject(ref)
		if err != nil {
			return nil, fmt.Errorf("load %s.%s: %w", ref.SourceFile, ref.ObjectName, err)
		}
		return obj, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("load from import: %s is not an object reference", prop.KindName(v))
	}
}

// WriteTable writes the import and export lists. Live export objects are
// not persisted.
func WriteTable(w *wire.Writer, t *Table) {
	w.WriteInt32(int32(len(t.Imports)))
	for _, imp := range t.Imports {
		w.WriteString(imp.ClassPackage)
		w.WriteString(imp.ClassName)
		w.WriteString(imp.ObjectName)
		w.WriteString(imp.SourceFile)
	}
	w.WriteInt32(int32(len(t.Exports)))
	for _, exp := range t.Exports {
		w.WriteString(exp.ClassName)
		w.WriteString(exp.ObjectName)
	}
}

// ReadTable reads a table written by WriteTable. file becomes Table.File.
func ReadTable(r *wire.Reader, file string) (*Table, error) {
	t := &Table{File: file}

	n, err := r.ReadCount()
	if err != nil {
		return nil, fmt.Errorf("read imports: %w", err)
	}
	t.Imports = make([]Import, n)
	for i := range t.Imports {
		imp := &t.Imports[i]
		for _, dst := range []*string{&imp.ClassPackage, &imp.ClassName, &imp.ObjectName, &imp.SourceFile} {
			if *dst, err = r.ReadString(); err != nil {
				return nil, fmt.Errorf("read import %d: %w", i, err)
			}
		}
	}

	if n, err = r.ReadCount(); err != nil {
		return nil, fmt.Errorf("read exports: %w", err)
	}
	t.Exports = make([]Export, n)
	for i := range t.Exports {
		exp := &t.Exports[i]
		if exp.ClassName, err = r.ReadString(); err != nil {
			return nil, fmt.Errorf("read export %d: %w", i, err)
		}
		if exp.ObjectName, err = r.ReadString(); err != nil {
			return nil, fmt.Errorf("read export %d: %w", i, err)
		}
	}
	return t, nil
}
