// Package schema compiles class declarations written in CUE.
//
// A schema declares versioned classes and unversioned struct layouts:
//
//	class: Monster: {
//		version:       5
//		version_field: "DeprecationVersion" // optional
//		fields: {
//			HitPoints: {type: "int32", default: 100}
//			Name:      "string"
//			Tags:      "set<name>"
//			Route:     "array<struct<Waypoint>>"
//		}
//		migrate: {
//			rename:  {Health: "HitPoints"}
//			default: {Mana: 50}
//		}
//	}
//
//	struct: Waypoint: fields: {
//		At:   "struct<Vector>"
//		Wait: "float"
//	}
//
// Field types use object.ParseType syntax. Field order follows the source.
package schema

import (
	"fmt"
	"math"
	"sort"

	"cuelang.org/go/cue"

	"github.com/roach88/propmig/internal/migrate"
	"github.com/roach88/propmig/internal/object"
	"github.com/roach88/propmig/internal/scope"
)

// ClassSpec is a compiled class or struct declaration.
type ClassSpec struct {
	Name         string
	Struct       bool   // declared under struct:, unversioned
	Version      uint64 // code version, zero for structs
	VersionField string // empty for structs
	Fields       []object.FieldSpec
	Rules        migrate.Rules
}

// Config returns the object.ClassConfig for s.
func (s *ClassSpec) Config() object.ClassConfig {
	return object.ClassConfig{
		Name:         s.Name,
		Version:      s.Version,
		VersionField: s.VersionField,
		Fields:       s.Fields,
	}
}

// CompileClass parses a CUE value into a ClassSpec. The value is the
// declaration itself, e.g. the value at path "class.Monster".
func CompileClass(v cue.Value) (*ClassSpec, error) {
	return compile(v, false)
}

// CompileStruct parses an unversioned struct layout.
func CompileStruct(v cue.Value) (*ClassSpec, error) {
	return compile(v, true)
}

func compile(v cue.Value, isStruct bool) (*ClassSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ClassSpec{Struct: isStruct}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		spec.Name = labels[len(labels)-1].Unquoted()
	}

	if !isStruct {
		versionVal := v.LookupPath(cue.ParsePath("version"))
		if !versionVal.Exists() {
			return nil, &CompileError{Field: "version", Message: "version is required", Pos: v.Pos()}
		}
		version, err := versionVal.Uint64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if version == math.MaxUint64 {
			return nil, &CompileError{
				Field:   "version",
				Message: "version is reserved for saves in progress",
				Pos:     versionVal.Pos(),
			}
		}
		spec.Version = version

		spec.VersionField = scope.DefaultVersionField
		if fv := v.LookupPath(cue.ParsePath("version_field")); fv.Exists() {
			name, err := fv.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			spec.VersionField = name
		}
	} else {
		for _, f := range []string{"version", "version_field", "migrate"} {
			if fv := v.LookupPath(cue.ParsePath(f)); fv.Exists() {
				return nil, &CompileError{Field: f, Message: "structs are not versioned", Pos: fv.Pos()}
			}
		}
	}

	var err error
	if spec.Fields, err = parseFields(v); err != nil {
		return nil, err
	}
	if spec.Rules, err = parseRules(v); err != nil {
		return nil, err
	}
	return spec, nil
}

func parseFields(v cue.Value) ([]object.FieldSpec, error) {
	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Field: "fields", Message: "fields are required", Pos: v.Pos()}
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []object.FieldSpec
	for iter.Next() {
		name := iter.Selector().Unquoted()
		fv := iter.Value()

		f := object.FieldSpec{Name: name}
		typeVal := fv
		if fv.IncompleteKind() == cue.StructKind {
			typeVal = fv.LookupPath(cue.ParsePath("type"))
			if !typeVal.Exists() {
				return nil, &CompileError{Field: "fields." + name, Message: "field type is required", Pos: fv.Pos()}
			}
			if dv := fv.LookupPath(cue.ParsePath("default")); dv.Exists() {
				if err := dv.Decode(&f.Default); err != nil {
					return nil, formatCUEError(err)
				}
			}
		}
		typeStr, err := typeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if f.Type, err = object.ParseType(typeStr); err != nil {
			return nil, &CompileError{Field: "fields." + name, Message: err.Error(), Pos: typeVal.Pos()}
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func parseRules(v cue.Value) (migrate.Rules, error) {
	var rules migrate.Rules
	migrateVal := v.LookupPath(cue.ParsePath("migrate"))
	if !migrateVal.Exists() {
		return rules, nil
	}

	if rv := migrateVal.LookupPath(cue.ParsePath("rename")); rv.Exists() {
		iter, err := rv.Fields()
		if err != nil {
			return rules, formatCUEError(err)
		}
		rules.Rename = make(map[string]string)
		for iter.Next() {
			to, err := iter.Value().String()
			if err != nil {
				return rules, formatCUEError(err)
			}
			rules.Rename[iter.Selector().Unquoted()] = to
		}
	}

	if dv := migrateVal.LookupPath(cue.ParsePath("default")); dv.Exists() {
		iter, err := dv.Fields()
		if err != nil {
			return rules, formatCUEError(err)
		}
		rules.Defaults = make(map[string]any)
		for iter.Next() {
			var val any
			if err := iter.Value().Decode(&val); err != nil {
				return rules, formatCUEError(err)
			}
			rules.Defaults[iter.Selector().Unquoted()] = val
		}
	}
	return rules, nil
}

// Schema is a compiled set of declarations.
type Schema struct {
	Classes []ClassSpec // sorted by name
	Structs []ClassSpec // sorted by name
}

// Build defines every struct and class in a new catalog and returns the
// migration rules by class name. Structs are defined first, so classes may
// use them in defaults; struct defaults may only name structs that sort
// earlier.
func (s *Schema) Build() (*object.Catalog, map[string]migrate.Rules, error) {
	cat := object.NewCatalog(nil)
	rules := make(map[string]migrate.Rules, len(s.Classes))
	for _, group := range [][]ClassSpec{s.Structs, s.Classes} {
		for i := range group {
			spec := &group[i]
			if _, err := cat.Define(spec.Config()); err != nil {
				return nil, nil, err
			}
			if !spec.Struct {
				rules[spec.Name] = spec.Rules
			}
		}
	}
	if err := s.checkRules(cat, rules); err != nil {
		return nil, nil, err
	}
	return cat, rules, nil
}

// checkRules rejects rules that name fields the class does not declare.
func (s *Schema) checkRules(cat *object.Catalog, rules map[string]migrate.Rules) error {
	for name, r := range rules {
		cls, _ := cat.Class(name)
		for from, to := range r.Rename {
			if _, ok := cls.Spec(to); !ok {
				return fmt.Errorf("class %s: rename %s: %w: %s", name, from, object.ErrUnknownField, to)
			}
		}
		for field, val := range r.Defaults {
			if err := cls.New().Set(field, val); err != nil {
				return fmt.Errorf("class %s: migrate default: %w", name, err)
			}
		}
	}
	return nil
}

// Class returns the spec of the named class.
func (s *Schema) Class(name string) (*ClassSpec, bool) {
	for i := range s.Classes {
		if s.Classes[i].Name == name {
			return &s.Classes[i], true
		}
	}
	return nil, false
}

func sortSpecs(specs []ClassSpec) {
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
}
