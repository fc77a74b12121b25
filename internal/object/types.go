package object

import (
	"fmt"
	"strings"

	"github.com/roach88/propmig/internal/prop"
	"github.com/roach88/propmig/internal/wire"
)

// FieldType is the wire shape of a class field.
type FieldType struct {
	Kind wire.Kind

	// StructName names the struct of a struct field, of struct elements,
	// or of struct map keys.
	StructName string

	Inner           wire.Kind // element kind of arrays and sets, key kind of maps
	Value           wire.Kind // value kind of maps
	ValueStructName string
}

var scalarTypes = map[string]wire.Kind{
	"bool":   wire.KindBool,
	"int8":   wire.KindInt8,
	"int16":  wire.KindInt16,
	"int32":  wire.KindInt,
	"int":    wire.KindInt,
	"int64":  wire.KindInt64,
	"uint8":  wire.KindByte,
	"byte":   wire.KindByte,
	"uint16": wire.KindUInt16,
	"uint32": wire.KindUInt32,
	"uint64": wire.KindUInt64,
	"float":  wire.KindFloat,
	"double": wire.KindDouble,
	"name":   wire.KindName,
	"string": wire.KindStr,
	"object": wire.KindObject,
	"soft":   wire.KindSoftObject,
}

var scalarNames = map[wire.Kind]string{
	wire.KindBool:       "bool",
	wire.KindInt8:       "int8",
	wire.KindInt16:      "int16",
	wire.KindInt:        "int32",
	wire.KindInt64:      "int64",
	wire.KindByte:       "uint8",
	wire.KindUInt16:     "uint16",
	wire.KindUInt32:     "uint32",
	wire.KindUInt64:     "uint64",
	wire.KindFloat:      "float",
	wire.KindDouble:     "double",
	wire.KindName:       "name",
	wire.KindStr:        "string",
	wire.KindObject:     "object",
	wire.KindSoftObject: "soft",
}

// ParseType parses a field type expression:
//
//	int32  string  name  uint64  struct<Vector>
//	array<int32>  set<string>  array<struct<Waypoint>>  map<name,struct<Drop>>
//
// Container elements must be scalars or structs.
func ParseType(s string) (FieldType, error) {
	s = strings.TrimSpace(s)
	head, args, generic, err := splitGeneric(s)
	if err != nil {
		return FieldType{}, err
	}
	if !generic {
		if k, ok := scalarTypes[s]; ok {
			return FieldType{Kind: k}, nil
		}
		return FieldType{}, fmt.Errorf("%w: %q", ErrBadType, s)
	}

	switch head {
	case "struct":
		if len(args) != 1 || !wire.ValidName(args[0]) {
			return FieldType{}, fmt.Errorf("%w: %q needs one struct name", ErrBadType, s)
		}
		return FieldType{Kind: wire.KindStruct, StructName: args[0]}, nil

	case "array", "set":
		if len(args) != 1 {
			return FieldType{}, fmt.Errorf("%w: %q needs one element type", ErrBadType, s)
		}
		kind, structName, err := parseElement(args[0])
		if err != nil {
			return FieldType{}, fmt.Errorf("%s element: %w", head, err)
		}
		t := FieldType{Kind: wire.KindArray, Inner: kind, StructName: structName}
		if head == "set" {
			t.Kind = wire.KindSet
		}
		return t, nil

	case "map":
		if len(args) != 2 {
			return FieldType{}, fmt.Errorf("%w: %q needs a key and a value type", ErrBadType, s)
		}
		key, keyStruct, err := parseElement(args[0])
		if err != nil {
			return FieldType{}, fmt.Errorf("map key: %w", err)
		}
		val, valStruct, err := parseElement(args[1])
		if err != nil {
			return FieldType{}, fmt.Errorf("map value: %w", err)
		}
		return FieldType{
			Kind:            wire.KindMap,
			Inner:           key,
			StructName:      keyStruct,
			Value:           val,
			ValueStructName: valStruct,
		}, nil
	}
	return FieldType{}, fmt.Errorf("%w: unknown type constructor %q", ErrBadType, head)
}

// MustParseType is ParseType for literals known to be valid.
func MustParseType(s string) FieldType {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

func parseElement(s string) (wire.Kind, string, error) {
	t, err := ParseType(s)
	if err != nil {
		return "", "", err
	}
	if t.Kind.IsContainer() {
		return "", "", fmt.Errorf("%w: containers cannot nest (%q)", ErrBadType, s)
	}
	return t.Kind, t.StructName, nil
}

// splitGeneric splits "head<a,b>" into head and its top-level arguments.
func splitGeneric(s string) (head string, args []string, generic bool, err error) {
	open := strings.IndexByte(s, '<')
	if open < 0 {
		return s, nil, false, nil
	}
	if !strings.HasSuffix(s, ">") {
		return "", nil, false, fmt.Errorf("%w: unbalanced %q", ErrBadType, s)
	}
	head = strings.TrimSpace(s[:open])
	body := s[open+1 : len(s)-1]

	depth, last := 0, 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return "", nil, false, fmt.Errorf("%w: unbalanced %q", ErrBadType, s)
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(body[last:i]))
				last = i + 1
			}
		}
	}
	if depth != 0 {
		return "", nil, false, fmt.Errorf("%w: unbalanced %q", ErrBadType, s)
	}
	args = append(args, strings.TrimSpace(body[last:]))
	return head, args, true, nil
}

// String renders t in ParseType syntax.
func (t FieldType) String() string {
	switch t.Kind {
	case wire.KindStruct:
		return "struct<" + t.StructName + ">"
	case wire.KindArray, wire.KindSet:
		head := "array"
		if t.Kind == wire.KindSet {
			head = "set"
		}
		return head + "<" + elementString(t.Inner, t.StructName) + ">"
	case wire.KindMap:
		return "map<" + elementString(t.Inner, t.StructName) + "," + elementString(t.Value, t.ValueStructName) + ">"
	}
	if n, ok := scalarNames[t.Kind]; ok {
		return n
	}
	return string(t.Kind)
}

func elementString(k wire.Kind, structName string) string {
	return FieldType{Kind: k, StructName: structName}.String()
}

// Tag returns the tag a field of this type is written with. Size is left
// for wire.BeginField to fill in.
func (t FieldType) Tag(name string) wire.Tag {
	return wire.Tag{
		Name:            name,
		Type:            t.Kind,
		StructName:      t.StructName,
		InnerType:       t.Inner,
		ValueType:       t.Value,
		ValueStructName: t.ValueStructName,
	}
}

// Matches reports whether tag was written by a field of this type.
func (t FieldType) Matches(tag wire.Tag) bool {
	return tag.Type == t.Kind &&
		tag.StructName == t.StructName &&
		tag.InnerType == t.Inner &&
		tag.ValueType == t.Value &&
		tag.ValueStructName == t.ValueStructName
}

// TypeOf returns the field type recorded in p.
func TypeOf(p *prop.Property) FieldType {
	return FieldType{
		Kind:            p.Type,
		StructName:      p.StructName,
		Inner:           p.InnerType,
		Value:           p.ValueType,
		ValueStructName: p.ValueStructName,
	}
}
