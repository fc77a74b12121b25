package schema

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propmig/internal/object"
	"github.com/roach88/propmig/internal/scope"
	"github.com/roach88/propmig/internal/wire"
)

func TestLoadDir(t *testing.T) {
	s, err := LoadDir("testdata/game")
	require.NoError(t, err)

	require.Len(t, s.Classes, 2)
	assert.Equal(t, "Monster", s.Classes[0].Name)
	assert.Equal(t, "Route", s.Classes[1].Name)
	require.Len(t, s.Structs, 1)
	assert.Equal(t, "Waypoint", s.Structs[0].Name)
	assert.True(t, s.Structs[0].Struct)

	monster, ok := s.Class("Monster")
	require.True(t, ok)
	assert.Equal(t, uint64(5), monster.Version)
	assert.Equal(t, scope.DefaultVersionField, monster.VersionField)

	var names []string
	for _, f := range monster.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"HitPoints", "Name", "Tags", "Mana", "Home"}, names, "fields keep source order")
	assert.Equal(t, object.MustParseType("set<name>"), monster.Fields[2].Type)
	assert.Equal(t, 100, monster.Fields[0].Default)

	assert.Equal(t, map[string]string{"Health": "HitPoints"}, monster.Rules.Rename)
	assert.Equal(t, map[string]any{"Mana": 50}, monster.Rules.Defaults)

	route, ok := s.Class("Route")
	require.True(t, ok)
	assert.Equal(t, "SchemaRev", route.VersionField)
	assert.True(t, route.Rules.IsZero())
}

func TestBuild(t *testing.T) {
	s, err := LoadDir("testdata/game")
	require.NoError(t, err)

	cat, rules, err := s.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"Monster", "Route", "Waypoint"}, cat.Names())
	assert.Contains(t, rules, "Monster")
	assert.NotContains(t, rules, "Waypoint")

	monster, ok := cat.Class("Monster")
	require.True(t, ok)
	assert.Equal(t, uint64(5), monster.Version())
	inst := monster.New()
	home, _ := inst.Get("Home")
	assert.Equal(t, map[string]any{"X": float32(0), "Y": float32(0), "Z": float32(100)}, home)

	route, _ := cat.Class("Route")
	f, ok := route.Field("SchemaRev")
	require.True(t, ok)
	v, ok := f.Uint64(route.Default())
	assert.True(t, ok)
	assert.Equal(t, uint64(2), v)

	require.NoError(t, route.New().Set("Stops", []any{map[string]any{"Wait": 3}}))
	stops, _ := route.Spec("Stops")
	assert.Equal(t, wire.KindArray, stops.Type.Kind)
}

func TestLoadFileAndLoad(t *testing.T) {
	s, err := Load("testdata/game/route.cue")
	require.NoError(t, err)
	assert.Len(t, s.Classes, 1)

	s, err = Load("testdata/game")
	require.NoError(t, err)
	assert.Len(t, s.Classes, 2)

	_, err = Load("testdata/missing")
	assert.Error(t, err)
}

func TestCompileClassDirect(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		class: Chest: {
			version: 1
			fields: {
				Gold:  {type: "int64", default: 10}
				Items: "map<name,int32>"
			}
		}
	`)
	require.NoError(t, v.Err())

	spec, err := CompileClass(v.LookupPath(cue.ParsePath("class.Chest")))
	require.NoError(t, err)
	assert.Equal(t, "Chest", spec.Name)
	assert.False(t, spec.Struct)
	assert.Len(t, spec.Fields, 2)
	assert.Equal(t, object.MustParseType("map<name,int32>"), spec.Fields[1].Type)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "missing version",
			src:   `class: A: fields: {X: "int32"}`,
			field: "version",
		},
		{
			name:  "missing fields",
			src:   `class: A: version: 1`,
			field: "fields",
		},
		{
			name:  "bad type",
			src:   "class: A: {\n\tversion: 1\n\tfields: {X: \"integer\"}\n}",
			field: "fields.X",
		},
		{
			name:  "struct with version",
			src:   `struct: S: {version: 1, fields: {X: "int32"}}`,
			field: "version",
		},
		{
			name:  "reserved version",
			src:   `class: A: {version: 18446744073709551615, fields: {X: "int32"}}`,
			field: "version",
		},
		{
			name:  "typeless field",
			src:   `class: A: {version: 1, fields: {X: {default: 1}}}`,
			field: "fields.X",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.src), "bad.cue")
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileErrorPosition(t *testing.T) {
	_, err := LoadBytes([]byte("class: A: {\n\tversion: 1\n\tfields: {X: \"integer\"}\n}"), "bad.cue")
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	require.True(t, ce.Pos.IsValid())
	assert.Equal(t, 3, ce.Pos.Line())
	assert.Contains(t, ce.Error(), "bad.cue:3:")
}

func TestCUESyntaxError(t *testing.T) {
	_, err := LoadBytes([]byte("class: {"), "broken.cue")
	require.Error(t, err)
	var ce *CompileError
	if errors.As(err, &ce) {
		assert.Equal(t, "cue", ce.Field)
	}
}

func TestEmptySchema(t *testing.T) {
	_, err := LoadBytes([]byte(`other: 1`), "empty.cue")
	assert.ErrorIs(t, err, ErrNoDeclarations)
}

func TestBuildRejectsBadRules(t *testing.T) {
	s, err := LoadBytes([]byte(`
		class: A: {
			version: 2
			fields: {X: "int32"}
			migrate: rename: {Old: "Missing"}
		}
	`), "rules.cue")
	require.NoError(t, err)
	_, _, err = s.Build()
	assert.ErrorIs(t, err, object.ErrUnknownField)

	s, err = LoadBytes([]byte(`
		class: A: {
			version: 2
			fields: {X: "int32"}
			migrate: default: {X: "text"}
		}
	`), "rules.cue")
	require.NoError(t, err)
	_, _, err = s.Build()
	assert.ErrorIs(t, err, object.ErrTypeMismatch)
}
