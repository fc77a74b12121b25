package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propmig/internal/object"
	"github.com/roach88/propmig/internal/prop"
	"github.com/roach88/propmig/internal/scope"
	"github.com/roach88/propmig/internal/wire"
)

func boolPtr(b bool) *bool    { return &b }
func u64Ptr(v uint64) *uint64 { return &v }
func intPtr(v int) *int       { return &v }

func fixtureResult() *Result {
	health := prop.NewProperty(wire.Tag{Name: "Health", Type: wire.KindInt})
	health.Append(prop.Int32(40), false)

	r := NewResult()
	r.Tree = prop.Tree{"Health": health}
	r.Outcome = scope.Outcome{Outdated: true, Migrated: true, AssetVersion: 1, CodeVersion: 2, Post: 12}
	r.Calls = []HandlerCall{{AssetVersion: 1, CodeVersion: 2}}
	r.CursorRestored = true
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(fixtureResult(), []Assertion{
		{Type: AssertOutdated, Expect: boolPtr(true)},
		{Type: AssertMigrated, Expect: boolPtr(true)},
		{Type: AssertVersions, Asset: u64Ptr(1)},
		{Type: AssertVersions, Code: u64Ptr(2)},
		{Type: AssertTreeContains, Field: "Health"},
		{Type: AssertTreeContains, Field: "Health", Value: 40},
		{Type: AssertHandlerCalls, Count: intPtr(1)},
		{Type: AssertCursorRestored},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Fail(t *testing.T) {
	r := fixtureResult()
	r.CursorRestored = false

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertOutdated, Expect: boolPtr(false)},
		{Type: AssertVersions, Asset: u64Ptr(3)},
		{Type: AssertTreeContains, Field: "Health", Value: 41},
		{Type: AssertCursorRestored},
		{Type: "sorcery"},
	})
	require.Len(t, errs, 5)
	assert.Contains(t, errs[0], "Assertion failed: outdated")
	assert.Contains(t, errs[0], "Record fields: Health")
	assert.Contains(t, errs[1], "asset 3, code any")
	assert.Contains(t, errs[1], "asset 1, code 2")
	assert.Contains(t, errs[2], "(type int32)")
	assert.Contains(t, errs[3], "cursor at 12")
	assert.Contains(t, errs[4], `unknown assertion type "sorcery"`)
}

func TestEvaluateAssertions_FieldEqualsWithoutInstance(t *testing.T) {
	errs := EvaluateAssertions(fixtureResult(), []Assertion{
		{Type: AssertFieldEquals, Field: "HitPoints", Value: 40},
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "no instance loaded")
}

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		actual   any
		expected any
		want     bool
	}{
		{"int32 vs int", int32(40), 40, true},
		{"uint64 vs int", uint64(7), 7, true},
		{"int vs float", int64(3), 3.0, true},
		{"different numbers", int32(40), 41, false},
		{"float32 precision", float32(0.1), 0.1, true},
		{"number vs string", int32(1), "1", false},
		{"string", "Orc", "Orc", true},
		{"bool", true, true, true},
		{"nil both", nil, nil, true},
		{"nil actual", nil, 1, false},
		{"list", []any{int32(1), int32(2)}, []any{1, 2}, true},
		{"list length", []any{int32(1)}, []any{1, 2}, false},
		{"struct subset", map[string]any{"X": float32(1), "Y": float32(2)}, map[string]any{"X": 1}, true},
		{"struct missing key", map[string]any{"X": float32(1)}, map[string]any{"Z": 1}, false},
		{
			"map entries",
			[]object.Entry{{Key: "fire", Value: int32(3)}, {Key: "ice", Value: int32(1)}},
			map[string]any{"fire": 3, "ice": 1},
			true,
		},
		{
			"map entry value",
			[]object.Entry{{Key: "fire", Value: int32(3)}},
			map[string]any{"fire": 4},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, valuesEqual(tt.actual, tt.expected))
		})
	}
}
