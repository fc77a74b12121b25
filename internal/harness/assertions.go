package harness

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/propmig/internal/object"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Fields   []string // Generic tree field names for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Fields) > 0 {
		fmt.Fprintf(&buf, "\nRecord fields: %s\n", strings.Join(e.Fields, ", "))
	}
	return buf.String()
}

func assertBool(result *Result, a Assertion, actual bool) error {
	if *a.Expect == actual {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s = %t", a.Type, *a.Expect),
		Actual:   fmt.Sprintf("%s = %t", a.Type, actual),
		Fields:   result.Tree.SortedNames(),
	}
}

func assertVersions(result *Result, a Assertion) error {
	out := result.Outcome
	if (a.Asset != nil && *a.Asset != out.AssetVersion) || (a.Code != nil && *a.Code != out.CodeVersion) {
		return &AssertionError{
			Type:     AssertVersions,
			Expected: fmt.Sprintf("asset %s, code %s", optional(a.Asset), optional(a.Code)),
			Actual:   fmt.Sprintf("asset %d, code %d", out.AssetVersion, out.CodeVersion),
		}
	}
	return nil
}

func optional(v *uint64) string {
	if v == nil {
		return "any"
	}
	return fmt.Sprint(*v)
}

// assertTreeContains checks the generic tree for a field and, when the
// assertion gives a value, compares it in plain form.
func assertTreeContains(result *Result, a Assertion) error {
	p, ok := result.Tree[a.Field]
	if !ok {
		return &AssertionError{
			Type:     AssertTreeContains,
			Expected: fmt.Sprintf("field %q in record", a.Field),
			Actual:   "not found",
			Fields:   result.Tree.SortedNames(),
		}
	}
	if a.Value == nil {
		return nil
	}
	actual := object.FromProperty(p)
	if !valuesEqual(actual, a.Value) {
		return &AssertionError{
			Type:     AssertTreeContains,
			Expected: fmt.Sprintf("field %q = %v", a.Field, a.Value),
			Actual:   fmt.Sprintf("field %q = %v (type %T)", a.Field, actual, actual),
			Fields:   result.Tree.SortedNames(),
		}
	}
	return nil
}

// assertFieldEquals compares a field of the loaded instance.
func assertFieldEquals(result *Result, a Assertion) error {
	if result.Instance == nil {
		return fmt.Errorf("field_equals: no instance loaded")
	}
	actual, ok := result.Instance.Get(a.Field)
	if !ok {
		return &AssertionError{
			Type:     AssertFieldEquals,
			Expected: fmt.Sprintf("field %q on %s", a.Field, result.Instance.Schema().Name()),
			Actual:   "class does not declare it",
		}
	}
	if !valuesEqual(actual, a.Value) {
		return &AssertionError{
			Type:     AssertFieldEquals,
			Expected: fmt.Sprintf("field %q = %v", a.Field, a.Value),
			Actual:   fmt.Sprintf("field %q = %v (type %T)", a.Field, actual, actual),
		}
	}
	return nil
}

func assertHandlerCalls(result *Result, a Assertion) error {
	if len(result.Calls) != *a.Count {
		return &AssertionError{
			Type:     AssertHandlerCalls,
			Expected: fmt.Sprintf("%d handler calls", *a.Count),
			Actual:   fmt.Sprintf("%d handler calls", len(result.Calls)),
		}
	}
	return nil
}

func assertCursorRestored(result *Result) error {
	if result.CursorRestored {
		return nil
	}
	return &AssertionError{
		Type:     AssertCursorRestored,
		Expected: fmt.Sprintf("cursor at %d after the scope", result.Outcome.Post),
		Actual:   "cursor moved",
	}
}

// valuesEqual compares a plain instance value with a YAML-parsed
// expectation. Numbers compare by value; a float32 compares at float32
// precision. Lists compare element-wise. Maps, structs, and map entries
// compare on the keys the expectation names.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	if f, ok := actual.(float32); ok {
		e, ok := number(expected)
		return ok && float32(e) == f
	}
	if a, ok := number(actual); ok {
		e, ok := number(expected)
		return ok && a == e
	}

	switch act := actual.(type) {
	case []any:
		exp, ok := expected.([]any)
		if !ok || len(exp) != len(act) {
			return false
		}
		for i := range act {
			if !valuesEqual(act[i], exp[i]) {
				return false
			}
		}
		return true

	case []object.Entry:
		exp, ok := expected.(map[string]any)
		if !ok || len(exp) != len(act) {
			return false
		}
		for _, e := range act {
			want, ok := exp[fmt.Sprint(e.Key)]
			if !ok || !valuesEqual(e.Value, want) {
				return false
			}
		}
		return true

	case map[string]any:
		exp, ok := expected.(map[string]any)
		if !ok {
			return false
		}
		return matchFields(act, exp)
	}

	return reflect.DeepEqual(actual, expected)
}

// matchFields checks if actual contains all expected fields (subset match).
// Extra keys in actual are ignored.
func matchFields(actual, expected map[string]any) bool {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		actualVal, exists := actual[key]
		if !exists || !valuesEqual(actualVal, expected[key]) {
			return false
		}
	}
	return true
}

// number converts any Go integer or float to float64. Integers beyond
// 2^53 lose precision, which record versions and counts never reach.
func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f, !math.IsNaN(f)
	}
	return 0, false
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertMigrated:
			err = assertBool(result, a, result.Outcome.Migrated)
		case AssertOutdated:
			err = assertBool(result, a, result.Outcome.Outdated)
		case AssertVersions:
			err = assertVersions(result, a)
		case AssertTreeContains:
			err = assertTreeContains(result, a)
		case AssertFieldEquals:
			err = assertFieldEquals(result, a)
		case AssertHandlerCalls:
			err = assertHandlerCalls(result, a)
		case AssertCursorRestored:
			err = assertCursorRestored(result)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
