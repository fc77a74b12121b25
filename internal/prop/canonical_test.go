package prop

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/propmig/internal/wire"
)

func TestMarshalCanonicalScalars(t *testing.T) {
	tree := Tree{
		"Health": {Name: "Health", Type: wire.KindInt, Values: []Value{Int32(40)}},
		"Name":   {Name: "Name", Type: wire.KindStr, Values: []Value{Name("Orc")}},
	}

	got, err := MarshalCanonical(tree)
	require.NoError(t, err)
	assert.Equal(t,
		`{"Health":{"type":"IntProperty","values":[{"int32":40}]},"Name":{"type":"StrProperty","values":[{"name":"Orc"}]}}`,
		string(got))
}

func TestMarshalCanonicalMap(t *testing.T) {
	tree := Tree{
		"Loot": {
			Name: "Loot", Type: wire.KindMap, InnerType: wire.KindName, ValueType: wire.KindInt,
			Keys:   []Value{Name("gold")},
			Values: []Value{Int32(12)},
		},
	}

	got, err := MarshalCanonical(tree)
	require.NoError(t, err)
	assert.Equal(t,
		`{"Loot":{"inner":"NameProperty","keys":[{"name":"gold"}],"type":"MapProperty","value_type":"IntProperty","values":[{"int32":12}]}}`,
		string(got))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	tree := Tree{"Q": {Name: "Q", Type: wire.KindStr, Values: []Value{Name("<a&b>")}}}
	got, err := MarshalCanonical(tree)
	require.NoError(t, err)
	assert.Contains(t, string(got), `"<a&b>"`)
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "é" as e + combining acute vs precomposed
	decomposed := Tree{"N": {Name: "N", Type: wire.KindStr, Values: []Value{Name("e\u0301")}}}
	composed := Tree{"N": {Name: "N", Type: wire.KindStr, Values: []Value{Name("\u00e9")}}}

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonicalFloats(t *testing.T) {
	tree := Tree{
		"F":   {Name: "F", Type: wire.KindFloat, Values: []Value{Float(0.1)}},
		"NaN": {Name: "NaN", Type: wire.KindDouble, Values: []Value{Double(math.NaN())}},
	}
	got, err := MarshalCanonical(tree)
	require.NoError(t, err)
	assert.Contains(t, string(got), `{"float":0.1}`)
	assert.Contains(t, string(got), `{"double":"NaN"}`)
}

func TestFingerprintDeterminism(t *testing.T) {
	a := sampleTree()
	b := sampleTree()

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	assert.Equal(t, fa, MustFingerprint(b), "Fingerprint must be deterministic")
	assert.Len(t, fa, 64, "SHA-256 hex is 64 characters")

	b["Name"].Values[0] = Name("Goblin")
	assert.NotEqual(t, fa, MustFingerprint(b))
}

func TestRecordDigestDomainSeparated(t *testing.T) {
	payload := []byte(`{}`)
	canonical, err := MarshalCanonical(Tree{})
	require.NoError(t, err)
	assert.Equal(t, payload, canonical)
	assert.NotEqual(t, RecordDigest(payload), MustFingerprint(Tree{}))
}
