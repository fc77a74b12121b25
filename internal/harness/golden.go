package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/propmig/internal/prop"
)

// Snapshot captures what a scenario produced: the scope outcome, the
// record as written, and the instance as loaded. Trees use the canonical
// property encoding so snapshots are byte-stable.
type Snapshot struct {
	Scenario     string          `json:"scenario"`
	Outcome      OutcomeSnapshot `json:"outcome"`
	HandlerCalls int             `json:"handler_calls"`
	Tree         json.RawMessage `json:"tree"`
	Values       json.RawMessage `json:"values"`
}

// OutcomeSnapshot is the stable subset of a scope outcome. Cursor
// positions are left out; they move whenever the header format does.
type OutcomeSnapshot struct {
	Outdated     bool   `json:"outdated"`
	Migrated     bool   `json:"migrated"`
	Degraded     bool   `json:"degraded"`
	AssetVersion uint64 `json:"asset_version"`
	CodeVersion  uint64 `json:"code_version"`
}

// NewSnapshot builds the snapshot for a result.
func NewSnapshot(name string, result *Result) (*Snapshot, error) {
	tree, err := prop.MarshalCanonical(result.Tree)
	if err != nil {
		return nil, err
	}
	var loaded prop.Tree
	if result.Instance != nil {
		loaded = result.Instance.Tree()
	}
	values, err := prop.MarshalCanonical(loaded)
	if err != nil {
		return nil, err
	}

	out := result.Outcome
	return &Snapshot{
		Scenario: name,
		Outcome: OutcomeSnapshot{
			Outdated:     out.Outdated,
			Migrated:     out.Migrated,
			Degraded:     out.Degraded,
			AssetVersion: out.AssetVersion,
			CodeVersion:  out.CodeVersion,
		},
		HandlerCalls: len(result.Calls),
		Tree:         tree,
		Values:       values,
	}, nil
}

// Marshal encodes the snapshot as one line of JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot run. A snapshot mismatch fails
// the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snap, err := NewSnapshot(scenarioName, result)
	if err != nil {
		return err
	}
	data, err := snap.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
