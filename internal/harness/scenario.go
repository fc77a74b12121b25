package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one migration test.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Write selects the schema and class the record is saved with.
	Write Side `yaml:"write"`

	// Load selects the schema and class the record is loaded into.
	Load Side `yaml:"load"`

	// Values are set on the written instance before saving. Fields left
	// out keep their defaults and are not written.
	Values map[string]any `yaml:"values,omitempty"`

	// Handler is "rules" (the schema's migration rules, the default) or
	// "none" (no handler; the gate still fires).
	Handler string `yaml:"handler,omitempty"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// Side names a schema file or directory and a class in it.
type Side struct {
	Schema string `yaml:"schema"`
	Class  string `yaml:"class,omitempty"`
}

// Handler modes.
const (
	HandlerRules = "rules"
	HandlerNone  = "none"
)

// Assertion validates one aspect of the outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "migrated": Expect is whether the handler ran
	// - "outdated": Expect is whether the gate fired
	// - "versions": Asset and Code versions seen by the scope
	// - "tree_contains": Field is in the generic tree, with Value if set
	// - "field_equals": Field of the loaded instance equals Value
	// - "handler_calls": the handler ran Count times
	// - "cursor_restored": the cursor ended at the normal load's end
	Type string `yaml:"type"`

	Expect *bool   `yaml:"expect,omitempty"`
	Asset  *uint64 `yaml:"asset,omitempty"`
	Code   *uint64 `yaml:"code,omitempty"`
	Field  string  `yaml:"field,omitempty"`
	Value  any     `yaml:"value,omitempty"`
	Count  *int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertMigrated       = "migrated"
	AssertOutdated       = "outdated"
	AssertVersions       = "versions"
	AssertTreeContains   = "tree_contains"
	AssertFieldEquals    = "field_equals"
	AssertHandlerCalls   = "handler_calls"
	AssertCursorRestored = "cursor_restored"
)

// LoadScenario reads and parses a scenario YAML file. Schema paths are
// resolved relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving schema paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for _, side := range []*Side{&scenario.Write, &scenario.Load} {
		if side.Schema != "" && !filepath.IsAbs(side.Schema) && basePath != "" {
			side.Schema = filepath.Join(basePath, side.Schema)
		}
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML. Schema paths are left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Load.Class == "" {
		scenario.Load.Class = scenario.Write.Class
	}
	if scenario.Handler == "" {
		scenario.Handler = HandlerRules
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that all required fields are present.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Write.Schema == "" {
		return fmt.Errorf("write.schema is required")
	}
	if s.Write.Class == "" {
		return fmt.Errorf("write.class is required")
	}
	if s.Load.Schema == "" {
		return fmt.Errorf("load.schema is required")
	}
	if s.Handler != HandlerRules && s.Handler != HandlerNone {
		return fmt.Errorf("handler must be %q or %q, got %q", HandlerRules, HandlerNone, s.Handler)
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion checks that the fields an assertion type needs are set.
func validateAssertion(a Assertion, index int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertMigrated, AssertOutdated:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertVersions:
		if a.Asset == nil && a.Code == nil {
			return fmt.Errorf("assertions[%d]: asset or code is required for versions", index)
		}
	case AssertTreeContains:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for tree_contains", index)
		}
	case AssertFieldEquals:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for field_equals", index)
		}
	case AssertHandlerCalls:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for handler_calls", index)
		}
	case AssertCursorRestored:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
