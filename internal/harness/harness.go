package harness

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/propmig/internal/migrate"
	"github.com/roach88/propmig/internal/object"
	"github.com/roach88/propmig/internal/prop"
	"github.com/roach88/propmig/internal/schema"
	"github.com/roach88/propmig/internal/scope"
)

// Harness is the scenario execution engine. It caches compiled schemas by
// path, so scenarios sharing a schema compile it once.
type Harness struct {
	logger  *slog.Logger
	schemas map[string]*compiled
}

type compiled struct {
	catalog *object.Catalog
	rules   map[string]migrate.Rules
}

// New returns a harness that logs to logger. A nil logger discards logs.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{logger: logger, schemas: make(map[string]*compiled)}
}

// Run executes a scenario with a fresh harness.
func Run(scenario *Scenario) (*Result, error) {
	return New(nil).Run(scenario)
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Compile the write schema and save an instance with the scenario values
// 2. Decode the record generically for tree assertions
// 3. Compile the load schema and load the record through a migration scope
// 4. Evaluate assertions
//
// An error means the scenario could not run; assertion failures are
// reported in the result.
func (h *Harness) Run(s *Scenario) (*Result, error) {
	result := NewResult()

	data, err := h.write(s)
	if err != nil {
		return nil, err
	}
	result.Record = data

	rec, err := object.OpenRecord(data, s.Name)
	if err != nil {
		return nil, fmt.Errorf("reopen record: %w", err)
	}
	write, _ := h.compile(s.Write.Schema)
	tree, rep := rec.Decoder(write.catalog).DecodeRoot(rec.Body)
	if rep.Truncated {
		return nil, fmt.Errorf("written record does not decode: %w", rep.Reason)
	}
	result.Tree = tree

	load, err := h.compile(s.Load.Schema)
	if err != nil {
		return nil, err
	}
	cls, ok := load.catalog.Class(s.Load.Class)
	if !ok {
		return nil, fmt.Errorf("load: %w: %s", object.ErrUnknownClass, s.Load.Class)
	}

	var handler scope.Handler[*object.Instance]
	if s.Handler == HandlerRules {
		rules := load.rules[s.Load.Class].Handler(h.logger)
		handler = func(inst *object.Instance, tree prop.Tree, asset, code uint64) error {
			result.AddCall(tree, asset, code)
			return rules(inst, tree, asset, code)
		}
	}

	rec, err = object.OpenRecord(data, s.Name)
	if err != nil {
		return nil, fmt.Errorf("reopen record: %w", err)
	}
	inst, out, err := object.LoadRecordAs(rec, cls, handler, scope.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.Load.Class, err)
	}
	result.Outcome = out
	result.Instance = inst
	result.CursorRestored = rec.Body.Tell() == out.Post && out.Post == rec.Body.Len()

	h.logger.Info("scenario loaded",
		"scenario", s.Name,
		"outdated", out.Outdated,
		"migrated", out.Migrated,
		"asset_version", out.AssetVersion,
		"code_version", out.CodeVersion,
	)

	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// write saves an instance of the write class with the scenario values.
func (h *Harness) write(s *Scenario) ([]byte, error) {
	c, err := h.compile(s.Write.Schema)
	if err != nil {
		return nil, err
	}
	cls, ok := c.catalog.Class(s.Write.Class)
	if !ok {
		return nil, fmt.Errorf("write: %w: %s", object.ErrUnknownClass, s.Write.Class)
	}

	inst := cls.New()
	names := make([]string, 0, len(s.Values))
	for name := range s.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := inst.Set(name, s.Values[name]); err != nil {
			return nil, fmt.Errorf("values.%s: %w", name, err)
		}
	}

	data, err := object.SaveRecord(s.Name, inst, nil, scope.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", s.Write.Class, err)
	}
	return data, nil
}

func (h *Harness) compile(path string) (*compiled, error) {
	if c, ok := h.schemas[path]; ok {
		return c, nil
	}
	sch, err := schema.Load(path)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	cat, rules, err := sch.Build()
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	c := &compiled{catalog: cat, rules: rules}
	h.schemas[path] = c
	return c, nil
}
