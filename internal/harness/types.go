package harness

import (
	"github.com/roach88/propmig/internal/object"
	"github.com/roach88/propmig/internal/prop"
	"github.com/roach88/propmig/internal/scope"
)

// HandlerCall records one migration handler invocation.
type HandlerCall struct {
	AssetVersion uint64   `json:"asset_version"`
	CodeVersion  uint64   `json:"code_version"`
	Fields       []string `json:"fields"` // names in the old tree, sorted
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions match.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Outcome scope.Outcome `json:"-"`
	Calls   []HandlerCall `json:"calls"`

	// Tree is the written record decoded generically.
	Tree prop.Tree `json:"-"`

	// Instance is the loaded object.
	Instance *object.Instance `json:"-"`

	// CursorRestored reports that the stream cursor was where the normal
	// load left it after the scope closed.
	CursorRestored bool `json:"cursor_restored"`

	// Record is the encoded record file that was loaded.
	Record []byte `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Calls:  []HandlerCall{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddCall records a handler invocation.
func (r *Result) AddCall(tree prop.Tree, asset, code uint64) {
	r.Calls = append(r.Calls, HandlerCall{
		AssetVersion: asset,
		CodeVersion:  code,
		Fields:       tree.SortedNames(),
	})
}
