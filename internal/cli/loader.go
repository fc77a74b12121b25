package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/propmig/internal/migrate"
	"github.com/roach88/propmig/internal/object"
	"github.com/roach88/propmig/internal/schema"
)

// LoadResult contains a compiled schema and the catalog built from it.
type LoadResult struct {
	Schema    *schema.Schema
	Catalog   *object.Catalog
	Rules     map[string]migrate.Rules
	FileCount int // Number of CUE files compiled
}

// LoadError represents an error that occurred during schema loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for CLI output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // Catalog build failed
	ErrCodeWriteFailed = "E007" // File write error

	ErrCodeBadRecord    = "E201" // Record file does not parse
	ErrCodeUnknownClass = "E202" // Class not in the schema
	ErrCodeBadValues    = "E203" // Values file does not fit the class
	ErrCodeStore        = "E301" // Record store error
	ErrCodeMigration    = "E302" // One or more records failed to migrate
)

// LoadSchema compiles the schema file or directory at path and builds its
// catalog.
func LoadSchema(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: err.Error()}
	}

	count := 1
	if info.IsDir() {
		files, err := schema.FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("scanning %s: %v", path, err)}
		}
		if len(files) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files in %s", path)}
		}
		count = len(files)
	}

	sch, err := schema.Load(path)
	if err != nil {
		return nil, loadErrorFrom(ErrCodeLoadFailed, err)
	}
	cat, rules, err := sch.Build()
	if err != nil {
		return nil, loadErrorFrom(ErrCodeBuildFailed, err)
	}
	return &LoadResult{Schema: sch, Catalog: cat, Rules: rules, FileCount: count}, nil
}

// loadErrorFrom keeps the source position of a schema compile error.
func loadErrorFrom(code string, err error) *LoadError {
	var cErr *schema.CompileError
	if errors.As(err, &cErr) {
		return &LoadError{Code: code, Message: cErr.Field + ": " + cErr.Message, Pos: cErr.Pos}
	}
	return &LoadError{Code: code, Message: err.Error()}
}

// exitFromLoad turns a LoadSchema error into a command error.
func exitFromLoad(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	if outErr := f.Error(loadErr.Code, loadErr.Error(), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, "failed to load schema", loadErr)
}
