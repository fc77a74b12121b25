package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/propmig/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool           `json:"valid"`
	Files   int            `json:"files,omitempty"`
	Classes []ClassSummary `json:"classes,omitempty"`
	Structs []string       `json:"structs,omitempty"`
	Error   *LoadErrorInfo `json:"error,omitempty"`
}

// ClassSummary describes one compiled class.
type ClassSummary struct {
	Name         string   `json:"name"`
	Version      uint64   `json:"version"`
	VersionField string   `json:"version_field"`
	Fields       int      `json:"fields"`
	Renames      []string `json:"renames,omitempty"` // "Old -> New", sorted
	Defaults     []string `json:"defaults,omitempty"`
}

// LoadErrorInfo is the JSON form of a LoadError.
type LoadErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema>",
		Short: "Check class schemas",
		Long: `Compile CUE class schemas and build their catalog without touching
any records.

Reports syntax errors, unknown field types, reserved versions, and
migration rules that name undeclared fields. Faster feedback than
running a migration against a store.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	loaded, err := LoadSchema(path)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) || loadErr.Code == ErrCodeNotFound || loadErr.Code == ErrCodeScanError {
			return outputValidateError(f, err)
		}
		return outputValidationFailure(f, loadErr)
	}

	f.VerboseLog("Compiled %d CUE file(s) in %s", loaded.FileCount, path)
	result := ValidationResult{Valid: true, Files: loaded.FileCount}
	for _, spec := range loaded.Schema.Classes {
		result.Classes = append(result.Classes, summarize(spec))
	}
	for _, spec := range loaded.Schema.Structs {
		result.Structs = append(result.Structs, spec.Name)
	}

	if f.IsJSON() {
		return f.Success(result)
	}
	for _, c := range result.Classes {
		f.Textf("%s v%d (%s, %d fields)\n", c.Name, c.Version, c.VersionField, c.Fields)
		for _, r := range c.Renames {
			f.Textf("  rename  %s\n", r)
		}
		for _, d := range c.Defaults {
			f.Textf("  default %s\n", d)
		}
	}
	if len(result.Structs) > 0 {
		f.Textf("structs: %v\n", result.Structs)
	}
	f.Pass("Schema valid")
	return nil
}

func summarize(spec schema.ClassSpec) ClassSummary {
	s := ClassSummary{
		Name:         spec.Name,
		Version:      spec.Version,
		VersionField: spec.VersionField,
		Fields:       len(spec.Fields),
	}
	for from, to := range spec.Rules.Rename {
		s.Renames = append(s.Renames, from+" -> "+to)
	}
	for field, v := range spec.Rules.Defaults {
		s.Defaults = append(s.Defaults, fmt.Sprintf("%s = %v", field, v))
	}
	sort.Strings(s.Renames)
	sort.Strings(s.Defaults)
	return s
}

// outputValidateError reports an error that kept validation from running.
func outputValidateError(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	_ = f.Error(loadErr.Code, loadErr.Message, nil)
	// Command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message))
}

// outputValidationFailure reports a schema that does not compile.
func outputValidationFailure(f *OutputFormatter, loadErr *LoadError) error {
	info := &LoadErrorInfo{Code: loadErr.Code, Message: loadErr.Message}
	if loadErr.Pos.IsValid() {
		info.File = loadErr.Pos.Filename()
		info.Line = loadErr.Pos.Line()
	}

	if f.IsJSON() {
		if err := f.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Error: info},
			Error:  &CLIError{Code: info.Code, Message: info.Message},
		}); err != nil {
			return err
		}
	} else {
		f.Fail("Validation failed")
		if info.Line > 0 {
			f.Textf("%s:%d\n", info.File, info.Line)
		}
		f.Textf("  %s: %s\n", info.Code, info.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, "validation failed: "+loadErr.Error())
}
