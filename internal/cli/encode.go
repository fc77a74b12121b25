package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/propmig/internal/object"
	"github.com/roach88/propmig/internal/scope"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Schema string
	Class  string
	Values string // YAML file of field values, optional
	Output string
}

// EncodeResult describes a written record file.
type EncodeResult struct {
	Output  string `json:"output"`
	Class   string `json:"class"`
	Version uint64 `json:"version"`
	Bytes   int    `json:"bytes"`
	Fields  int    `json:"fields"` // values set from the values file
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Write a record file from field values",
		Long: `Create an instance of a schema class, set its fields from a YAML
values file, and save it as a record file at the class's code version.

Fields equal to the class default are not written.

Example values file:
  HitPoints: 250
  Name: Troll
  Tags: [big, slow]
  Home: {X: 10, Y: 0, Z: 0}

Examples:
  propmig encode --schema ./schemas --class Monster --values troll.yaml -o troll.rec`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "schema file or directory (required)")
	cmd.Flags().StringVar(&opts.Class, "class", "", "class to encode (required)")
	cmd.Flags().StringVar(&opts.Values, "values", "", "YAML file of field values")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "record file to write (required)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("class")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runEncode(opts *EncodeOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	loaded, err := LoadSchema(opts.Schema)
	if err != nil {
		return exitFromLoad(f, err)
	}
	cls, ok := loaded.Catalog.Class(opts.Class)
	if !ok {
		msg := fmt.Sprintf("class %q not in schema (have %v)", opts.Class, loaded.Catalog.Names())
		_ = f.Error(ErrCodeUnknownClass, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	values, err := readValues(opts.Values)
	if err != nil {
		_ = f.Error(ErrCodeBadValues, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read values", err)
	}

	inst := cls.New()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := inst.Set(name, values[name]); err != nil {
			msg := fmt.Sprintf("%s: %v", name, err)
			_ = f.Error(ErrCodeBadValues, msg, nil)
			return WrapExitError(ExitCommandError, "values do not fit "+cls.Name(), err)
		}
	}

	data, err := object.SaveRecord(filepath.Base(opts.Output), inst, nil, scope.WithLogger(opts.Logger(cmd)))
	if err != nil {
		_ = f.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to encode record", err)
	}
	if err := os.WriteFile(opts.Output, data, 0644); err != nil {
		_ = f.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to write record", err)
	}

	res := EncodeResult{
		Output:  opts.Output,
		Class:   cls.Name(),
		Version: cls.Version(),
		Bytes:   len(data),
		Fields:  len(names),
	}
	if f.IsJSON() {
		return f.Success(res)
	}
	f.Pass("wrote %s v%d to %s (%d bytes)", res.Class, res.Version, res.Output, res.Bytes)
	return nil
}

// readValues parses a YAML mapping of field names to values. An empty
// path means no values.
func readValues(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}
