package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/propmig/internal/decode"
	"github.com/roach88/propmig/internal/object"
	"github.com/roach88/propmig/internal/prop"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Schema string // optional, supplies struct layouts
}

// InspectResult is the decoded view of one record file.
type InspectResult struct {
	File        string          `json:"file"`
	Class       string          `json:"class"`
	Format      uint16          `json:"format"`
	Imports     int             `json:"imports"`
	Exports     int             `json:"exports"`
	Fields      int             `json:"fields"`
	Fingerprint string          `json:"fingerprint"`
	Tree        json.RawMessage `json:"tree"`
	Truncated   bool            `json:"truncated,omitempty"`
	ShortStream bool            `json:"short_stream,omitempty"` // truncated by an early end, not a bad value
	Reason      string          `json:"reason,omitempty"`
	Unknown     []string        `json:"unknown,omitempty"`
	Skipped     []string        `json:"skipped,omitempty"`

	tree prop.Tree
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <record-file>",
		Short: "Decode a record without its class",
		Long: `Decode a record file into a generic property tree.

No class is needed: every tagged field is decoded by its wire type.
Fields of unknown type are listed without a value. A list that ends
early is reported as truncated, with the fields decoded before it.

Pass --schema to decode struct fields whose layouts the schema declares.

Examples:
  propmig inspect monster.rec
  propmig inspect monster.rec --schema ./schemas --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "schema file or directory for struct layouts")

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	var cat *object.Catalog
	if opts.Schema != "" {
		loaded, err := LoadSchema(opts.Schema)
		if err != nil {
			return exitFromLoad(f, err)
		}
		cat = loaded.Catalog
	}

	data, err := os.ReadFile(path)
	if err != nil {
		_ = f.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read record", err)
	}

	res, err := inspectRecord(data, filepath.Base(path), cat, opts.Logger(cmd))
	if err != nil {
		_ = f.Error(ErrCodeBadRecord, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open record", err)
	}
	res.File = path

	if f.IsJSON() {
		return f.Success(res)
	}
	printInspect(f, res)
	return nil
}

func inspectRecord(data []byte, name string, cat *object.Catalog, logger *slog.Logger) (*InspectResult, error) {
	rec, err := object.OpenRecord(data, name)
	if err != nil {
		return nil, err
	}
	dec := rec.Decoder(cat)
	dec.Logger = logger
	dec.Owner = rec.Header.Class
	tree, rep := dec.DecodeRoot(rec.Body)

	canonical, err := prop.MarshalCanonical(tree)
	if err != nil {
		return nil, err
	}
	res := &InspectResult{
		Class:       rec.Header.Class,
		Format:      rec.Header.Format,
		Imports:     len(rec.Refs.Imports),
		Exports:     len(rec.Refs.Exports),
		Fields:      rep.Fields,
		Fingerprint: prop.MustFingerprint(tree),
		Tree:        canonical,
		Truncated:   rep.Truncated,
		Unknown:     rep.Unknown,
		Skipped:     rep.Skipped,
		tree:        tree,
	}
	if rep.Reason != nil {
		res.Reason = rep.Reason.Error()
		res.ShortStream = decode.IsTruncation(rep.Reason)
	}
	return res, nil
}

func printInspect(f *OutputFormatter, res *InspectResult) {
	f.Textf("Record:      %s\n", res.File)
	f.Textf("Class:       %s\n", res.Class)
	f.Textf("References:  %d imports, %d exports\n", res.Imports, res.Exports)
	f.Textf("Fingerprint: %s\n\n", res.Fingerprint)

	res.tree.Walk(func(path string, p *prop.Property) bool {
		depth := strings.Count(path, ".")
		f.Textf("%s%s %s = %s\n", strings.Repeat("  ", depth), path, typeName(p), valueText(p))
		return true
	})

	f.Textf("\n%d fields\n", res.Fields)
	for _, name := range res.Unknown {
		f.Warn("unknown type: %s", name)
	}
	for _, name := range res.Skipped {
		f.Warn("skipped: %s", name)
	}
	if res.Truncated {
		kind := "malformed value"
		if res.ShortStream {
			kind = "short stream"
		}
		f.Warn("truncated (%s): %s", kind, res.Reason)
	}
}

func typeName(p *prop.Property) string {
	switch {
	case p.IsMap():
		return fmt.Sprintf("%s<%s,%s>", p.Type, p.InnerType, p.ValueType)
	case p.InnerType != "":
		return fmt.Sprintf("%s<%s>", p.Type, p.InnerType)
	case p.StructName != "":
		return fmt.Sprintf("%s<%s>", p.Type, p.StructName)
	}
	return string(p.Type)
}

func valueText(p *prop.Property) string {
	if !p.HasValue() {
		return "(no value)"
	}
	if p.HasValueTrees || p.HasKeyTrees {
		return fmt.Sprintf("[%d nested]", p.Len())
	}
	return fmt.Sprint(object.FromProperty(p))
}
