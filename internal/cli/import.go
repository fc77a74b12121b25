package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/propmig/internal/object"
	"github.com/roach88/propmig/internal/prop"
	"github.com/roach88/propmig/internal/scope"
	"github.com/roach88/propmig/internal/store"
)

// StoreOptions selects a record store.
type StoreOptions struct {
	Database string
	Backend  string
}

func (o *StoreOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Database, "db", "", "path to the record store (required)")
	cmd.Flags().StringVar(&o.Backend, "backend", string(store.BackendSQLite), "store backend (sqlite|bolt|badger)")
	_ = cmd.MarkFlagRequired("db")
}

func (o *StoreOptions) open() (store.Store, store.Backend, error) {
	backend, err := store.ParseBackend(o.Backend)
	if err != nil {
		return nil, "", err
	}
	st, err := store.Open(o.Database, backend)
	if err != nil {
		return nil, "", err
	}
	return st, backend, nil
}

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	StoreOptions
	VersionField string
}

// ImportedRecord is one record file added to the store.
type ImportedRecord struct {
	File    string `json:"file"`
	ID      string `json:"id"`
	Class   string `json:"class"`
	Version uint64 `json:"version"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <record-file>...",
		Short: "Add record files to a record store",
		Long: `Add record files to a record store under new IDs.

The stored version is read from the record's version field. A record
without one is stored at version 0.

Examples:
  propmig import --db ./records.db troll.rec orc.rec
  propmig import --db ./records --backend badger *.rec`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args, cmd)
		},
	}

	opts.StoreOptions.register(cmd)
	cmd.Flags().StringVar(&opts.VersionField, "version-field", scope.DefaultVersionField, "name of the version field")

	return cmd
}

func runImport(opts *ImportOptions, files []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	st, _, err := opts.open()
	if err != nil {
		_ = f.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer st.Close()

	imported := make([]ImportedRecord, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			_ = f.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read record", err)
		}
		rec, err := recordFromFile(data, filepath.Base(path), opts.VersionField)
		if err != nil {
			_ = f.Error(ErrCodeBadRecord, fmt.Sprintf("%s: %v", path, err), nil)
			return WrapExitError(ExitCommandError, "failed to open record", err)
		}
		if err := st.Put(cmd.Context(), rec); err != nil {
			_ = f.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to store record", err)
		}

		imported = append(imported, ImportedRecord{File: path, ID: rec.ID.String(), Class: rec.Class, Version: rec.Version})
		f.Pass("%s -> %s (%s v%d)", path, rec.ID, rec.Class, rec.Version)
	}

	if f.IsJSON() {
		return f.Success(imported)
	}
	return nil
}

// recordFromFile builds a store record from a record file, reading the
// version from versionField.
func recordFromFile(data []byte, name, versionField string) (*store.Record, error) {
	rec, err := object.OpenRecord(data, name)
	if err != nil {
		return nil, err
	}

	var version uint64
	tree, _ := rec.Decoder(nil).DecodeRoot(rec.Body)
	if p, ok := tree[versionField]; ok {
		if v, ok := p.FirstValue().(prop.UInt64); ok {
			version = uint64(v)
		}
	}

	return &store.Record{Class: rec.Header.Class, Version: version, Payload: data}, nil
}
