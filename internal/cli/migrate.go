package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/propmig/internal/migrate"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	StoreOptions
	Schema string
	DryRun bool
}

// MigrateResult summarizes a migrate run.
type MigrateResult struct {
	Scanned  int            `json:"scanned"`
	Migrated int            `json:"migrated"`
	Current  int            `json:"current"`
	Degraded int            `json:"degraded"`
	DryRun   bool           `json:"dry_run"`
	Failed   []FailedRecord `json:"failed,omitempty"`
}

// FailedRecord is a record that did not migrate.
type FailedRecord struct {
	ID    string `json:"id"`
	Class string `json:"class"`
	Error string `json:"error"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade every outdated record in a store",
		Long: `Load every record in a store through a migration scope and save the
outdated ones again at their class's code version.

Classes migrate with the rename and default rules their schema declares.
A record that fails to migrate is reported and left unchanged; the run
continues with the next record.

Exit codes:
  0 - All records are current
  1 - One or more records failed to migrate
  2 - Command error (schema or store could not be opened)

Examples:
  propmig migrate --db ./records.db --schema ./schemas
  propmig migrate --db ./records --backend badger --schema ./schemas --dry-run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	opts.StoreOptions.register(cmd)
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "schema file or directory (required)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "migrate in memory without writing back")
	_ = cmd.MarkFlagRequired("schema")

	return cmd
}

func runMigrate(opts *MigrateOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := opts.Logger(cmd)

	loaded, err := LoadSchema(opts.Schema)
	if err != nil {
		return exitFromLoad(f, err)
	}
	f.VerboseLog("Loaded %d class(es) from %d file(s)", len(loaded.Schema.Classes), loaded.FileCount)

	st, backend, err := opts.open()
	if err != nil {
		_ = f.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing store", "error", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &migrate.Runner{
		Store:   st,
		Backend: backend,
		Catalog: loaded.Catalog,
		Rules:   loaded.Rules,
		DryRun:  opts.DryRun,
		Logger:  logger,
	}
	sum, err := runner.Run(ctx)

	res := MigrateResult{
		Scanned:  sum.Scanned,
		Migrated: sum.Migrated,
		Current:  sum.Current,
		Degraded: sum.Degraded,
		DryRun:   opts.DryRun,
	}
	for _, fail := range sum.Failed {
		res.Failed = append(res.Failed, FailedRecord{ID: fail.ID.String(), Class: fail.Class, Error: fail.Err.Error()})
	}

	if err != nil && len(sum.Failed) == 0 {
		// listing failed or the run was interrupted
		if errors.Is(err, context.Canceled) {
			_ = f.Error(ErrCodeMigration, "interrupted", res)
			return WrapExitError(ExitFailure, "migration interrupted", err)
		}
		_ = f.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read store", err)
	}

	if f.IsJSON() {
		if len(res.Failed) > 0 {
			if outErr := f.Error(ErrCodeMigration, err.Error(), res); outErr != nil {
				return outErr
			}
			return WrapExitError(ExitFailure, "migration failed", err)
		}
		return f.Success(res)
	}

	printMigrate(f, res)
	if len(res.Failed) > 0 {
		return WrapExitError(ExitFailure, "migration failed", err)
	}
	return nil
}

func printMigrate(f *OutputFormatter, res MigrateResult) {
	for _, fail := range res.Failed {
		f.Fail("%s (%s): %s", fail.ID, fail.Class, fail.Error)
	}

	verb := "migrated"
	if res.DryRun {
		verb = "would migrate"
	}
	f.Textf("\nMigration Summary: %d scanned, %d %s, %d current, %d degraded, %d failed\n",
		res.Scanned, res.Migrated, verb, res.Current, res.Degraded, len(res.Failed))
	if res.Degraded > 0 {
		f.Warn("%d record(s) belong to classes without a version field", res.Degraded)
	}
	switch {
	case len(res.Failed) > 0:
	case res.DryRun:
		f.Pass("Dry run complete, nothing written")
	default:
		f.Pass("Migration complete")
	}
}
