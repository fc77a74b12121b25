package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/propmig/internal/metrics"
	"github.com/roach88/propmig/internal/object"
	"github.com/roach88/propmig/internal/scope"
	"github.com/roach88/propmig/internal/store"
)

var tracer = otel.Tracer("propmig.migrate")

// Runner upgrades every outdated record of a store to the code version of
// its class.
type Runner struct {
	Store   store.Store
	Backend store.Backend // metrics label only
	Catalog *object.Catalog

	// Rules by class name. Classes without rules still have their
	// retyped fields coerced.
	Rules map[string]Rules

	// Handlers override Rules for the classes they name.
	Handlers map[string]scope.Handler[*object.Instance]

	// DryRun loads and migrates in memory without writing back.
	DryRun bool

	Logger *slog.Logger
}

// Summary counts the records of one run.
type Summary struct {
	Scanned  int
	Migrated int
	Current  int
	Degraded int
	Failed   []Failure
}

// Failure is a record the runner could not migrate.
type Failure struct {
	ID    uuid.UUID
	Class string
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("record %s (%s): %v", f.ID, f.Class, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Result is the outcome of migrating one record.
type Result struct {
	Outcome scope.Outcome
	Written bool
}

// Run migrates every record of the store. A record that fails is logged
// and counted, and the run continues. The returned error is non-nil when
// listing fails, when ctx is canceled, or when any record failed.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	defer func() {
		metrics.RunnerDuration.WithLabelValues(string(r.Backend)).Observe(time.Since(start).Seconds())
	}()

	ctx, span := tracer.Start(ctx, "migrate.Runner.Run",
		trace.WithAttributes(
			attribute.String("backend", string(r.Backend)),
			attribute.Bool("dry_run", r.DryRun),
		),
	)
	defer span.End()

	logger := r.logger()
	var sum Summary

	recs, err := r.Store.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list records failed")
		return sum, fmt.Errorf("list records: %w", err)
	}
	logger.Info("Migration started", "records", len(recs), "backend", string(r.Backend), "dry_run", r.DryRun)

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "canceled")
			return sum, err
		}
		sum.Scanned++

		res, err := r.MigrateRecord(ctx, rec)
		if err != nil {
			sum.Failed = append(sum.Failed, Failure{ID: rec.ID, Class: rec.Class, Err: err})
			logger.Error("Record migration failed", "id", rec.ID.String(), "class", rec.Class, "error", err)
			continue
		}
		switch {
		case res.Outcome.Degraded:
			sum.Degraded++
		case res.Outcome.Outdated:
			sum.Migrated++
		default:
			sum.Current++
		}
	}

	span.SetAttributes(
		attribute.Int("scanned", sum.Scanned),
		attribute.Int("migrated", sum.Migrated),
		attribute.Int("failed", len(sum.Failed)),
	)
	logger.Info("Migration finished",
		"scanned", sum.Scanned,
		"migrated", sum.Migrated,
		"current", sum.Current,
		"degraded", sum.Degraded,
		"failed", len(sum.Failed),
		"duration", time.Since(start))

	if len(sum.Failed) > 0 {
		span.SetStatus(codes.Error, "records failed")
		return sum, fmt.Errorf("%d of %d records failed: %w", len(sum.Failed), sum.Scanned, sum.Failed[0])
	}
	return sum, nil
}

// MigrateRecord loads one stored record through a migration scope and,
// when it was outdated, saves it again at the class's code version.
func (r *Runner) MigrateRecord(ctx context.Context, rec *store.Record) (Result, error) {
	ctx, span := tracer.Start(ctx, "migrate.Runner.MigrateRecord",
		trace.WithAttributes(
			attribute.String("record.id", rec.ID.String()),
			attribute.String("record.class", rec.Class),
			attribute.Int64("record.version", int64(rec.Version)),
		),
	)
	defer span.End()

	res, err := r.migrateRecord(ctx, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "migrate record failed")
		return res, err
	}
	span.SetAttributes(
		attribute.Bool("outdated", res.Outcome.Outdated),
		attribute.Bool("written", res.Written),
	)
	return res, nil
}

func (r *Runner) migrateRecord(ctx context.Context, rec *store.Record) (Result, error) {
	var res Result
	name := rec.ID.String()
	logger := r.logger()

	file, err := object.OpenRecord(rec.Payload, name)
	if err != nil {
		return res, err
	}
	if file.Header.Class != rec.Class {
		return res, fmt.Errorf("record class %q does not match stored class %q", file.Header.Class, rec.Class)
	}

	inst, out, err := object.LoadRecord(file, r.Catalog, r.handler(rec.Class), scope.WithLogger(logger))
	res.Outcome = out
	if err != nil {
		return res, err
	}
	if !out.Outdated || r.DryRun {
		return res, nil
	}

	payload, err := object.SaveRecord(name, inst, file.Refs, scope.WithLogger(logger))
	if err != nil {
		return res, fmt.Errorf("save migrated record: %w", err)
	}
	updated := &store.Record{
		ID:      rec.ID,
		Class:   rec.Class,
		Version: out.CodeVersion,
		Payload: payload,
	}
	if err := r.Store.Put(ctx, updated); err != nil {
		return res, err
	}
	res.Written = true

	logger.Debug("Record migrated",
		"id", name,
		"class", rec.Class,
		"from", out.AssetVersion,
		"to", out.CodeVersion)
	return res, nil
}

func (r *Runner) handler(class string) scope.Handler[*object.Instance] {
	if h, ok := r.Handlers[class]; ok {
		return h
	}
	return r.Rules[class].Handler(r.logger())
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
