// Package scope implements the migration scope that brackets the load or
// save of one record.
//
// On load, Begin peeks at the record's property list for the version field
// without moving the cursor. After the normal loader has read the record,
// End compares the stored version with the class's code version. When the
// record is older, End rewinds to where the record started, decodes the
// whole property list into a prop.Tree, hands it to the migration handler,
// and puts the cursor back where the normal loader left it.
//
// On save, the scope makes sure the version field is written with the
// current code version. It does so through a scope-local view of the class
// default (see ShadowDefault); the class default itself is never modified, so
// saves of the same class may run concurrently.
package scope

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/propmig/internal/decode"
	"github.com/roach88/propmig/internal/metrics"
	"github.com/roach88/propmig/internal/prop"
	"github.com/roach88/propmig/internal/wire"
)

// Handler receives the decoded record of an outdated obj together with the
// version it was written at and the current code version. tree is only
// valid during the call; use tree.Clone to keep data.
type Handler[T Object] func(obj T, tree prop.Tree, assetVersion, codeVersion uint64) error

// Outcome describes what End did.
type Outcome struct {
	Loading      bool
	Outdated     bool // the gate found the record older than the code
	Migrated     bool // handler was invoked
	AssetVersion uint64
	CodeVersion  uint64
	Pre          int64 // cursor when the scope began
	Post         int64 // cursor when the scope ended
	Degraded     bool  // the class has no usable version field
	Report       decode.Report
}

type config struct {
	versionField string
	decoder      decode.Decoder
	logger       *slog.Logger
}

// Option configures a scope.
type Option func(*config)

// WithVersionField sets the name of the version field. An empty name
// selects DefaultVersionField.
func WithVersionField(name string) Option {
	return func(c *config) {
		if name != "" {
			c.versionField = name
		}
	}
}

// WithDecoder sets the decoder used for migration. The scope copies it and
// fills in Owner and Logger when they are unset.
func WithDecoder(d *decode.Decoder) Option {
	return func(c *config) {
		if d != nil {
			c.decoder = *d
		}
	}
}

// WithLogger sets the logger for scope diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// Scope brackets the load or save of one record. Create it with Begin and
// finish it with End. Not safe for concurrent use; the archive belongs to
// the scope until End returns.
type Scope[T Object] struct {
	obj     T
	ar      wire.Archive
	handler Handler[T]
	cfg     config

	class       Class
	field       Field
	codeVersion uint64
	loading     bool
	degraded    bool

	pre         int64
	assetHasTag bool

	saving  bool
	ended   bool
	outcome Outcome
}

// missingReported records class/field pairs already reported as missing.
var missingReported sync.Map

// Begin opens a scope for obj on ar. The cursor must be at the start of
// obj's property list.
//
// A class without a uint64 version field is reported once per class and
// field name, and the scope degrades to treating every record as current.
// A class whose code version is SavingSentinel is a fatal error.
func Begin[T Object](obj T, ar wire.Archive, handler Handler[T], opts ...Option) (*Scope[T], error) {
	cfg := config{versionField: DefaultVersionField, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Scope[T]{
		obj:     obj,
		ar:      ar,
		handler: handler,
		cfg:     cfg,
		class:   obj.Class(),
		loading: ar.IsLoading(),
		pre:     ar.Tell(),
	}
	s.outcome = Outcome{Loading: s.loading, Pre: s.pre}

	field, ok := s.class.Field(cfg.versionField)
	var code uint64
	if ok {
		code, ok = field.Uint64(s.class.Default())
	}
	if !ok {
		s.reportMissing()
		s.degraded = true
		s.outcome.Degraded = true
		return s, nil
	}
	if code == SavingSentinel {
		return nil, s.errorf(CodeSentinelVersion, ErrSentinelVersion)
	}
	s.field = field
	s.codeVersion = code
	s.outcome.CodeVersion = code

	if !s.loading {
		if err := field.SetUint64(obj, code); err != nil {
			return nil, s.errorf(CodeVersionWrite, err)
		}
		s.saving = true
		return s, nil
	}

	r, ok := ar.(*wire.Reader)
	if !ok {
		return nil, s.errorf(CodeNotLoadable, fmt.Errorf("%w: %T", ErrNotLoadable, ar))
	}
	_, found, err := decode.FindTag(r, cfg.versionField)
	if err != nil {
		cfg.logger.Warn("Invalid tag name",
			"struct", s.class.Name(),
			"archive", ar.Name(),
			"error", err)
	}
	s.assetHasTag = found
	return s, nil
}

func (s *Scope[T]) reportMissing() {
	key := s.class.Name() + "\x00" + s.cfg.versionField
	if _, loaded := missingReported.LoadOrStore(key, true); loaded {
		return
	}
	s.cfg.logger.Error("Version property not found",
		"class", s.class.Name(),
		"field", s.cfg.versionField,
		"error", ErrMissingVersionField)
}

func (s *Scope[T]) errorf(code ErrorCode, err error) *ScopeError {
	return &ScopeError{
		Code:    code,
		Class:   s.class.Name(),
		Archive: s.ar.Name(),
		Field:   s.cfg.versionField,
		Err:     err,
	}
}

// CodeVersion returns the class's current code version.
func (s *Scope[T]) CodeVersion() uint64 { return s.codeVersion }

// Saving reports whether the scope is an open save scope.
func (s *Scope[T]) Saving() bool { return s.saving }

// ForceEmit reports whether a delta serializer must write field even when
// it equals the class default. It is true for the version field while a
// save scope is open.
func (s *Scope[T]) ForceEmit(field string) bool {
	return s.saving && field == s.cfg.versionField
}

// ShadowDefault returns the value the class default holds for field as
// seen by this save: SavingSentinel for the version field while the save
// is open. ok is false for every other field.
func (s *Scope[T]) ShadowDefault(field string) (v uint64, ok bool) {
	if s.ForceEmit(field) {
		return SavingSentinel, true
	}
	return 0, false
}

// Abort closes the scope without gating or migrating. Use it when the
// normal load failed and the cursor position is meaningless.
func (s *Scope[T]) Abort() {
	s.ended = true
	s.saving = false
}

// End closes the scope. On load it runs the version gate and, when the
// record is outdated, the migration handler. It is safe to call End more
// than once; later calls return the first outcome.
func (s *Scope[T]) End() (Outcome, error) {
	if s.ended {
		return s.outcome, nil
	}
	s.ended = true

	if s.degraded {
		metrics.Migrations.WithLabelValues(s.class.Name(), "degraded").Inc()
		return s.outcome, nil
	}
	if !s.loading {
		s.saving = false
		s.outcome.Post = s.ar.Tell()
		return s.outcome, nil
	}

	post := s.ar.Tell()
	s.outcome.Post = post

	var asset uint64
	if s.assetHasTag {
		asset, _ = s.field.Uint64(s.obj)
	}
	s.outcome.AssetVersion = asset

	if err := s.field.SetUint64(s.obj, s.codeVersion); err != nil {
		metrics.Migrations.WithLabelValues(s.class.Name(), "error").Inc()
		return s.outcome, s.errorf(CodeVersionWrite, err)
	}

	if !Gate(s.codeVersion, asset) {
		metrics.Migrations.WithLabelValues(s.class.Name(), "current").Inc()
		return s.outcome, nil
	}

	s.outcome.Outdated = true
	err := s.migrate(post, asset)
	result := "migrated"
	if err != nil {
		result = "error"
	}
	metrics.Migrations.WithLabelValues(s.class.Name(), result).Inc()
	return s.outcome, err
}

func (s *Scope[T]) migrate(post int64, asset uint64) (err error) {
	r := s.ar.(*wire.Reader)
	if err := r.Seek(s.pre); err != nil {
		return s.errorf(CodeCursor, err)
	}
	defer func() {
		if serr := r.Seek(post); serr != nil && err == nil {
			err = s.errorf(CodeCursor, serr)
		}
	}()

	dec := s.cfg.decoder
	if dec.Owner == "" {
		dec.Owner = s.class.Name()
	}
	if dec.Logger == nil {
		dec.Logger = s.cfg.logger
	}
	tree, rep := dec.DecodeRoot(r)
	defer tree.Release()
	s.outcome.Report = rep

	s.cfg.logger.Debug("Migrating record",
		"class", s.class.Name(),
		"archive", s.ar.Name(),
		"asset_version", asset,
		"code_version", s.codeVersion,
		"fields", rep.Fields,
		"truncated", rep.Truncated)

	if s.handler == nil {
		return nil
	}
	s.outcome.Migrated = true
	if herr := s.handler(s.obj, tree, asset, s.codeVersion); herr != nil {
		return s.errorf(CodeHandlerFailed, herr)
	}
	return nil
}

// Run opens a scope, calls body to perform the normal load or save, and
// closes the scope. If body fails the scope is aborted and body's error is
// returned.
func Run[T Object](obj T, ar wire.Archive, handler Handler[T], body func() error, opts ...Option) (Outcome, error) {
	s, err := Begin(obj, ar, handler, opts...)
	if err != nil {
		return Outcome{}, err
	}
	if err := body(); err != nil {
		s.Abort()
		return s.outcome, err
	}
	return s.End()
}
