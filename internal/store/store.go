package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/propmig/internal/metrics"
)

// ErrNotFound is returned by Get and Delete for an unknown record ID.
var ErrNotFound = errors.New("store: record not found")

// Record is one stored record.
type Record struct {
	ID        uuid.UUID
	Class     string
	Version   uint64 // version the payload was saved at
	Payload   []byte // record file, uncompressed
	UpdatedAt time.Time
}

// Store persists records. Implementations are safe for concurrent use.
type Store interface {
	// Put inserts or replaces a record. A zero ID is replaced by a new
	// one and a zero UpdatedAt by the current time.
	Put(ctx context.Context, rec *Record) error

	Get(ctx context.Context, id uuid.UUID) (*Record, error)

	// List returns every record ordered by ID.
	List(ctx context.Context) ([]*Record, error)

	Delete(ctx context.Context, id uuid.UUID) error
	Close() error
}

// Backend represents different database backend options.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendBolt   Backend = "bolt"
	BackendBadger Backend = "badger"
)

// ParseBackend parses a backend name as given on the command line.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(s)); b {
	case BackendSQLite, BackendBolt, BackendBadger:
		return b, nil
	case "":
		return BackendSQLite, nil
	}
	return "", fmt.Errorf("unsupported backend: %s", s)
}

// Open opens a record store with the given backend.
//
// Backends:
//   - sqlite: a single database file, the default
//   - bolt: compact B+ tree file; ".bolt" is appended when missing
//   - badger: LSM-tree directory, fast for large stores
func Open(path string, backend Backend) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		return OpenSQLite(path)

	case BackendBolt:
		if !strings.HasSuffix(path, ".bolt") {
			path = path + ".bolt"
		}
		return OpenBolt(path)

	case BackendBadger:
		return OpenBadger(path)

	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

// prepare fills in the ID and timestamp of a record about to be written.
func prepare(rec *Record) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
}

// observe counts one store operation.
func observe(backend Backend, op string, err error) {
	status := metrics.Status(err)
	if errors.Is(err, ErrNotFound) {
		status = "not_found"
	}
	metrics.StoreOps.WithLabelValues(string(backend), op, status).Inc()
}
