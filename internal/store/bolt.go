package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var recordsBucket = []byte("records")

// BoltStore stores records in a bbolt file.
// bbolt is much more compact than BadgerDB and keeps a single file.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt creates or opens a bbolt database at the given path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create parent directory for bolt db: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout:      1 * time.Second,
		FreelistType: bbolt.FreelistMapType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create records bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Put inserts or replaces a record.
func (s *BoltStore) Put(ctx context.Context, rec *Record) (err error) {
	defer func() { observe(BackendBolt, "put", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	prepare(rec)

	data := marshalRecord(rec)
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(recordsBucket).Put([]byte(rec.ID.String()), data)
	})
	if err != nil {
		return fmt.Errorf("put record %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record with the given ID.
func (s *BoltStore) Get(ctx context.Context, id uuid.UUID) (rec *Record, err error) {
	defer func() { observe(BackendBolt, "get", err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(recordsBucket).Get([]byte(id.String()))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		// data is only valid inside the transaction
		rec, err = unmarshalRecord(id, data)
		return err
	})
	return rec, err
}

// List returns every record ordered by ID. bbolt iterates keys in byte
// order, which matches the textual UUID order.
func (s *BoltStore) List(ctx context.Context) (recs []*Record, err error) {
	defer func() { observe(BackendBolt, "list", err) }()

	err = s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(recordsBucket).ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := uuid.ParseBytes(k)
			if err != nil {
				return fmt.Errorf("record key %q: %w", k, err)
			}
			rec, err := unmarshalRecord(id, v)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

// Delete removes a record.
func (s *BoltStore) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer func() { observe(BackendBolt, "delete", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		key := []byte(id.String())
		if b.Get(key) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return b.Delete(key)
	})
}
