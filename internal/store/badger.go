package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/roach88/propmig/internal/logging"
)

const recordKeyPrefix = "record:"

// BadgerStore stores records in a BadgerDB directory under prefixed keys.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger creates or opens a BadgerDB directory at the given path.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = &badgerLogger{logger: logging.Logger}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open badger database")
	}
	return &BadgerStore{db: db}, nil
}

// Close closes the database connection
func (s *BadgerStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func recordKey(id uuid.UUID) []byte {
	return []byte(recordKeyPrefix + id.String())
}

// Put inserts or replaces a record.
func (s *BadgerStore) Put(ctx context.Context, rec *Record) (err error) {
	defer func() { observe(BackendBadger, "put", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	prepare(rec)

	data := marshalRecord(rec)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.ID), data)
	})
	return errors.Wrapf(err, "failed to store record %s", rec.ID)
}

// Get returns the record with the given ID.
func (s *BadgerStore) Get(ctx context.Context, id uuid.UUID) (rec *Record, err error) {
	defer func() { observe(BackendBadger, "get", err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = unmarshalRecord(id, val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get record %s", id)
	}
	return rec, nil
}

// List returns every record ordered by ID.
func (s *BadgerStore) List(ctx context.Context) (recs []*Record, err error) {
	defer func() { observe(BackendBadger, "list", err) }()

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(recordKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			id, err := uuid.ParseBytes(item.Key()[len(prefix):])
			if err != nil {
				return errors.Wrapf(err, "record key %q", item.Key())
			}
			err = item.Value(func(val []byte) error {
				rec, err := unmarshalRecord(id, val)
				if err != nil {
					return err
				}
				recs = append(recs, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list records")
	}
	return recs, nil
}

// Delete removes a record.
func (s *BadgerStore) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer func() { observe(BackendBadger, "delete", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(recordKey(id)); err != nil {
			return err
		}
		return txn.Delete(recordKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.Wrapf(ErrNotFound, "%s", id)
	}
	return errors.Wrapf(err, "failed to delete record %s", id)
}

// badgerLogger routes badger's own logging into the process logger.
// Badger is chatty at info level, so info lines go to debug.
type badgerLogger struct {
	logger *logrus.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}
