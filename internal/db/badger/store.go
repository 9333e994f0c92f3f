// Package badger is the embedded BadgerDB backend for blob storage.
package badger

import (
	"context"
	"errors"
	"fmt"

	bdg "github.com/dgraph-io/badger/v4"

	"github.com/kailas-cloud/tastefeed/internal/db"
)

// Compile-time check: Store implements db.BlobStore.
var _ db.BlobStore = (*Store)(nil)

const scanPageSize = 256

// Config holds BadgerDB options.
type Config struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
}

// Store implements db.BlobStore on an embedded BadgerDB.
type Store struct {
	db *bdg.DB
}

// Open opens (or creates) a BadgerDB store.
func Open(cfg Config) (*Store, error) {
	var opts bdg.Options
	switch {
	case cfg.InMemory:
		opts = bdg.DefaultOptions("").WithInMemory(true)
	case cfg.Path != "":
		opts = bdg.DefaultOptions(cfg.Path)
	default:
		return nil, fmt.Errorf("path is required")
	}
	opts.Logger = nil

	bdb, err := bdg.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: bdb}, nil
}

// Ping reports whether the database is still open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return &db.Error{Op: db.OpPing, Err: bdg.ErrDBClosed}
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *bdg.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, bdg.ErrKeyNotFound) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return out, nil
}

// Set stores a value at the given key in its own transaction.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *bdg.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// MGet reads many keys from a single snapshot. Missing keys yield nil slots.
func (s *Store) MGet(_ context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	out := make([][]byte, len(keys))
	err := s.db.View(func(txn *bdg.Txn) error {
		for i, key := range keys {
			item, err := txn.Get([]byte(key))
			if errors.Is(err, bdg.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if out[i], err = item.ValueCopy(nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpMGet, Err: err}
	}
	return out, nil
}

// Del deletes a key. Deleting an absent key is not an error.
func (s *Store) Del(_ context.Context, key string) error {
	err := s.db.Update(func(txn *bdg.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}
	return nil
}

// Exists checks if a key exists.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	found := false
	err := s.db.View(func(txn *bdg.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, bdg.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return found, nil
}

// ScanPrefix iterates every key under prefix inside one read transaction,
// so the whole scan sees a single snapshot. Values are only read for kept keys.
func (s *Store) ScanPrefix(
	ctx context.Context, prefix string,
	keep func(key string) bool, fn func(page []db.Entry) error,
) error {
	var cbErr error
	err := s.db.View(func(txn *bdg.Txn) error {
		opts := bdg.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		page := make([]db.Entry, 0, scanPageSize)
		flush := func() error {
			if len(page) == 0 {
				return nil
			}
			if err := fn(page); err != nil {
				cbErr = err
				return err
			}
			page = make([]db.Entry, 0, scanPageSize)
			return nil
		}

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if keep != nil && !keep(key) {
				continue
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			page = append(page, db.Entry{Key: key, Value: val})
			if len(page) == scanPageSize {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})
	if cbErr != nil {
		return cbErr
	}
	if err != nil {
		return &db.Error{Op: db.OpScan, Err: err}
	}
	return nil
}
