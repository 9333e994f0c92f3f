package db

import (
	"context"
	"time"
)

// Store is the Valkey/Redis facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces
type Store interface {
	BlobStore
	HashStore
	SortedSetStore
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// BlobStore is the subset every backend provides, including the embedded one.
type BlobStore interface {
	Pinger
	KVStore
	PrefixScanner
	Close()
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// MGet returns one slot per key; missing keys yield a nil slot.
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Entry is a single key/value pair produced by a prefix scan.
type Entry struct {
	Key   string
	Value []byte
}

// PrefixScanner streams every key under a prefix in pages.
//
// keep is consulted per key before its value is read; returning false skips
// the value fetch entirely. A nil keep keeps every key. fn receives each page
// of kept entries; returning an error aborts the scan with that error.
type PrefixScanner interface {
	ScanPrefix(
		ctx context.Context, prefix string,
		keep func(key string) bool, fn func(page []Entry) error,
	) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// ScoredMember is a sorted-set member with its score.
type ScoredMember struct {
	Member string
	Score  float64
}

// SortedSetStore provides sorted-set operations.
type SortedSetStore interface {
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRem(ctx context.Context, key, member string) error
	// ZRevRange returns up to limit members, highest score first. A negative
	// limit returns the whole set.
	ZRevRange(ctx context.Context, key string, limit int) ([]ScoredMember, error)
	ZCard(ctx context.Context, key string) (int64, error)
}
