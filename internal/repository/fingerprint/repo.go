// Package fingerprint stores article fingerprints and answers linear-scan cosine searches.
package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/tastefeed/internal/db"
	"github.com/kailas-cloud/tastefeed/internal/domain"
	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
	"github.com/kailas-cloud/tastefeed/internal/domain/recommendation"
)

const mgetChunk = 500

// store is the consumer interface for fingerprints (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	ScanPrefix(
		ctx context.Context, prefix string,
		keep func(key string) bool, fn func(page []db.Entry) error,
	) error
}

// Repo implements the fingerprint store on any db.BlobStore backend.
type Repo struct {
	store          store
	keyPrefix      string
	searchDuration prometheus.Observer
	scannedTotal   prometheus.Counter
}

// New creates a fingerprint repository. Keys are "<prefix>fp:<id>".
// searchDuration and scannedTotal are optional.
func New(s store, prefix string, searchDuration prometheus.Observer, scannedTotal prometheus.Counter) *Repo {
	return &Repo{
		store:          s,
		keyPrefix:      prefix + "fp:",
		searchDuration: searchDuration,
		scannedTotal:   scannedTotal,
	}
}

// Put stores or replaces the fingerprint for id.
func (r *Repo) Put(ctx context.Context, id int64, f fp.Fingerprint) error {
	data, err := f.Encode()
	if err != nil {
		return fmt.Errorf("put fingerprint %d: %w", id, err)
	}
	if err := r.store.Set(ctx, r.key(id), data); err != nil {
		return storeErr("put fingerprint", id, err)
	}
	return nil
}

// Get returns the fingerprint for id; ok is false when none is stored.
func (r *Repo) Get(ctx context.Context, id int64) (fp.Fingerprint, bool, error) {
	data, err := r.store.Get(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, storeErr("get fingerprint", id, err)
	}
	f, err := fp.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("decode fingerprint %d: %w", id, err)
	}
	return f, true, nil
}

// GetMany returns the stored fingerprints among ids. Missing ids are absent from the map.
func (r *Repo) GetMany(ctx context.Context, ids []int64) (map[int64]fp.Fingerprint, error) {
	out := make(map[int64]fp.Fingerprint, len(ids))
	for start := 0; start < len(ids); start += mgetChunk {
		end := min(start+mgetChunk, len(ids))
		chunk := ids[start:end]

		keys := make([]string, len(chunk))
		for i, id := range chunk {
			keys[i] = r.key(id)
		}
		values, err := r.store.MGet(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("get fingerprints: %w: %w", domain.ErrStoreIO, err)
		}
		for i, data := range values {
			if data == nil {
				continue
			}
			f, err := fp.Decode(data)
			if err != nil {
				return nil, fmt.Errorf("decode fingerprint %d: %w", chunk[i], err)
			}
			out[chunk[i]] = f
		}
	}
	return out, nil
}

// Delete removes the fingerprint for id. Deleting an absent fingerprint is not an error.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	if err := r.store.Del(ctx, r.key(id)); err != nil {
		return storeErr("delete fingerprint", id, err)
	}
	return nil
}

// Search scores every stored fingerprint not in exclude against query and
// returns the k most similar, best first, ties broken by ascending id.
// A storage failure mid-scan returns the error and no partial result.
func (r *Repo) Search(
	ctx context.Context, query fp.Fingerprint, k int, exclude map[int64]struct{},
) ([]recommendation.Candidate, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	if k <= 0 {
		return []recommendation.Candidate{}, nil
	}

	start := time.Now()
	qnorm := fp.Norm(query)
	top := newTopK(k)
	scanned := 0

	keep := func(key string) bool {
		id, ok := r.parseKey(key)
		if !ok {
			return false
		}
		_, skip := exclude[id]
		return !skip
	}
	score := func(page []db.Entry) error {
		for _, e := range page {
			id, _ := r.parseKey(e.Key)
			f, err := fp.Decode(e.Value)
			if err != nil {
				return fmt.Errorf("decode fingerprint %d: %w", id, err)
			}
			top.offer(recommendation.Candidate{ID: id, Score: fp.CosineWithNorm(query, qnorm, f)})
			scanned++
		}
		return nil
	}

	if err := r.store.ScanPrefix(ctx, r.keyPrefix, keep, score); err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			return nil, fmt.Errorf("search fingerprints: %w", err)
		}
		return nil, fmt.Errorf("search fingerprints: %w: %w", domain.ErrStoreIO, err)
	}

	if r.searchDuration != nil {
		r.searchDuration.Observe(time.Since(start).Seconds())
	}
	if r.scannedTotal != nil {
		r.scannedTotal.Add(float64(scanned))
	}
	return top.sorted(), nil
}

// Count returns the number of stored fingerprints.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n := 0
	err := r.store.ScanPrefix(ctx, r.keyPrefix, func(key string) bool {
		if _, ok := r.parseKey(key); ok {
			n++
		}
		return false
	}, func([]db.Entry) error { return nil })
	if err != nil {
		return 0, fmt.Errorf("count fingerprints: %w: %w", domain.ErrStoreIO, err)
	}
	return n, nil
}

// IDs returns the ids of all stored fingerprints in no particular order.
func (r *Repo) IDs(ctx context.Context) (map[int64]struct{}, error) {
	out := make(map[int64]struct{})
	err := r.store.ScanPrefix(ctx, r.keyPrefix, func(key string) bool {
		if id, ok := r.parseKey(key); ok {
			out[id] = struct{}{}
		}
		return false
	}, func([]db.Entry) error { return nil })
	if err != nil {
		return nil, fmt.Errorf("list fingerprint ids: %w: %w", domain.ErrStoreIO, err)
	}
	return out, nil
}

func (r *Repo) key(id int64) string {
	return r.keyPrefix + strconv.FormatInt(id, 10)
}

func (r *Repo) parseKey(key string) (int64, bool) {
	rest, ok := strings.CutPrefix(key, r.keyPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func storeErr(op string, id int64, err error) error {
	return fmt.Errorf("%s %d: %w: %w", op, id, domain.ErrStoreIO, err)
}
