package fingerprint

import (
	"context"
	"math/rand"
	"testing"

	"github.com/kailas-cloud/tastefeed/internal/db"
	"github.com/kailas-cloud/tastefeed/internal/db/badger"
	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
)

// mockStore implements the consumer interface for failure-path tests.
type mockStore struct {
	getFn  func(ctx context.Context, key string) ([]byte, error)
	setFn  func(ctx context.Context, key string, value []byte) error
	mgetFn func(ctx context.Context, keys []string) ([][]byte, error)
	delFn  func(ctx context.Context, key string) error
	scanFn func(
		ctx context.Context, prefix string,
		keep func(key string) bool, fn func(page []db.Entry) error,
	) error
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func (m *mockStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if m.mgetFn != nil {
		return m.mgetFn(ctx, keys)
	}
	return make([][]byte, len(keys)), nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) ScanPrefix(
	ctx context.Context, prefix string,
	keep func(key string) bool, fn func(page []db.Entry) error,
) error {
	if m.scanFn != nil {
		return m.scanFn(ctx, prefix, keep, fn)
	}
	return nil
}

// newBadgerRepo returns a repo over an in-memory BadgerDB.
func newBadgerRepo(t *testing.T) *Repo {
	t.Helper()
	s, err := badger.Open(badger.Config{InMemory: true})
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(s.Close)
	return New(s, "test:", nil, nil)
}

func randomFingerprint(rng *rand.Rand) fp.Fingerprint {
	v := make(fp.Fingerprint, fp.Dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return v
}

// axis returns a unit fingerprint along dimension i, scaled by s.
func axis(i int, s float32) fp.Fingerprint {
	v := make(fp.Fingerprint, fp.Dim)
	v[i] = s
	return v
}

func mustPut(t *testing.T, r *Repo, id int64, f fp.Fingerprint) {
	t.Helper()
	if err := r.Put(context.Background(), id, f); err != nil {
		t.Fatalf("put %d: %v", id, err)
	}
}
