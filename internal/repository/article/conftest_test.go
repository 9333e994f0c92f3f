package article

import (
	"context"

	"github.com/kailas-cloud/tastefeed/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn    func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	zaddFn         func(ctx context.Context, key string, score float64, member string) error
	zremFn         func(ctx context.Context, key, member string) error
	zrevRangeFn    func(ctx context.Context, key string, limit int) ([]db.ScoredMember, error)
	zcardFn        func(ctx context.Context, key string) (int64, error)
	scanFn         func(
		ctx context.Context, prefix string,
		keep func(key string) bool, fn func(page []db.Entry) error,
	) error
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if m.zaddFn != nil {
		return m.zaddFn(ctx, key, score, member)
	}
	return nil
}

func (m *mockStore) ZRem(ctx context.Context, key, member string) error {
	if m.zremFn != nil {
		return m.zremFn(ctx, key, member)
	}
	return nil
}

func (m *mockStore) ZRevRange(ctx context.Context, key string, limit int) ([]db.ScoredMember, error) {
	if m.zrevRangeFn != nil {
		return m.zrevRangeFn(ctx, key, limit)
	}
	return nil, nil
}

func (m *mockStore) ZCard(ctx context.Context, key string) (int64, error) {
	if m.zcardFn != nil {
		return m.zcardFn(ctx, key)
	}
	return 0, nil
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
