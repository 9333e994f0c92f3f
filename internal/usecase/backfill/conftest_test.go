package backfill

import (
	"context"
	"sync"

	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
)

type mockArticles struct {
	ids []int64
	err error
}

func (m *mockArticles) IDs(context.Context) ([]int64, error) { return m.ids, m.err }

type mockPrints struct {
	have map[int64]struct{}
	err  error
}

func (m *mockPrints) IDs(context.Context) (map[int64]struct{}, error) { return m.have, m.err }

type mockGenerator struct {
	mu    sync.Mutex
	seen  []int64
	genFn func(ctx context.Context, id int64) error
}

func (m *mockGenerator) GenerateForArticle(ctx context.Context, id int64) (fp.Fingerprint, error) {
	m.mu.Lock()
	m.seen = append(m.seen, id)
	m.mu.Unlock()
	if m.genFn != nil {
		if err := m.genFn(ctx, id); err != nil {
			return nil, err
		}
	}
	return make(fp.Fingerprint, fp.Dim), nil
}

func have(ids ...int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
