package fingerprint

import (
	"context"
	"sync/atomic"

	"github.com/kailas-cloud/tastefeed/internal/domain"
	domart "github.com/kailas-cloud/tastefeed/internal/domain/article"
	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
)

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   atomic.Int32
	healthy error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	v := make([]float32, fp.Dim)
	v[0] = float32(len(text))
	return domain.EmbeddingResult{Embedding: v}, nil
}

func (m *mockEmbedder) HealthCheck(context.Context) error { return m.healthy }

type mockStore struct {
	putFn func(ctx context.Context, id int64, f fp.Fingerprint) error
	getFn func(ctx context.Context, id int64) (fp.Fingerprint, bool, error)
	puts  map[int64]fp.Fingerprint
}

func (m *mockStore) Put(ctx context.Context, id int64, f fp.Fingerprint) error {
	if m.putFn != nil {
		return m.putFn(ctx, id, f)
	}
	if m.puts == nil {
		m.puts = map[int64]fp.Fingerprint{}
	}
	m.puts[id] = f
	return nil
}

func (m *mockStore) Get(ctx context.Context, id int64) (fp.Fingerprint, bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	f, ok := m.puts[id]
	return f, ok, nil
}

type mockArticles struct {
	getFn func(ctx context.Context, id int64) (domart.Article, error)
}

func (m *mockArticles) Get(ctx context.Context, id int64) (domart.Article, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domart.Article{ID: id, Title: "title", Summary: "summary"}, nil
}

// staticLoader returns a Loader handing out enc and counting invocations.
func staticLoader(enc domain.Embedder, err error, calls *atomic.Int32) Loader {
	return func(context.Context) (domain.Embedder, error) {
		calls.Add(1)
		if err != nil {
			return nil, err
		}
		return enc, nil
	}
}
