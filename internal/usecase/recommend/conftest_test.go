package recommend

import (
	"context"
	"sync"

	domart "github.com/kailas-cloud/tastefeed/internal/domain/article"
	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
	"github.com/kailas-cloud/tastefeed/internal/domain/recommendation"
)

// mockLikes serves both the full like set and the capped read the taste
// clusterer uses, so end-to-end tests can share one like set.
type mockLikes struct {
	idsFn func(ctx context.Context, user string) ([]int64, error)
}

func (m *mockLikes) LikedIDs(ctx context.Context, user string) ([]int64, error) {
	if m.idsFn != nil {
		return m.idsFn(ctx, user)
	}
	return nil, nil
}

func (m *mockLikes) LikedArticles(ctx context.Context, user string, limit int) ([]domart.Liked, error) {
	ids, err := m.LikedIDs(ctx, user)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]domart.Liked, len(ids))
	for i, id := range ids {
		out[i] = domart.Liked{ID: id}
	}
	return out, nil
}

type mockCentroids struct {
	centroidsFn func(ctx context.Context, user string, k int) ([]fp.Fingerprint, bool, error)
}

func (m *mockCentroids) Centroids(ctx context.Context, user string, k int) ([]fp.Fingerprint, bool, error) {
	if m.centroidsFn != nil {
		return m.centroidsFn(ctx, user, k)
	}
	return nil, false, nil
}

type searchCall struct {
	k       int
	exclude map[int64]struct{}
}

type mockSearcher struct {
	mu       sync.Mutex
	calls    []searchCall
	searchFn func(ctx context.Context, query fp.Fingerprint, k int) ([]recommendation.Candidate, error)
}

func (m *mockSearcher) Search(
	ctx context.Context, query fp.Fingerprint, k int, exclude map[int64]struct{},
) ([]recommendation.Candidate, error) {
	m.mu.Lock()
	m.calls = append(m.calls, searchCall{k: k, exclude: exclude})
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, query, k)
	}
	return nil, nil
}

type mockMeta struct {
	metaFn func(ctx context.Context, ids []int64) (map[int64]domart.Meta, error)
}

func (m *mockMeta) ArticlesByIDs(ctx context.Context, ids []int64) (map[int64]domart.Meta, error) {
	if m.metaFn != nil {
		return m.metaFn(ctx, ids)
	}
	out := make(map[int64]domart.Meta, len(ids))
	for _, id := range ids {
		out[id] = domart.Meta{ID: id}
	}
	return out, nil
}

// likes returns a like set ordered most recent first.
func likes(ids ...int64) *mockLikes {
	return &mockLikes{idsFn: func(context.Context, string) ([]int64, error) {
		return ids, nil
	}}
}

// axis returns a unit fingerprint along dimension i; searches key off it.
func axis(i int) fp.Fingerprint {
	v := make(fp.Fingerprint, fp.Dim)
	v[i] = 1
	return v
}

func centroids(n int) *mockCentroids {
	return &mockCentroids{centroidsFn: func(context.Context, string, int) ([]fp.Fingerprint, bool, error) {
		out := make([]fp.Fingerprint, n)
		for i := range out {
			out[i] = axis(i)
		}
		return out, true, nil
	}}
}

func whichAxis(q fp.Fingerprint) int {
	for i, v := range q {
		if v == 1 {
			return i
		}
	}
	return -1
}
