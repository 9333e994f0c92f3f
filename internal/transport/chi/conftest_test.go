package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	domart "github.com/kailas-cloud/tastefeed/internal/domain/article"
	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
	"github.com/kailas-cloud/tastefeed/internal/domain/recommendation"
	healthuc "github.com/kailas-cloud/tastefeed/internal/usecase/health"
)

type mockGenerator struct {
	genFn    func(ctx context.Context, id int64) (fp.Fingerprint, error)
	ensureFn func(ctx context.Context, id int64) (fp.Fingerprint, error)
}

func (m *mockGenerator) Ensure(ctx context.Context, id int64) (fp.Fingerprint, error) {
	if m.ensureFn != nil {
		return m.ensureFn(ctx, id)
	}
	return make(fp.Fingerprint, fp.Dim), nil
}

func (m *mockGenerator) GenerateForArticle(ctx context.Context, id int64) (fp.Fingerprint, error) {
	if m.genFn != nil {
		return m.genFn(ctx, id)
	}
	return make(fp.Fingerprint, fp.Dim), nil
}

type mockFingerprints struct {
	getFn    func(ctx context.Context, id int64) (fp.Fingerprint, bool, error)
	searchFn func(ctx context.Context, q fp.Fingerprint, k int, exclude map[int64]struct{}) ([]recommendation.Candidate, error)
}

func (m *mockFingerprints) Get(ctx context.Context, id int64) (fp.Fingerprint, bool, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, false, nil
}

func (m *mockFingerprints) Search(
	ctx context.Context, q fp.Fingerprint, k int, exclude map[int64]struct{},
) ([]recommendation.Candidate, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q, k, exclude)
	}
	return nil, nil
}

type likeCall struct {
	user string
	id   int64
	at   time.Time
}

type mockArticles struct {
	metaFn  func(ctx context.Context, ids []int64) (map[int64]domart.Meta, error)
	likeErr   error
	likeCount int
	likes     []likeCall
	unlikes   []likeCall
}

func (m *mockArticles) ArticlesByIDs(ctx context.Context, ids []int64) (map[int64]domart.Meta, error) {
	if m.metaFn != nil {
		return m.metaFn(ctx, ids)
	}
	out := make(map[int64]domart.Meta, len(ids))
	for _, id := range ids {
		out[id] = domart.Meta{ID: id, Title: "article"}
	}
	return out, nil
}

func (m *mockArticles) Like(_ context.Context, user string, id int64, at time.Time) error {
	m.likes = append(m.likes, likeCall{user: user, id: id, at: at})
	return m.likeErr
}

func (m *mockArticles) Unlike(_ context.Context, user string, id int64) error {
	m.unlikes = append(m.unlikes, likeCall{user: user, id: id})
	return m.likeErr
}

func (m *mockArticles) LikeCount(context.Context, string) (int, error) {
	return m.likeCount, nil
}

type mockTaste struct {
	centroidsFn func(ctx context.Context, user string, k int) ([]fp.Fingerprint, bool, error)
}

func (m *mockTaste) Centroids(ctx context.Context, user string, k int) ([]fp.Fingerprint, bool, error) {
	if m.centroidsFn != nil {
		return m.centroidsFn(ctx, user, k)
	}
	return nil, false, nil
}

type mockRecommender struct {
	recommendFn func(ctx context.Context, user string, limit int) ([]recommendation.Recommendation, error)
}

func (m *mockRecommender) Recommend(ctx context.Context, user string, limit int) ([]recommendation.Recommendation, error) {
	if m.recommendFn != nil {
		return m.recommendFn(ctx, user, limit)
	}
	return []recommendation.Recommendation{}, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// testDeps returns deps with every service mocked.
func testDeps() Deps {
	return Deps{
		Generator:    &mockGenerator{},
		Fingerprints: &mockFingerprints{},
		Articles:     &mockArticles{},
		Taste:        &mockTaste{},
		Recommender:  &mockRecommender{},
		Health:       &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}},
	}
}

func newTestRouter(t *testing.T, deps Deps, apiKeys ...string) http.Handler {
	t.Helper()
	s := NewServer(deps, Limits{DefaultLimit: 50, MaxLimit: 500, DefaultClusters: 5, MaxClusters: 20}, zap.NewNop())
	return NewRouter(s, apiKeys)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
