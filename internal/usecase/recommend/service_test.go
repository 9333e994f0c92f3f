package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tastefeed/internal/domain"
	domart "github.com/kailas-cloud/tastefeed/internal/domain/article"
	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
	"github.com/kailas-cloud/tastefeed/internal/domain/recommendation"
)

func newOutcomes() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_recommendations_total"}, []string{"outcome"})
}

func TestRecommend_ColdStart(t *testing.T) {
	outcomes := newOutcomes()
	search := &mockSearcher{}
	svc := New(likes(1, 2, 3, 4), centroids(2), search, &mockMeta{}, Config{}, outcomes, zap.NewNop())

	recs, err := svc.Recommend(context.Background(), "u", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", recs)
	}
	if len(search.calls) != 0 {
		t.Error("cold start must not search")
	}
	if got := testutil.ToFloat64(outcomes.WithLabelValues(OutcomeColdStart)); got != 1 {
		t.Errorf("cold_start count = %v", got)
	}
}

func TestRecommend_NoCentroids(t *testing.T) {
	outcomes := newOutcomes()
	svc := New(likes(1, 2, 3, 4, 5), &mockCentroids{}, &mockSearcher{}, &mockMeta{}, Config{}, outcomes, zap.NewNop())

	recs, err := svc.Recommend(context.Background(), "u", 10)
	if err != nil || recs == nil || len(recs) != 0 {
		t.Fatalf("expected empty result, got %v %v", recs, err)
	}
	if got := testutil.ToFloat64(outcomes.WithLabelValues(OutcomeNoCentroids)); got != 1 {
		t.Errorf("no_centroids count = %v", got)
	}
}

func TestRecommend_MaxMergeAndOrder(t *testing.T) {
	search := &mockSearcher{searchFn: func(_ context.Context, q fp.Fingerprint, _ int) ([]recommendation.Candidate, error) {
		switch whichAxis(q) {
		case 0:
			return []recommendation.Candidate{{ID: 10, Score: 0.9}, {ID: 11, Score: 0.5}, {ID: 12, Score: 0.4}}, nil
		default:
			return []recommendation.Candidate{{ID: 11, Score: 0.8}, {ID: 13, Score: 0.4}, {ID: 10, Score: 0.1}}, nil
		}
	}}
	svc := New(likes(1, 2, 3, 4, 5), centroids(2), search, &mockMeta{}, Config{}, nil, zap.NewNop())

	recs, err := svc.Recommend(context.Background(), "u", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []recommendation.Candidate{{ID: 10, Score: 0.9}, {ID: 11, Score: 0.8}, {ID: 12, Score: 0.4}, {ID: 13, Score: 0.4}}
	if len(recs) != len(want) {
		t.Fatalf("expected %d recs, got %d", len(want), len(recs))
	}
	for i, w := range want {
		if recs[i].ID != w.ID || recs[i].Score != w.Score {
			t.Errorf("rec %d = (%d, %v), want (%d, %v)", i, recs[i].ID, recs[i].Score, w.ID, w.Score)
		}
	}
}

func TestRecommend_LimitAndSearchParams(t *testing.T) {
	search := &mockSearcher{searchFn: func(context.Context, fp.Fingerprint, int) ([]recommendation.Candidate, error) {
		return []recommendation.Candidate{{ID: 20, Score: 0.9}, {ID: 21, Score: 0.8}, {ID: 22, Score: 0.7}}, nil
	}}
	svc := New(likes(1, 2, 3, 4, 5), centroids(3), search, &mockMeta{}, Config{}, nil, zap.NewNop())

	recs, err := svc.Recommend(context.Background(), "u", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != 20 || recs[1].ID != 21 {
		t.Fatalf("unexpected recs: %+v", recs)
	}
	if len(search.calls) != 3 {
		t.Fatalf("expected one search per centroid, got %d", len(search.calls))
	}
	for _, c := range search.calls {
		if c.k != 4 {
			t.Errorf("expected k=2*limit=4, got %d", c.k)
		}
		for id := int64(1); id <= 5; id++ {
			if _, ok := c.exclude[id]; !ok {
				t.Errorf("liked id %d not excluded", id)
			}
		}
	}
}

func TestRecommend_DefaultLimit(t *testing.T) {
	search := &mockSearcher{}
	svc := New(likes(1, 2, 3, 4, 5), centroids(1), search, &mockMeta{}, Config{}, nil, zap.NewNop())

	if _, err := svc.Recommend(context.Background(), "u", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(search.calls) != 1 || search.calls[0].k != 100 {
		t.Fatalf("expected k=100 for default limit, got %+v", search.calls)
	}
}

func TestRecommend_DropsUnresolved(t *testing.T) {
	search := &mockSearcher{searchFn: func(context.Context, fp.Fingerprint, int) ([]recommendation.Candidate, error) {
		return []recommendation.Candidate{{ID: 30, Score: 0.9}, {ID: 31, Score: 0.8}, {ID: 32, Score: 0.7}}, nil
	}}
	meta := &mockMeta{metaFn: func(_ context.Context, ids []int64) (map[int64]domart.Meta, error) {
		return map[int64]domart.Meta{30: {ID: 30, Title: "a"}, 32: {ID: 32, Title: "c"}}, nil
	}}
	svc := New(likes(1, 2, 3, 4, 5), centroids(1), search, meta, Config{}, nil, zap.NewNop())

	recs, err := svc.Recommend(context.Background(), "u", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != 30 || recs[1].ID != 32 {
		t.Fatalf("unexpected recs: %+v", recs)
	}
	if recs[0].Title != "a" || recs[0].Score != 0.9 {
		t.Errorf("metadata or score lost: %+v", recs[0])
	}
}

func TestRecommend_ExcludesWholeLikeSet(t *testing.T) {
	liked := make([]int64, 150)
	for i := range liked {
		liked[i] = int64(150 - i)
	}
	search := &mockSearcher{}
	svc := New(likes(liked...), centroids(2), search, &mockMeta{}, Config{}, nil, zap.NewNop())

	if _, err := svc.Recommend(context.Background(), "u", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(search.calls) != 2 {
		t.Fatalf("expected 2 searches, got %d", len(search.calls))
	}
	for _, call := range search.calls {
		if len(call.exclude) != 150 {
			t.Errorf("exclude size = %d, want 150", len(call.exclude))
		}
		if _, ok := call.exclude[1]; !ok {
			t.Error("oldest like missing from exclude")
		}
	}
}

func TestRecommend_Errors(t *testing.T) {
	okSearch := &mockSearcher{}
	tests := []struct {
		name      string
		likes     LikeReader
		centroids CentroidSource
		search    Searcher
		meta      MetaReader
	}{
		{
			name: "likes",
			likes: &mockLikes{idsFn: func(context.Context, string) ([]int64, error) {
				return nil, domain.ErrStoreIO
			}},
			centroids: centroids(1), search: okSearch, meta: &mockMeta{},
		},
		{
			name:  "centroids",
			likes: likes(1, 2, 3, 4, 5),
			centroids: &mockCentroids{centroidsFn: func(context.Context, string, int) ([]fp.Fingerprint, bool, error) {
				return nil, false, domain.ErrStoreIO
			}},
			search: okSearch, meta: &mockMeta{},
		},
		{
			name: "search", likes: likes(1, 2, 3, 4, 5), centroids: centroids(3),
			search: &mockSearcher{searchFn: func(_ context.Context, q fp.Fingerprint, _ int) ([]recommendation.Candidate, error) {
				if whichAxis(q) == 1 {
					return nil, domain.ErrStoreIO
				}
				return []recommendation.Candidate{{ID: 40, Score: 0.5}}, nil
			}},
			meta: &mockMeta{},
		},
		{
			name: "metadata", likes: likes(1, 2, 3, 4, 5), centroids: centroids(1),
			search: &mockSearcher{searchFn: func(context.Context, fp.Fingerprint, int) ([]recommendation.Candidate, error) {
				return []recommendation.Candidate{{ID: 40, Score: 0.5}}, nil
			}},
			meta: &mockMeta{metaFn: func(context.Context, []int64) (map[int64]domart.Meta, error) {
				return nil, domain.ErrStoreIO
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcomes := newOutcomes()
			svc := New(tt.likes, tt.centroids, tt.search, tt.meta, Config{}, outcomes, zap.NewNop())
			recs, err := svc.Recommend(context.Background(), "u", 10)
			if !errors.Is(err, domain.ErrStoreIO) {
				t.Fatalf("expected store error, got %v", err)
			}
			if recs != nil {
				t.Errorf("expected nil recs on error, got %v", recs)
			}
			if got := testutil.ToFloat64(outcomes.WithLabelValues(OutcomeError)); got != 1 {
				t.Errorf("error count = %v", got)
			}
		})
	}
}

func TestMergeMax_TieBreak(t *testing.T) {
	got := mergeMax([][]recommendation.Candidate{
		{{ID: 9, Score: 0.5}, {ID: 3, Score: 0.5}},
		{{ID: 5, Score: 0.5}, {ID: 3, Score: 0.2}},
	}, 10)
	want := []int64{3, 5, 9}
	if len(got) != len(want) {
		t.Fatalf("expected %d, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id || got[i].Score != 0.5 {
			t.Errorf("pos %d = %+v, want id %d", i, got[i], id)
		}
	}
}
