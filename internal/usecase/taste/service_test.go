package taste

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tastefeed/internal/domain"
	domart "github.com/kailas-cloud/tastefeed/internal/domain/article"
	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
)

func newTestService(likes LikeReader, store FingerprintReader) *Service {
	return New(likes, store, Config{}, zap.NewNop())
}

func TestCentroids_NoLikes(t *testing.T) {
	svc := newTestService(likesOf(), &mockFingerprints{})
	c, ok, err := svc.Centroids(context.Background(), "u", 5)
	if err != nil || ok || c != nil {
		t.Fatalf("expected insufficient data, got %v %v %v", c, ok, err)
	}
}

func TestCentroids_SingleUsableFingerprint(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	// Three likes, but only one has a fingerprint.
	store := &mockFingerprints{stored: map[int64]fp.Fingerprint{2: around(rng, 0)}}
	svc := newTestService(likesOf(1, 2, 3), store)

	_, ok, err := svc.Centroids(context.Background(), "u", 5)
	if err != nil || ok {
		t.Fatalf("expected ok=false without error, got ok=%v err=%v", ok, err)
	}
}

func TestCentroids_CountIsMinKN(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	stored := map[int64]fp.Fingerprint{}
	for id := int64(1); id <= 3; id++ {
		stored[id] = around(rng, int(id))
	}
	svc := newTestService(likesOf(1, 2, 3, 4), &mockFingerprints{stored: stored})

	for _, tc := range []struct{ k, want int }{{5, 3}, {2, 2}, {1, 1}, {0, 3}} {
		c, ok, err := svc.Centroids(context.Background(), "u", tc.k)
		if err != nil || !ok {
			t.Fatalf("k=%d: unexpected ok=%v err=%v", tc.k, ok, err)
		}
		if len(c) != tc.want {
			t.Errorf("k=%d: expected %d centroids, got %d", tc.k, tc.want, len(c))
		}
		for _, v := range c {
			if len(v) != fp.Dim {
				t.Fatalf("centroid has %d components", len(v))
			}
		}
	}
}

func TestCentroids_TwoTastes(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	stored := map[int64]fp.Fingerprint{}
	var ids []int64
	for id := int64(1); id <= 10; id++ {
		axis := 0
		if id%2 == 0 {
			axis = 1
		}
		stored[id] = around(rng, axis)
		ids = append(ids, id)
	}
	svc := newTestService(likesOf(ids...), &mockFingerprints{stored: stored})

	c, ok, err := svc.Centroids(context.Background(), "u", 2)
	if err != nil || !ok || len(c) != 2 {
		t.Fatalf("unexpected result: %d %v %v", len(c), ok, err)
	}
	x := fp.Fingerprint(make([]float32, fp.Dim))
	x[0] = 1
	y := fp.Fingerprint(make([]float32, fp.Dim))
	y[1] = 1
	hitX := math.Max(fp.Cosine(c[0], x), fp.Cosine(c[1], x))
	hitY := math.Max(fp.Cosine(c[0], y), fp.Cosine(c[1], y))
	if hitX < 0.99 || hitY < 0.99 {
		t.Errorf("expected one centroid per taste, cos=%.3f/%.3f", hitX, hitY)
	}
}

func TestCentroids_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	stored := map[int64]fp.Fingerprint{}
	var ids []int64
	for id := int64(1); id <= 25; id++ {
		stored[id] = around(rng, int(id%4))
		ids = append(ids, id)
	}
	svc := newTestService(likesOf(ids...), &mockFingerprints{stored: stored})

	a, _, _ := svc.Centroids(context.Background(), "u", 5)
	b, _, _ := svc.Centroids(context.Background(), "u", 5)
	if len(a) != len(b) {
		t.Fatal("centroid count differs between runs")
	}
	for i := range a {
		for j := range a[i] {
			if math.Float32bits(a[i][j]) != math.Float32bits(b[i][j]) {
				t.Fatalf("centroid %d differs between runs", i)
			}
		}
	}
}

func TestCentroids_NonFiniteIsInsufficient(t *testing.T) {
	bad := make(fp.Fingerprint, fp.Dim)
	bad[0] = float32(math.NaN())
	good := make(fp.Fingerprint, fp.Dim)
	good[0] = 1
	svc := newTestService(likesOf(1, 2), &mockFingerprints{stored: map[int64]fp.Fingerprint{1: bad, 2: good}})

	_, ok, err := svc.Centroids(context.Background(), "u", 2)
	if err != nil || ok {
		t.Fatalf("expected ok=false without error, got ok=%v err=%v", ok, err)
	}
}

func TestCentroids_StorageErrors(t *testing.T) {
	likeErr := &mockLikes{likedFn: func(context.Context, string, int) ([]domart.Liked, error) {
		return nil, domain.ErrStoreIO
	}}
	if _, _, err := newTestService(likeErr, &mockFingerprints{}).Centroids(context.Background(), "u", 2); !errors.Is(err, domain.ErrStoreIO) {
		t.Errorf("expected like-set error, got %v", err)
	}

	fpErr := &mockFingerprints{err: domain.ErrStoreIO}
	if _, _, err := newTestService(likesOf(1, 2), fpErr).Centroids(context.Background(), "u", 2); !errors.Is(err, domain.ErrStoreIO) {
		t.Errorf("expected fingerprint error, got %v", err)
	}
}

func TestCentroids_UsesMaxLikes(t *testing.T) {
	var gotLimit int
	likes := &mockLikes{likedFn: func(_ context.Context, _ string, limit int) ([]domart.Liked, error) {
		gotLimit = limit
		return nil, nil
	}}
	svc := New(likes, &mockFingerprints{}, Config{MaxLikes: 40}, zap.NewNop())
	_, _, _ = svc.Centroids(context.Background(), "u", 2)
	if gotLimit != 40 {
		t.Errorf("expected limit 40, got %d", gotLimit)
	}
}
