package taste

import (
	"context"
	"math/rand"

	domart "github.com/kailas-cloud/tastefeed/internal/domain/article"
	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
)

type mockLikes struct {
	likedFn func(ctx context.Context, user string, limit int) ([]domart.Liked, error)
}

func (m *mockLikes) LikedArticles(ctx context.Context, user string, limit int) ([]domart.Liked, error) {
	if m.likedFn != nil {
		return m.likedFn(ctx, user, limit)
	}
	return nil, nil
}

type mockFingerprints struct {
	stored map[int64]fp.Fingerprint
	err    error
}

func (m *mockFingerprints) GetMany(_ context.Context, ids []int64) (map[int64]fp.Fingerprint, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[int64]fp.Fingerprint)
	for _, id := range ids {
		if f, ok := m.stored[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

func likesOf(ids ...int64) *mockLikes {
	return &mockLikes{likedFn: func(context.Context, string, int) ([]domart.Liked, error) {
		out := make([]domart.Liked, len(ids))
		for i, id := range ids {
			out[i] = domart.Liked{ID: id}
		}
		return out, nil
	}}
}

// around returns a fingerprint near the given axis with small seeded noise.
func around(rng *rand.Rand, axis int) fp.Fingerprint {
	v := make(fp.Fingerprint, fp.Dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64() * 0.01)
	}
	v[axis] += 1
	return v
}
