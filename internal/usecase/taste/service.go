// Package taste clusters a user's liked fingerprints into taste centroids.
package taste

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
)

// Config holds clusterer settings.
type Config struct {
	// DefaultClusters is used when the caller passes k <= 0.
	DefaultClusters int
	// MaxLikes caps how many recent likes feed the clustering.
	MaxLikes int
	KMeans   KMeansConfig
}

// Service computes taste centroids.
type Service struct {
	likes  LikeReader
	store  FingerprintReader
	cfg    Config
	logger *zap.Logger
}

// New creates a taste service.
func New(likes LikeReader, store FingerprintReader, cfg Config, logger *zap.Logger) *Service {
	if cfg.DefaultClusters <= 0 {
		cfg.DefaultClusters = 5
	}
	if cfg.MaxLikes <= 0 {
		cfg.MaxLikes = 100
	}
	if cfg.KMeans == (KMeansConfig{}) {
		cfg.KMeans = DefaultKMeansConfig()
	}
	return &Service{likes: likes, store: store, cfg: cfg, logger: logger}
}

// Centroids clusters the user's liked fingerprints into at most k centroids.
// ok is false when the user has no likes, fewer than two liked articles have
// fingerprints, or clustering fails on the data. Storage errors are returned.
func (s *Service) Centroids(ctx context.Context, user string, k int) ([]fp.Fingerprint, bool, error) {
	liked, err := s.likes.LikedArticles(ctx, user, s.cfg.MaxLikes)
	if err != nil {
		return nil, false, fmt.Errorf("load likes: %w", err)
	}
	if len(liked) == 0 {
		return nil, false, nil
	}

	ids := make([]int64, len(liked))
	for i, l := range liked {
		ids[i] = l.ID
	}
	fps, err := s.store.GetMany(ctx, ids)
	if err != nil {
		return nil, false, fmt.Errorf("load liked fingerprints: %w", err)
	}

	points := make([][]float32, 0, len(fps))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if f, ok := fps[id]; ok && !seen[id] {
			seen[id] = true
			points = append(points, f)
		}
	}
	if len(points) < 2 {
		s.logger.Debug("Not enough liked fingerprints to cluster",
			zap.String("user", user),
			zap.Int("likes", len(liked)),
			zap.Int("fingerprints", len(points)),
		)
		return nil, false, nil
	}

	if k <= 0 {
		k = s.cfg.DefaultClusters
	}
	k = min(k, len(points))

	centers, err := kmeans(points, k, s.cfg.KMeans)
	if err != nil {
		s.logger.Warn("Taste clustering failed",
			zap.String("user", user),
			zap.Int("points", len(points)),
			zap.Int("k", k),
			zap.Error(err),
		)
		return nil, false, nil
	}

	out := make([]fp.Fingerprint, len(centers))
	for i, c := range centers {
		out[i] = fp.Fingerprint(c)
	}
	return out, true, nil
}
