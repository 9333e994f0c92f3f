// Package recommend ranks unseen articles against a user's taste centroids.
package recommend

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
	"github.com/kailas-cloud/tastefeed/internal/domain/recommendation"
)

// Recommendation outcomes reported to the outcome counter.
const (
	OutcomeOK          = "ok"
	OutcomeColdStart   = "cold_start"
	OutcomeNoCentroids = "no_centroids"
	OutcomeError       = "error"
)

// Config holds recommendation settings.
type Config struct {
	DefaultLimit      int
	MinLikes          int
	Clusters          int
	SearchConcurrency int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:      50,
		MinLikes:          5,
		Clusters:          5,
		SearchConcurrency: 4,
	}
}

// Service produces ranked recommendations.
type Service struct {
	likes     LikeReader
	centroids CentroidSource
	search    Searcher
	meta      MetaReader
	cfg       Config
	outcomes  *prometheus.CounterVec
	logger    *zap.Logger
}

// New creates a recommendation service. Zero config fields take their defaults.
// outcomes is optional (label "outcome").
func New(
	likes LikeReader, centroids CentroidSource, search Searcher, meta MetaReader,
	cfg Config, outcomes *prometheus.CounterVec, logger *zap.Logger,
) *Service {
	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MinLikes <= 0 {
		cfg.MinLikes = def.MinLikes
	}
	if cfg.Clusters <= 0 {
		cfg.Clusters = def.Clusters
	}
	if cfg.SearchConcurrency <= 0 {
		cfg.SearchConcurrency = def.SearchConcurrency
	}
	return &Service{
		likes:     likes,
		centroids: centroids,
		search:    search,
		meta:      meta,
		cfg:       cfg,
		outcomes:  outcomes,
		logger:    logger,
	}
}

// Recommend returns up to limit unliked articles ranked by their best
// similarity to any of the user's taste centroids. Users with too few likes
// or no usable centroids get an empty, non-nil slice.
func (s *Service) Recommend(ctx context.Context, user string, limit int) ([]recommendation.Recommendation, error) {
	recs, outcome, err := s.recommend(ctx, user, limit)
	s.count(outcome)
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *Service) recommend(
	ctx context.Context, user string, limit int,
) ([]recommendation.Recommendation, string, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	// The whole like set decides cold start and exclusion; only clustering
	// is limited to the most recent likes.
	liked, err := s.likes.LikedIDs(ctx, user)
	if err != nil {
		return nil, OutcomeError, fmt.Errorf("load likes: %w", err)
	}
	if len(liked) < s.cfg.MinLikes {
		s.logger.Debug("Cold start user", zap.String("user", user), zap.Int("likes", len(liked)))
		return []recommendation.Recommendation{}, OutcomeColdStart, nil
	}

	centroids, ok, err := s.centroids.Centroids(ctx, user, s.cfg.Clusters)
	if err != nil {
		return nil, OutcomeError, fmt.Errorf("taste centroids: %w", err)
	}
	if !ok || len(centroids) == 0 {
		return []recommendation.Recommendation{}, OutcomeNoCentroids, nil
	}

	exclude := make(map[int64]struct{}, len(liked))
	for _, id := range liked {
		exclude[id] = struct{}{}
	}

	perCentroid, err := s.searchAll(ctx, centroids, 2*limit, exclude)
	if err != nil {
		return nil, OutcomeError, err
	}

	ranked := mergeMax(perCentroid, limit)
	if len(ranked) == 0 {
		return []recommendation.Recommendation{}, OutcomeOK, nil
	}

	ids := make([]int64, len(ranked))
	for i, c := range ranked {
		ids[i] = c.ID
	}
	metas, err := s.meta.ArticlesByIDs(ctx, ids)
	if err != nil {
		return nil, OutcomeError, fmt.Errorf("resolve articles: %w", err)
	}

	out := make([]recommendation.Recommendation, 0, len(ranked))
	for _, c := range ranked {
		m, found := metas[c.ID]
		if !found {
			continue
		}
		out = append(out, recommendation.Recommendation{Meta: m, Score: c.Score})
	}
	return out, OutcomeOK, nil
}

// searchAll runs one search per centroid with bounded concurrency. Results
// are indexed by centroid so the merge does not depend on completion order.
func (s *Service) searchAll(
	ctx context.Context, centroids []fp.Fingerprint, k int, exclude map[int64]struct{},
) ([][]recommendation.Candidate, error) {
	results := make([][]recommendation.Candidate, len(centroids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SearchConcurrency)
	for i, c := range centroids {
		g.Go(func() error {
			res, err := s.search.Search(gctx, c, k, exclude)
			if err != nil {
				return fmt.Errorf("search centroid %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// mergeMax keeps each article's best score across result lists and returns
// the top n, score desc then id asc.
func mergeMax(lists [][]recommendation.Candidate, n int) []recommendation.Candidate {
	best := make(map[int64]float64)
	for _, list := range lists {
		for _, c := range list {
			if cur, ok := best[c.ID]; !ok || c.Score > cur {
				best[c.ID] = c.Score
			}
		}
	}

	merged := make([]recommendation.Candidate, 0, len(best))
	for id, score := range best {
		merged = append(merged, recommendation.Candidate{ID: id, Score: score})
	}
	recommendation.Sort(merged)

	if len(merged) > n {
		merged = merged[:n]
	}
	return merged
}

func (s *Service) count(outcome string) {
	if s.outcomes != nil {
		s.outcomes.WithLabelValues(outcome).Inc()
	}
}
