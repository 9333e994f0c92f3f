// Package backfill fingerprints articles that do not have one yet.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/tastefeed/internal/domain"
)

const progressEvery = 10

// Config holds backfill settings.
type Config struct {
	// Batch caps how many articles one run processes. Zero means all.
	Batch int
	// Workers bounds concurrent encode calls.
	Workers int
}

// Result summarizes a backfill run.
type Result struct {
	Pending   int
	Generated int
	Skipped   int
}

// Service runs backfills.
type Service struct {
	articles ArticleLister
	prints   FingerprintLister
	gen      Generator
	logger   *zap.Logger
}

// New creates a backfill service.
func New(articles ArticleLister, prints FingerprintLister, gen Generator, logger *zap.Logger) *Service {
	return &Service{articles: articles, prints: prints, gen: gen, logger: logger}
}

// Missing returns article ids without a stored fingerprint, ascending.
func (s *Service) Missing(ctx context.Context) ([]int64, error) {
	ids, err := s.articles.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	have, err := s.prints.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}

	missing := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Run fingerprints missing articles. Articles that vanished or have no text
// are skipped; an unavailable model aborts the run.
func (s *Service) Run(ctx context.Context, cfg Config) (Result, error) {
	missing, err := s.Missing(ctx)
	if err != nil {
		return Result{}, err
	}
	if cfg.Batch > 0 && len(missing) > cfg.Batch {
		missing = missing[:cfg.Batch]
	}
	workers := max(cfg.Workers, 1)

	s.logger.Info("Backfill started", zap.Int("pending", len(missing)), zap.Int("workers", workers))

	var generated, skipped, done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range missing {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			_, err := s.gen.GenerateForArticle(gctx, id)
			switch {
			case err == nil:
				generated.Add(1)
			case errors.Is(err, domain.ErrEmptyInput), errors.Is(err, domain.ErrNotFound):
				skipped.Add(1)
				s.logger.Warn("Article skipped", zap.Int64("article_id", id), zap.Error(err))
			default:
				return fmt.Errorf("article %d: %w", id, err)
			}
			if n := done.Add(1); n%progressEvery == 0 {
				s.logger.Info("Backfill progress", zap.Int64("done", n), zap.Int("pending", len(missing)))
			}
			return nil
		})
	}
	err = g.Wait()

	res := Result{Pending: len(missing), Generated: int(generated.Load()), Skipped: int(skipped.Load())}
	if err != nil {
		s.logger.Error("Backfill aborted",
			zap.Int("generated", res.Generated), zap.Int("skipped", res.Skipped), zap.Error(err))
		return res, err
	}
	s.logger.Info("Backfill finished",
		zap.Int("generated", res.Generated), zap.Int("skipped", res.Skipped))
	return res, nil
}
