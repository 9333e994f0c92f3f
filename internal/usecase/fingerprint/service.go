package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tastefeed/internal/domain"
	domart "github.com/kailas-cloud/tastefeed/internal/domain/article"
	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
)

// Service turns text into fingerprints and keeps article fingerprints stored.
type Service struct {
	models    *ModelCache
	store     Store
	articles  ArticleReader
	generated *prometheus.CounterVec
	logger    *zap.Logger
}

// New creates a fingerprint service. generated is optional (label "status").
func New(
	models *ModelCache, store Store, articles ArticleReader,
	generated *prometheus.CounterVec, logger *zap.Logger,
) *Service {
	return &Service{
		models:    models,
		store:     store,
		articles:  articles,
		generated: generated,
		logger:    logger,
	}
}

// Generate encodes text into a fingerprint. Blank text is ErrEmptyInput and
// never reaches the model.
func (s *Service) Generate(ctx context.Context, text string) (fp.Fingerprint, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}

	enc, err := s.models.Get(ctx)
	if err != nil {
		return nil, err
	}

	res, err := enc.Embed(ctx, text)
	if err != nil {
		s.count("error")
		if errors.Is(err, domain.ErrEncodingFailed) || ctx.Err() != nil {
			return nil, fmt.Errorf("encode: %w", err)
		}
		return nil, fmt.Errorf("encode: %w: %w", domain.ErrEncodingFailed, err)
	}

	f, err := fp.New(res.Embedding)
	if err != nil {
		s.count("error")
		return nil, fmt.Errorf("encode: %w", err)
	}
	s.count("success")
	return f, nil
}

// GenerateForArticle composes the article's text, encodes it and stores the result.
func (s *Service) GenerateForArticle(ctx context.Context, id int64) (fp.Fingerprint, error) {
	a, err := s.articles.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load article %d: %w", id, err)
	}

	f, err := s.Generate(ctx, domart.ComposeText(a))
	if err != nil {
		return nil, fmt.Errorf("article %d: %w", id, err)
	}

	if err := s.store.Put(ctx, id, f); err != nil {
		return nil, err
	}
	s.logger.Debug("Fingerprint stored", zap.Int64("article_id", id))
	return f, nil
}

// Ensure returns the stored fingerprint for id, generating it first if absent.
func (s *Service) Ensure(ctx context.Context, id int64) (fp.Fingerprint, error) {
	f, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok {
		return f, nil
	}
	return s.GenerateForArticle(ctx, id)
}

func (s *Service) count(status string) {
	if s.generated != nil {
		s.generated.WithLabelValues(status).Inc()
	}
}
