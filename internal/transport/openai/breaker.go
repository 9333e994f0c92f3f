package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tastefeed/internal/domain"
	"github.com/kailas-cloud/tastefeed/internal/metrics"
)

// BreakerConfig configures the circuit breaker around encoder calls.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "encoder",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          15 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerEmbedder fails fast with domain.ErrEncodingFailed while the provider keeps failing.
type BreakerEmbedder struct {
	inner domain.Embedder
	cb    *gobreaker.CircuitBreaker[domain.EmbeddingResult]
}

// NewBreakerEmbedder wraps inner with a circuit breaker.
func NewBreakerEmbedder(inner domain.Embedder, cfg BreakerConfig, logger *zap.Logger) *BreakerEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Encoder circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.EmbeddingBreakerState.WithLabelValues(name).Set(float64(to))
		},
		// Cancelled requests say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &BreakerEmbedder{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[domain.EmbeddingResult](settings),
	}
}

// Embed implements domain.Embedder.
func (b *BreakerEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := b.cb.Execute(func() (domain.EmbeddingResult, error) {
		return b.inner.Embed(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.EmbeddingResult{}, fmt.Errorf("encoder circuit %s: %w: %w", b.cb.State(), domain.ErrEncodingFailed, err)
		}
		return domain.EmbeddingResult{}, err
	}
	return res, nil
}

// State returns the current breaker state.
func (b *BreakerEmbedder) State() gobreaker.State {
	return b.cb.State()
}

// HealthCheck reports an open circuit without probing the provider.
func (b *BreakerEmbedder) HealthCheck(ctx context.Context) error {
	if b.cb.State() == gobreaker.StateOpen {
		return fmt.Errorf("encoder circuit open: %w", domain.ErrEncodingFailed)
	}
	return domain.CheckHealth(ctx, b.inner)
}
