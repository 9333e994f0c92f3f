package fingerprint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tastefeed/internal/domain"
)

// ModelCache loads the encoding model on first use and hands the same
// instance to every caller afterwards. Concurrent first callers block until
// the load finishes. A failed load is cached too: every later call gets the
// same ErrModelUnavailable until the process restarts.
type ModelCache struct {
	load   Loader
	logger *zap.Logger

	once sync.Once
	mu   sync.RWMutex
	done bool
	enc  domain.Embedder
	err  error
}

// NewModelCache creates a cache around load.
func NewModelCache(load Loader, logger *zap.Logger) *ModelCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelCache{load: load, logger: logger}
}

// Get returns the loaded model, loading it if this is the first call.
func (c *ModelCache) Get(ctx context.Context) (domain.Embedder, error) {
	c.once.Do(func() {
		// The first caller's cancellation must not become everyone's cached failure.
		loadCtx := context.WithoutCancel(ctx)
		start := time.Now()

		enc, err := c.safeLoad(loadCtx)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.done = true
		if err != nil {
			c.err = fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
			c.logger.Error("Encoding model failed to load",
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		c.enc = enc
		c.logger.Info("Encoding model ready", zap.Duration("duration", time.Since(start)))
	})

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enc, c.err
}

// safeLoad runs the loader, turning a panic or a nil model into an error so
// the once-guarded state is always recorded.
func (c *ModelCache) safeLoad(ctx context.Context) (enc domain.Embedder, err error) {
	defer func() {
		if r := recover(); r != nil {
			enc, err = nil, fmt.Errorf("loader panicked: %v", r)
		}
	}()

	enc, err = c.load(ctx)
	if err == nil && enc == nil {
		err = fmt.Errorf("loader returned no model")
	}
	return enc, err
}

// HealthCheck reports a cached load failure, or delegates to the model when it
// supports health checks. An unloaded model is healthy.
func (c *ModelCache) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	done, enc, err := c.done, c.enc, c.err
	c.mu.RUnlock()

	if !done {
		return nil
	}
	if err != nil {
		return err
	}
	return domain.CheckHealth(ctx, enc)
}
