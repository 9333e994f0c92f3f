package openai

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const probeText = "dimension probe"

// Load builds the embedder and verifies the provider returns vectors of
// exactly dim components by encoding a probe text.
func Load(ctx context.Context, cfg *Config, dim int) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	e := NewEmbedder(cfg)

	res, err := e.Embed(ctx, probeText)
	if err != nil {
		return nil, fmt.Errorf("probe model %s: %w", cfg.Model, err)
	}
	if len(res.Embedding) != dim {
		return nil, fmt.Errorf("model %s returns %d dimensions, want %d", cfg.Model, len(res.Embedding), dim)
	}

	e.logger.Info("Encoding model loaded",
		zap.String("model", cfg.Model),
		zap.Int("dimensions", dim),
	)
	return e, nil
}
