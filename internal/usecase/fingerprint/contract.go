package fingerprint

import (
	"context"

	"github.com/kailas-cloud/tastefeed/internal/domain"
	domart "github.com/kailas-cloud/tastefeed/internal/domain/article"
	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
)

// Store persists fingerprints.
type Store interface {
	Put(ctx context.Context, id int64, f fp.Fingerprint) error
	Get(ctx context.Context, id int64) (fp.Fingerprint, bool, error)
}

// ArticleReader loads articles to fingerprint.
type ArticleReader interface {
	Get(ctx context.Context, id int64) (domart.Article, error)
}

// Loader builds the encoding model. It runs at most once per ModelCache.
type Loader func(ctx context.Context) (domain.Embedder, error)
