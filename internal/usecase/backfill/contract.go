package backfill

import (
	"context"

	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
)

// ArticleLister enumerates article ids in the document store.
type ArticleLister interface {
	IDs(ctx context.Context) ([]int64, error)
}

// FingerprintLister enumerates ids that already have a fingerprint.
type FingerprintLister interface {
	IDs(ctx context.Context) (map[int64]struct{}, error)
}

// Generator fingerprints and stores one article.
type Generator interface {
	GenerateForArticle(ctx context.Context, id int64) (fp.Fingerprint, error)
}
