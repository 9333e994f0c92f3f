package taste

import (
	"context"

	domart "github.com/kailas-cloud/tastefeed/internal/domain/article"
	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
)

// LikeReader reads a user's like set, most recent first.
type LikeReader interface {
	LikedArticles(ctx context.Context, user string, limit int) ([]domart.Liked, error)
}

// FingerprintReader fetches stored fingerprints in bulk.
type FingerprintReader interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]fp.Fingerprint, error)
}
