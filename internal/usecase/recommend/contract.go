package recommend

import (
	"context"

	domart "github.com/kailas-cloud/tastefeed/internal/domain/article"
	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
	"github.com/kailas-cloud/tastefeed/internal/domain/recommendation"
)

// LikeReader reads a user's whole like set, most recent first.
type LikeReader interface {
	LikedIDs(ctx context.Context, user string) ([]int64, error)
}

// CentroidSource produces taste centroids for a user.
type CentroidSource interface {
	Centroids(ctx context.Context, user string, k int) ([]fp.Fingerprint, bool, error)
}

// Searcher finds the fingerprints most similar to a query.
type Searcher interface {
	Search(ctx context.Context, query fp.Fingerprint, k int, exclude map[int64]struct{}) ([]recommendation.Candidate, error)
}

// MetaReader resolves article metadata in bulk. Unknown ids are omitted.
type MetaReader interface {
	ArticlesByIDs(ctx context.Context, ids []int64) (map[int64]domart.Meta, error)
}
