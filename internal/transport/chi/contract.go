package chi

import (
	"context"
	"time"

	domart "github.com/kailas-cloud/tastefeed/internal/domain/article"
	fp "github.com/kailas-cloud/tastefeed/internal/domain/fingerprint"
	"github.com/kailas-cloud/tastefeed/internal/domain/recommendation"
	healthuc "github.com/kailas-cloud/tastefeed/internal/usecase/health"
)

// FingerprintGenerator fingerprints and stores one article.
type FingerprintGenerator interface {
	GenerateForArticle(ctx context.Context, id int64) (fp.Fingerprint, error)
	// Ensure returns the stored fingerprint, generating it on first request.
	Ensure(ctx context.Context, id int64) (fp.Fingerprint, error)
}

// FingerprintStore reads and searches stored fingerprints.
type FingerprintStore interface {
	Get(ctx context.Context, id int64) (fp.Fingerprint, bool, error)
	Search(ctx context.Context, query fp.Fingerprint, k int, exclude map[int64]struct{}) ([]recommendation.Candidate, error)
}

// Articles resolves metadata and maintains like sets.
type Articles interface {
	ArticlesByIDs(ctx context.Context, ids []int64) (map[int64]domart.Meta, error)
	Like(ctx context.Context, user string, id int64, at time.Time) error
	Unlike(ctx context.Context, user string, id int64) error
	LikeCount(ctx context.Context, user string) (int, error)
}

// TasteProfiler computes taste centroids.
type TasteProfiler interface {
	Centroids(ctx context.Context, user string, k int) ([]fp.Fingerprint, bool, error)
}

// Recommender ranks articles for a user.
type Recommender interface {
	Recommend(ctx context.Context, user string, limit int) ([]recommendation.Recommendation, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
