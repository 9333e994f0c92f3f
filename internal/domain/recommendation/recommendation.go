// Package recommendation holds scored search candidates and ranked results.
package recommendation

import (
	"sort"

	"github.com/kailas-cloud/tastefeed/internal/domain/article"
)

// Candidate is an article id with its cosine similarity to a query.
type Candidate struct {
	ID    int64
	Score float64
}

// Before orders by descending score, then ascending id.
func Before(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

// Sort orders candidates best first.
func Sort(c []Candidate) {
	sort.Slice(c, func(i, j int) bool { return Before(c[i], c[j]) })
}

// Recommendation is a ranked candidate joined with its article metadata.
type Recommendation struct {
	article.Meta
	Score float64
}
