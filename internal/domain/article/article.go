// Package article holds the article value types read from the document store.
package article

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTextRunes caps the text handed to the encoder.
const MaxTextRunes = 5000

// Article is a stored document with its display metadata.
type Article struct {
	ID          int64
	Title       string
	Summary     string
	Body        string
	Link        string
	PublishedAt time.Time
	SourceName  string
}

// Meta returns the display metadata of the article.
func (a Article) Meta() Meta {
	return Meta{
		ID:          a.ID,
		Title:       a.Title,
		Link:        a.Link,
		Summary:     a.Summary,
		PublishedAt: a.PublishedAt,
		SourceName:  a.SourceName,
	}
}

// Meta is the subset of an article shown next to a recommendation.
type Meta struct {
	ID          int64
	Title       string
	Link        string
	Summary     string
	PublishedAt time.Time
	SourceName  string
}

// Liked is one entry of a user's like set.
type Liked struct {
	ID      int64
	LikedAt time.Time
}

// ComposeText joins title, summary and body with single spaces, skipping blank
// fields, and truncates the result to MaxTextRunes runes.
func ComposeText(a Article) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.Title, a.Summary, a.Body} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return truncateRunes(strings.Join(parts, " "), MaxTextRunes)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
