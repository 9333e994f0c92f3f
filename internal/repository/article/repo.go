// Package article adapts the external document store: article hashes and per-user like sets.
package article

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/tastefeed/internal/db"
	"github.com/kailas-cloud/tastefeed/internal/domain"
	domart "github.com/kailas-cloud/tastefeed/internal/domain/article"
)

// Hash field names.
const (
	fieldTitle       = "title"
	fieldLink        = "link"
	fieldSummary     = "summary"
	fieldFullText    = "full_text"
	fieldPublishedAt = "published_at"
	fieldSourceName  = "source_name"
)

// store is the consumer interface for articles and likes (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRem(ctx context.Context, key, member string) error
	ZRevRange(ctx context.Context, key string, limit int) ([]db.ScoredMember, error)
	ZCard(ctx context.Context, key string) (int64, error)
	ScanPrefix(
		ctx context.Context, prefix string,
		keep func(key string) bool, fn func(page []db.Entry) error,
	) error
}

// Repo reads and writes articles and like sets.
type Repo struct {
	store         store
	articlePrefix string
	likesPrefix   string
}

// New creates an article repository. Keys are "<prefix>article:<id>" and "<prefix>likes:<user>".
func New(s store, prefix string) *Repo {
	return &Repo{
		store:         s,
		articlePrefix: prefix + "article:",
		likesPrefix:   prefix + "likes:",
	}
}

// Upsert writes articles in one pipelined round-trip.
func (r *Repo) Upsert(ctx context.Context, articles ...domart.Article) error {
	if len(articles) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(articles))
	for i, a := range articles {
		items[i] = db.HashSetItem{Key: r.articleKey(a.ID), Fields: toFields(a)}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert articles: %w: %w", domain.ErrStoreIO, err)
	}
	return nil
}

// Get returns one article or domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, id int64) (domart.Article, error) {
	m, err := r.store.HGetAll(ctx, r.articleKey(id))
	if err != nil {
		return domart.Article{}, fmt.Errorf("get article %d: %w: %w", id, domain.ErrStoreIO, err)
	}
	if len(m) == 0 {
		return domart.Article{}, fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
	}
	return fromFields(id, m), nil
}

// ArticlesByIDs returns display metadata for the ids that exist; unknown ids are absent.
func (r *Repo) ArticlesByIDs(ctx context.Context, ids []int64) (map[int64]domart.Meta, error) {
	out := make(map[int64]domart.Meta, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.articleKey(id)
	}
	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get articles: %w: %w", domain.ErrStoreIO, err)
	}
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		out[ids[i]] = fromFields(ids[i], m).Meta()
	}
	return out, nil
}

// IDs returns every stored article id in ascending order.
func (r *Repo) IDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.store.ScanPrefix(ctx, r.articlePrefix, func(key string) bool {
		if id, err := strconv.ParseInt(strings.TrimPrefix(key, r.articlePrefix), 10, 64); err == nil {
			ids = append(ids, id)
		}
		return false
	}, func([]db.Entry) error { return nil })
	if err != nil {
		return nil, fmt.Errorf("list articles: %w: %w", domain.ErrStoreIO, err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return dedupeSorted(ids), nil
}

// Like records that user liked id at the given time. Liking again updates the time.
func (r *Repo) Like(ctx context.Context, user string, id int64, at time.Time) error {
	if err := r.store.ZAdd(ctx, r.likesKey(user), float64(at.UnixMilli()), strconv.FormatInt(id, 10)); err != nil {
		return fmt.Errorf("like %d: %w: %w", id, domain.ErrStoreIO, err)
	}
	return nil
}

// Unlike removes id from the user's like set.
func (r *Repo) Unlike(ctx context.Context, user string, id int64) error {
	if err := r.store.ZRem(ctx, r.likesKey(user), strconv.FormatInt(id, 10)); err != nil {
		return fmt.Errorf("unlike %d: %w: %w", id, domain.ErrStoreIO, err)
	}
	return nil
}

// LikedArticles returns up to limit likes, most recent first.
func (r *Repo) LikedArticles(ctx context.Context, user string, limit int) ([]domart.Liked, error) {
	members, err := r.store.ZRevRange(ctx, r.likesKey(user), limit)
	if err != nil {
		return nil, fmt.Errorf("liked articles: %w: %w", domain.ErrStoreIO, err)
	}
	out := make([]domart.Liked, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m.Member, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, domart.Liked{ID: id, LikedAt: time.UnixMilli(int64(m.Score)).UTC()})
	}
	return out, nil
}

// LikedIDs returns every article id in the user's like set, most recent first.
func (r *Repo) LikedIDs(ctx context.Context, user string) ([]int64, error) {
	members, err := r.store.ZRevRange(ctx, r.likesKey(user), -1)
	if err != nil {
		return nil, fmt.Errorf("liked ids: %w: %w", domain.ErrStoreIO, err)
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m.Member, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// LikeCount returns the size of the user's like set.
func (r *Repo) LikeCount(ctx context.Context, user string) (int, error) {
	n, err := r.store.ZCard(ctx, r.likesKey(user))
	if err != nil {
		return 0, fmt.Errorf("like count: %w: %w", domain.ErrStoreIO, err)
	}
	return int(n), nil
}

func (r *Repo) articleKey(id int64) string {
	return r.articlePrefix + strconv.FormatInt(id, 10)
}

func (r *Repo) likesKey(user string) string {
	return r.likesPrefix + user
}

func toFields(a domart.Article) map[string]string {
	m := map[string]string{
		fieldTitle:      a.Title,
		fieldLink:       a.Link,
		fieldSummary:    a.Summary,
		fieldFullText:   a.Body,
		fieldSourceName: a.SourceName,
	}
	if !a.PublishedAt.IsZero() {
		m[fieldPublishedAt] = a.PublishedAt.UTC().Format(time.RFC3339)
	}
	return m
}

func fromFields(id int64, m map[string]string) domart.Article {
	a := domart.Article{
		ID:         id,
		Title:      m[fieldTitle],
		Link:       m[fieldLink],
		Summary:    m[fieldSummary],
		Body:       m[fieldFullText],
		SourceName: m[fieldSourceName],
	}
	if ts, err := time.Parse(time.RFC3339, m[fieldPublishedAt]); err == nil {
		a.PublishedAt = ts
	}
	return a
}

func dedupeSorted(ids []int64) []int64 {
	if len(ids) < 2 {
		return ids
	}
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
