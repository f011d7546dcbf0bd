package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"quill/internal/cache"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PostFilter narrows a post listing. Blank terms are ignored.
type PostFilter struct {
	AuthorID   *uint    `json:"author_id,omitempty"`
	AuthorName string   `json:"author_name,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	SortBy     string   `json:"sort_by,omitempty"`
}

type ListPostsInput struct {
	Filter   PostFilter
	Page     int
	PageSize int
}

// QueryService answers public post discovery queries. Drafts never appear.
type QueryService struct {
	postRepo        repository.PostRepository
	cache           *cache.Cache
	defaultPageSize int
	maxPageSize     int
}

func NewQueryService(postRepo repository.PostRepository, c *cache.Cache, defaultPageSize, maxPageSize int) *QueryService {
	if defaultPageSize < 1 {
		defaultPageSize = DefaultPageSize
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = MaxPageSize
	}
	return &QueryService{
		postRepo:        postRepo,
		cache:           c,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// ParseSort maps a sort name onto a PostSort. Matching ignores case and an
// empty name means DATE.
func ParseSort(name string) (repository.PostSort, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", string(repository.SortDate):
		return repository.SortDate, nil
	case string(repository.SortLikes):
		return repository.SortLikes, nil
	}
	return "", models.NewValidationError(fmt.Sprintf("Unknown sort %q (use DATE or LIKES)", name))
}

// ListPosts returns one page of published post ids matching in.Filter.
func (s *QueryService) ListPosts(ctx context.Context, in ListPostsInput) (page *models.PostPage, err error) {
	sortBy, err := ParseSort(in.Filter.SortBy)
	if err != nil {
		return nil, err
	}
	pageNum, pageSize := s.clampPage(in.Page, in.PageSize)

	q := repository.PostQuery{
		AuthorID:   in.Filter.AuthorID,
		AuthorName: strings.TrimSpace(in.Filter.AuthorName),
		Tags:       cleanTerms(trimHashes(in.Filter.Tags)),
		Keywords:   cleanTerms(in.Filter.Keywords),
		Sort:       sortBy,
		Limit:      pageSize,
		Offset:     (pageNum - 1) * pageSize,
	}

	span, ctx := observability.StartSpan(ctx, "query.list_posts",
		attribute.String("sort", string(sortBy)),
		attribute.Int("tags", len(q.Tags)),
		attribute.Int("keywords", len(q.Keywords)),
		attribute.Int("page", pageNum),
	)
	start := time.Now()
	defer func() {
		observability.QueryDuration.WithLabelValues(string(sortBy)).Observe(time.Since(start).Seconds())
		span.End(err)
	}()

	key, keyErr := s.cache.PostsListKey(ctx, q)
	if keyErr != nil {
		return nil, models.NewInternalError(keyErr)
	}

	page = &models.PostPage{}
	err = s.cache.Aside(ctx, "posts_list", key, page, cache.ListTTL, func() error {
		ids, total, err := s.postRepo.Query(ctx, q)
		if err != nil {
			return err
		}
		*page = models.PostPage{
			IDs:      ids,
			Total:    total,
			Page:     pageNum,
			PageSize: pageSize,
			HasNext:  int64(pageNum*pageSize) < total,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.AddAttributes(attribute.Int64("total", page.Total))
	return page, nil
}

// Hydrate loads the published posts for ids, keeping their order.
func (s *QueryService) Hydrate(ctx context.Context, ids []uint) ([]*models.Post, error) {
	return s.postRepo.GetPublishedByIDs(ctx, ids)
}

func (s *QueryService) clampPage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case size < 1:
		size = s.defaultPageSize
	case size > s.maxPageSize:
		size = s.maxPageSize
	}
	// page*size must stay representable for the offset and has-next math.
	if maxPage := math.MaxInt / size; page > maxPage {
		page = maxPage
	}
	return page, size
}

func cleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func trimHashes(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = strings.TrimPrefix(strings.TrimSpace(t), "#")
	}
	return out
}
