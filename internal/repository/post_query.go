package repository

import (
	"context"
	"strings"

	"quill/internal/database"
	"quill/internal/models"

	"gorm.io/gorm"
)

// PostSort selects the ordering of a post query.
type PostSort string

const (
	SortDate  PostSort = "DATE"
	SortLikes PostSort = "LIKES"
)

// PostQuery filters published posts. Every non-empty filter narrows the
// result; Tags must all match while any one of Keywords suffices.
type PostQuery struct {
	AuthorID   *uint
	AuthorName string
	Tags       []string
	Keywords   []string
	Sort       PostSort
	Limit      int
	Offset     int
}

const (
	tagFilterSQL = "posts.id IN (SELECT pt.post_id FROM post_tags pt " +
		"JOIN tags t ON t.id = pt.tag_id WHERE LOWER(t.value) = LOWER(?))"
	authorNameFilterSQL = "posts.profile_id IN (SELECT id FROM profiles WHERE LOWER(username) = LOWER(?))"
	keywordFilterSQL    = "LOWER(posts.title) LIKE ? ESCAPE '\\' OR LOWER(posts.body) LIKE ? ESCAPE '\\'"
	likesOrderSQL       = "(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) DESC"
)

// Query returns one page of matching post ids and the total match count.
// Filters are expressed as subqueries so a post never appears twice.
func (r *postRepository) Query(ctx context.Context, q PostQuery) ([]uint, int64, error) {
	var total int64
	if err := r.filtered(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	ids := []uint{}
	if total == 0 {
		return ids, 0, nil
	}

	page := r.filtered(ctx, q)
	if q.Sort == SortLikes {
		page = page.Order(likesOrderSQL)
	}
	err := page.Order("posts.id DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Pluck("posts.id", &ids).Error
	if err != nil {
		return nil, 0, err
	}
	return dedupeIDs(ids), total, nil
}

func (r *postRepository) filtered(ctx context.Context, q PostQuery) *gorm.DB {
	db := database.Conn(ctx, r.db).
		Model(&models.Post{}).
		Where("posts.is_draft = ?", false)

	if q.AuthorID != nil {
		db = db.Where("posts.profile_id = ?", *q.AuthorID)
	}
	if q.AuthorName != "" {
		db = db.Where(authorNameFilterSQL, q.AuthorName)
	}
	for _, tag := range q.Tags {
		db = db.Where(tagFilterSQL, tag)
	}
	if len(q.Keywords) > 0 {
		clauses := make([]string, 0, len(q.Keywords))
		args := make([]interface{}, 0, 2*len(q.Keywords))
		for _, kw := range q.Keywords {
			pattern := "%" + escapeLike(strings.ToLower(kw)) + "%"
			clauses = append(clauses, keywordFilterSQL)
			args = append(args, pattern, pattern)
		}
		db = db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
	return db
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
