package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"

	"gorm.io/gorm"
)

const (
	defaultTagListLimit = 20
	maxTagListLimit     = 100
)

// TagRegistry turns free-form tag values into stored tags.
type TagRegistry struct {
	db   *gorm.DB
	tags repository.TagRepository
}

func NewTagRegistry(db *gorm.DB, tags repository.TagRepository) *TagRegistry {
	return &TagRegistry{db: db, tags: tags}
}

// NormalizeTags trims each value and strips one leading '#'. Values that
// differ only by case collapse onto the first spelling.
func NormalizeTags(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		v := strings.TrimSpace(raw)
		v = strings.TrimSpace(strings.TrimPrefix(v, "#"))
		if v == "" {
			return nil, models.NewValidationError("Tags must not be blank")
		}
		if utf8.RuneCountInString(v) > models.MaxTagLength {
			return nil, models.NewValidationError(fmt.Sprintf("Tag too long (max %d characters)", models.MaxTagLength))
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Resolve normalizes values and returns the matching tags in input order,
// creating the ones that do not exist yet. It joins the transaction in ctx
// when there is one.
func (r *TagRegistry) Resolve(ctx context.Context, values []string) ([]models.Tag, error) {
	normalized, err := NormalizeTags(values)
	if err != nil {
		return nil, err
	}
	if len(normalized) == 0 {
		return []models.Tag{}, nil
	}

	tags := make([]models.Tag, 0, len(normalized))
	err = database.RunInTransaction(ctx, r.db, func(ctx context.Context) error {
		seen := make(map[uint]struct{}, len(normalized))
		for _, v := range normalized {
			tag, outcome, err := r.tags.GetOrCreate(ctx, v)
			if err != nil {
				return err
			}
			observability.TagResolutions.WithLabelValues(string(outcome)).Inc()
			if _, dup := seen[tag.ID]; dup {
				continue
			}
			seen[tag.ID] = struct{}{}
			tags = append(tags, *tag)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// List returns tags whose value starts with prefix, for autocompletion.
func (r *TagRegistry) List(ctx context.Context, prefix string, limit int) ([]models.Tag, error) {
	switch {
	case limit < 1:
		limit = defaultTagListLimit
	case limit > maxTagListLimit:
		limit = maxTagListLimit
	}
	prefix = strings.TrimPrefix(strings.TrimSpace(prefix), "#")
	return r.tags.ListByPrefix(ctx, prefix, limit)
}
