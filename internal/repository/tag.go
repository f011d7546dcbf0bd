package repository

import (
	"context"
	"strings"

	"quill/internal/database"
	"quill/internal/models"

	"gorm.io/gorm"
)

// TagOutcome describes how GetOrCreate resolved a value.
type TagOutcome string

const (
	TagExisting TagOutcome = "existing"
	TagCreated  TagOutcome = "created"
	// TagRaced means a concurrent writer inserted the value first.
	TagRaced TagOutcome = "raced"
)

// TagRepository defines the interface for tag data operations
type TagRepository interface {
	FindByValue(ctx context.Context, value string) (*models.Tag, error)
	GetOrCreate(ctx context.Context, value string) (*models.Tag, TagOutcome, error)
	ListByPrefix(ctx context.Context, prefix string, limit int) ([]models.Tag, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// FindByValue looks up value case-insensitively. When several case variants
// exist the oldest one wins.
func (r *tagRepository) FindByValue(ctx context.Context, value string) (*models.Tag, error) {
	var tag models.Tag
	err := database.Conn(ctx, r.db).
		Where("LOWER(value) = LOWER(?)", value).
		First(&tag).Error
	if err != nil {
		return nil, notFound(err, "Tag", value)
	}
	return &tag, nil
}

// GetOrCreate returns the tag matching value, inserting it when absent.
// The insert runs in a savepoint so a unique violation from a concurrent
// writer only undoes the insert; the winner's row is then re-read.
func (r *tagRepository) GetOrCreate(ctx context.Context, value string) (*models.Tag, TagOutcome, error) {
	tag, err := r.FindByValue(ctx, value)
	if err == nil {
		return tag, TagExisting, nil
	}
	if !models.IsNotFound(err) {
		return nil, "", err
	}

	created := &models.Tag{Value: value}
	err = database.Savepoint(ctx, r.db, func(ctx context.Context) error {
		return database.Conn(ctx, r.db).Create(created).Error
	})
	if err == nil {
		return created, TagCreated, nil
	}
	if !database.IsUniqueViolation(err) {
		return nil, "", err
	}

	tag, err = r.FindByValue(ctx, value)
	if err != nil {
		return nil, "", err
	}
	return tag, TagRaced, nil
}

func (r *tagRepository) ListByPrefix(ctx context.Context, prefix string, limit int) ([]models.Tag, error) {
	var tags []models.Tag
	q := database.Conn(ctx, r.db).Order("value ASC").Order("id ASC").Limit(limit)
	if prefix != "" {
		q = q.Where("LOWER(value) LIKE ? ESCAPE '\\'", escapeLike(strings.ToLower(prefix))+"%")
	}
	err := q.Find(&tags).Error
	return tags, err
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
