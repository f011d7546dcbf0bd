package repository

import (
	"context"

	"quill/internal/database"
	"quill/internal/models"

	"gorm.io/gorm"
)

// BookmarkRepository defines the interface for bookmark data operations
type BookmarkRepository interface {
	Create(ctx context.Context, bookmark *models.Bookmark) error
	GetByID(ctx context.Context, id uint) (*models.Bookmark, error)
	UpdateTitle(ctx context.Context, id uint, title string) error
	Delete(ctx context.Context, id uint) error
	ListByProfile(ctx context.Context, profileID uint) ([]*models.Bookmark, error)
}

type bookmarkRepository struct {
	db *gorm.DB
}

// NewBookmarkRepository creates a new bookmark repository
func NewBookmarkRepository(db *gorm.DB) BookmarkRepository {
	return &bookmarkRepository{db: db}
}

// Create inserts the bookmark. A second bookmark of the same post by the
// same profile is a CONFLICT and leaves the first one untouched.
func (r *bookmarkRepository) Create(ctx context.Context, bookmark *models.Bookmark) error {
	err := database.Conn(ctx, r.db).Create(bookmark).Error
	if database.IsUniqueViolation(err) {
		return models.NewConflictError("Post already bookmarked")
	}
	return err
}

func (r *bookmarkRepository) GetByID(ctx context.Context, id uint) (*models.Bookmark, error) {
	var bookmark models.Bookmark
	if err := database.Conn(ctx, r.db).First(&bookmark, id).Error; err != nil {
		return nil, notFound(err, "Bookmark", id)
	}
	return &bookmark, nil
}

func (r *bookmarkRepository) UpdateTitle(ctx context.Context, id uint, title string) error {
	result := database.Conn(ctx, r.db).
		Model(&models.Bookmark{ID: id}).
		Update("title", title)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Bookmark", id)
	}
	return nil
}

func (r *bookmarkRepository) Delete(ctx context.Context, id uint) error {
	result := database.Conn(ctx, r.db).Delete(&models.Bookmark{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Bookmark", id)
	}
	return nil
}

// ListByProfile returns the profile's bookmarks, newest first.
func (r *bookmarkRepository) ListByProfile(ctx context.Context, profileID uint) ([]*models.Bookmark, error) {
	bookmarks := []*models.Bookmark{}
	err := database.Conn(ctx, r.db).
		Where("profile_id = ?", profileID).
		Order("id DESC").
		Find(&bookmarks).Error
	return bookmarks, err
}
