package repository

import (
	"context"

	"quill/internal/database"
	"quill/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository defines the interface for like records
type LikeRepository interface {
	Insert(ctx context.Context, postID, profileID uint) (bool, error)
	Delete(ctx context.Context, postID, profileID uint) (bool, error)
	Exists(ctx context.Context, postID, profileID uint) (bool, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Insert records the like and reports whether a new row was written.
// ON CONFLICT DO NOTHING makes concurrent inserts for the same pair safe.
func (r *likeRepository) Insert(ctx context.Context, postID, profileID uint) (bool, error) {
	like := &models.Like{PostID: postID, ProfileID: profileID}
	result := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(like)
	if result.Error != nil {
		if database.IsUniqueViolation(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete removes the like if present and reports whether a row was removed.
func (r *likeRepository) Delete(ctx context.Context, postID, profileID uint) (bool, error) {
	result := database.Conn(ctx, r.db).
		Where("post_id = ? AND profile_id = ?", postID, profileID).
		Delete(&models.Like{})
	return result.RowsAffected > 0, result.Error
}

func (r *likeRepository) Exists(ctx context.Context, postID, profileID uint) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&models.Like{}).
		Where("post_id = ? AND profile_id = ?", postID, profileID).
		Count(&count).Error
	return count > 0, err
}
