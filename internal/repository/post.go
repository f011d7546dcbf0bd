package repository

import (
	"context"

	"quill/internal/database"
	"quill/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Post, error)
	GetPublishedByIDs(ctx context.Context, ids []uint) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	MarkPublished(ctx context.Context, id uint) (bool, error)
	ReplaceTags(ctx context.Context, postID uint, tagIDs []uint) error
	Delete(ctx context.Context, id uint) error
	ListDraftIDs(ctx context.Context, profileID uint) ([]uint, error)
	ListPublishedIDsByProfile(ctx context.Context, profileID uint) ([]uint, error)
	Query(ctx context.Context, q PostQuery) ([]uint, int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

const likesCountSelect = "posts.*, (SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count"

// withDetails selects the computed like count and preloads the author and tags.
func withDetails(db *gorm.DB) *gorm.DB {
	return db.Select(likesCountSelect).
		Preload("Profile").
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("tags.id ASC")
		})
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return database.Conn(ctx, r.db).Omit("Tags", "Profile").Create(post).Error
}

// GetByID loads a post regardless of draft state; visibility is the caller's concern.
func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := withDetails(database.Conn(ctx, r.db)).First(&post, id).Error; err != nil {
		return nil, notFound(err, "Post", id)
	}
	return &post, nil
}

// GetByIDForUpdate locks the post row for the rest of the transaction in ctx
// and then loads it. SQLite has no row locks and skips the clause.
func (r *postRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Post, error) {
	var locked models.Post
	err := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&locked, id).Error
	if err != nil {
		return nil, notFound(err, "Post", id)
	}
	return r.GetByID(ctx, id)
}

// GetPublishedByIDs loads published posts and returns them in the order of ids.
// Ids that are missing or drafts are skipped.
func (r *postRepository) GetPublishedByIDs(ctx context.Context, ids []uint) ([]*models.Post, error) {
	if len(ids) == 0 {
		return []*models.Post{}, nil
	}

	var posts []*models.Post
	err := withDetails(database.Conn(ctx, r.db)).
		Where("posts.id IN ? AND posts.is_draft = ?", ids, false).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]*models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]*models.Post, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// Update writes the post's editable columns. Draft state only changes
// through MarkPublished.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	result := database.Conn(ctx, r.db).
		Model(post).
		Select("title", "body", "image_id", "updated_at").
		Updates(post)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	return nil
}

// MarkPublished flips a titled draft to published. It reports false when the
// post is already published, missing or still untitled.
func (r *postRepository) MarkPublished(ctx context.Context, id uint) (bool, error) {
	result := database.Conn(ctx, r.db).
		Model(&models.Post{}).
		Where("id = ? AND is_draft = ? AND TRIM(title) <> ''", id, true).
		Update("is_draft", false)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReplaceTags sets the post's tags to exactly tagIDs.
func (r *postRepository) ReplaceTags(ctx context.Context, postID uint, tagIDs []uint) error {
	return database.RunInTransaction(ctx, r.db, func(ctx context.Context) error {
		conn := database.Conn(ctx, r.db)
		if err := conn.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}

		seen := make(map[uint]struct{}, len(tagIDs))
		rows := make([]models.PostTag, 0, len(tagIDs))
		for _, id := range tagIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			rows = append(rows, models.PostTag{PostID: postID, TagID: id})
		}
		if len(rows) == 0 {
			return nil
		}
		return conn.Create(&rows).Error
	})
}

// Delete removes the post along with its comments, likes, bookmarks and tag links.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return database.RunInTransaction(ctx, r.db, func(ctx context.Context) error {
		conn := database.Conn(ctx, r.db)
		for _, dependent := range []interface{}{
			&models.Comment{},
			&models.Like{},
			&models.Bookmark{},
			&models.PostTag{},
		} {
			if err := conn.Where("post_id = ?", id).Delete(dependent).Error; err != nil {
				return err
			}
		}

		result := conn.Delete(&models.Post{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
}

// ListDraftIDs returns the profile's drafts, newest first.
func (r *postRepository) ListDraftIDs(ctx context.Context, profileID uint) ([]uint, error) {
	ids := []uint{}
	err := database.Conn(ctx, r.db).
		Model(&models.Post{}).
		Where("profile_id = ? AND is_draft = ?", profileID, true).
		Order("id DESC").
		Pluck("id", &ids).Error
	return ids, err
}

// ListPublishedIDsByProfile returns the profile's published posts, newest first.
func (r *postRepository) ListPublishedIDsByProfile(ctx context.Context, profileID uint) ([]uint, error) {
	ids := []uint{}
	err := database.Conn(ctx, r.db).
		Model(&models.Post{}).
		Where("profile_id = ? AND is_draft = ?", profileID, false).
		Order("id DESC").
		Pluck("id", &ids).Error
	return ids, err
}
