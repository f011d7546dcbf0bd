package service

import (
	"context"
	"fmt"
	"unicode/utf8"

	"quill/internal/cache"
	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/notifications"
	"quill/internal/observability"
	"quill/internal/repository"

	"gorm.io/gorm"
)

// EngagementService records likes and bookmarks.
type EngagementService struct {
	db           *gorm.DB
	postRepo     repository.PostRepository
	likeRepo     repository.LikeRepository
	bookmarkRepo repository.BookmarkRepository
	cache        *cache.Cache
	events       notifications.Publisher
}

func NewEngagementService(
	db *gorm.DB,
	postRepo repository.PostRepository,
	likeRepo repository.LikeRepository,
	bookmarkRepo repository.BookmarkRepository,
	c *cache.Cache,
	events notifications.Publisher,
) *EngagementService {
	return &EngagementService{
		db:           db,
		postRepo:     postRepo,
		likeRepo:     likeRepo,
		bookmarkRepo: bookmarkRepo,
		cache:        c,
		events:       events,
	}
}

// SetLiked likes the post for caller. Liking twice is not an error; created
// reports whether this call added the like.
func (s *EngagementService) SetLiked(ctx context.Context, caller, postID uint) (bool, error) {
	if err := requireCaller(caller); err != nil {
		return false, err
	}

	var created bool
	err := database.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.visiblePost(ctx, caller, postID); err != nil {
			return err
		}
		var err error
		created, err = s.likeRepo.Insert(ctx, postID, caller)
		return err
	})
	if err != nil {
		return false, err
	}

	if created {
		observability.EngagementChanges.WithLabelValues("like", "created").Inc()
		s.cache.InvalidatePost(ctx, postID)
		s.publish(ctx, notifications.EventPostLiked, postID, caller)
	} else {
		observability.EngagementChanges.WithLabelValues("like", "unchanged").Inc()
	}
	return created, nil
}

// UnsetLiked removes caller's like if there is one.
func (s *EngagementService) UnsetLiked(ctx context.Context, caller, postID uint) error {
	if err := requireCaller(caller); err != nil {
		return err
	}

	var removed bool
	err := database.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.visiblePost(ctx, caller, postID); err != nil {
			return err
		}
		var err error
		removed, err = s.likeRepo.Delete(ctx, postID, caller)
		return err
	})
	if err != nil {
		return err
	}

	if removed {
		observability.EngagementChanges.WithLabelValues("like", "removed").Inc()
		s.cache.InvalidatePost(ctx, postID)
		s.publish(ctx, notifications.EventPostUnliked, postID, caller)
	} else {
		observability.EngagementChanges.WithLabelValues("like", "unchanged").Inc()
	}
	return nil
}

// LikeStatus reports whether caller likes the post. It never reveals other
// profiles' likes.
func (s *EngagementService) LikeStatus(ctx context.Context, caller, postID uint) (bool, error) {
	if err := requireCaller(caller); err != nil {
		return false, err
	}
	if _, err := s.visiblePost(ctx, caller, postID); err != nil {
		return false, err
	}
	return s.likeRepo.Exists(ctx, postID, caller)
}

// CreateBookmark saves the post for caller under title. A second bookmark of
// the same post is a CONFLICT.
func (s *EngagementService) CreateBookmark(ctx context.Context, caller, postID uint, title string) (*models.Bookmark, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := validateBookmarkTitle(title); err != nil {
		return nil, err
	}

	bookmark := &models.Bookmark{PostID: postID, ProfileID: caller, Title: title}
	err := database.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.visiblePost(ctx, caller, postID); err != nil {
			return err
		}
		return s.bookmarkRepo.Create(ctx, bookmark)
	})
	if err != nil {
		if models.ErrorCode(err) == models.CodeConflict {
			observability.EngagementChanges.WithLabelValues("bookmark", "conflict").Inc()
		}
		return nil, err
	}

	observability.EngagementChanges.WithLabelValues("bookmark", "created").Inc()
	return bookmark, nil
}

// UpdateBookmark renames one of caller's bookmarks.
func (s *EngagementService) UpdateBookmark(ctx context.Context, caller, bookmarkID uint, title string) (*models.Bookmark, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := validateBookmarkTitle(title); err != nil {
		return nil, err
	}

	var bookmark *models.Bookmark
	err := database.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		var err error
		bookmark, err = s.bookmarkRepo.GetByID(ctx, bookmarkID)
		if err != nil {
			return err
		}
		if err := requireOwner(caller, bookmark.ProfileID, "You can only edit your own bookmarks"); err != nil {
			return err
		}
		if err := s.bookmarkRepo.UpdateTitle(ctx, bookmarkID, title); err != nil {
			return err
		}
		bookmark.Title = title
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bookmark, nil
}

// DeleteBookmark removes one of caller's bookmarks.
func (s *EngagementService) DeleteBookmark(ctx context.Context, caller, bookmarkID uint) error {
	if err := requireCaller(caller); err != nil {
		return err
	}

	return database.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		bookmark, err := s.bookmarkRepo.GetByID(ctx, bookmarkID)
		if err != nil {
			return err
		}
		if err := requireOwner(caller, bookmark.ProfileID, "You can only delete your own bookmarks"); err != nil {
			return err
		}
		return s.bookmarkRepo.Delete(ctx, bookmarkID)
	})
}

// ListMyBookmarks returns caller's bookmarks, newest first.
func (s *EngagementService) ListMyBookmarks(ctx context.Context, caller uint) ([]*models.Bookmark, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.bookmarkRepo.ListByProfile(ctx, caller)
}

func (s *EngagementService) visiblePost(ctx context.Context, caller, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsVisibleTo(caller) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

func (s *EngagementService) publish(ctx context.Context, eventType string, postID, profileID uint) {
	if s.events != nil {
		s.events.Publish(ctx, eventType, postID, profileID)
	}
}

func validateBookmarkTitle(title string) error {
	if utf8.RuneCountInString(title) > models.MaxBookmarkTitleLength {
		return models.NewValidationError(fmt.Sprintf("Title too long (max %d characters)", models.MaxBookmarkTitleLength))
	}
	return nil
}
