package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"quill/internal/cache"
	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/notifications"
	"quill/internal/observability"
	"quill/internal/repository"

	"gorm.io/gorm"
)

type PostService struct {
	db                 *gorm.DB
	postRepo           repository.PostRepository
	imageRepo          repository.ImageRepository
	tags               *TagRegistry
	cache              *cache.Cache
	events             notifications.Publisher
	allowDirectPublish bool
}

type CreatePostInput struct {
	Title   string
	Body    string
	ImageID *uint
	Tags    []string
}

// PostPatch is a partial update. Nil fields are left unchanged. ImageSet
// distinguishes clearing the image (ImageSet with a nil ImageID) from not
// touching it.
type PostPatch struct {
	Title    *string
	Body     *string
	ImageSet bool
	ImageID  *uint
	Tags     *[]string
}

func NewPostService(
	db *gorm.DB,
	postRepo repository.PostRepository,
	imageRepo repository.ImageRepository,
	tags *TagRegistry,
	c *cache.Cache,
	events notifications.Publisher,
	allowDirectPublish bool,
) *PostService {
	return &PostService{
		db:                 db,
		postRepo:           postRepo,
		imageRepo:          imageRepo,
		tags:               tags,
		cache:              c,
		events:             events,
		allowDirectPublish: allowDirectPublish,
	}
}

// CreateDraft starts an empty draft owned by caller.
func (s *PostService) CreateDraft(ctx context.Context, caller uint) (*models.Post, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	post := &models.Post{ProfileID: caller, IsDraft: true}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.PostTransitions.WithLabelValues("draft_created").Inc()

	return s.postRepo.GetByID(ctx, post.ID)
}

// CreatePost publishes a post in one step when the deployment allows it.
func (s *PostService) CreatePost(ctx context.Context, caller uint, in CreatePostInput) (*models.Post, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if !s.allowDirectPublish {
		return nil, models.NewForbiddenError("Direct publishing is disabled; create a draft instead")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if err := validatePostText(in.Title, in.Body); err != nil {
		return nil, err
	}

	post := &models.Post{
		ProfileID: caller,
		Title:     in.Title,
		Body:      in.Body,
		ImageID:   in.ImageID,
	}
	err := database.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if err := s.checkImage(ctx, in.ImageID); err != nil {
			return err
		}
		if err := s.postRepo.Create(ctx, post); err != nil {
			return err
		}
		return s.replaceTags(ctx, post.ID, in.Tags)
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidatePostsList(ctx)
	s.publish(ctx, notifications.EventPostPublished, post.ID, caller)
	observability.PostTransitions.WithLabelValues("created").Inc()

	return s.postRepo.GetByID(ctx, post.ID)
}

// GetPost returns the post when caller may see it. Another profile's draft
// is reported as missing.
func (s *PostService) GetPost(ctx context.Context, caller, id uint) (*models.Post, error) {
	if caller == 0 {
		var post models.Post
		err := s.cache.Aside(ctx, "post", cache.PostKey(id), &post, cache.PostTTL, func() error {
			p, err := s.visiblePost(ctx, caller, id)
			if err != nil {
				return err
			}
			post = *p
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &post, nil
	}
	return s.visiblePost(ctx, caller, id)
}

func (s *PostService) visiblePost(ctx context.Context, caller, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.IsVisibleTo(caller) {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

// UpdatePost applies patch to the caller's post. Tags, when present,
// replace the existing set. The post row and its tags commit together.
func (s *PostService) UpdatePost(ctx context.Context, caller, id uint, patch PostPatch) (*models.Post, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	err := database.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		post, err := s.postRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := requireOwner(caller, post.ProfileID, "You can only edit your own posts"); err != nil {
			return err
		}

		if patch.Title != nil {
			post.Title = *patch.Title
		}
		if patch.Body != nil {
			post.Body = *patch.Body
		}
		if !post.IsDraft && strings.TrimSpace(post.Title) == "" {
			return models.NewValidationError("Published posts need a title")
		}
		if err := validatePostText(post.Title, post.Body); err != nil {
			return err
		}
		if patch.ImageSet {
			if err := s.checkImage(ctx, patch.ImageID); err != nil {
				return err
			}
			post.ImageID = patch.ImageID
		}

		if err := s.postRepo.Update(ctx, post); err != nil {
			return err
		}
		if patch.Tags != nil {
			return s.replaceTags(ctx, post.ID, *patch.Tags)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidatePost(ctx, id)
	s.publish(ctx, notifications.EventPostUpdated, id, caller)
	observability.PostTransitions.WithLabelValues("updated").Inc()

	return s.postRepo.GetByID(ctx, id)
}

// PublishPost moves a draft to published. Publishing a published post
// succeeds without changes.
func (s *PostService) PublishPost(ctx context.Context, caller, id uint) (*models.Post, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	published := false
	err := database.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		post, err := s.postRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := requireOwner(caller, post.ProfileID, "You can only publish your own posts"); err != nil {
			return err
		}
		if !post.IsDraft {
			return nil
		}
		if strings.TrimSpace(post.Title) == "" {
			return models.NewValidationError("Title is required to publish")
		}

		published, err = s.postRepo.MarkPublished(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if published {
		s.cache.InvalidatePost(ctx, id)
		s.publish(ctx, notifications.EventPostPublished, id, caller)
		observability.PostTransitions.WithLabelValues("published").Inc()
	}

	return s.postRepo.GetByID(ctx, id)
}

// DeletePost removes the caller's post and everything attached to it.
func (s *PostService) DeletePost(ctx context.Context, caller, id uint) error {
	if err := requireCaller(caller); err != nil {
		return err
	}

	err := database.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		post, err := s.postRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := requireOwner(caller, post.ProfileID, "You can only delete your own posts"); err != nil {
			return err
		}
		return s.postRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.cache.InvalidatePost(ctx, id)
	s.publish(ctx, notifications.EventPostDeleted, id, caller)
	observability.PostTransitions.WithLabelValues("deleted").Inc()
	return nil
}

// ListMyDrafts returns the caller's draft ids, newest first.
func (s *PostService) ListMyDrafts(ctx context.Context, caller uint) ([]uint, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.postRepo.ListDraftIDs(ctx, caller)
}

func (s *PostService) replaceTags(ctx context.Context, postID uint, values []string) error {
	tags, err := s.tags.Resolve(ctx, values)
	if err != nil {
		return err
	}
	ids := make([]uint, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return s.postRepo.ReplaceTags(ctx, postID, ids)
}

// checkImage verifies that a referenced image exists and has a format posts
// can embed. A nil id clears the image and is always valid.
func (s *PostService) checkImage(ctx context.Context, imageID *uint) error {
	if imageID == nil {
		return nil
	}
	img, err := s.imageRepo.GetByID(ctx, *imageID)
	if models.IsNotFound(err) {
		return models.NewValidationError(fmt.Sprintf("Image %d does not exist", *imageID))
	}
	if err != nil {
		return err
	}
	if !models.IsSupportedImageFormat(img.Format) {
		return models.NewValidationError("Unsupported image format")
	}
	return nil
}

func (s *PostService) publish(ctx context.Context, eventType string, postID, profileID uint) {
	if s.events != nil {
		s.events.Publish(ctx, eventType, postID, profileID)
	}
}

func validatePostText(title, body string) error {
	if utf8.RuneCountInString(title) > models.MaxTitleLength {
		return models.NewValidationError(fmt.Sprintf("Title too long (max %d characters)", models.MaxTitleLength))
	}
	if utf8.RuneCountInString(body) > models.MaxBodyLength {
		return models.NewValidationError(fmt.Sprintf("Body too long (max %d characters)", models.MaxBodyLength))
	}
	return nil
}
