package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/repository"

	"gorm.io/gorm"
)

type CommentService struct {
	db             *gorm.DB
	commentRepo    repository.CommentRepository
	postRepo       repository.PostRepository
	allowAnonymous bool
}

type CreateCommentInput struct {
	PostID  uint
	Content string
	// AuthorName is the display name of an anonymous commenter. It is
	// ignored for signed-in callers.
	AuthorName string
}

func NewCommentService(
	db *gorm.DB,
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	allowAnonymous bool,
) *CommentService {
	return &CommentService{
		db:             db,
		commentRepo:    commentRepo,
		postRepo:       postRepo,
		allowAnonymous: allowAnonymous,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, caller uint, in CreateCommentInput) (*models.Comment, error) {
	if err := validateCommentContent(in.Content); err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: in.PostID, Content: in.Content}
	if caller == 0 {
		if !s.allowAnonymous {
			return nil, models.NewUnauthenticatedError("Sign in to comment")
		}
		name := strings.TrimSpace(in.AuthorName)
		if name == "" {
			return nil, models.NewValidationError("Author name is required for anonymous comments")
		}
		if utf8.RuneCountInString(name) > models.MaxAuthorNameLength {
			return nil, models.NewValidationError(fmt.Sprintf("Author name too long (max %d characters)", models.MaxAuthorNameLength))
		}
		comment.AuthorName = name
	} else {
		comment.AuthorProfileID = &caller
	}

	err := database.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		if err := s.checkPostVisible(ctx, caller, in.PostID); err != nil {
			return err
		}
		return s.commentRepo.Create(ctx, comment)
	})
	if err != nil {
		return nil, err
	}

	return s.commentRepo.GetByID(ctx, comment.ID)
}

func (s *CommentService) ListComments(ctx context.Context, caller, postID uint) ([]*models.Comment, error) {
	if err := s.checkPostVisible(ctx, caller, postID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID)
}

func (s *CommentService) UpdateComment(ctx context.Context, caller, commentID uint, content string) (*models.Comment, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := validateCommentContent(content); err != nil {
		return nil, err
	}

	err := database.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		comment, err := s.ownedComment(ctx, caller, commentID, "You can only edit your own comments")
		if err != nil {
			return err
		}
		return s.commentRepo.UpdateContent(ctx, comment.ID, content)
	})
	if err != nil {
		return nil, err
	}

	return s.commentRepo.GetByID(ctx, commentID)
}

func (s *CommentService) DeleteComment(ctx context.Context, caller, commentID uint) error {
	if err := requireCaller(caller); err != nil {
		return err
	}

	return database.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		comment, err := s.ownedComment(ctx, caller, commentID, "You can only delete your own comments")
		if err != nil {
			return err
		}
		return s.commentRepo.Delete(ctx, comment.ID)
	})
}

// ownedComment loads the comment and checks caller wrote it. Anonymous
// comments have no author to match, so nobody may change them.
func (s *CommentService) ownedComment(ctx context.Context, caller, commentID uint, forbidden string) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.IsAnonymous() {
		return nil, models.NewForbiddenError("Anonymous comments cannot be changed")
	}
	if err := requireOwner(caller, *comment.AuthorProfileID, forbidden); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) checkPostVisible(ctx context.Context, caller, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if !post.IsVisibleTo(caller) {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

func validateCommentContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > models.MaxCommentLength {
		return models.NewValidationError(fmt.Sprintf("Comment too long (max %d characters)", models.MaxCommentLength))
	}
	return nil
}
