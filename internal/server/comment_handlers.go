package server

import (
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createCommentRequest struct {
	Content    string `json:"content" validate:"required,max=10000"`
	AuthorName string `json:"author_name" validate:"max=64"`
}

type updateCommentRequest struct {
	Content string `json:"content" validate:"required,max=10000"`
}

// CreateComment handles POST /api/posts/:id/comments. Anonymous callers
// are accepted only when the deployment allows it.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req createCommentRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	created, err := s.comments.CreateComment(c.UserContext(), middleware.CallerID(c), service.CreateCommentInput{
		PostID:     postID,
		Content:    req.Content,
		AuthorName: req.AuthorName,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// ListComments handles GET /api/posts/:id/comments
func (s *Server) ListComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	comments, err := s.comments.ListComments(c.UserContext(), middleware.CallerID(c), postID)
	if err != nil {
		return respondError(c, err)
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return c.JSON(comments)
}

// UpdateComment handles PATCH /api/comments/:id (owner only)
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req updateCommentRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	updated, err := s.comments.UpdateComment(c.UserContext(), middleware.CallerID(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}

// DeleteComment handles DELETE /api/comments/:id (owner only)
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.comments.DeleteComment(c.UserContext(), middleware.CallerID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
