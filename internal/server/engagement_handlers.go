package server

import (
	"quill/internal/middleware"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

type bookmarkRequest struct {
	Title string `json:"title" validate:"max=200"`
}

// SetLiked handles PUT /api/posts/:id/like. It answers 201 when the like
// was added and 200 when it already existed.
func (s *Server) SetLiked(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	created, err := s.engagement.SetLiked(c.UserContext(), middleware.CallerID(c), postID)
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"post_id": postID, "liked": true})
}

// UnsetLiked handles DELETE /api/posts/:id/like
func (s *Server) UnsetLiked(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagement.UnsetLiked(c.UserContext(), middleware.CallerID(c), postID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikeStatus handles GET /api/posts/:id/like
func (s *Server) LikeStatus(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	liked, err := s.engagement.LikeStatus(c.UserContext(), middleware.CallerID(c), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post_id": postID, "liked": liked})
}

// CreateBookmark handles POST /api/posts/:id/bookmark
func (s *Server) CreateBookmark(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req bookmarkRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	bookmark, err := s.engagement.CreateBookmark(c.UserContext(), middleware.CallerID(c), postID, req.Title)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(bookmark)
}

// ListMyBookmarks handles GET /api/bookmarks
func (s *Server) ListMyBookmarks(c *fiber.Ctx) error {
	bookmarks, err := s.engagement.ListMyBookmarks(c.UserContext(), middleware.CallerID(c))
	if err != nil {
		return respondError(c, err)
	}
	if bookmarks == nil {
		bookmarks = []*models.Bookmark{}
	}
	return c.JSON(bookmarks)
}

// UpdateBookmark handles PATCH /api/bookmarks/:id
func (s *Server) UpdateBookmark(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req bookmarkRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	bookmark, err := s.engagement.UpdateBookmark(c.UserContext(), middleware.CallerID(c), id, req.Title)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(bookmark)
}

// DeleteBookmark handles DELETE /api/bookmarks/:id
func (s *Server) DeleteBookmark(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagement.DeleteBookmark(c.UserContext(), middleware.CallerID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
