package server

import (
	"strconv"
	"strings"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PostListResponse is one page of hydrated posts.
type PostListResponse struct {
	Posts    []*models.Post `json:"posts"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	HasNext  bool           `json:"has_next"`
}

type filterRequest struct {
	service.PostFilter
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type createPostRequest struct {
	Title   string   `json:"title" validate:"max=300"`
	Body    string   `json:"body" validate:"max=50000"`
	ImageID *uint    `json:"image_id" validate:"omitempty,gt=0"`
	Tags    []string `json:"tags" validate:"max=50"`
}

type updatePostRequest struct {
	Title   *string                `json:"title" validate:"omitempty,max=300"`
	Body    *string                `json:"body" validate:"omitempty,max=50000"`
	ImageID optionalJSON[uint]     `json:"image_id"`
	Tags    optionalJSON[[]string] `json:"tags"`
}

// ListPosts handles GET /api/posts with filters in the query string.
func (s *Server) ListPosts(c *fiber.Ctx) error {
	filter := service.PostFilter{
		AuthorName: c.Query("author_name"),
		Tags:       queryList(c, "tags"),
		Keywords:   queryList(c, "keywords"),
		SortBy:     c.Query("sort_by"),
	}
	if raw := strings.TrimSpace(c.Query("author")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid author"))
		}
		author := uint(id)
		filter.AuthorID = &author
	}

	ctx := c.UserContext()
	page, err := s.query.ListPosts(ctx, service.ListPostsInput{
		Filter:   filter,
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 0),
	})
	if err != nil {
		return respondError(c, err)
	}

	posts, err := s.query.Hydrate(ctx, page.IDs)
	if err != nil {
		return respondError(c, err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	return c.JSON(PostListResponse{
		Posts:    posts,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		HasNext:  page.HasNext,
	})
}

// FilterPosts handles POST /api/posts/filter and returns only ids.
func (s *Server) FilterPosts(c *fiber.Ctx) error {
	var req filterRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	page, err := s.query.ListPosts(c.UserContext(), service.ListPostsInput{
		Filter:   req.PostFilter,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return respondError(c, err)
	}
	if page.IDs == nil {
		page.IDs = []uint{}
	}
	return c.JSON(page)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.posts.GetPost(c.UserContext(), middleware.CallerID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts, creating an already published post.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	post, err := s.posts.CreatePost(c.UserContext(), middleware.CallerID(c), service.CreatePostInput{
		Title:   req.Title,
		Body:    req.Body,
		ImageID: req.ImageID,
		Tags:    req.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id. Only the fields present in the
// body change; "image_id": null removes the image.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var req updatePostRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	patch := service.PostPatch{
		Title:    req.Title,
		Body:     req.Body,
		ImageSet: req.ImageID.Set,
		ImageID:  req.ImageID.Value,
	}
	if req.Tags.Set {
		tags := []string{}
		if req.Tags.Value != nil {
			tags = *req.Tags.Value
		}
		patch.Tags = &tags
	}

	post, err := s.posts.UpdatePost(c.UserContext(), middleware.CallerID(c), id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.posts.DeletePost(c.UserContext(), middleware.CallerID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PublishPost handles POST /api/posts/:id/publish
func (s *Server) PublishPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.posts.PublishPost(c.UserContext(), middleware.CallerID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// CreateDraft handles POST /api/drafts
func (s *Server) CreateDraft(c *fiber.Ctx) error {
	post, err := s.posts.CreateDraft(c.UserContext(), middleware.CallerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// ListMyDrafts handles GET /api/drafts
func (s *Server) ListMyDrafts(c *fiber.Ctx) error {
	ids, err := s.posts.ListMyDrafts(c.UserContext(), middleware.CallerID(c))
	if err != nil {
		return respondError(c, err)
	}
	if ids == nil {
		ids = []uint{}
	}
	return c.JSON(fiber.Map{"ids": ids})
}

// ListTags handles GET /api/tags?prefix=&limit= for autocomplete.
func (s *Server) ListTags(c *fiber.Ctx) error {
	tags, err := s.tags.List(c.UserContext(), c.Query("prefix"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tags)
}
