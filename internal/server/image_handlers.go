package server

import (
	"io"
	"log/slog"

	"quill/internal/middleware"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UploadImage handles POST /api/images. The picture is taken from the
// "image" multipart field when present, otherwise from the raw body.
func (s *Server) UploadImage(c *fiber.Ctx) error {
	content := c.Body()
	if file, err := c.FormFile("image"); err == nil {
		src, err := file.Open()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
		}
		defer func() { _ = src.Close() }()

		content, err = io.ReadAll(src)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
		}
	}

	img, err := s.images.UploadImage(c.UserContext(), middleware.CallerID(c), content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(img)
}

// GetImage handles GET /api/images/:id and serves the stored bytes.
func (s *Server) GetImage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx := c.UserContext()
	img, rc, err := s.images.OpenImage(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			middleware.Logger.WarnContext(ctx, "failed to close image reader", slog.String("error", cerr.Error()))
		}
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	c.Set(fiber.HeaderContentType, img.ContentType())
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	// SVG may carry script; never let it run in our origin.
	c.Set(fiber.HeaderContentSecurityPolicy, "default-src 'none'; style-src 'unsafe-inline'")
	return c.Send(data)
}
