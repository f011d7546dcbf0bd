package server

import (
	"strings"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateProfileRequest struct {
	Biography      *string            `json:"biography" validate:"omitempty,max=5000"`
	PictureImageID optionalJSON[uint] `json:"picture_image_id"`
}

// GetProfile handles GET /api/profiles/:id
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	profile, err := s.profiles.GetProfile(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// GetProfileByUsername handles GET /api/profiles/by-username/:username
func (s *Server) GetProfileByUsername(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	if username == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid username"))
	}

	profile, err := s.profiles.GetProfileByUsername(c.UserContext(), username)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// GetMyProfile handles GET /api/profiles/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.profiles.GetMyProfile(c.UserContext(), middleware.CallerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/profiles/me. "picture_image_id": null
// removes the picture.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	patch := service.ProfilePatch{Biography: req.Biography}
	if req.PictureImageID.Set {
		if req.PictureImageID.Value == nil {
			patch.ClearPicture = true
		} else {
			patch.PictureImageID = req.PictureImageID.Value
		}
	}

	profile, err := s.profiles.UpdateMyProfile(c.UserContext(), middleware.CallerID(c), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}
