package server

import (
	"bucketlist/internal/models"
	"bucketlist/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/profile
// @Summary Get the caller's profile
// @Description Returns the profile, creating it with defaults on first access
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	details, err := s.profileService.Get(c.UserContext(), viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.presentProfile(c, details))
}

// UpdateProfile handles PUT and PATCH /api/profile
// @Summary Update the caller's profile
// @Description PUT requires location and bio; PATCH accepts any subset. Identity fields and counters are read-only.
// @Tags profile
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param location formData string false "Location"
// @Param bio formData string false "Bio"
// @Param profile_picture formData file false "Profile picture"
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /profile [put]
// @Router /profile [patch]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	form, err := parseRequestForm(c)
	if err != nil {
		return respondError(c, err)
	}

	in := service.UpdateProfileInput{
		UserID:   viewerID(c),
		Partial:  c.Method() == fiber.MethodPatch,
		Location: form.String("location"),
		Bio:      form.String("bio"),
	}

	fh, _, err := form.File("profile_picture")
	if err != nil {
		return respondError(c, err)
	}
	if fh != nil {
		f, err := fh.Open()
		if err != nil {
			return respondError(c, models.NewInternalError(err))
		}
		defer f.Close()
		in.ProfilePicture = f
	}

	details, err := s.profileService.Update(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.presentProfile(c, details))
}

// GetProfileStats handles GET /api/profile/stats
// @Summary Bucket counters of the caller
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProfileStatsResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /profile/stats [get]
func (s *Server) GetProfileStats(c *fiber.Ctx) error {
	p, err := s.profileService.Stats(c.UserContext(), viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ProfileStatsResponse{
		TotalBuckets:    p.TotalBuckets,
		CompleteBuckets: p.CompleteBuckets,
		ActiveBuckets:   p.ActiveBuckets,
	})
}
