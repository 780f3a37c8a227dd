package server

import (
	"bucketlist/internal/models"
	"bucketlist/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /api/signup
// @Summary User signup
// @Description Register a new account and return a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.SignupInput true "Signup request"
// @Success 201 {object} SignupResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req service.SignupInput
	if err := bindBody(c, &req); err != nil {
		return respondError(c, err)
	}

	result, err := s.authService.Signup(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(SignupResponse{
		User: SignupUser{
			Username:  result.User.Username,
			Email:     result.User.Email,
			FirstName: result.User.FirstName,
			LastName:  result.User.LastName,
		},
		Refresh: result.Tokens.Refresh,
		Access:  result.Tokens.Access,
	})
}

// Login handles POST /api/login
// @Summary User login
// @Description Authenticate with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req service.LoginInput
	if err := bindBody(c, &req); err != nil {
		return respondError(c, err)
	}

	result, err := s.authService.Login(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(LoginResponse{
		Access:   result.Tokens.Access,
		Refresh:  result.Tokens.Refresh,
		Username: result.User.Username,
		UserID:   result.User.ID,
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh" form:"refresh"`
}

// Logout handles POST /api/logout
// @Summary Logout
// @Description Blacklist a refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{refresh=string} true "Refresh token"
// @Success 205 {object} models.DetailResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	var req refreshRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := s.authService.Logout(c.UserContext(), req.Refresh); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusResetContent).JSON(models.DetailResponse{
		Detail: "Successfully logged out.",
	})
}

// RefreshToken handles POST /api/token/refresh
// @Summary Refresh tokens
// @Description Exchange a refresh token for a new pair. The old refresh token is spent.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{refresh=string} true "Refresh token"
// @Success 200 {object} object{access=string,refresh=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /token/refresh [post]
func (s *Server) RefreshToken(c *fiber.Ctx) error {
	var req refreshRequest
	if err := bindBody(c, &req); err != nil {
		return respondError(c, err)
	}

	pair, err := s.authService.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pair)
}

// ChangePassword handles POST /api/password/change
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ChangePasswordInput true "Passwords"
// @Success 200 {object} models.DetailResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /password/change [post]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req service.ChangePasswordInput
	if err := bindBody(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := s.authService.ChangePassword(c.UserContext(), viewerID(c), req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(models.DetailResponse{Detail: "Password updated successfully."})
}
