package server

import (
	"strings"

	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCurrentUser handles GET /api/user/
// @Summary Get current user
// @Tags user
// @Produce json
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /user/ [get]
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	user, err := s.userService.GetUserByID(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(user)
}

// GetUserByUsername handles GET /api/user/:username
// @Summary Get a user profile by username
// @Tags user
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /user/{username} [get]
func (s *Server) GetUserByUsername(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	if username == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username is required"))
	}

	user, err := s.userService.GetUserByUsername(c.UserContext(), username)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(user)
}

// GetFeatureFlags handles GET /api/user/flags
// @Summary Evaluated feature flags for the caller
// @Tags user
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /user/flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	return c.JSON(s.flags.Snapshot(userID))
}

// UpdateProfile handles POST /api/user/update
// @Summary Update the caller's profile
// @Description Only firstname, lastname and bio can be changed
// @Tags user
// @Accept json
// @Produce json
// @Param request body object{firstname=string,lastname=string,bio=string} true "Profile update"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /user/update [post]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
		Bio       string `json:"bio"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:    userID,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Bio:       req.Bio,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(user)
}
