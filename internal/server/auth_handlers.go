package server

import (
	"strings"

	"minifeed/internal/models"
	"minifeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login handles POST /users/login
// @Summary Log in
// @Description Exchange username and password for a bearer token. Accepts a JSON or form body.
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} tokenResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusUnprocessableEntity,
			models.NewValidationError("Username and password are required"))
	}

	user, err := s.authService.Authenticate(c.UserContext(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return s.respondServiceError(c, err)
	}

	token, err := s.authService.IssueToken(user)
	if err != nil {
		return s.respondServiceError(c, err)
	}

	return c.JSON(tokenResponse{AccessToken: token, TokenType: service.TokenType})
}

// GetMe handles GET /users/me
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Not authenticated"))
	}
	return c.JSON(models.ToUserResponse(user))
}
