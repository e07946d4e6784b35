package server

import (
	"minifeed/internal/models"
	"minifeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Username string  `json:"username" form:"username"`
	Email    string  `json:"email" form:"email"`
	FullName *string `json:"full_name" form:"full_name"`
	Password string  `json:"password" form:"password"`
}

// updateUserRequest replaces the profile. Password is optional.
type updateUserRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

// CreateUser handles POST /users/
// @Summary Register a user
// @Tags users
// @Accept json
// @Produce json
// @Param request body registerRequest true "Account"
// @Success 201 {object} models.UserResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /users/ [post]
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		// Taken usernames and emails are reported as a bad registration request.
		if models.IsCode(err, models.CodeConflict) {
			return models.RespondWithError(c, fiber.StatusBadRequest, err)
		}
		return s.respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(models.ToUserResponse(user))
}

// GetUsers handles GET /users/
// @Summary List users
// @Tags users
// @Produce json
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.UserResponse
// @Router /users/ [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	page := parsePagination(c)
	users, err := s.userService.List(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(models.ToUserResponses(users))
}

// GetUser handles GET /users/:id
// @Summary Get a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.UserResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.Get(c.UserContext(), id)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(models.ToUserResponse(user))
}

// UpdateUser handles PUT /users/:id
// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body updateUserRequest true "Profile"
// @Success 200 {object} models.UserResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /users/{id} [put]
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req updateUserRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Update(c.UserContext(), service.UpdateUserInput{
		UserID:   id,
		ActorID:  currentUserID(c),
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(models.ToUserResponse(user))
}

// DeleteUser handles DELETE /users/:id
// @Summary Delete own account
// @Tags users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.userService.Delete(c.UserContext(), id, currentUserID(c)); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
