package server

import (
	"minifeed/internal/models"
	"minifeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postRequest is the body of both create and update. Published defaults to true.
type postRequest struct {
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	ImagePath *string `json:"image_path"`
	Published *bool   `json:"published"`
}

// CreatePost handles POST /posts/
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body postRequest true "Post"
// @Success 201 {object} models.PostResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /posts/ [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		AuthorID:  currentUserID(c),
		Title:     req.Title,
		Content:   req.Content,
		ImagePath: req.ImagePath,
		Published: req.Published,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /posts/
// @Summary List posts
// @Tags posts
// @Produce json
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.PostResponse
// @Router /posts/ [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c)
	posts, err := s.postService.ListAll(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetUserPosts handles GET /posts/user/:username
// @Summary List a user's posts
// @Tags posts
// @Produce json
// @Param username path string true "Username"
// @Success 200 {array} models.PostResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/user/{username} [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListByAuthor(c.UserContext(), c.Params("username"))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.PostResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.Get(c.UserContext(), id)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PUT /posts/:id
// @Summary Update a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body postRequest true "Post"
// @Success 200 {object} models.PostResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.Update(c.UserContext(), service.UpdatePostInput{
		PostID:    id,
		EditorID:  currentUserID(c),
		Title:     req.Title,
		Content:   req.Content,
		ImagePath: req.ImagePath,
		Published: req.Published,
	})
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /posts/:id
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.Delete(c.UserContext(), id, currentUserID(c)); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// postExists writes a 404 and returns errResponseWritten when the post is missing.
func (s *Server) postExists(c *fiber.Ctx, postID uint) (*models.PostResponse, error) {
	post, err := s.postService.Get(c.UserContext(), postID)
	if err != nil {
		_ = s.respondServiceError(c, err)
		return nil, errResponseWritten
	}
	return post, nil
}
