package server

import (
	"minifeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// likeRequest names the post to like or unlike. UserID is optional and, when present,
// must match the authenticated user.
type likeRequest struct {
	PostID uint  `json:"post_id"`
	UserID *uint `json:"user_id,omitempty"`
}

// parseLikeRequest writes the error response itself and returns errResponseWritten on failure.
func (s *Server) parseLikeRequest(c *fiber.Ctx, action string) (*likeRequest, error) {
	var req likeRequest
	if err := parseBody(c, &req); err != nil {
		return nil, err
	}
	if req.PostID == 0 {
		_ = models.RespondWithError(c, fiber.StatusUnprocessableEntity,
			models.NewValidationError("post_id is required"))
		return nil, errResponseWritten
	}
	if req.UserID != nil && *req.UserID != currentUserID(c) {
		_ = models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Not authorized to "+action+" on behalf of another user"))
		return nil, errResponseWritten
	}
	return &req, nil
}

// LikePost handles POST /likes/
// @Summary Like a post
// @Tags likes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body likeRequest true "Post to like"
// @Success 201 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /likes/ [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	req, err := s.parseLikeRequest(c, "like")
	if err != nil {
		return nil
	}

	if err := s.likeService.Like(c.UserContext(), req.PostID, currentUserID(c)); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Post liked successfully"})
}

// UnlikePost handles DELETE /likes/
// @Summary Remove a like
// @Tags likes
// @Accept json
// @Security BearerAuth
// @Param request body likeRequest true "Post to unlike"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /likes/ [delete]
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	req, err := s.parseLikeRequest(c, "unlike")
	if err != nil {
		return nil
	}

	if err := s.likeService.Unlike(c.UserContext(), req.PostID, currentUserID(c)); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetPostLikeCount handles GET /likes/posts/:id/like_count
// @Summary Like count of a post
// @Tags likes
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{post_id=int,likes_count=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /likes/posts/{id}/like_count [get]
func (s *Server) GetPostLikeCount(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.postExists(c, postID); err != nil {
		return nil
	}

	count, err := s.likeService.CountForPost(c.UserContext(), postID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"post_id": postID, "likes_count": count})
}

// IsPostLikedBy handles GET /likes/posts/:id/is_liked_by/:userId
// @Summary Whether a user likes a post
// @Tags likes
// @Produce json
// @Param id path int true "Post ID"
// @Param userId path int true "User ID"
// @Success 200 {object} object{post_id=int,user_id=int,is_liked=bool}
// @Failure 404 {object} models.ErrorResponse
// @Router /likes/posts/{id}/is_liked_by/{userId} [get]
func (s *Server) IsPostLikedBy(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	if _, err := s.postExists(c, postID); err != nil {
		return nil
	}

	liked, err := s.likeService.HasLiked(c.UserContext(), postID, userID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"post_id": postID, "user_id": userID, "is_liked": liked})
}

// ResetPostLikes handles DELETE /likes/posts/:id. Only the post's author or an admin may
// clear its likes.
// @Summary Remove every like of a post
// @Tags likes
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /likes/posts/{id} [delete]
func (s *Server) ResetPostLikes(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postExists(c, postID)
	if err != nil {
		return nil
	}

	user := currentUser(c)
	if user == nil || (post.UserID != user.ID && !user.IsAdmin) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Not authorized to reset likes for this post"))
	}

	if err := s.likeService.ResetForPost(c.UserContext(), postID); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// userExists writes a 404 and returns errResponseWritten when the user is missing.
func (s *Server) userExists(c *fiber.Ctx, userID uint) error {
	if _, err := s.userService.Get(c.UserContext(), userID); err != nil {
		_ = s.respondServiceError(c, err)
		return errResponseWritten
	}
	return nil
}

// GetLikedPosts handles GET /likes/users/:id/liked_posts
// @Summary Posts a user likes
// @Tags likes
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{user_id=int,liked_posts=[]int}
// @Failure 404 {object} models.ErrorResponse
// @Router /likes/users/{id}/liked_posts [get]
func (s *Server) GetLikedPosts(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userExists(c, userID); err != nil {
		return nil
	}

	ids, err := s.likeService.PostsLikedBy(c.UserContext(), userID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"user_id": userID, "liked_posts": ids})
}

// GetTotalLikesReceived handles GET /likes/users/:id/total_likes
// @Summary Likes received on a user's posts
// @Tags likes
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{user_id=int,total_likes=int}
// @Router /likes/users/{id}/total_likes [get]
func (s *Server) GetTotalLikesReceived(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	total, err := s.likeService.TotalReceived(c.UserContext(), userID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"user_id": userID, "total_likes": total})
}

// ResetAuthorLikes handles DELETE /likes/users/:id: clears the likes on every post of the
// user. Allowed for the user themself or an admin.
// @Summary Remove likes on every post of a user
// @Tags likes
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /likes/users/{id} [delete]
func (s *Server) ResetAuthorLikes(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user := currentUser(c)
	if user == nil || (user.ID != userID && !user.IsAdmin) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Not authorized to reset likes for this user"))
	}

	if err := s.likeService.ResetForAuthor(c.UserContext(), userID); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ResetAllLikes handles DELETE /likes/all. Admin only.
// @Summary Remove every like
// @Tags likes
// @Security BearerAuth
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /likes/all [delete]
func (s *Server) ResetAllLikes(c *fiber.Ctx) error {
	if err := s.likeService.ResetAll(c.UserContext()); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetLikesSummary handles GET /likes/summary
// @Summary Like count for every post
// @Tags likes
// @Produce json
// @Success 200 {object} object{likes_summary=map[string]int}
// @Router /likes/summary [get]
func (s *Server) GetLikesSummary(c *fiber.Ctx) error {
	summary, err := s.likeService.Summary(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"likes_summary": summary})
}

// GetLikeStats handles GET /likes/stats
// @Summary Aggregate like statistics
// @Tags likes
// @Produce json
// @Success 200 {object} service.LikeStats
// @Router /likes/stats [get]
func (s *Server) GetLikeStats(c *fiber.Ctx) error {
	stats, err := s.likeService.Stats(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(stats)
}

// GetMostLikedPosts handles GET /likes/posts/most_liked
// @Summary Posts with the highest like count
// @Tags likes
// @Produce json
// @Success 200 {object} object{most_liked_posts=[]models.PostLikes}
// @Router /likes/posts/most_liked [get]
func (s *Server) GetMostLikedPosts(c *fiber.Ctx) error {
	rows, err := s.likeService.MostLiked(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"most_liked_posts": rows})
}

// GetLeastLikedPosts handles GET /likes/posts/least_liked
// @Summary Posts with the lowest like count
// @Tags likes
// @Produce json
// @Success 200 {object} object{least_liked_posts=[]models.PostLikes}
// @Router /likes/posts/least_liked [get]
func (s *Server) GetLeastLikedPosts(c *fiber.Ctx) error {
	rows, err := s.likeService.LeastLiked(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"least_liked_posts": rows})
}

// GetAverageLikes handles GET /likes/posts/average_likes
// @Summary Average likes per post
// @Tags likes
// @Produce json
// @Success 200 {object} object{average_likes=number}
// @Router /likes/posts/average_likes [get]
func (s *Server) GetAverageLikes(c *fiber.Ctx) error {
	avg, err := s.likeService.AverageLikes(c.UserContext())
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"average_likes": avg})
}
