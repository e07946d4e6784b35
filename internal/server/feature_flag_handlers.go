package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags returns configured feature flags and their state for the current user.
// @Summary Feature flags
// @Tags flags
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Failure 401 {object} models.ErrorResponse
// @Router /feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(currentUserID(c)),
	})
}
