package server

import (
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"minifeed/internal/middleware"
	"minifeed/internal/models"
	"minifeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination extracts limit and offset query parameters, clamped to the accepted range.
func parsePagination(c *fiber.Ctx) Pagination {
	limit, offset := service.NormalizePage(
		c.QueryInt("limit", service.DefaultPageSize),
		c.QueryInt("offset", 0),
	)
	return Pagination{Limit: limit, Offset: offset}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// parseBody decodes a JSON or form body into dst. On failure it writes a 422 response and
// returns errResponseWritten.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusUnprocessableEntity,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// mapServiceError maps an AppError code onto its HTTP status.
func mapServiceError(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict:
		return fiber.StatusConflict
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeValidation:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError writes err with the status mapServiceError picks for it.
func (s *Server) respondServiceError(c *fiber.Ctx, err error) error {
	status := mapServiceError(err)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
		if models.ErrorCode(err) == "" {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

// currentUser returns the user resolved by AuthRequired, or nil on public routes.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("currentUser").(*models.User)
	return user
}

// currentUserID returns the authenticated user's id, or 0 on public routes.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}
