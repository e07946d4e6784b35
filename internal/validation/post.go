package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"minifeed/internal/models"
)

// ValidatePost checks the title and content of a post.
func ValidatePost(title, content string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > models.MaxTitleLength {
		return fmt.Errorf("title must not exceed %d characters", models.MaxTitleLength)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content is required")
	}
	return nil
}
