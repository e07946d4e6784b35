package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Codes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  *AppError
		code string
	}{
		{NewNotFoundError("Post", 7), CodeNotFound},
		{NewNotFoundMessage("Like not found"), CodeNotFound},
		{NewConflictError("dup"), CodeConflict},
		{NewForbiddenError("nope"), CodeForbidden},
		{NewUnauthorizedError("who"), CodeUnauthorized},
		{NewValidationError("bad"), CodeValidation},
		{NewInternalError(errors.New("db down")), CodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.err.Code)
		assert.True(t, IsCode(fmt.Errorf("wrapped: %w", tt.err), tt.code))
	}

	assert.Equal(t, "Post with ID 7 not found", NewNotFoundError("Post", 7).Error())
	assert.Equal(t, "", ErrorCode(errors.New("plain")))
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewInternalError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantError string
		wantCode  string
	}{
		{"app error", NewConflictError("User has already liked this post"), "User has already liked this post", CodeConflict},
		{"internal error hides cause", NewInternalError(errors.New("pq: secret detail")), "Internal server error", CodeInternal},
		{"plain error hidden", errors.New("raw driver failure"), "Internal server error", CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return RespondWithError(c, http.StatusTeapot, tt.err)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusTeapot, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			var out ErrorResponse
			require.NoError(t, json.Unmarshal(body, &out))
			assert.Equal(t, tt.wantError, out.Error)
			assert.Equal(t, tt.wantCode, out.Code)
			assert.Empty(t, out.Details)
			assert.NotContains(t, string(body), "secret")
		})
	}
}

func TestProjections(t *testing.T) {
	name := "Alice A."
	u := &User{ID: 1, Username: "alice", Email: "a@example.com", FullName: &name, PasswordHash: "hash"}
	resp := ToUserResponse(u)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hash")
	assert.Equal(t, "alice", resp.Username)

	p := &Post{ID: 3, UserID: 1, User: *u, Title: "t", Content: "c", Published: true}
	pr := ToPostResponse(p, 4)
	assert.Equal(t, "alice", pr.Username)
	assert.Equal(t, int64(4), pr.LikesCount)

	assert.Len(t, ToUserResponses([]User{*u, *u}), 2)
}
