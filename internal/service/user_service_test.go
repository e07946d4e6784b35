package service

import (
	"context"
	"testing"
	"time"

	"minifeed/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Register(t *testing.T) {
	f := newFixture(t, nil, "")
	ctx := context.Background()
	name := "Alice Liddell"

	u, err := f.users.Register(ctx, RegisterInput{Username: "alice", Email: " Alice@Example.com ", FullName: &name, Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "password123", u.PasswordHash)
	assert.NotEmpty(t, u.PasswordHash)

	tests := []struct {
		name         string
		in           RegisterInput
		expectedCode string
		message      string
	}{
		{"Email taken", RegisterInput{Username: "alice2", Email: "alice@example.com", Password: "password123"}, models.CodeConflict, "Email already registered"},
		{"Username taken", RegisterInput{Username: "alice", Email: "other@example.com", Password: "password123"}, models.CodeConflict, "Username already taken"},
		{"Weak password", RegisterInput{Username: "bob", Email: "bob@example.com", Password: "short"}, models.CodeValidation, ""},
		{"Bad email", RegisterInput{Username: "bob", Email: "bob", Password: "password123"}, models.CodeValidation, ""},
		{"Bad username", RegisterInput{Username: "b", Email: "bob@example.com", Password: "password123"}, models.CodeValidation, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.users.Register(ctx, tt.in)
			assertCode(t, err, tt.expectedCode)
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}
}

func TestUserService_UpdateAndDeleteSelfOnly(t *testing.T) {
	f := newFixture(t, nil, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	p := f.post(t, alice, "post")
	require.NoError(t, f.likes.Like(ctx, p.ID, bob.ID))

	_, err := f.users.Update(ctx, UpdateUserInput{UserID: alice.ID, ActorID: bob.ID, Username: "x", Email: "x@example.com"})
	assertCode(t, err, models.CodeForbidden)

	_, err = f.users.Update(ctx, UpdateUserInput{UserID: alice.ID, ActorID: alice.ID, Username: "alice", Email: "bob@example.com"})
	assertCode(t, err, models.CodeConflict)

	newPass := "newpassword9"
	updated, err := f.users.Update(ctx, UpdateUserInput{UserID: alice.ID, ActorID: alice.ID, Username: "alicia", Email: "alice@example.com", Password: &newPass})
	require.NoError(t, err)
	assert.Equal(t, "alicia", updated.Username)

	_, err = f.auth.Authenticate(ctx, "alicia", newPass)
	require.NoError(t, err)

	assertCode(t, f.users.Delete(ctx, alice.ID, bob.ID), models.CodeForbidden)
	assertCode(t, f.users.Delete(ctx, 999, 999), models.CodeNotFound)
	require.NoError(t, f.users.Delete(ctx, alice.ID, alice.ID))

	_, err = f.posts.Get(ctx, p.ID)
	assertCode(t, err, models.CodeNotFound)
	liked, err := f.likes.PostsLikedBy(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, liked)
}

func TestUserService_SetAdmin(t *testing.T) {
	f := newFixture(t, nil, "")
	ctx := context.Background()
	f.register(t, "alice")

	u, err := f.users.SetAdmin(ctx, "alice", true)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	_, err = f.users.SetAdmin(ctx, "nobody", true)
	assertCode(t, err, models.CodeNotFound)
}

func TestAuthService_Authenticate(t *testing.T) {
	f := newFixture(t, nil, "")
	ctx := context.Background()
	f.register(t, "alice")

	u, err := f.auth.Authenticate(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, wrongPass := f.auth.Authenticate(ctx, "alice", "wrong-password1")
	_, unknownUser := f.auth.Authenticate(ctx, "mallory", "password123")
	assertCode(t, wrongPass, models.CodeUnauthorized)
	assertCode(t, unknownUser, models.CodeUnauthorized)
	assert.Equal(t, wrongPass.Error(), unknownUser.Error(), "failures must be indistinguishable")
}

func TestAuthService_TokenRoundTrip(t *testing.T) {
	f := newFixture(t, nil, "")
	ctx := context.Background()
	alice := f.register(t, "alice")

	token, err := f.auth.IssueToken(alice)
	require.NoError(t, err)

	current, err := f.auth.ResolveCurrentUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, current.ID)

	var claims AccessClaims
	_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
	require.NoError(t, err)
	assert.Equal(t, TokenIssuer, claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{TokenAudience}, claims.Audience)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestAuthService_RejectsBadTokens(t *testing.T) {
	f := newFixture(t, nil, "")
	ctx := context.Background()
	alice := f.register(t, "alice")

	otherSecret := NewAuthService(f.store.Users(), "a-completely-different-secret-value", time.Minute)
	forged, err := otherSecret.IssueToken(alice)
	require.NoError(t, err)

	expiredIssuer := NewAuthService(f.store.Users(), "test-secret-that-is-long-enough-123", time.Minute)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredIssuer.IssueToken(alice)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "iss": TokenIssuer, "aud": TokenAudience})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	valid, err := f.auth.IssueToken(alice)
	require.NoError(t, err)
	require.NoError(t, f.users.Delete(ctx, alice.ID, alice.ID))

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": forged,
		"expired":      expired,
		"alg none":     unsigned,
		"deleted user": valid,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.auth.ResolveCurrentUser(ctx, token)
			assertCode(t, err, models.CodeUnauthorized)
		})
	}
}
