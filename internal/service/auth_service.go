package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"minifeed/internal/models"
	"minifeed/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenIssuer   = "minifeed-api"
	TokenAudience = "minifeed-client"
	TokenType     = "bearer"
)

const invalidCredentials = "Incorrect username or password"

// AccessClaims are the claims carried by an access token.
type AccessClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users  repository.UserRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(users repository.UserRepository, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// equalizeTiming burns a bcrypt comparison so unknown usernames cost the same as wrong passwords.
func equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("minifeed-timing-guard"), passwordHashCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// Authenticate verifies credentials. Unknown users and wrong passwords fail identically.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		equalizeTiming(password)
		return nil, models.NewUnauthorizedError(invalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError(invalidCredentials)
	}
	return user, nil
}

// IssueToken signs an HS256 access token for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	if len(s.secret) == 0 {
		return "", models.NewInternalError(errors.New("JWT secret not configured"))
	}

	now := s.now()
	claims := AccessClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return signed, nil
}

// ParseToken validates signature, algorithm, issuer, audience and expiry and returns the
// subject's user id.
func (s *AuthService) ParseToken(tokenString string) (uint, error) {
	var claims AccessClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, models.NewUnauthorizedError("Could not validate credentials")
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, models.NewUnauthorizedError("Could not validate credentials")
	}
	return uint(id), nil
}

// ResolveCurrentUser maps a token to the user it was issued for.
func (s *AuthService) ResolveCurrentUser(ctx context.Context, tokenString string) (*models.User, error) {
	id, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("Could not validate credentials")
		}
		return nil, err
	}
	return user, nil
}
