package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"minifeed/internal/models"
	"minifeed/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	passwordHashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type fixture struct {
	store *repository.MemoryStore
	users *UserService
	posts *PostService
	likes *LikeService
	auth  *AuthService
}

func newFixture(t *testing.T, notifier LikeNotifier, flags string) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	return &fixture{
		store: store,
		users: NewUserService(store.Users()),
		posts: NewPostService(store.Posts(), store.Users(), store.Likes()),
		likes: NewLikeService(store.Likes(), store.Posts(), store.Users(), notifier, newFlags(flags)),
		auth:  NewAuthService(store.Users(), "test-secret-that-is-long-enough-123", 30*time.Minute),
	}
}

func (f *fixture) register(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), RegisterInput{
		Username: name,
		Email:    name + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) post(t *testing.T, author *models.User, title string) *models.PostResponse {
	t.Helper()
	p, err := f.posts.Create(context.Background(), CreatePostInput{AuthorID: author.ID, Title: title, Content: "content"})
	require.NoError(t, err)
	return p
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// likeRepoStub is a stub for repository.LikeRepository.
type likeRepoStub struct {
	repository.LikeRepository
	likeFn         func(context.Context, uint, uint) error
	totalFn        func(context.Context) (int64, error)
	countsByPostFn func(context.Context) ([]models.PostLikes, error)
}

func (s *likeRepoStub) Like(ctx context.Context, postID, userID uint) error {
	return s.likeFn(ctx, postID, userID)
}
func (s *likeRepoStub) Total(ctx context.Context) (int64, error) {
	return s.totalFn(ctx)
}
func (s *likeRepoStub) CountsByPost(ctx context.Context) ([]models.PostLikes, error) {
	return s.countsByPostFn(ctx)
}
