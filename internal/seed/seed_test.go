package seed

import (
	"context"
	"testing"
	"time"

	"minifeed/internal/featureflags"
	"minifeed/internal/repository"
	"minifeed/internal/service"
	"minifeed/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemorySeeder() (*Seeder, *service.UserService, *service.LikeService) {
	store := repository.NewMemoryStore()
	users := service.NewUserService(store.Users())
	posts := service.NewPostService(store.Posts(), store.Users(), store.Likes())
	likes := service.NewLikeService(store.Likes(), store.Posts(), store.Users(), nil, featureflags.NewManager(""))
	return NewSeeder(users, posts, likes), users, likes
}

func TestLoadPlan(t *testing.T) {
	plan, err := LoadPlan("testdata/plan.yml")
	require.NoError(t, err)

	assert.Equal(t, 4, plan.Users)
	assert.Equal(t, 2, plan.PostsPerUser)
	assert.Equal(t, 1.0, plan.LikeProbability)
	assert.Equal(t, int64(7), plan.RandomSeed)
	require.Len(t, plan.FixedUsers, 1)
	assert.True(t, plan.FixedUsers[0].Admin)
}

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan([]byte("users: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, plan.Users)
	assert.Equal(t, DefaultPlan().Password, plan.Password)

	tests := map[string]string{
		"negative users":      "users: -1\n",
		"probability above 1": "like_probability: 1.5\n",
		"empty password":      "password: \"\"\n",
		"duplicate fixed":     "fixed_users:\n  - {username: a, email: a@example.com}\n  - {username: a, email: b@example.com}\n",
		"malformed":           "users: [\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePlan([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestFactory_ProducesValidInput(t *testing.T) {
	f := NewFactory(42)
	for i := 0; i < 50; i++ {
		u := f.User(i, "password123")
		assert.NoError(t, validation.ValidateUsername(u.Username), u.Username)
		assert.NoError(t, validation.ValidateEmail(u.Email), u.Email)
		assert.NoError(t, validation.ValidateFullName(u.FullName))

		p := f.Post(1)
		assert.NoError(t, validation.ValidatePost(p.Title, p.Content), p.Title)
	}
}

func TestFactory_SeedIsReproducible(t *testing.T) {
	a := NewFactory(99).User(0, "password123")
	b := NewFactory(99).User(0, "password123")
	assert.Equal(t, a.Username, b.Username)
	assert.Equal(t, a.Email, b.Email)
}

func TestSeeder_Run(t *testing.T) {
	plan, err := LoadPlan("testdata/plan.yml")
	require.NoError(t, err)

	seeder, users, likes := newMemorySeeder()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := seeder.Run(ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Users)
	assert.Equal(t, 10, report.Posts)
	// Every user likes every post they did not write.
	assert.Equal(t, 10*4, report.Likes)
	assert.Equal(t, []string{"admin"}, report.Admins)

	all, err := users.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.True(t, all[0].IsAdmin)

	stats, err := likes.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(40), stats.TotalLikes)
	assert.Equal(t, 4.0, stats.AverageLikes)

	t.Run("rerun skips existing accounts", func(t *testing.T) {
		again, err := seeder.Run(ctx, plan)
		require.NoError(t, err)
		assert.Zero(t, again.Users)
		assert.Zero(t, again.Posts)
		assert.Zero(t, again.Likes)
	})
}

func TestSeeder_NoLikes(t *testing.T) {
	seeder, _, likes := newMemorySeeder()
	plan := DefaultPlan()
	plan.Users = 3
	plan.PostsPerUser = 1
	plan.LikeProbability = 0
	plan.RandomSeed = 1

	report, err := seeder.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Posts)
	assert.Zero(t, report.Likes)

	total, err := likes.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total.TotalLikes)
}
