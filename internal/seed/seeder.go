package seed

import (
	"context"
	"fmt"
	"log/slog"

	"minifeed/internal/middleware"
	"minifeed/internal/models"
	"minifeed/internal/service"
)

// Report counts what a run created.
type Report struct {
	Users  int
	Posts  int
	Likes  int
	Admins []string
}

// Seeder writes generated data through the services so every record passes the same
// validation as API input.
type Seeder struct {
	users *service.UserService
	posts *service.PostService
	likes *service.LikeService
}

func NewSeeder(users *service.UserService, posts *service.PostService, likes *service.LikeService) *Seeder {
	return &Seeder{users: users, posts: posts, likes: likes}
}

// Run applies plan. Accounts that already exist are skipped, so a plan can be re-run
// against a seeded database.
func (s *Seeder) Run(ctx context.Context, plan *Plan) (*Report, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	factory := NewFactory(plan.RandomSeed)
	report := &Report{}
	var created []*models.User

	for _, fu := range plan.FixedUsers {
		in := service.RegisterInput{Username: fu.Username, Email: fu.Email, Password: plan.Password}
		if fu.FullName != "" {
			fullName := fu.FullName
			in.FullName = &fullName
		}
		user, err := s.register(ctx, in)
		if err != nil {
			return report, err
		}
		if user == nil {
			continue
		}
		created = append(created, user)

		if fu.Admin {
			if _, err := s.users.SetAdmin(ctx, fu.Username, true); err != nil {
				return report, fmt.Errorf("promote %s: %w", fu.Username, err)
			}
			report.Admins = append(report.Admins, fu.Username)
		}
	}

	for i := 0; i < plan.Users; i++ {
		user, err := s.register(ctx, factory.User(i, plan.Password))
		if err != nil {
			return report, err
		}
		if user != nil {
			created = append(created, user)
		}
	}
	report.Users = len(created)

	var posts []*models.PostResponse
	for _, author := range created {
		for i := 0; i < plan.PostsPerUser; i++ {
			post, err := s.posts.Create(ctx, factory.Post(author.ID))
			if err != nil {
				return report, fmt.Errorf("create post for %s: %w", author.Username, err)
			}
			posts = append(posts, post)
		}
	}
	report.Posts = len(posts)

	for _, post := range posts {
		for _, user := range created {
			if user.ID == post.UserID || !factory.Chance(plan.LikeProbability) {
				continue
			}
			err := s.likes.Like(ctx, post.ID, user.ID)
			switch {
			case err == nil:
				report.Likes++
			case models.IsCode(err, models.CodeConflict):
			default:
				return report, fmt.Errorf("like post %d: %w", post.ID, err)
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		slog.Int("users", report.Users),
		slog.Int("posts", report.Posts),
		slog.Int("likes", report.Likes))
	return report, nil
}

// register returns (nil, nil) when the username or email is already taken.
func (s *Seeder) register(ctx context.Context, in service.RegisterInput) (*models.User, error) {
	user, err := s.users.Register(ctx, in)
	if err != nil {
		if models.IsCode(err, models.CodeConflict) {
			middleware.Logger.InfoContext(ctx, "seed user exists, skipping", slog.String("username", in.Username))
			return nil, nil
		}
		return nil, fmt.Errorf("register %s: %w", in.Username, err)
	}
	return user, nil
}
