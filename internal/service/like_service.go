// Package service holds the application's business logic on top of the repositories.
package service

import (
	"context"
	"log/slog"

	"minifeed/internal/featureflags"
	"minifeed/internal/middleware"
	"minifeed/internal/models"
	"minifeed/internal/notifications"
	"minifeed/internal/observability"
	"minifeed/internal/repository"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

// LikeNotifier publishes like events to a post's author.
type LikeNotifier interface {
	PublishLikeEvent(ctx context.Context, authorID uint, ev notifications.LikeEvent) error
}

// LikeStats is the aggregate view over every post.
type LikeStats struct {
	TotalLikes   int64              `json:"total_likes"`
	TotalPosts   int                `json:"total_posts"`
	AverageLikes float64            `json:"average_likes"`
	MostLiked    []models.PostLikes `json:"most_liked_posts"`
	LeastLiked   []models.PostLikes `json:"least_liked_posts"`
}

// LikeService manages the like relation between users and posts. A (post, user) pair is
// either liked or not; there is no counter to drift.
type LikeService struct {
	likes    repository.LikeRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	notifier LikeNotifier
	flags    *featureflags.Manager
}

func NewLikeService(
	likes repository.LikeRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	notifier LikeNotifier,
	flags *featureflags.Manager,
) *LikeService {
	return &LikeService{
		likes:    likes,
		posts:    posts,
		users:    users,
		notifier: notifier,
		flags:    flags,
	}
}

func pairAttrs(postID, userID uint) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("post.id", int64(postID)),
		attribute.Int64("user.id", int64(userID)),
	}
}

// Like records that userID likes postID. NOT_FOUND if the post does not exist, CONFLICT
// if the pair is already liked.
func (s *LikeService) Like(ctx context.Context, postID, userID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "LikeService.Like", pairAttrs(postID, userID)...)
	defer func() { observability.EndSpan(span, err) }()

	err = s.likes.Like(ctx, postID, userID)
	observability.RecordLikeEvent("like", err)
	if err != nil {
		return err
	}

	s.publishLike(ctx, postID, userID)
	return nil
}

// publishLike fans the like out to the post author. Failures never affect the like.
func (s *LikeService) publishLike(ctx context.Context, postID, likerID uint) {
	if s.notifier == nil || !s.flags.On(featureflags.LikeEvents) {
		return
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "like event skipped: post lookup failed",
			slog.Uint64("post_id", uint64(postID)), slog.String("error", err.Error()))
		return
	}
	if post.UserID == likerID {
		return
	}

	ev := notifications.LikeEvent{PostID: postID, LikerID: likerID}
	if liker, err := s.users.GetByID(ctx, likerID); err == nil {
		ev.LikerName = liker.Username
	}
	if n, err := s.likes.CountForPost(ctx, postID); err == nil {
		ev.LikesCount = n
	}

	if err := s.notifier.PublishLikeEvent(ctx, post.UserID, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish like event",
			slog.Uint64("post_id", uint64(postID)), slog.String("error", err.Error()))
	}
}

// Unlike removes the like. NOT_FOUND if the pair is not liked.
func (s *LikeService) Unlike(ctx context.Context, postID, userID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "LikeService.Unlike", pairAttrs(postID, userID)...)
	defer func() { observability.EndSpan(span, err) }()

	err = s.likes.Unlike(ctx, postID, userID)
	observability.RecordLikeEvent("unlike", err)
	return err
}

// HasLiked reports whether userID likes postID. Unknown ids yield false.
func (s *LikeService) HasLiked(ctx context.Context, postID, userID uint) (bool, error) {
	return s.likes.Exists(ctx, postID, userID)
}

// CountForPost returns the number of likes on postID, 0 for an unknown post.
func (s *LikeService) CountForPost(ctx context.Context, postID uint) (int64, error) {
	return s.likes.CountForPost(ctx, postID)
}

// PostsLikedBy returns the ids of every post userID likes, ascending.
func (s *LikeService) PostsLikedBy(ctx context.Context, userID uint) ([]uint, error) {
	return s.likes.PostIDsLikedBy(ctx, userID)
}

// ResetForPost clears every like on postID. Idempotent.
func (s *LikeService) ResetForPost(ctx context.Context, postID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "LikeService.ResetForPost", attribute.Int64("post.id", int64(postID)))
	defer func() { observability.EndSpan(span, err) }()

	err = s.likes.ResetForPost(ctx, postID)
	observability.RecordLikeEvent("reset_post", err)
	return err
}

// ResetForAuthor clears every like on the posts authored by userID.
func (s *LikeService) ResetForAuthor(ctx context.Context, userID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "LikeService.ResetForAuthor", attribute.Int64("user.id", int64(userID)))
	defer func() { observability.EndSpan(span, err) }()

	if _, err = s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	err = s.likes.ResetForAuthor(ctx, userID)
	observability.RecordLikeEvent("reset_author", err)
	return err
}

// ResetAll clears the whole like relation. Idempotent.
func (s *LikeService) ResetAll(ctx context.Context) (err error) {
	ctx, span := observability.StartSpan(ctx, "LikeService.ResetAll")
	defer func() { observability.EndSpan(span, err) }()

	err = s.likes.ResetAll(ctx)
	observability.RecordLikeEvent("reset_all", err)
	if err == nil {
		middleware.Logger.InfoContext(ctx, "all likes reset")
	}
	return err
}

// TotalReceived returns the likes received across every post authored by userID.
func (s *LikeService) TotalReceived(ctx context.Context, userID uint) (int64, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return 0, err
	}
	return s.likes.ReceivedByAuthor(ctx, userID)
}

// Summary returns the like count of every post, zero counts included.
func (s *LikeService) Summary(ctx context.Context) (map[uint]int64, error) {
	rows, err := s.likes.CountsByPost(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.PostID] = r.LikesCount
	}
	return out, nil
}

// MostLiked returns every post tied for the highest like count.
func (s *LikeService) MostLiked(ctx context.Context) ([]models.PostLikes, error) {
	rows, err := s.likes.CountsByPost(ctx)
	if err != nil {
		return nil, err
	}
	return extremes(rows, func(a, b int64) bool { return a > b }), nil
}

// LeastLiked returns every post tied for the lowest like count.
func (s *LikeService) LeastLiked(ctx context.Context) ([]models.PostLikes, error) {
	rows, err := s.likes.CountsByPost(ctx)
	if err != nil {
		return nil, err
	}
	return extremes(rows, func(a, b int64) bool { return a < b }), nil
}

// AverageLikes returns total likes divided by the number of posts, 0 without posts.
func (s *LikeService) AverageLikes(ctx context.Context) (float64, error) {
	rows, err := s.likes.CountsByPost(ctx)
	if err != nil {
		return 0, err
	}
	return average(rows), nil
}

// Stats computes every aggregate at once, querying totals and per-post counts concurrently.
func (s *LikeService) Stats(ctx context.Context) (*LikeStats, error) {
	ctx, span := observability.StartSpan(ctx, "LikeService.Stats")

	var (
		total int64
		rows  []models.PostLikes
	)
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		n, err := s.likes.Total(ctx)
		total = n
		return err
	})
	p.Go(func(ctx context.Context) error {
		r, err := s.likes.CountsByPost(ctx)
		rows = r
		return err
	})
	err := p.Wait()
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	return &LikeStats{
		TotalLikes:   total,
		TotalPosts:   len(rows),
		AverageLikes: average(rows),
		MostLiked:    extremes(rows, func(a, b int64) bool { return a > b }),
		LeastLiked:   extremes(rows, func(a, b int64) bool { return a < b }),
	}, nil
}

// extremes returns the rows whose count is not beaten by any other row under better.
func extremes(rows []models.PostLikes, better func(a, b int64) bool) []models.PostLikes {
	out := []models.PostLikes{}
	for _, r := range rows {
		switch {
		case len(out) == 0 || r.LikesCount == out[0].LikesCount:
			out = append(out, r)
		case better(r.LikesCount, out[0].LikesCount):
			out = append(out[:0], r)
		}
	}
	return out
}

func average(rows []models.PostLikes) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum int64
	for _, r := range rows {
		sum += r.LikesCount
	}
	return float64(sum) / float64(len(rows))
}
