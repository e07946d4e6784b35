package repository

import (
	"context"

	"minifeed/internal/cache"
	"minifeed/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository stores the (post, user) like relation. Each pair exists at most once.
type LikeRepository interface {
	// Like inserts the pair. NOT_FOUND when the post or user is missing, CONFLICT when the
	// pair exists.
	Like(ctx context.Context, postID, userID uint) error
	// Unlike removes the pair. NOT_FOUND when it does not exist.
	Unlike(ctx context.Context, postID, userID uint) error
	Exists(ctx context.Context, postID, userID uint) (bool, error)
	// CountForPost may be served from Redis. Writes invalidate it after commit; a Redis
	// error on invalidation leaves it stale for at most cache.PostLikesTTL.
	CountForPost(ctx context.Context, postID uint) (int64, error)
	// CountsForPosts returns like counts keyed by post id; posts without likes are omitted.
	CountsForPosts(ctx context.Context, postIDs []uint) (map[uint]int64, error)
	// PostIDsLikedBy returns the posts a user likes in ascending id order.
	PostIDsLikedBy(ctx context.Context, userID uint) ([]uint, error)
	// CountsByPost returns one row per existing post, zero counts included, ordered by post id.
	CountsByPost(ctx context.Context) ([]models.PostLikes, error)
	Total(ctx context.Context) (int64, error)
	ReceivedByAuthor(ctx context.Context, userID uint) (int64, error)
	ResetForPost(ctx context.Context, postID uint) error
	ResetForAuthor(ctx context.Context, userID uint) error
	ResetAll(ctx context.Context) error
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a gorm-backed like repository.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Like(ctx context.Context, postID, userID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var posts int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&posts).Error; err != nil {
			return models.NewInternalError(err)
		}
		if posts == 0 {
			return models.NewNotFoundError("Post", postID)
		}
		var users int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&users).Error; err != nil {
			return models.NewInternalError(err)
		}
		if users == 0 {
			return models.NewNotFoundError("User", userID)
		}

		// ON CONFLICT DO NOTHING keeps concurrent likes of the same pair from erroring;
		// the loser sees zero affected rows.
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Omit("Post", "User").Create(&models.Like{PostID: postID, UserID: userID})
		if res.Error != nil {
			if isUniqueConstraintError(res.Error) {
				return models.NewConflictError("User has already liked this post")
			}
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewConflictError("User has already liked this post")
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidatePostLikes(ctx, postID)
	return nil
}

func (r *likeRepository) Unlike(ctx context.Context, postID, userID uint) error {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Like{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundMessage("Like not found")
	}
	cache.InvalidatePostLikes(ctx, postID)
	return nil
}

func (r *likeRepository) Exists(ctx context.Context, postID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *likeRepository) CountForPost(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := cache.Aside(ctx, cache.PostLikesKey(postID), &count, cache.PostLikesTTL, func() error {
		return r.db.WithContext(ctx).
			Model(&models.Like{}).
			Where("post_id = ?", postID).
			Count(&count).Error
	})
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *likeRepository) CountsForPosts(ctx context.Context, postIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var rows []models.PostLikes
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Select("post_id, COUNT(*) AS likes_count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		out[row.PostID] = row.LikesCount
	}
	return out, nil
}

func (r *likeRepository) PostIDsLikedBy(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ?", userID).
		Order("post_id ASC").
		Pluck("post_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *likeRepository) CountsByPost(ctx context.Context) ([]models.PostLikes, error) {
	rows := []models.PostLikes{}
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select("posts.id AS post_id, COUNT(likes.id) AS likes_count").
		Joins("LEFT JOIN likes ON likes.post_id = posts.id").
		Group("posts.id").
		Order("posts.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *likeRepository) Total(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *likeRepository) ReceivedByAuthor(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Joins("JOIN posts ON posts.id = likes.post_id").
		Where("posts.user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *likeRepository) ResetForPost(ctx context.Context, postID uint) error {
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Like{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePostLikes(ctx, postID)
	return nil
}

func (r *likeRepository) ResetForAuthor(ctx context.Context, userID uint) error {
	var owned []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("user_id = ?", userID).Pluck("id", &owned).Error; err != nil {
			return models.NewInternalError(err)
		}
		if len(owned) == 0 {
			return nil
		}
		if err := tx.Where("post_id IN ?", owned).Delete(&models.Like{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidatePostLikes(ctx, owned...)
	return nil
}

func (r *likeRepository) ResetAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Like{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateAllPostLikes(ctx)
	return nil
}
