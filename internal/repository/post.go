package repository

import (
	"context"
	"errors"
	"time"

	"minifeed/internal/cache"
	"minifeed/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations. Returned posts carry
// their author.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListByUserID(ctx context.Context, userID uint) ([]*models.Post, error)
	// Update overwrites the mutable fields (title, content, image path, published).
	Update(ctx context.Context, post *models.Post) error
	// Delete removes the post and its likes.
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(post).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return models.NewNotFoundError("User", post.UserID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Preload("User").
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID uint) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
		"title":      post.Title,
		"content":    post.Content,
		"image_path": post.ImagePath,
		"published":  post.Published,
		"updated_at": now,
	})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	post.UpdatedAt = now
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidatePostLikes(ctx, id)
	return nil
}
