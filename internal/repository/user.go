package repository

import (
	"context"
	"errors"

	"minifeed/internal/cache"
	"minifeed/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetByEmail and GetByUsername return (nil, nil) when no user matches.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	// Delete removes the user with their posts and every like touching either.
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return userConflict(err)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func userConflict(err error) *models.AppError {
	if uniqueViolationOn(err, "email") {
		return models.NewConflictError("Email already registered")
	}
	return models.NewConflictError("Username already taken")
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"username":      user.Username,
		"email":         user.Email,
		"full_name":     user.FullName,
		"password_hash": user.PasswordHash,
		"is_admin":      user.IsAdmin,
	})
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return userConflict(res.Error)
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	var touched []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned []uint
		if err := tx.Model(&models.Post{}).Where("user_id = ?", id).Pluck("id", &owned).Error; err != nil {
			return models.NewInternalError(err)
		}
		var liked []uint
		if err := tx.Model(&models.Like{}).Where("user_id = ?", id).Pluck("post_id", &liked).Error; err != nil {
			return models.NewInternalError(err)
		}

		likes := tx.Where("user_id = ?", id)
		if len(owned) > 0 {
			likes = tx.Where("user_id = ? OR post_id IN ?", id, owned)
		}
		if err := likes.Delete(&models.Like{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return models.NewInternalError(err)
		}

		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", id)
		}
		touched = append(owned, liked...)
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidatePostLikes(ctx, touched...)
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id ASC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
