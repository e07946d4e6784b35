package service

import (
	"context"
	"strings"

	"minifeed/internal/models"
	"minifeed/internal/repository"
	"minifeed/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// passwordHashCost is lowered by tests.
var passwordHashCost = bcrypt.DefaultCost

type UserService struct {
	users repository.UserRepository
}

type RegisterInput struct {
	Username string
	Email    string
	FullName *string
	Password string
}

// UpdateUserInput replaces a user's profile. A nil Password keeps the current credential.
type UpdateUserInput struct {
	UserID   uint
	ActorID  uint
	Username string
	Email    string
	FullName *string
	Password *string
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func validateProfile(username, email string, fullName *string) error {
	if err := validation.ValidateUsername(username); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidateFullName(fullName); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}

func hashPassword(password string) (string, error) {
	if err := validation.ValidatePassword(password); err != nil {
		return "", models.NewValidationError(err.Error())
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hashed), nil
}

// ensureAvailable reports a CONFLICT when email or username belongs to a user other than selfID.
func (s *UserService) ensureAvailable(ctx context.Context, username, email string, selfID uint) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return models.NewConflictError("Email already registered")
	}
	existing, err = s.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return models.NewConflictError("Username already taken")
	}
	return nil
}

// Register creates a user. Only the bcrypt hash of the password is stored.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := validateProfile(in.Username, in.Email, in.FullName); err != nil {
		return nil, err
	}
	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, in.Username, in.Email, 0); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hashed,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	limit, offset = NormalizePage(limit, offset)
	return s.users.List(ctx, limit, offset)
}

func (s *UserService) selfOnly(ctx context.Context, userID, actorID uint, action string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if userID != actorID {
		return nil, models.NewForbiddenError("Not authorized to " + action + " this user")
	}
	return user, nil
}

// Update replaces the actor's own profile.
func (s *UserService) Update(ctx context.Context, in UpdateUserInput) (*models.User, error) {
	user, err := s.selfOnly(ctx, in.UserID, in.ActorID, "update")
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateProfile(username, email, in.FullName); err != nil {
		return nil, err
	}
	if in.Password != nil {
		hashed, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
	}
	if err := s.ensureAvailable(ctx, username, email, user.ID); err != nil {
		return nil, err
	}

	user.Username = username
	user.Email = email
	user.FullName = in.FullName
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes the actor's own account with their posts and likes.
func (s *UserService) Delete(ctx context.Context, userID, actorID uint) error {
	if _, err := s.selfOnly(ctx, userID, actorID, "delete"); err != nil {
		return err
	}
	return s.users.Delete(ctx, userID)
}

// SetAdmin grants or revokes administrative rights. Operator use only.
func (s *UserService) SetAdmin(ctx context.Context, username string, isAdmin bool) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundMessage("User not found")
	}
	user.IsAdmin = isAdmin
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
