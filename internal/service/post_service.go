package service

import (
	"context"

	"minifeed/internal/models"
	"minifeed/internal/repository"
	"minifeed/internal/validation"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

type PostService struct {
	posts repository.PostRepository
	users repository.UserRepository
	likes repository.LikeRepository
}

type CreatePostInput struct {
	AuthorID  uint
	Title     string
	Content   string
	ImagePath *string
	Published *bool
}

// UpdatePostInput replaces every mutable field of a post. A nil Published means true.
type UpdatePostInput struct {
	PostID    uint
	EditorID  uint
	Title     string
	Content   string
	ImagePath *string
	Published *bool
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	likes repository.LikeRepository,
) *PostService {
	return &PostService{posts: posts, users: users, likes: likes}
}

func publishedOrDefault(p *bool) bool {
	if p == nil {
		return true
	}
	return *p
}

// NormalizePage clamps limit/offset to the accepted range.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.PostResponse, error) {
	if err := validation.ValidatePost(in.Title, in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	author, err := s.users.GetByID(ctx, in.AuthorID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:    author.ID,
		Title:     in.Title,
		Content:   in.Content,
		ImagePath: in.ImagePath,
		Published: publishedOrDefault(in.Published),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	post.User = *author

	resp := models.ToPostResponse(post, 0)
	return &resp, nil
}

func (s *PostService) Get(ctx context.Context, id uint) (*models.PostResponse, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	n, err := s.likes.CountForPost(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := models.ToPostResponse(post, n)
	return &resp, nil
}

// ListAll returns a page of posts ordered by id.
func (s *PostService) ListAll(ctx context.Context, limit, offset int) ([]models.PostResponse, error) {
	limit, offset = NormalizePage(limit, offset)
	posts, err := s.posts.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.withCounts(ctx, posts)
}

// ListByAuthor returns every post of the named user. NOT_FOUND when the user is unknown.
func (s *PostService) ListByAuthor(ctx context.Context, username string) ([]models.PostResponse, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, models.NewNotFoundMessage("User not found")
	}
	posts, err := s.posts.ListByUserID(ctx, author.ID)
	if err != nil {
		return nil, err
	}
	return s.withCounts(ctx, posts)
}

func (s *PostService) withCounts(ctx context.Context, posts []*models.Post) ([]models.PostResponse, error) {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	counts, err := s.likes.CountsForPosts(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.PostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, models.ToPostResponse(p, counts[p.ID]))
	}
	return out, nil
}

// ownedPost loads a post and checks editorID is its author.
func (s *PostService) ownedPost(ctx context.Context, postID, editorID uint, action string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != editorID {
		return nil, models.NewForbiddenError("Not authorized to " + action + " this post")
	}
	return post, nil
}

// Update overwrites title, content, image path and published in one write. Existence is
// checked before ownership; validation happens before anything is written.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (*models.PostResponse, error) {
	post, err := s.ownedPost(ctx, in.PostID, in.EditorID, "update")
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePost(in.Title, in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post.Title = in.Title
	post.Content = in.Content
	post.ImagePath = in.ImagePath
	post.Published = publishedOrDefault(in.Published)
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}

	n, err := s.likes.CountForPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	resp := models.ToPostResponse(post, n)
	return &resp, nil
}

// Delete removes the post and its likes. Only the author may delete.
func (s *PostService) Delete(ctx context.Context, postID, editorID uint) error {
	if _, err := s.ownedPost(ctx, postID, editorID, "delete"); err != nil {
		return err
	}
	return s.posts.Delete(ctx, postID)
}
