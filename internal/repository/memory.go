package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"minifeed/internal/models"
)

type likeKey struct {
	postID uint
	userID uint
}

// MemoryStore is an in-process implementation of the repositories. All three views share
// one lock so multi-entity operations (cascading deletes, like-with-existence-check) are
// atomic. It is used by tests and the seed dry run.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[uint]models.User
	posts  map[uint]models.Post
	likes  map[likeKey]time.Time
	nextID struct{ user, post uint }
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[uint]models.User),
		posts: make(map[uint]models.Post),
		likes: make(map[likeKey]time.Time),
	}
}

func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }
func (s *MemoryStore) Posts() PostRepository { return memoryPosts{s} }
func (s *MemoryStore) Likes() LikeRepository { return memoryLikes{s} }

func window[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// withAuthor returns a copy of p with its author attached. Callers hold the lock.
func (s *MemoryStore) withAuthor(p models.Post) *models.Post {
	p.User = s.users[p.UserID]
	return &p
}

type memoryUsers struct{ s *MemoryStore }

func (m memoryUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	return &u, nil
}

func (m memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.Email == email }), nil
}

func (m memoryUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.Username == username }), nil
}

func (m memoryUsers) find(match func(models.User) bool) *models.User {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, u := range m.s.users {
		if match(u) {
			return &u
		}
	}
	return nil
}

// conflictFor reports a username/email clash with any user other than skipID. Email
// clashes win over username clashes.
func (m memoryUsers) conflictFor(u *models.User, skipID uint) error {
	clash := func(match func(models.User) bool) bool {
		for id, other := range m.s.users {
			if id != skipID && match(other) {
				return true
			}
		}
		return false
	}
	if clash(func(other models.User) bool { return other.Email == u.Email }) {
		return models.NewConflictError("Email already registered")
	}
	if clash(func(other models.User) bool { return other.Username == u.Username }) {
		return models.NewConflictError("Username already taken")
	}
	return nil
}

func (m memoryUsers) Create(_ context.Context, user *models.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.conflictFor(user, 0); err != nil {
		return err
	}
	m.s.nextID.user++
	user.ID = m.s.nextID.user
	if user.JoinedAt.IsZero() {
		user.JoinedAt = time.Now()
	}
	m.s.users[user.ID] = *user
	return nil
}

func (m memoryUsers) Update(_ context.Context, user *models.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	existing, ok := m.s.users[user.ID]
	if !ok {
		return models.NewNotFoundError("User", user.ID)
	}
	if err := m.conflictFor(user, user.ID); err != nil {
		return err
	}
	existing.Username = user.Username
	existing.Email = user.Email
	existing.FullName = user.FullName
	existing.PasswordHash = user.PasswordHash
	existing.IsAdmin = user.IsAdmin
	m.s.users[user.ID] = existing
	return nil
}

func (m memoryUsers) Delete(_ context.Context, id uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[id]; !ok {
		return models.NewNotFoundError("User", id)
	}
	for k := range m.s.likes {
		if k.userID == id || m.s.posts[k.postID].UserID == id {
			delete(m.s.likes, k)
		}
	}
	for pid, p := range m.s.posts {
		if p.UserID == id {
			delete(m.s.posts, pid)
		}
	}
	delete(m.s.users, id)
	return nil
}

func (m memoryUsers) List(_ context.Context, limit, offset int) ([]models.User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	users := make([]models.User, 0, len(m.s.users))
	for _, u := range m.s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return window(users, limit, offset), nil
}

type memoryPosts struct{ s *MemoryStore }

func (m memoryPosts) Create(_ context.Context, post *models.Post) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[post.UserID]; !ok {
		return models.NewNotFoundError("User", post.UserID)
	}
	m.s.nextID.post++
	post.ID = m.s.nextID.post
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now
	stored := *post
	stored.User = models.User{}
	m.s.posts[post.ID] = stored
	post.User = m.s.users[post.UserID]
	return nil
}

func (m memoryPosts) GetByID(_ context.Context, id uint) (*models.Post, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	p, ok := m.s.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("Post", id)
	}
	return m.s.withAuthor(p), nil
}

func (m memoryPosts) sorted(match func(models.Post) bool) []*models.Post {
	out := make([]*models.Post, 0)
	for _, p := range m.s.posts {
		if match(p) {
			out = append(out, m.s.withAuthor(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m memoryPosts) List(_ context.Context, limit, offset int) ([]*models.Post, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return window(m.sorted(func(models.Post) bool { return true }), limit, offset), nil
}

func (m memoryPosts) ListByUserID(_ context.Context, userID uint) ([]*models.Post, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.sorted(func(p models.Post) bool { return p.UserID == userID }), nil
}

func (m memoryPosts) Update(_ context.Context, post *models.Post) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	existing, ok := m.s.posts[post.ID]
	if !ok {
		return models.NewNotFoundError("Post", post.ID)
	}
	existing.Title = post.Title
	existing.Content = post.Content
	existing.ImagePath = post.ImagePath
	existing.Published = post.Published
	existing.UpdatedAt = time.Now()
	m.s.posts[post.ID] = existing
	post.UpdatedAt = existing.UpdatedAt
	return nil
}

func (m memoryPosts) Delete(_ context.Context, id uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.posts[id]; !ok {
		return models.NewNotFoundError("Post", id)
	}
	for k := range m.s.likes {
		if k.postID == id {
			delete(m.s.likes, k)
		}
	}
	delete(m.s.posts, id)
	return nil
}

type memoryLikes struct{ s *MemoryStore }

func (m memoryLikes) Like(_ context.Context, postID, userID uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.posts[postID]; !ok {
		return models.NewNotFoundError("Post", postID)
	}
	if _, ok := m.s.users[userID]; !ok {
		return models.NewNotFoundError("User", userID)
	}
	k := likeKey{postID, userID}
	if _, ok := m.s.likes[k]; ok {
		return models.NewConflictError("User has already liked this post")
	}
	m.s.likes[k] = time.Now()
	return nil
}

func (m memoryLikes) Unlike(_ context.Context, postID, userID uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	k := likeKey{postID, userID}
	if _, ok := m.s.likes[k]; !ok {
		return models.NewNotFoundMessage("Like not found")
	}
	delete(m.s.likes, k)
	return nil
}

func (m memoryLikes) Exists(_ context.Context, postID, userID uint) (bool, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	_, ok := m.s.likes[likeKey{postID, userID}]
	return ok, nil
}

func (m memoryLikes) CountForPost(_ context.Context, postID uint) (int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.countLocked(postID), nil
}

func (m memoryLikes) countLocked(postID uint) int64 {
	var n int64
	for k := range m.s.likes {
		if k.postID == postID {
			n++
		}
	}
	return n
}

func (m memoryLikes) CountsForPosts(_ context.Context, postIDs []uint) (map[uint]int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := make(map[uint]int64, len(postIDs))
	for _, id := range postIDs {
		if n := m.countLocked(id); n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

func (m memoryLikes) PostIDsLikedBy(_ context.Context, userID uint) ([]uint, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	ids := []uint{}
	for k := range m.s.likes {
		if k.userID == userID {
			ids = append(ids, k.postID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m memoryLikes) CountsByPost(_ context.Context) ([]models.PostLikes, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	rows := make([]models.PostLikes, 0, len(m.s.posts))
	for id := range m.s.posts {
		rows = append(rows, models.PostLikes{PostID: id, LikesCount: m.countLocked(id)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PostID < rows[j].PostID })
	return rows, nil
}

func (m memoryLikes) Total(_ context.Context) (int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return int64(len(m.s.likes)), nil
}

func (m memoryLikes) ReceivedByAuthor(_ context.Context, userID uint) (int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var n int64
	for k := range m.s.likes {
		if p, ok := m.s.posts[k.postID]; ok && p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m memoryLikes) ResetForPost(_ context.Context, postID uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for k := range m.s.likes {
		if k.postID == postID {
			delete(m.s.likes, k)
		}
	}
	return nil
}

func (m memoryLikes) ResetForAuthor(_ context.Context, userID uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for k := range m.s.likes {
		if m.s.posts[k.postID].UserID == userID {
			delete(m.s.likes, k)
		}
	}
	return nil
}

func (m memoryLikes) ResetAll(_ context.Context) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.likes = make(map[likeKey]time.Time)
	return nil
}
