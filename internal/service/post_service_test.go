package service

import (
	"context"
	"strings"
	"testing"

	"minifeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_Create(t *testing.T) {
	f := newFixture(t, nil, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	draft := false

	tests := []struct {
		name          string
		in            CreatePostInput
		expectedCode  string
		wantPublished bool
	}{
		{"Valid defaults to published", CreatePostInput{AuthorID: alice.ID, Title: "t", Content: "c"}, "", true},
		{"Explicit draft", CreatePostInput{AuthorID: alice.ID, Title: "t", Content: "c", Published: &draft}, "", false},
		{"Missing title", CreatePostInput{AuthorID: alice.ID, Content: "c"}, models.CodeValidation, false},
		{"Title too long", CreatePostInput{AuthorID: alice.ID, Title: strings.Repeat("x", 201), Content: "c"}, models.CodeValidation, false},
		{"Missing content", CreatePostInput{AuthorID: alice.ID, Title: "t"}, models.CodeValidation, false},
		{"Unknown author", CreatePostInput{AuthorID: 999, Title: "t", Content: "c"}, models.CodeNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := f.posts.Create(ctx, tt.in)
			if tt.expectedCode != "" {
				assertCode(t, err, tt.expectedCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", p.Username)
			assert.Equal(t, tt.wantPublished, p.Published)
			assert.Zero(t, p.LikesCount)
		})
	}
}

func TestPostService_CreateUnderMissingAuthorStoresNothing(t *testing.T) {
	f := newFixture(t, nil, "")
	ctx := context.Background()

	_, err := f.posts.Create(ctx, CreatePostInput{AuthorID: 42, Title: "t", Content: "c"})
	assertCode(t, err, models.CodeNotFound)

	all, err := f.posts.ListAll(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPostService_ListsCarryLikeCounts(t *testing.T) {
	f := newFixture(t, nil, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	p1 := f.post(t, alice, "one")
	f.post(t, bob, "two")
	require.NoError(t, f.likes.Like(ctx, p1.ID, bob.ID))

	all, err := f.posts.ListAll(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].LikesCount)
	assert.Equal(t, int64(0), all[1].LikesCount)

	page, err := f.posts.ListAll(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "two", page[0].Title)

	mine, err := f.posts.ListByAuthor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "one", mine[0].Title)

	carol := f.register(t, "carol")
	none, err := f.posts.ListByAuthor(ctx, carol.Username)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.posts.ListByAuthor(ctx, "nobody")
	assertCode(t, err, models.CodeNotFound)

	got, err := f.posts.Get(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.LikesCount)
	_, err = f.posts.Get(ctx, 999)
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_UpdateOwnership(t *testing.T) {
	f := newFixture(t, nil, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	p := f.post(t, alice, "original")

	_, err := f.posts.Update(ctx, UpdatePostInput{PostID: 999, EditorID: alice.ID, Title: "x", Content: "y"})
	assertCode(t, err, models.CodeNotFound)

	_, err = f.posts.Update(ctx, UpdatePostInput{PostID: p.ID, EditorID: bob.ID, Title: "x", Content: "y"})
	assertCode(t, err, models.CodeForbidden)

	_, err = f.posts.Update(ctx, UpdatePostInput{PostID: p.ID, EditorID: alice.ID, Title: "", Content: "y"})
	assertCode(t, err, models.CodeValidation)

	unchanged, err := f.posts.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", unchanged.Title)

	img := "images/a.png"
	updated, err := f.posts.Update(ctx, UpdatePostInput{PostID: p.ID, EditorID: alice.ID, Title: "new", Content: "body", ImagePath: &img})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, &img, updated.ImagePath)
	assert.Equal(t, alice.ID, updated.UserID)
}

func TestPostService_CrossUserDeleteIsForbidden(t *testing.T) {
	f := newFixture(t, nil, "")
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	p := f.post(t, alice, "keep me")
	require.NoError(t, f.likes.Like(ctx, p.ID, bob.ID))

	assertCode(t, f.posts.Delete(ctx, p.ID, bob.ID), models.CodeForbidden)
	_, err := f.posts.Get(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, f.posts.Delete(ctx, p.ID, alice.ID))
	assertCode(t, f.posts.Delete(ctx, p.ID, alice.ID), models.CodeNotFound)

	n, err := f.likes.CountForPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	liked, err := f.likes.PostsLikedBy(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, liked)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, DefaultPageSize, 0},
		{10, 5, 10, 5},
		{10000, -3, MaxPageSize, 0},
	}
	for _, tt := range tests {
		l, o := NormalizePage(tt.limit, tt.offset)
		assert.Equal(t, tt.wantLimit, l)
		assert.Equal(t, tt.wantOffset, o)
	}
}
