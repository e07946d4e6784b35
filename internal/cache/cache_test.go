package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := InitRedis(mr.Addr())
	require.NotNil(t, rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "post:9:likes", PostLikesKey(9))
}

func TestAside_CachesFetchedValue(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *int64) func() error {
		return func() error {
			calls++
			*dest = 7
			return nil
		}
	}

	var first int64
	require.NoError(t, Aside(ctx, PostLikesKey(1), &first, time.Minute, fetch(&first)))
	var second int64
	require.NoError(t, Aside(ctx, PostLikesKey(1), &second, time.Minute, fetch(&second)))

	assert.Equal(t, int64(7), first)
	assert.Equal(t, int64(7), second)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("post:1:likes"))

	InvalidatePostLikes(ctx, 1)
	assert.False(t, mr.Exists("post:1:likes"))
}

func TestAside_InvalidationDuringFetchDropsFill(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	// A like commits and invalidates while the count is being read.
	var stale int64
	require.NoError(t, Aside(ctx, PostLikesKey(3), &stale, time.Minute, func() error {
		stale = 0
		InvalidatePostLikes(ctx, 3)
		return nil
	}))
	assert.Zero(t, stale)
	assert.False(t, mr.Exists("post:3:likes"))

	var fresh int64
	require.NoError(t, Aside(ctx, PostLikesKey(3), &fresh, time.Minute, func() error {
		fresh = 1
		return nil
	}))
	assert.Equal(t, int64(1), fresh)
	assert.True(t, mr.Exists("post:3:likes"))
	assert.True(t, mr.Exists("post:3:likes:gen"))
}

func TestAside_BulkInvalidationDuringFetchDropsFill(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	var v int64
	require.NoError(t, Aside(ctx, PostLikesKey(4), &v, time.Minute, func() error {
		v = 5
		InvalidateAllPostLikes(ctx)
		return nil
	}))
	assert.Equal(t, int64(5), v)
	assert.False(t, mr.Exists("post:4:likes"))
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := withMiniredis(t)

	var v int64
	err := Aside(context.Background(), PostLikesKey(2), &v, time.Minute, func() error {
		return errors.New("db down")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("post:2:likes"))
}

func TestAside_WithoutClientCallsFetch(t *testing.T) {
	SetClient(nil)
	calls := 0
	var v int64
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), "k", &v, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
	Invalidate(context.Background(), "k")
}

func TestInvalidateAllPostLikes(t *testing.T) {
	mr := withMiniredis(t)
	require.NoError(t, mr.Set("post:1:likes", "1"))
	require.NoError(t, mr.Set("post:2:likes", "3"))
	require.NoError(t, mr.Set("session:1", "{}"))

	InvalidateAllPostLikes(context.Background())

	assert.False(t, mr.Exists("post:1:likes"))
	assert.False(t, mr.Exists("post:2:likes"))
	assert.True(t, mr.Exists("session:1"))
}

func TestInitRedis_Unreachable(t *testing.T) {
	assert.Nil(t, InitRedis("127.0.0.1:1"))
	assert.Nil(t, GetClient())
}
