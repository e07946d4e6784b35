package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const PostLikesKeyPrefix = "post:%d:likes"

// PostLikesTTL bounds how long a cached like count may outlive a missed invalidation.
const PostLikesTTL = 2 * time.Minute

func PostLikesKey(postID uint) string {
	return fmt.Sprintf(PostLikesKeyPrefix, postID)
}

const (
	// epochKey is bumped by bulk invalidations; genKey suffixes are bumped per key.
	epochKey = "cache:epoch"
	genTTL   = 10 * time.Minute
)

var errStaleFill = errors.New("cache: key invalidated during fetch")

func genKey(key string) string {
	return key + ":gen"
}

// Invalidate removes keys from the cache and bumps their generations so fills that
// started before the call are discarded. It is a no-op without a client.
func Invalidate(ctx context.Context, keys ...string) {
	rdb := GetClient()
	if rdb == nil || len(keys) == 0 {
		return
	}
	_, _ = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Incr(ctx, genKey(key))
			pipe.Expire(ctx, genKey(key), genTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
}

func InvalidatePostLikes(ctx context.Context, postIDs ...uint) {
	keys := make([]string, 0, len(postIDs))
	for _, id := range postIDs {
		keys = append(keys, PostLikesKey(id))
	}
	Invalidate(ctx, keys...)
}

// InvalidateAllPostLikes drops every cached like count.
func InvalidateAllPostLikes(ctx context.Context) {
	rdb := GetClient()
	if rdb == nil {
		return
	}
	rdb.Incr(ctx, epochKey)
	iter := rdb.Scan(ctx, 0, "post:*:likes", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		rdb.Del(ctx, keys...)
	}
}

// version identifies the invalidation state of key.
func version(ctx context.Context, rdb redis.Cmdable, key string) (string, error) {
	vals, err := rdb.MGet(ctx, genKey(key), epochKey).Result()
	if err != nil {
		return "", err
	}
	return fmt.Sprint(vals), nil
}

// storeIfUnchanged writes val only if key was not invalidated since seen was read.
func storeIfUnchanged(ctx context.Context, rdb *redis.Client, key, seen string, val []byte, ttl time.Duration) error {
	return rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := version(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != seen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, val, ttl)
			return nil
		})
		return err
	}, genKey(key), epochKey)
}

// Aside tries Redis first; on a miss it calls fetch (which must populate dest) and stores
// the result with ttl. A fill is dropped when the key is invalidated while fetch runs, so
// a value read before a write never outlives that write's invalidation. Redis failures
// degrade to calling fetch directly.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	rdb := GetClient()
	if rdb == nil {
		return fetch()
	}

	raw, err := rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			return nil
		}
	case !errors.Is(err, redis.Nil):
		return fetch()
	}

	seen, err := version(ctx, rdb, key)
	if err != nil {
		return fetch()
	}

	if err := fetch(); err != nil {
		return err
	}

	if b, err := json.Marshal(dest); err == nil {
		_ = storeIfUnchanged(ctx, rdb, key, seen, b, ttl)
	}
	return nil
}
