// Package notifications provides real-time delivery of feed events over Redis pub/sub and
// websockets.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"minifeed/internal/middleware"
	"minifeed/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix  = "notifications:user:"
	userChannelPattern = userChannelPrefix + "*"

	// EventPostLiked is sent to a post's author when another user likes the post.
	EventPostLiked = "post_liked"
)

// Event is the envelope written to websocket clients.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeEvent describes a new like on a post.
type LikeEvent struct {
	PostID     uint   `json:"post_id"`
	LikerID    uint   `json:"liker_id"`
	LikerName  string `json:"liker_username,omitempty"`
	LikesCount int64  `json:"likes_count"`
}

// UserChannel returns the Redis channel that carries events for userID.
func UserChannel(userID uint) string {
	return fmt.Sprintf("%s%d", userChannelPrefix, userID)
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client. A nil
// client yields a notifier whose publishes are no-ops.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishLikeEvent notifies authorID that one of their posts was liked.
func (n *Notifier) PublishLikeEvent(ctx context.Context, authorID uint, ev LikeEvent) error {
	raw, err := json.Marshal(Event{Type: EventPostLiked, Payload: ev, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	err = n.PublishUser(ctx, authorID, string(raw))
	result := "ok"
	if err != nil {
		result = "error"
	}
	observability.NotificationsPublished.WithLabelValues(EventPostLiked, result).Inc()
	return err
}

// StartPatternSubscriber subscribes to every user channel and calls onMessage for each
// incoming message until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPattern)
	// Wait for the subscription confirmation so publishes issued right after this call
	// are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", userChannelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
