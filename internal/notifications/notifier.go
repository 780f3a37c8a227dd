// Package notifications publishes domain events into Redis channels for
// downstream consumers.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"bucketlist/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Event types published by the API.
const (
	EventBucketCreated   = "bucket.created"
	EventBucketUpdated   = "bucket.updated"
	EventBucketCompleted = "bucket.completed"
	EventBucketReopened  = "bucket.reopened"
	EventBucketDeleted   = "bucket.deleted"
	EventBucketUpvoted   = "bucket.upvoted"
	EventBucketUnvoted   = "bucket.unvoted"
	EventCommentCreated  = "comment.created"
	EventCommentDeleted  = "comment.deleted"
)

// BroadcastChannel carries events every consumer may care about.
const BroadcastChannel = "events:broadcast"

// Event is the JSON payload of every published message.
type Event struct {
	Type       string    `json:"type"`
	BucketID   uint      `json:"bucket_id"`
	ActorID    uint      `json:"actor_id"`
	Actor      string    `json:"actor,omitempty"`
	CommentID  uint      `json:"comment_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier provides helpers to publish events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends an event to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, ev Event) error {
	return n.publish(ctx, UserChannel(userID), ev)
}

// PublishBroadcast sends an event to the broadcast channel.
func (n *Notifier) PublishBroadcast(ctx context.Context, ev Event) error {
	return n.publish(ctx, BroadcastChannel, ev)
}

func (n *Notifier) publish(ctx context.Context, channel string, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe listens on the broadcast channel and every user channel and
// calls onEvent for each decodable message until ctx is cancelled.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(channel string, ev Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "events:user:*", BroadcastChannel)
	// Wait for the subscription to be confirmed so no early publish is lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
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
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					middleware.Logger.Warn("dropping undecodable event", "channel", msg.Channel, "error", err)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onEvent(msg.Channel, ev)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "events:user:" + strconv.FormatUint(uint64(userID), 10)
}
