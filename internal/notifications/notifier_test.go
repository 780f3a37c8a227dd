package notifications

import (
	"context"
	"testing"
	"time"

	"bucketlist/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, Event{Type: EventBucketUpvoted}))
	assert.NoError(t, n.PublishBroadcast(context.Background(), Event{Type: EventBucketCreated}))
	assert.NoError(t, n.Subscribe(context.Background(), func(string, Event) {}))
}

func TestUserChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "events:user:1", UserChannel(1))
	assert.Equal(t, "events:user:100", UserChannel(100))
}

func TestNotifier_PublishAndSubscribe(t *testing.T) {
	rdb, _ := testutil.NewRedis(t)
	n := NewNotifier(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type delivery struct {
		channel string
		ev      Event
	}
	got := make(chan delivery, 4)
	require.NoError(t, n.Subscribe(ctx, func(channel string, ev Event) {
		got <- delivery{channel, ev}
	}))

	require.NoError(t, n.PublishBroadcast(ctx, Event{Type: EventBucketCreated, BucketID: 7, ActorID: 1}))
	require.NoError(t, n.PublishUser(ctx, 3, Event{Type: EventCommentCreated, BucketID: 7, ActorID: 1, CommentID: 9}))

	for _, want := range []delivery{
		{BroadcastChannel, Event{Type: EventBucketCreated, BucketID: 7, ActorID: 1}},
		{UserChannel(3), Event{Type: EventCommentCreated, BucketID: 7, ActorID: 1, CommentID: 9}},
	} {
		select {
		case d := <-got:
			assert.Equal(t, want.channel, d.channel)
			assert.Equal(t, want.ev.Type, d.ev.Type)
			assert.Equal(t, want.ev.BucketID, d.ev.BucketID)
			assert.Equal(t, want.ev.CommentID, d.ev.CommentID)
			assert.False(t, d.ev.OccurredAt.IsZero())
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want.ev.Type)
		}
	}
}
