package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bucketlist/internal/media"
	"bucketlist/internal/models"
	"bucketlist/internal/notifications"
	"bucketlist/internal/storage"
	"bucketlist/internal/testutil"
	"bucketlist/internal/token"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func newTokenService(t *testing.T) *token.Service {
	t.Helper()
	rdb, _ := testutil.NewRedis(t)
	return token.NewService(testSecret, 15*time.Minute, 24*time.Hour, token.NewRedisBlacklist(rdb))
}

func newImageStore(t *testing.T) (*ImageStore, *storage.LocalStorage) {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir(), "/media")
	require.NoError(t, err)
	return NewImageStore(media.NewProcessor(1<<20), local), local
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu        sync.Mutex
	broadcast []notifications.Event
	direct    map[uint][]notifications.Event
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID uint, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.direct == nil {
		p.direct = map[uint][]notifications.Event{}
	}
	p.direct[userID] = append(p.direct[userID], ev)
	return nil
}

func (p *recordingPublisher) PublishBroadcast(_ context.Context, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcast = append(p.broadcast, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.broadcast))
	for _, ev := range p.broadcast {
		out = append(out, ev.Type)
	}
	return out
}

func requireAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	requireAppError(t, err, models.CodeValidation)
}
