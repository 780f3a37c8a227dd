package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bucketlist/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	valid := []string{"buckets/a.jpg", "profile_pics/x/y.png"}
	for _, k := range valid {
		got, err := cleanKey(k)
		assert.NoError(t, err, k)
		assert.Equal(t, k, got)
	}

	invalid := []string{"", "../etc/passwd", "buckets/../../x", "/abs.jpg", "a//b.jpg", `a\b.jpg`}
	for _, k := range invalid {
		_, err := cleanKey(k)
		assert.ErrorIs(t, err, ErrInvalidKey, k)
	}
}

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "/media/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "buckets/one.jpg", strings.NewReader("jpeg-bytes"), "image/jpeg"))
	got, err := os.ReadFile(filepath.Join(dir, "buckets", "one.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(got))
	assert.Equal(t, "/media/buckets/one.jpg", store.URL("buckets/one.jpg"))

	require.NoError(t, store.Delete(ctx, "buckets/one.jpg"))
	_, err = os.Stat(filepath.Join(dir, "buckets", "one.jpg"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, "buckets/missing.jpg"))
	assert.ErrorIs(t, store.Save(ctx, "../escape.jpg", strings.NewReader("x"), ""), ErrInvalidKey)
}

func TestNewSelectsDriver(t *testing.T) {
	store, err := New(context.Background(), &config.Config{MediaDriver: "local", MediaDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, store)

	_, err = New(context.Background(), &config.Config{MediaDriver: "ftp"})
	assert.Error(t, err)
}

// fakeS3 records path-style object requests.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func TestS3Storage(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store, err := NewS3Storage(context.Background(), S3Config{
		Region:    "us-east-1",
		Bucket:    "media",
		AccessKey: "test",
		SecretKey: "test",
		Endpoint:  srv.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/media/buckets/a.png", store.URL("buckets/a.png"))

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "buckets/a.png", bytes.NewReader([]byte("png")), "image/png"))
	fake.mu.Lock()
	_, ok := fake.objects["/media/buckets/a.png"]
	fake.mu.Unlock()
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "buckets/a.png"))
	fake.mu.Lock()
	assert.Empty(t, fake.objects)
	fake.mu.Unlock()
}

func TestS3StorageAWSURL(t *testing.T) {
	store, err := NewS3Storage(context.Background(), S3Config{
		Region: "eu-west-1", Bucket: "bl-media", AccessKey: "k", SecretKey: "s",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://bl-media.s3.eu-west-1.amazonaws.com/x.jpg", store.URL("x.jpg"))
}
