package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"bucketlist/internal/config"
	"bucketlist/internal/models"
	"bucketlist/internal/storage"
	"bucketlist/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testEnv struct {
	t     *testing.T
	srv   *Server
	app   *fiber.App
	db    *gorm.DB
	mr    *miniredis.Miniredis
	media *storage.LocalStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	rdb, mr := testutil.NewRedis(t)
	local, err := storage.NewLocalStorage(t.TempDir(), "/media")
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                   "test",
		Port:                  "0",
		PublicBaseURL:         "http://api.test",
		JWTSecret:             testSecret,
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLHours:  24,
		BcryptCost:            bcrypt.MinCost,
		AllowedOrigins:        "http://localhost:5173",
		MediaDriver:           "local",
		MediaMaxUploadMB:      1,
	}
	srv, err := NewServerWithDeps(cfg, db, rdb, local)
	require.NoError(t, err)

	return &testEnv{t: t, srv: srv, app: srv.App(), db: db, mr: mr, media: local}
}

// user creates an active account and returns it with an access token.
func (e *testEnv) user(username string) (*models.User, string) {
	e.t.Helper()
	u := testutil.CreateUser(e.t, e.db, username)
	pair, err := e.srv.tokens.IssuePair(u.ID, u.Username)
	require.NoError(e.t, err)
	return u, pair.Access
}

func (e *testEnv) do(req *http.Request, token string) *http.Response {
	e.t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	return resp
}

func (e *testEnv) request(method, path string, body interface{}, token string) *http.Response {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return e.do(req, token)
}

// multipartRequest builds a multipart body from fields and a single file part.
func (e *testEnv) multipartRequest(method, path string, fields map[string]string, fileField string, file []byte, token string) *http.Response {
	e.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, "upload.png")
		require.NoError(e.t, err)
		_, err = part.Write(file)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return e.do(req, token)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func decodeError(t *testing.T, resp *http.Response) models.ErrorResponse {
	t.Helper()
	return decode[models.ErrorResponse](t, resp)
}

func TestNewServerWithDeps_RequiresSecret(t *testing.T) {
	_, err := NewServerWithDeps(&config.Config{}, testutil.NewDB(t), nil, nil)
	assert.Error(t, err)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(http.MethodGet, "/health/ready", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]interface{}](t, resp)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "healthy", checks["redis"])
}

func TestReadiness_RedisDown(t *testing.T) {
	env := newTestEnv(t)
	env.mr.Close()

	resp := env.request(http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(http.MethodGet, "/api/nope", nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, decodeError(t, resp).Code)
}

func TestSecurityAndCORSHeaders(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/buckets", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://localhost:5173")
	resp := env.do(req, "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "cross-origin", resp.Header.Get("Cross-Origin-Resource-Policy"))
	assert.Equal(t, "http://localhost:5173", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestParseID_RejectsNonNumeric(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/buckets/abc", "/api/buckets/0", "/api/buckets/-3"} {
		resp := env.request(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestCodeForStatus(t *testing.T) {
	assert.Equal(t, models.CodeValidation, codeForStatus(http.StatusBadRequest))
	assert.Equal(t, models.CodeValidation, codeForStatus(http.StatusRequestEntityTooLarge))
	assert.Equal(t, models.CodeUnauthorized, codeForStatus(http.StatusUnauthorized))
	assert.Equal(t, models.CodeNotFound, codeForStatus(http.StatusMethodNotAllowed))
	assert.Equal(t, models.CodeInternal, codeForStatus(http.StatusServiceUnavailable))
	assert.Equal(t, "", codeForStatus(http.StatusTooManyRequests))
}
