package server

import (
	"io"
	"net/http"
	"testing"

	"bucketlist/internal/models"
	"bucketlist/internal/service"
	"bucketlist/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signupBody(username string) map[string]string {
	return map[string]string{
		"first_name":  "Ada",
		"last_name":   "Lovelace",
		"username":    username,
		"email":       username + "@example.com",
		"password":    testutil.DefaultPassword,
		"re_password": testutil.DefaultPassword,
		"location":    "London",
	}
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(http.MethodPost, "/api/signup", signupBody("wanderer"), "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode[SignupResponse](t, resp)
	assert.Equal(t, "wanderer", body.User.Username)
	assert.Equal(t, "wanderer@example.com", body.User.Email)
	assert.Equal(t, "Ada", body.User.FirstName)
	assert.NotEmpty(t, body.Access)
	assert.NotEmpty(t, body.Refresh)

	var stored models.User
	require.NoError(t, env.db.Where("username = ?", "wanderer").First(&stored).Error)
	assert.NotEqual(t, testutil.DefaultPassword, stored.Password)

	var profiles int64
	env.db.Model(&models.Profile{}).Count(&profiles)
	assert.Zero(t, profiles)
}

func TestSignup_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(map[string]string)
		field string
	}{
		{"Password Mismatch", func(b map[string]string) { b["re_password"] = "Different#Sunrise1" }, "re_password"},
		{"Missing Email", func(b map[string]string) { delete(b, "email") }, "email"},
		{"Bad Email", func(b map[string]string) { b["email"] = "not-an-email" }, "email"},
		{"Weak Password", func(b map[string]string) {
			b["password"] = "12345678"
			b["re_password"] = "12345678"
		}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			body := signupBody("wanderer")
			tt.edit(body)

			resp := env.request(http.MethodPost, "/api/signup", body, "")
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			errBody := decodeError(t, resp)
			assert.Equal(t, models.CodeValidation, errBody.Code)
			assert.Contains(t, errBody.Fields, tt.field)

			var users int64
			env.db.Model(&models.User{}).Count(&users)
			assert.Zero(t, users)
		})
	}
}

func TestSignup_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "wanderer")

	resp := env.request(http.MethodPost, "/api/signup", signupBody("wanderer"), "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errBody := decodeError(t, resp)
	assert.Equal(t, []string{service.MsgUsernameTaken}, errBody.Fields["username"])
	assert.Equal(t, []string{service.MsgEmailTaken}, errBody.Fields["email"])
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "climber")

	resp := env.request(http.MethodPost, "/api/login", map[string]string{
		"username": "climber",
		"password": testutil.DefaultPassword,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[LoginResponse](t, resp)
	assert.Equal(t, "climber", body.Username)
	assert.Equal(t, user.ID, body.UserID)
	assert.NotEmpty(t, body.Access)
	assert.NotEmpty(t, body.Refresh)

	// The issued access token works on an authenticated route.
	resp = env.request(http.MethodGet, "/api/profile", nil, body.Access)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "climber")

	wrong := env.request(http.MethodPost, "/api/login", map[string]string{
		"username": "climber",
		"password": "not-the-password",
	}, "")
	unknown := env.request(http.MethodPost, "/api/login", map[string]string{
		"username": "nobody",
		"password": "not-the-password",
	}, "")

	require.Equal(t, http.StatusUnauthorized, wrong.StatusCode)
	require.Equal(t, http.StatusUnauthorized, unknown.StatusCode)

	wrongBody, err := io.ReadAll(wrong.Body)
	require.NoError(t, err)
	unknownBody, err := io.ReadAll(unknown.Body)
	require.NoError(t, err)
	assert.Equal(t, string(wrongBody), string(unknownBody))
	assert.Contains(t, string(wrongBody), service.MsgInvalidCredentials)
}

func TestLogin_MissingFieldsAndDisabled(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(http.MethodPost, "/api/login", map[string]string{}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errBody := decodeError(t, resp)
	assert.Contains(t, errBody.Fields, "username")
	assert.Contains(t, errBody.Fields, "password")

	user := testutil.CreateUser(t, env.db, "sleeper")
	require.NoError(t, env.db.Model(user).Update("is_active", false).Error)
	resp = env.request(http.MethodPost, "/api/login", map[string]string{
		"username": "sleeper",
		"password": testutil.DefaultPassword,
	}, "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeAccountDisabled, decodeError(t, resp).Code)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "climber")
	pair, err := env.srv.tokens.IssuePair(user.ID, user.Username)
	require.NoError(t, err)

	resp := env.request(http.MethodPost, "/api/logout", map[string]string{"refresh": pair.Refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(http.MethodPost, "/api/logout", map[string]string{}, pair.Access)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []string{"This field is required."}, decodeError(t, resp).Fields["refresh"])

	resp = env.request(http.MethodPost, "/api/logout", map[string]string{"refresh": pair.Refresh}, pair.Access)
	require.Equal(t, http.StatusResetContent, resp.StatusCode)
	assert.Equal(t, "Successfully logged out.", decode[models.DetailResponse](t, resp).Detail)

	// The refresh token is now blacklisted.
	resp = env.request(http.MethodPost, "/api/logout", map[string]string{"refresh": pair.Refresh}, pair.Access)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeInvalidToken, decodeError(t, resp).Code)

	resp = env.request(http.MethodPost, "/api/token/refresh", map[string]string{"refresh": pair.Refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Losing the Redis copy does not resurrect the token.
	var revoked int64
	require.NoError(t, env.db.Model(&models.BlacklistedToken{}).Count(&revoked).Error)
	assert.Equal(t, int64(1), revoked)
	env.mr.FlushAll()
	resp = env.request(http.MethodPost, "/api/token/refresh", map[string]string{"refresh": pair.Refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_AccessTokenIsNotARefreshToken(t *testing.T) {
	env := newTestEnv(t)
	_, access := env.user("climber")

	resp := env.request(http.MethodPost, "/api/logout", map[string]string{"refresh": access}, access)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeInvalidToken, decodeError(t, resp).Code)
}

func TestRefreshToken_Rotates(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "climber")
	pair, err := env.srv.tokens.IssuePair(user.ID, user.Username)
	require.NoError(t, err)

	resp := env.request(http.MethodPost, "/api/token/refresh", map[string]string{"refresh": pair.Refresh}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	next := decode[map[string]string](t, resp)
	assert.NotEmpty(t, next["access"])
	assert.NotEqual(t, pair.Refresh, next["refresh"])

	resp = env.request(http.MethodPost, "/api/token/refresh", map[string]string{"refresh": pair.Refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(http.MethodPost, "/api/token/refresh", map[string]string{"refresh": next["refresh"]}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	_, access := env.user("climber")
	const newPassword = "Annapurna#Basecamp"

	resp := env.request(http.MethodPost, "/api/password/change", map[string]string{
		"old_password":    "wrong",
		"new_password":    newPassword,
		"re_new_password": newPassword,
	}, access)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []string{service.MsgWrongPassword}, decodeError(t, resp).Fields["old_password"])

	resp = env.request(http.MethodPost, "/api/password/change", map[string]string{
		"old_password":    testutil.DefaultPassword,
		"new_password":    newPassword,
		"re_new_password": newPassword,
	}, access)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(http.MethodPost, "/api/login", map[string]string{
		"username": "climber",
		"password": newPassword,
	}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
