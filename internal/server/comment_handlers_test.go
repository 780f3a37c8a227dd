package server

import (
	"fmt"
	"net/http"
	"testing"

	"bucketlist/internal/models"
	"bucketlist/internal/service"
	"bucketlist/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComments_CreateAndList(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.user("alice")
	bob, bobToken := env.user("bob")
	bucket := testutil.CreateBucket(t, env.db, alice, "Visit Petra")

	resp := env.request(http.MethodPost, bucketPath(bucket.ID, "/comments"), map[string]string{"text": "Go!"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	for _, text := range []string{"First", "Second", "Third"} {
		resp = env.request(http.MethodPost, bucketPath(bucket.ID, "/comments"), map[string]interface{}{
			"text":    text,
			"user_id": alice.ID,
			"bucket":  bucket.ID + 1,
		}, bobToken)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		created := decode[CommentResponse](t, resp)
		assert.Equal(t, text, created.Text)
		assert.Equal(t, "bob", created.User)
		assert.Equal(t, bob.ID, created.UserID)
		assert.Equal(t, bucket.ID, created.Bucket)
	}

	resp = env.request(http.MethodGet, bucketPath(bucket.ID, "/comments"), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]CommentResponse](t, resp)
	require.Len(t, list, 3)
	assert.Equal(t, "First", list[0].Text)
	assert.Equal(t, "Third", list[2].Text)
	assert.Less(t, list[0].ID, list[1].ID)
}

func TestComments_Validation(t *testing.T) {
	env := newTestEnv(t)
	alice, token := env.user("alice")
	bucket := testutil.CreateBucket(t, env.db, alice, "Visit Petra")

	resp := env.request(http.MethodPost, bucketPath(bucket.ID, "/comments"), map[string]string{"text": "   "}, token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []string{"This field may not be blank."}, decodeError(t, resp).Fields["text"])

	resp = env.request(http.MethodPost, bucketPath(bucket.ID, "/comments"), map[string]string{}, token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []string{"This field is required."}, decodeError(t, resp).Fields["text"])

	resp = env.request(http.MethodPost, bucketPath(bucket.ID+100, "/comments"), map[string]string{"text": "hi"}, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(http.MethodGet, bucketPath(bucket.ID+100, "/comments"), nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteComment_AuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.user("alice")
	_, bobToken := env.user("bob")
	bucket := testutil.CreateBucket(t, env.db, alice, "Visit Petra")

	first := &models.Comment{Text: "mine", UserID: alice.ID, BucketID: bucket.ID}
	second := &models.Comment{Text: "also mine", UserID: alice.ID, BucketID: bucket.ID}
	require.NoError(t, env.db.Create(first).Error)
	require.NoError(t, env.db.Create(second).Error)

	path := fmt.Sprintf("/api/comments/%d", first.ID)
	resp := env.request(http.MethodDelete, path, nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(http.MethodDelete, path, nil, bobToken)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, service.MsgNotYourComment, decodeError(t, resp).Error)

	resp = env.request(http.MethodDelete, path, nil, aliceToken)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.request(http.MethodDelete, path, nil, aliceToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(http.MethodDelete, fmt.Sprintf("/api/comments/%d/delete", second.ID), nil, aliceToken)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var count int64
	env.db.Model(&models.Comment{}).Count(&count)
	assert.Zero(t, count)
}
