package service

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"bucketlist/internal/models"
	"bucketlist/internal/repository"
	"bucketlist/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService(t *testing.T) {
	db := testutil.NewDB(t)
	images, local := newImageStore(t)
	svc := NewProfileService(repository.NewUserRepository(db), repository.NewProfileRepository(db), images)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "traveller")

	details, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "traveller", details.Username)
	assert.Equal(t, user.Email, details.Profile.Email)
	assert.Nil(t, details.Profile.ProfilePicture)

	_, err = svc.Update(ctx, UpdateProfileInput{UserID: user.ID, Location: strPtr("Oslo")})
	appErr := requireAppError(t, err, models.CodeValidation)
	assert.Contains(t, appErr.Fields, "bio")

	updated, err := svc.Update(ctx, UpdateProfileInput{
		UserID:   user.ID,
		Location: strPtr(" Oslo "),
		Bio:      strPtr("Fjords."),
	})
	require.NoError(t, err)
	assert.Equal(t, "Oslo", updated.Profile.Location)
	assert.Equal(t, "Fjords.", updated.Profile.Bio)

	patched, err := svc.Update(ctx, UpdateProfileInput{
		UserID:         user.ID,
		Partial:        true,
		ProfilePicture: bytes.NewReader(testutil.PNG(t, 10, 10)),
	})
	require.NoError(t, err)
	assert.Equal(t, "Oslo", patched.Profile.Location)
	require.NotNil(t, patched.Profile.ProfilePicture)
	assert.FileExists(t, filepath.Join(local.Root(), filepath.FromSlash(*patched.Profile.ProfilePicture)))

	stats, err := svc.Stats(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalBuckets)
	assert.Zero(t, stats.CompleteBuckets)
	assert.Zero(t, stats.ActiveBuckets)

	_, err = svc.Get(ctx, 9999)
	requireAppError(t, err, models.CodeNotFound)
}
