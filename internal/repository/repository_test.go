package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"bucketlist/internal/models"
	"bucketlist/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.Code
}

func TestUserRepository_GetByUsernameMissing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE username = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))

	user, err := repo.GetByUsername(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBucketRepository_ToggleCompletedMissing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBucketRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "buckets" SET "is_completed"=NOT is_completed`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	_, err := repo.ToggleCompleted(context.Background(), 42)
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBucketRepository_ToggleUpvoteLocksBucketRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBucketRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "buckets" WHERE id = $1 FOR UPDATE`)).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "upvotes" WHERE user_id = $1 AND bucket_id = $2`)).
		WithArgs(3, 7).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := repo.ToggleUpvote(context.Background(), 3, 7)
	require.Error(t, err)
	assert.Equal(t, models.CodeInternal, appCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBucketRepository_ToggleUpvoteMissingBucket(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBucketRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "buckets" WHERE id = $1 FOR UPDATE`)).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, _, err := repo.ToggleUpvote(context.Background(), 3, 7)
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "amelia", Email: "Amelia@Example.com", Password: "hash", IsActive: true}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)

	found, err := repo.GetByUsername(ctx, "amelia")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	found, err = repo.GetByEmail(ctx, "amelia@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	dup := &models.User{Username: "amelia", Email: "other@example.com", Password: "hash"}
	assert.Equal(t, models.CodeValidation, appCode(t, repo.Create(ctx, dup)))

	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new-hash"))
	reloaded, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", reloaded.Password)

	assert.Equal(t, models.CodeNotFound, appCode(t, repo.UpdatePassword(ctx, 9999, "x")))
	_, err = repo.GetByID(ctx, 9999)
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
}

func TestProfileRepository_GetOrCreate(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "")

	first, err := repo.GetOrCreate(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, user.Email, first.Email)
	assert.Equal(t, user.FirstName, first.FirstName)
	assert.Equal(t, user.LastName, first.LastName)

	second, err := repo.GetOrCreate(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var n int64
	require.NoError(t, db.Model(&models.Profile{}).Where("user_id = ?", user.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestProfileRepository_UpdateWritesEditableColumnsOnly(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "")

	profile, err := repo.GetOrCreate(ctx, user)
	require.NoError(t, err)

	pic := "profiles/me.png"
	profile.Location = "Lisbon"
	profile.Bio = "Climbing things."
	profile.ProfilePicture = &pic
	profile.Email = "changed@example.com"
	profile.TotalBuckets = 99
	require.NoError(t, repo.Update(ctx, profile))

	reloaded, err := repo.GetOrCreate(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", reloaded.Location)
	assert.Equal(t, "Climbing things.", reloaded.Bio)
	require.NotNil(t, reloaded.ProfilePicture)
	assert.Equal(t, pic, *reloaded.ProfilePicture)
	assert.Equal(t, user.Email, reloaded.Email)
	assert.Zero(t, reloaded.TotalBuckets)
}

func TestBucketRepository_ListAnnotations(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBucketRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	older := testutil.CreateBucket(t, db, alice, "See the aurora")
	newer := testutil.CreateBucket(t, db, bob, "Run a marathon")

	_, _, err := repo.ToggleUpvote(ctx, alice.ID, newer.ID)
	require.NoError(t, err)

	anon, err := repo.List(ctx, 0, BucketFilter{})
	require.NoError(t, err)
	require.Len(t, anon, 2)
	assert.Equal(t, newer.ID, anon[0].ID)
	assert.Equal(t, older.ID, anon[1].ID)
	assert.Equal(t, "bob", anon[0].OwnerUsername)
	assert.Equal(t, 1, anon[0].UpvotesCount)
	assert.False(t, anon[0].HasUpvoted)

	forAlice, err := repo.List(ctx, alice.ID, BucketFilter{})
	require.NoError(t, err)
	require.Len(t, forAlice, 2)
	assert.True(t, forAlice[0].HasUpvoted)
	assert.False(t, forAlice[1].HasUpvoted)
}

func TestBucketRepository_ListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBucketRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	done := testutil.CreateBucket(t, db, alice, "Learn to sail")
	testutil.CreateBucket(t, db, bob, "Visit Kyoto")
	_, err := repo.ToggleCompleted(ctx, done.ID)
	require.NoError(t, err)

	completed, err := repo.List(ctx, 0, BucketFilter{Status: models.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0].ID)

	active, err := repo.List(ctx, 0, BucketFilter{Status: models.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Visit Kyoto", active[0].Title)

	byOwner, err := repo.List(ctx, 0, BucketFilter{Query: "BOB"})
	require.NoError(t, err)
	require.Len(t, byOwner, 1)
	assert.Equal(t, "bob", byOwner[0].OwnerUsername)

	byTitle, err := repo.List(ctx, 0, BucketFilter{Query: "sail"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, done.ID, byTitle[0].ID)
}

func TestBucketRepository_ToggleCompletedIsInvolution(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBucketRepository(db)
	ctx := context.Background()
	bucket := testutil.CreateBucket(t, db, testutil.CreateUser(t, db, ""), "Skydive")

	flipped, err := repo.ToggleCompleted(ctx, bucket.ID)
	require.NoError(t, err)
	assert.True(t, flipped.IsCompleted)
	assert.Equal(t, models.StatusCompleted, flipped.Status())

	back, err := repo.ToggleCompleted(ctx, bucket.ID)
	require.NoError(t, err)
	assert.False(t, back.IsCompleted)
	assert.Equal(t, models.StatusActive, back.Status())
}

func TestBucketRepository_ToggleUpvoteIsInvolution(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBucketRepository(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "")
	voter := testutil.CreateUser(t, db, "")
	bucket := testutil.CreateBucket(t, db, owner, "Climb Kilimanjaro")

	added, count, err := repo.ToggleUpvote(ctx, voter.ID, bucket.ID)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, int64(1), count)

	added, count, err = repo.ToggleUpvote(ctx, owner.ID, bucket.ID)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, int64(2), count)

	added, count, err = repo.ToggleUpvote(ctx, voter.ID, bucket.ID)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, int64(1), count)

	_, _, err = repo.ToggleUpvote(ctx, voter.ID, 9999)
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
}

func TestBucketRepository_UpdateNamedColumns(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewBucketRepository(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "")
	other := testutil.CreateUser(t, db, "")
	bucket := testutil.CreateBucket(t, db, owner, "Old title")

	bucket.Title = "New title"
	bucket.Description = "not saved"
	bucket.OwnerID = other.ID
	require.NoError(t, repo.Update(ctx, bucket, "title"))

	reloaded, err := repo.GetByID(ctx, bucket.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "New title", reloaded.Title)
	assert.Empty(t, reloaded.Description)
	assert.Equal(t, owner.ID, reloaded.OwnerID)
}

func TestBucketRepository_DeleteRemovesDependents(t *testing.T) {
	db := testutil.NewDB(t)
	buckets := NewBucketRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "")
	bucket := testutil.CreateBucket(t, db, owner, "Swim with whale sharks")
	keep := testutil.CreateBucket(t, db, owner, "Keep me")

	_, _, err := buckets.ToggleUpvote(ctx, owner.ID, bucket.ID)
	require.NoError(t, err)
	_, _, err = buckets.ToggleUpvote(ctx, owner.ID, keep.ID)
	require.NoError(t, err)
	require.NoError(t, comments.Create(ctx, &models.Comment{Text: "go!", UserID: owner.ID, BucketID: bucket.ID}))

	deleted, err := buckets.Delete(ctx, bucket.ID)
	require.NoError(t, err)
	assert.Equal(t, bucket.Title, deleted.Title)

	var n int64
	require.NoError(t, db.Model(&models.Comment{}).Where("bucket_id = ?", bucket.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Upvote{}).Where("bucket_id = ?", bucket.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Upvote{}).Where("bucket_id = ?", keep.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	_, err = buckets.GetByID(ctx, bucket.ID, 0)
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
	_, err = buckets.Delete(ctx, bucket.ID)
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
}

func TestCommentRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	bucket := testutil.CreateBucket(t, db, alice, "Write a novel")

	first := &models.Comment{Text: "first", UserID: bob.ID, BucketID: bucket.ID}
	second := &models.Comment{Text: "second", UserID: alice.ID, BucketID: bucket.ID}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	list, err := repo.ListByBucket(ctx, bucket.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Text)
	assert.Equal(t, "bob", list[0].Username)
	assert.Equal(t, "second", list[1].Text)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.Equal(t, models.CodeNotFound, appCode(t, repo.Delete(ctx, first.ID)))

	orphan := &models.Comment{Text: "x", UserID: bob.ID, BucketID: 9999}
	assert.Equal(t, models.CodeNotFound, appCode(t, repo.Create(ctx, orphan)))
}
