// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"

	"bucketlist/internal/database"
	"bucketlist/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
// It holds a single connection, so code under test must not use the outer
// handle while a transaction is open.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN("file::memory:")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewRedis starts a miniredis instance and a client for it.
func NewRedis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

var userSeq atomic.Uint64

// DefaultPassword is the plaintext password of users made by CreateUser.
const DefaultPassword = "Kilimanjaro#Sunrise"

// CreateUser inserts an active user with a unique username and DefaultPassword.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	if username == "" {
		username = fmt.Sprintf("user%d", userSeq.Add(1))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  string(hash),
		FirstName: "First",
		LastName:  "Last",
		IsActive:  true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreateBucket inserts a bucket owned by owner.
func CreateBucket(t testing.TB, db *gorm.DB, owner *models.User, title string) *models.Bucket {
	t.Helper()
	bucket := &models.Bucket{Title: title, OwnerID: owner.ID}
	if err := db.Create(bucket).Error; err != nil {
		t.Fatalf("create bucket: %v", err)
	}
	return bucket
}

// PNG encodes a solid w x h image.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
