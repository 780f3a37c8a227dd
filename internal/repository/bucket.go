package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"bucketlist/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BucketFilter narrows List. Zero values mean no filtering.
type BucketFilter struct {
	// Status is models.StatusActive or models.StatusCompleted
	Status string
	// Query matches a substring of the title or the owner's username
	Query string
}

// BucketRepository defines the interface for bucket data operations
type BucketRepository interface {
	List(ctx context.Context, viewerID uint, filter BucketFilter) ([]*models.Bucket, error)
	GetByID(ctx context.Context, id, viewerID uint) (*models.Bucket, error)
	Create(ctx context.Context, bucket *models.Bucket) error
	// Update writes the named columns of bucket.
	Update(ctx context.Context, bucket *models.Bucket, columns ...string) error
	ToggleCompleted(ctx context.Context, id uint) (*models.Bucket, error)
	ToggleUpvote(ctx context.Context, userID, bucketID uint) (added bool, count int64, err error)
	// Delete removes the bucket with its comments and upvotes and returns
	// the removed row.
	Delete(ctx context.Context, id uint) (*models.Bucket, error)
}

type bucketRepository struct {
	db *gorm.DB
}

// NewBucketRepository creates a new bucket repository
func NewBucketRepository(db *gorm.DB) BucketRepository {
	return &bucketRepository{db: db}
}

const (
	bucketColumns      = "buckets.*, users.username AS owner_username"
	upvotesCountColumn = "(SELECT COUNT(*) FROM upvotes WHERE upvotes.bucket_id = buckets.id) AS upvotes_count"
	hasUpvotedColumn   = "EXISTS(SELECT 1 FROM upvotes WHERE upvotes.bucket_id = buckets.id AND upvotes.user_id = ?) AS has_upvoted"
)

// applyBucketDetails selects the owner's username, the upvote count and,
// for a signed-in viewer, whether they upvoted.
func applyBucketDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	db = db.Model(&models.Bucket{}).Joins("JOIN users ON users.id = buckets.owner_id")
	if viewerID == 0 {
		return db.Select(bucketColumns + ", " + upvotesCountColumn)
	}
	return db.Select(bucketColumns+", "+upvotesCountColumn+", "+hasUpvotedColumn, viewerID)
}

func (r *bucketRepository) List(ctx context.Context, viewerID uint, filter BucketFilter) ([]*models.Bucket, error) {
	query := applyBucketDetails(r.db.WithContext(ctx), viewerID)

	switch filter.Status {
	case models.StatusActive:
		query = query.Where("buckets.is_completed = ?", false)
	case models.StatusCompleted:
		query = query.Where("buckets.is_completed = ?", true)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("(LOWER(buckets.title) LIKE ? OR LOWER(users.username) LIKE ?)", pattern, pattern)
	}

	buckets := make([]*models.Bucket, 0)
	if err := query.Order("buckets.created_at DESC, buckets.id DESC").Find(&buckets).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return buckets, nil
}

func (r *bucketRepository) GetByID(ctx context.Context, id, viewerID uint) (*models.Bucket, error) {
	var bucket models.Bucket
	err := applyBucketDetails(r.db.WithContext(ctx), viewerID).
		Where("buckets.id = ?", id).
		Take(&bucket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Bucket", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &bucket, nil
}

func (r *bucketRepository) Create(ctx context.Context, bucket *models.Bucket) error {
	if err := r.db.WithContext(ctx).Create(bucket).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return models.NewNotFoundError("User", bucket.OwnerID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *bucketRepository) Update(ctx context.Context, bucket *models.Bucket, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(bucket).Select(columns).Updates(bucket)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Bucket", bucket.ID)
	}
	return nil
}

// ToggleCompleted flips the flag in a single statement so concurrent
// toggles never lose an update.
func (r *bucketRepository) ToggleCompleted(ctx context.Context, id uint) (*models.Bucket, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Bucket{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"is_completed": gorm.Expr("NOT is_completed"),
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return nil, models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Bucket", id)
	}
	return r.GetByID(ctx, id, 0)
}

// ToggleUpvote removes the caller's upvote if present and adds it
// otherwise, inside one transaction. The bucket row is locked first so
// toggles on the same bucket run one after another.
func (r *bucketRepository) ToggleUpvote(ctx context.Context, userID, bucketID uint) (bool, int64, error) {
	var (
		added bool
		count int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked []uint
		if err := tx.Model(&models.Bucket{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", bucketID).
			Pluck("id", &locked).Error; err != nil {
			return models.NewInternalError(err)
		}
		if len(locked) == 0 {
			return models.NewNotFoundError("Bucket", bucketID)
		}

		removed := tx.Where("user_id = ? AND bucket_id = ?", userID, bucketID).Delete(&models.Upvote{})
		if removed.Error != nil {
			return models.NewInternalError(removed.Error)
		}
		if removed.RowsAffected == 0 {
			upvote := models.Upvote{UserID: userID, BucketID: bucketID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&upvote).Error; err != nil {
				return models.NewInternalError(err)
			}
			added = true
		}

		if err := tx.Model(&models.Upvote{}).Where("bucket_id = ?", bucketID).Count(&count).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return added, count, nil
}

func (r *bucketRepository) Delete(ctx context.Context, id uint) (*models.Bucket, error) {
	var bucket models.Bucket
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&bucket, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Bucket", id)
			}
			return models.NewInternalError(err)
		}
		if err := tx.Where("bucket_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("bucket_id = ?", id).Delete(&models.Upvote{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Delete(&models.Bucket{}, id).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bucket, nil
}
