package repository

import (
	"context"
	"errors"

	"bucketlist/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByBucket(ctx context.Context, bucketID uint) ([]*models.Comment, error)
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func withAuthor(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Comment{}).
		Select("comments.*, users.username AS username").
		Joins("JOIN users ON users.id = comments.user_id")
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return models.NewNotFoundError("Bucket", comment.BucketID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := withAuthor(r.db.WithContext(ctx)).Where("comments.id = ?", id).Take(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// ListByBucket returns the bucket's comments in insertion order.
func (r *commentRepository) ListByBucket(ctx context.Context, bucketID uint) ([]*models.Comment, error) {
	comments := make([]*models.Comment, 0)
	err := withAuthor(r.db.WithContext(ctx)).
		Where("comments.bucket_id = ?", bucketID).
		Order("comments.id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}
