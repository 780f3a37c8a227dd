package models

import "time"

// Bucket status values derived from IsCompleted.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// TitleMaxLength bounds Bucket.Title.
const TitleMaxLength = 200

// Bucket is a single goal on a user's list.
type Bucket struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Title       string  `gorm:"size:200;not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	Image       *string `gorm:"size:512" json:"image"`
	OwnerID     uint    `gorm:"not null;index" json:"owner_id"`
	Owner       User    `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	IsCompleted bool    `gorm:"not null;default:false" json:"is_completed"`
	// OwnerUsername, UpvotesCount and HasUpvoted are computed at query time
	OwnerUsername string    `gorm:"->;-:migration" json:"owner"`
	UpvotesCount  int       `gorm:"->;-:migration" json:"upvotes_count"`
	HasUpvoted    bool      `gorm:"->;-:migration" json:"has_upvoted"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Status is "completed" iff the bucket is completed.
func (b *Bucket) Status() string {
	if b.IsCompleted {
		return StatusCompleted
	}
	return StatusActive
}

// Upvote records that a user upvoted a bucket. A (user, bucket) pair exists
// at most once.
type Upvote struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	BucketID  uint      `gorm:"primaryKey;autoIncrement:false;index" json:"bucket_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Bucket    Bucket    `gorm:"foreignKey:BucketID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
