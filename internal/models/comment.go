package models

import "time"

// Comment is a short text left by a user on a bucket.
type Comment struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Text   string `gorm:"type:text;not null" json:"text"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	// Username is the author's username, joined at query time
	Username  string    `gorm:"->;-:migration" json:"user"`
	BucketID  uint      `gorm:"not null;index" json:"bucket_id"`
	Bucket    Bucket    `gorm:"foreignKey:BucketID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
