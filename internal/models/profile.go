package models

import "time"

// Profile holds the user-editable part of an account plus bucket counters.
// It is created lazily on first read. The counters are stored values and
// nothing in the application recomputes them.
type Profile struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	User            User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	FirstName       string    `gorm:"size:150" json:"first_name"`
	LastName        string    `gorm:"size:150" json:"last_name"`
	Email           string    `gorm:"size:254" json:"email"`
	Location        string    `gorm:"size:255" json:"location"`
	Bio             string    `gorm:"type:text" json:"bio"`
	ProfilePicture  *string   `gorm:"size:512" json:"profile_picture"`
	TotalBuckets    uint      `gorm:"not null;default:0" json:"total_buckets"`
	CompleteBuckets uint      `gorm:"not null;default:0" json:"complete_buckets"`
	ActiveBuckets   uint      `gorm:"not null;default:0" json:"active_buckets"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
