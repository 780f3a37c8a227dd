package server

import (
	"time"

	"bucketlist/internal/models"
	"bucketlist/internal/service"

	"github.com/gofiber/fiber/v2"
)

// BucketResponse is the public representation of a bucket.
type BucketResponse struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Image        *string   `json:"image"`
	IsCompleted  bool      `json:"is_completed"`
	Status       string    `json:"status"`
	UpvotesCount int       `json:"upvotes_count"`
	Owner        string    `json:"owner"`
	IsOwner      bool      `json:"is_owner"`
	HasUpvoted   bool      `json:"has_upvoted"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BucketListResponse wraps GET /buckets results.
type BucketListResponse struct {
	Count   int              `json:"count"`
	Results []BucketResponse `json:"results"`
}

// ToggleCompleteResponse is returned by POST /buckets/:id/toggle-complete.
type ToggleCompleteResponse struct {
	ID          uint   `json:"id"`
	IsCompleted bool   `json:"is_completed"`
	Status      string `json:"status"`
}

// UpvoteResponse is returned by POST /buckets/:id/upvote.
type UpvoteResponse struct {
	ID           uint   `json:"id"`
	UpvotesCount int64  `json:"upvotes_count"`
	Action       string `json:"action"`
}

// CommentResponse is the public representation of a comment.
type CommentResponse struct {
	ID        uint      `json:"id"`
	Text      string    `json:"text"`
	User      string    `json:"user"`
	UserID    uint      `json:"user_id"`
	Bucket    uint      `json:"bucket"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileResponse is the caller's profile.
type ProfileResponse struct {
	ID              uint    `json:"id"`
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Location        string  `json:"location"`
	Bio             string  `json:"bio"`
	ProfilePicture  *string `json:"profile_picture"`
	TotalBuckets    uint    `json:"total_buckets"`
	CompleteBuckets uint    `json:"complete_buckets"`
	ActiveBuckets   uint    `json:"active_buckets"`
}

// ProfileStatsResponse carries the stored bucket counters.
type ProfileStatsResponse struct {
	TotalBuckets    uint `json:"total_buckets"`
	CompleteBuckets uint `json:"complete_buckets"`
	ActiveBuckets   uint `json:"active_buckets"`
}

// SignupUser is the user echo in the signup response.
type SignupUser struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SignupResponse is returned by POST /signup.
type SignupResponse struct {
	User    SignupUser `json:"user"`
	Refresh string     `json:"refresh"`
	Access  string     `json:"access"`
}

// LoginResponse is returned by POST /login.
type LoginResponse struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	Username string `json:"username"`
	UserID   uint   `json:"user_id"`
}

func (s *Server) presentBucket(c *fiber.Ctx, b *models.Bucket, viewer uint) BucketResponse {
	return BucketResponse{
		ID:           b.ID,
		Title:        b.Title,
		Description:  b.Description,
		Image:        s.mediaURL(c, b.Image),
		IsCompleted:  b.IsCompleted,
		Status:       b.Status(),
		UpvotesCount: b.UpvotesCount,
		Owner:        b.OwnerUsername,
		IsOwner:      viewer != 0 && b.OwnerID == viewer,
		HasUpvoted:   viewer != 0 && b.HasUpvoted,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func presentComment(cm *models.Comment) CommentResponse {
	return CommentResponse{
		ID:        cm.ID,
		Text:      cm.Text,
		User:      cm.Username,
		UserID:    cm.UserID,
		Bucket:    cm.BucketID,
		CreatedAt: cm.CreatedAt,
	}
}

func (s *Server) presentProfile(c *fiber.Ctx, d *service.ProfileDetails) ProfileResponse {
	p := d.Profile
	return ProfileResponse{
		ID:              p.ID,
		Username:        d.Username,
		Email:           p.Email,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Location:        p.Location,
		Bio:             p.Bio,
		ProfilePicture:  s.mediaURL(c, p.ProfilePicture),
		TotalBuckets:    p.TotalBuckets,
		CompleteBuckets: p.CompleteBuckets,
		ActiveBuckets:   p.ActiveBuckets,
	}
}
