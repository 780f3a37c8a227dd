package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"bucketlist/internal/cache"
	"bucketlist/internal/middleware"
	"bucketlist/internal/models"
	"bucketlist/internal/notifications"
	"bucketlist/internal/observability"
	"bucketlist/internal/repository"
	"bucketlist/internal/validation"
)

// Messages returned when a non-owner touches a bucket.
const (
	MsgOnlyOwnerCanEdit   = "Only owner can edit."
	MsgOnlyOwnerCanDelete = "Only owner can delete."
	MsgNotYourBucket      = "Not your bucket."
)

// Upvote toggle outcomes.
const (
	UpvoteAdded   = "added"
	UpvoteRemoved = "removed"
)

// BucketService implements the bucket operations.
type BucketService struct {
	buckets  repository.BucketRepository
	images   *ImageStore
	cache    *cache.Store
	notifier EventPublisher
}

func NewBucketService(
	buckets repository.BucketRepository,
	images *ImageStore,
	store *cache.Store,
	notifier EventPublisher,
) *BucketService {
	return &BucketService{buckets: buckets, images: images, cache: store, notifier: notifier}
}

// CreateBucketInput is the POST /buckets payload. Title is nil when the
// field was not sent at all.
type CreateBucketInput struct {
	OwnerID     uint
	Title       *string
	Description string
	Image       io.Reader
}

// UpdateBucketInput is the PATCH payload. Nil fields are left unchanged.
type UpdateBucketInput struct {
	UserID      uint
	BucketID    uint
	Title       *string
	Description *string
	IsCompleted *bool
	Image       io.Reader
	ClearImage  bool
}

// UpvoteResult reports the state after a toggle.
type UpvoteResult struct {
	BucketID     uint
	UpvotesCount int64
	Action       string
}

func (s *BucketService) List(ctx context.Context, viewerID uint, filter repository.BucketFilter) (buckets []*models.Bucket, err error) {
	ctx, finish := observability.StartSpan(ctx, "BucketService", "List")
	defer func() { finish(err) }()

	switch filter.Status {
	case "", models.StatusActive, models.StatusCompleted:
	default:
		return nil, fieldError("status", fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", filter.Status))
	}
	return s.buckets.List(ctx, viewerID, filter)
}

// Get returns a bucket as seen by viewerID. Anonymous reads go through the
// cache since they carry no per-viewer fields.
func (s *BucketService) Get(ctx context.Context, id, viewerID uint) (bucket *models.Bucket, err error) {
	ctx, finish := observability.StartSpan(ctx, "BucketService", "Get")
	defer func() { finish(err) }()

	if viewerID != 0 {
		return s.buckets.GetByID(ctx, id, viewerID)
	}
	var cached models.Bucket
	err = s.cache.Aside(ctx, "bucket", cache.BucketKey(id), &cached, cache.BucketTTL, func() error {
		b, err := s.buckets.GetByID(ctx, id, 0)
		if err != nil {
			return err
		}
		cached = *b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cached, nil
}

func validateTitle(fields validation.FieldErrors, title string) {
	switch {
	case title == "":
		fields.Add("title", "This field may not be blank.")
	case len([]rune(title)) > models.TitleMaxLength:
		fields.Add("title", fmt.Sprintf("Ensure this field has no more than %d characters.", models.TitleMaxLength))
	}
}

func (s *BucketService) Create(ctx context.Context, in CreateBucketInput) (bucket *models.Bucket, err error) {
	ctx, finish := observability.StartSpan(ctx, "BucketService", "Create")
	defer func() { finish(err) }()

	fields := validation.FieldErrors{}
	var title string
	if in.Title == nil {
		fields.Add("title", "This field is required.")
	} else {
		title = strings.TrimSpace(*in.Title)
		validateTitle(fields, title)
	}
	if !fields.Empty() {
		return nil, models.NewFieldValidationError(fields)
	}

	bucket = &models.Bucket{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		OwnerID:     in.OwnerID,
	}
	if in.Image != nil {
		key, err := s.images.Save(ctx, "image", "buckets/media", in.Image)
		if err != nil {
			return nil, err
		}
		bucket.Image = &key
	}

	if err := s.buckets.Create(ctx, bucket); err != nil {
		s.images.Remove(ctx, bucket.Image)
		return nil, err
	}

	observability.RecordBucketEvent("create")
	publish(ctx, s.notifier, 0, notifications.Event{
		Type:     notifications.EventBucketCreated,
		BucketID: bucket.ID,
		ActorID:  in.OwnerID,
	})
	return s.buckets.GetByID(ctx, bucket.ID, in.OwnerID)
}

// ownedBucket loads a bucket and checks userID owns it.
func (s *BucketService) ownedBucket(ctx context.Context, id, userID uint, forbidden string) (*models.Bucket, error) {
	bucket, err := s.buckets.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if bucket.OwnerID != userID {
		return nil, models.NewForbiddenError(forbidden)
	}
	return bucket, nil
}

func (s *BucketService) Update(ctx context.Context, in UpdateBucketInput) (bucket *models.Bucket, err error) {
	ctx, finish := observability.StartSpan(ctx, "BucketService", "Update")
	defer func() { finish(err) }()

	bucket, err = s.ownedBucket(ctx, in.BucketID, in.UserID, MsgOnlyOwnerCanEdit)
	if err != nil {
		return nil, err
	}

	fields := validation.FieldErrors{}
	var columns []string
	if in.Title != nil {
		bucket.Title = strings.TrimSpace(*in.Title)
		validateTitle(fields, bucket.Title)
		columns = append(columns, "title")
	}
	if !fields.Empty() {
		return nil, models.NewFieldValidationError(fields)
	}
	if in.Description != nil {
		bucket.Description = strings.TrimSpace(*in.Description)
		columns = append(columns, "description")
	}
	if in.IsCompleted != nil {
		bucket.IsCompleted = *in.IsCompleted
		columns = append(columns, "is_completed")
	}

	oldImage := bucket.Image
	replacedImage := false
	switch {
	case in.Image != nil:
		key, err := s.images.Save(ctx, "image", "buckets/media", in.Image)
		if err != nil {
			return nil, err
		}
		bucket.Image = &key
		columns = append(columns, "image")
		replacedImage = true
	case in.ClearImage:
		bucket.Image = nil
		columns = append(columns, "image")
		replacedImage = true
	}

	if len(columns) == 0 {
		return bucket, nil
	}
	columns = append(columns, "updated_at")
	if err := s.buckets.Update(ctx, bucket, columns...); err != nil {
		if in.Image != nil {
			s.images.Remove(ctx, bucket.Image)
		}
		return nil, err
	}
	if replacedImage {
		s.images.Remove(ctx, oldImage)
	}

	s.cache.Invalidate(ctx, cache.BucketKey(bucket.ID))
	observability.RecordBucketEvent("update")
	publish(ctx, s.notifier, 0, notifications.Event{
		Type:     notifications.EventBucketUpdated,
		BucketID: bucket.ID,
		ActorID:  in.UserID,
	})
	return s.buckets.GetByID(ctx, bucket.ID, in.UserID)
}

func (s *BucketService) Delete(ctx context.Context, id, userID uint) (err error) {
	ctx, finish := observability.StartSpan(ctx, "BucketService", "Delete")
	defer func() { finish(err) }()

	if _, err := s.ownedBucket(ctx, id, userID, MsgOnlyOwnerCanDelete); err != nil {
		return err
	}
	deleted, err := s.buckets.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.images.Remove(ctx, deleted.Image)
	s.cache.Invalidate(ctx, cache.BucketKey(id))

	observability.RecordBucketEvent("delete")
	publish(ctx, s.notifier, 0, notifications.Event{
		Type:     notifications.EventBucketDeleted,
		BucketID: id,
		ActorID:  userID,
	})
	middleware.Logger.InfoContext(ctx, "bucket deleted", "bucket_id", id)
	return nil
}

func (s *BucketService) ToggleComplete(ctx context.Context, id, userID uint) (bucket *models.Bucket, err error) {
	ctx, finish := observability.StartSpan(ctx, "BucketService", "ToggleComplete")
	defer func() { finish(err) }()

	if _, err := s.ownedBucket(ctx, id, userID, MsgNotYourBucket); err != nil {
		return nil, err
	}
	bucket, err = s.buckets.ToggleCompleted(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.BucketKey(id))

	eventType := notifications.EventBucketReopened
	if bucket.IsCompleted {
		eventType = notifications.EventBucketCompleted
	}
	observability.RecordBucketEvent("toggle_complete")
	publish(ctx, s.notifier, 0, notifications.Event{Type: eventType, BucketID: id, ActorID: userID})
	return bucket, nil
}

func (s *BucketService) ToggleUpvote(ctx context.Context, id, userID uint) (result *UpvoteResult, err error) {
	ctx, finish := observability.StartSpan(ctx, "BucketService", "ToggleUpvote")
	defer func() { finish(err) }()

	bucket, err := s.buckets.GetByID(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	added, count, err := s.buckets.ToggleUpvote(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.BucketKey(id))

	result = &UpvoteResult{BucketID: id, UpvotesCount: count, Action: UpvoteRemoved}
	eventType := notifications.EventBucketUnvoted
	if added {
		result.Action = UpvoteAdded
		eventType = notifications.EventBucketUpvoted
	}
	observability.RecordBucketEvent("upvote_" + result.Action)
	publish(ctx, s.notifier, bucket.OwnerID, notifications.Event{Type: eventType, BucketID: id, ActorID: userID})
	return result, nil
}
