package service

import (
	"context"
	"strings"

	"bucketlist/internal/models"
	"bucketlist/internal/notifications"
	"bucketlist/internal/observability"
	"bucketlist/internal/repository"
)

// MsgNotYourComment is returned when someone deletes another user's comment.
const MsgNotYourComment = "You can delete only your own comment."

type CommentService struct {
	comments repository.CommentRepository
	buckets  repository.BucketRepository
	notifier EventPublisher
}

func NewCommentService(
	comments repository.CommentRepository,
	buckets repository.BucketRepository,
	notifier EventPublisher,
) *CommentService {
	return &CommentService{comments: comments, buckets: buckets, notifier: notifier}
}

// CreateCommentInput is the POST payload; Text is nil when not sent.
type CreateCommentInput struct {
	UserID   uint
	BucketID uint
	Text     *string
}

func (s *CommentService) List(ctx context.Context, bucketID uint) (comments []*models.Comment, err error) {
	ctx, finish := observability.StartSpan(ctx, "CommentService", "List")
	defer func() { finish(err) }()

	if _, err := s.buckets.GetByID(ctx, bucketID, 0); err != nil {
		return nil, err
	}
	return s.comments.ListByBucket(ctx, bucketID)
}

func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (comment *models.Comment, err error) {
	ctx, finish := observability.StartSpan(ctx, "CommentService", "Create")
	defer func() { finish(err) }()

	bucket, err := s.buckets.GetByID(ctx, in.BucketID, 0)
	if err != nil {
		return nil, err
	}
	if in.Text == nil {
		return nil, fieldError("text", "This field is required.")
	}
	text := strings.TrimSpace(*in.Text)
	if text == "" {
		return nil, fieldError("text", "This field may not be blank.")
	}

	comment = &models.Comment{Text: text, UserID: in.UserID, BucketID: in.BucketID}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	publish(ctx, s.notifier, bucket.OwnerID, notifications.Event{
		Type:      notifications.EventCommentCreated,
		BucketID:  in.BucketID,
		ActorID:   in.UserID,
		CommentID: comment.ID,
	})
	return s.comments.GetByID(ctx, comment.ID)
}

func (s *CommentService) Delete(ctx context.Context, commentID, userID uint) (err error) {
	ctx, finish := observability.StartSpan(ctx, "CommentService", "Delete")
	defer func() { finish(err) }()

	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return models.NewForbiddenError(MsgNotYourComment)
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}
	publish(ctx, s.notifier, 0, notifications.Event{
		Type:      notifications.EventCommentDeleted,
		BucketID:  comment.BucketID,
		ActorID:   userID,
		CommentID: commentID,
	})
	return nil
}
