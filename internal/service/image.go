package service

import (
	"bytes"
	"context"
	"errors"
	"io"

	"bucketlist/internal/media"
	"bucketlist/internal/middleware"
	"bucketlist/internal/models"
	"bucketlist/internal/observability"
	"bucketlist/internal/storage"
)

// ImageStore normalises uploaded images and keeps them in object storage.
type ImageStore struct {
	processor *media.Processor
	storage   storage.Storage
}

// NewImageStore pairs an image processor with a storage backend.
func NewImageStore(processor *media.Processor, store storage.Storage) *ImageStore {
	return &ImageStore{processor: processor, storage: store}
}

// Save validates and stores the image read from r under prefix and returns
// its storage key. field names the request field for validation errors.
func (s *ImageStore) Save(ctx context.Context, field, prefix string, r io.Reader) (string, error) {
	img, err := s.processor.Process(r)
	if err != nil {
		return "", imageValidationError(field, err)
	}
	key := media.NewKey(prefix, img.Ext)
	if err := s.storage.Save(ctx, key, bytes.NewReader(img.Data), img.ContentType); err != nil {
		return "", models.NewInternalError(err)
	}
	observability.MediaUploadBytes.Observe(float64(len(img.Data)))
	return key, nil
}

// Remove deletes a stored image, logging failures. An orphaned object is
// preferable to failing a request whose database work already committed.
func (s *ImageStore) Remove(ctx context.Context, key *string) {
	if s == nil || key == nil || *key == "" {
		return
	}
	if err := s.storage.Delete(ctx, *key); err != nil {
		middleware.Logger.WarnContext(ctx, "image delete failed", "key", *key, "error", err)
	}
}

func imageValidationError(field string, err error) error {
	var tooLarge *media.TooLargeError
	switch {
	case errors.As(err, &tooLarge):
		return fieldError(field, tooLarge.Error())
	case errors.Is(err, media.ErrEmptyFile), errors.Is(err, media.ErrInvalidImage):
		return fieldError(field, err.Error())
	default:
		return models.NewInternalError(err)
	}
}
