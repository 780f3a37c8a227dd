package server

import (
	"mime/multipart"
	"strings"

	"bucketlist/internal/models"
	"bucketlist/internal/repository"
	"bucketlist/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListBuckets handles GET /api/buckets
// @Summary List buckets
// @Description All buckets, newest first, annotated for the caller
// @Tags buckets
// @Produce json
// @Param status query string false "active or completed"
// @Param q query string false "Title or owner substring"
// @Success 200 {object} BucketListResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /buckets [get]
func (s *Server) ListBuckets(c *fiber.Ctx) error {
	viewer := viewerID(c)
	filter := repository.BucketFilter{
		Status: strings.TrimSpace(c.Query("status")),
		Query:  strings.TrimSpace(c.Query("q")),
	}

	buckets, err := s.bucketService.List(c.UserContext(), viewer, filter)
	if err != nil {
		return respondError(c, err)
	}

	results := make([]BucketResponse, 0, len(buckets))
	for _, b := range buckets {
		results = append(results, s.presentBucket(c, b, viewer))
	}
	return c.JSON(BucketListResponse{Count: len(results), Results: results})
}

// openUpload opens an uploaded file part. The caller closes it.
func openUpload(fh *multipart.FileHeader) (multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return f, nil
}

// CreateBucket handles POST /api/buckets
// @Summary Create a bucket
// @Description Owner is always the caller and new buckets start active
// @Tags buckets
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param image formData file false "Image"
// @Success 201 {object} BucketResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /buckets [post]
func (s *Server) CreateBucket(c *fiber.Ctx) error {
	form, err := parseRequestForm(c)
	if err != nil {
		return respondError(c, err)
	}

	userID := viewerID(c)
	in := service.CreateBucketInput{
		OwnerID:     userID,
		Title:       form.String("title"),
		Description: form.Value("description"),
	}

	fh, _, err := form.File("image")
	if err != nil {
		return respondError(c, err)
	}
	if fh != nil {
		f, err := openUpload(fh)
		if err != nil {
			return respondError(c, err)
		}
		defer f.Close()
		in.Image = f
	}

	bucket, err := s.bucketService.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(s.presentBucket(c, bucket, userID))
}

// GetBucket handles GET /api/buckets/:id
// @Summary Get a bucket
// @Tags buckets
// @Produce json
// @Param id path int true "Bucket ID"
// @Success 200 {object} BucketResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /buckets/{id} [get]
func (s *Server) GetBucket(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	viewer := viewerID(c)
	bucket, err := s.bucketService.Get(c.UserContext(), id, viewer)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.presentBucket(c, bucket, viewer))
}

// UpdateBucket handles PATCH /api/buckets/:id
// @Summary Partially update a bucket
// @Description Owner only. Sending image as null or an empty value removes the image.
// @Tags buckets
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bucket ID"
// @Param title formData string false "Title"
// @Param description formData string false "Description"
// @Param is_completed formData boolean false "Completion flag"
// @Param image formData file false "Image"
// @Success 200 {object} BucketResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /buckets/{id} [patch]
func (s *Server) UpdateBucket(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	form, err := parseRequestForm(c)
	if err != nil {
		return respondError(c, err)
	}

	userID := viewerID(c)
	in := service.UpdateBucketInput{
		UserID:      userID,
		BucketID:    id,
		Title:       form.String("title"),
		Description: form.String("description"),
	}
	if in.IsCompleted, err = form.Bool("is_completed"); err != nil {
		return respondError(c, err)
	}

	fh, cleared, err := form.File("image")
	if err != nil {
		return respondError(c, err)
	}
	in.ClearImage = cleared
	if fh != nil {
		f, err := openUpload(fh)
		if err != nil {
			return respondError(c, err)
		}
		defer f.Close()
		in.Image = f
	}

	bucket, err := s.bucketService.Update(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.presentBucket(c, bucket, userID))
}

// DeleteBucket handles DELETE /api/buckets/:id
// @Summary Delete a bucket
// @Description Owner only. Comments, upvotes and the stored image go with it.
// @Tags buckets
// @Security BearerAuth
// @Param id path int true "Bucket ID"
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /buckets/{id} [delete]
func (s *Server) DeleteBucket(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.bucketService.Delete(c.UserContext(), id, viewerID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleComplete handles POST /api/buckets/:id/toggle-complete
// @Summary Flip a bucket's completion
// @Tags buckets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bucket ID"
// @Success 200 {object} ToggleCompleteResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /buckets/{id}/toggle-complete [post]
func (s *Server) ToggleComplete(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	bucket, err := s.bucketService.ToggleComplete(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ToggleCompleteResponse{
		ID:          bucket.ID,
		IsCompleted: bucket.IsCompleted,
		Status:      bucket.Status(),
	})
}

// ToggleUpvote handles POST /api/buckets/:id/upvote
// @Summary Toggle the caller's upvote
// @Tags buckets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bucket ID"
// @Success 200 {object} UpvoteResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /buckets/{id}/upvote [post]
func (s *Server) ToggleUpvote(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.bucketService.ToggleUpvote(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(UpvoteResponse{
		ID:           result.BucketID,
		UpvotesCount: result.UpvotesCount,
		Action:       result.Action,
	})
}
