package server

import (
	"bucketlist/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/buckets/:id/comments
// @Summary List a bucket's comments
// @Description Comments in the order they were written
// @Tags comments
// @Produce json
// @Param id path int true "Bucket ID"
// @Success 200 {array} CommentResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /buckets/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	bucketID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	comments, err := s.commentService.List(c.UserContext(), bucketID)
	if err != nil {
		return respondError(c, err)
	}

	out := make([]CommentResponse, 0, len(comments))
	for _, cm := range comments {
		out = append(out, presentComment(cm))
	}
	return c.JSON(out)
}

// CreateComment handles POST /api/buckets/:id/comments
// @Summary Comment on a bucket
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bucket ID"
// @Param request body object{text=string} true "Comment"
// @Success 201 {object} CommentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /buckets/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	bucketID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	form, err := parseRequestForm(c)
	if err != nil {
		return respondError(c, err)
	}

	comment, err := s.commentService.Create(c.UserContext(), service.CreateCommentInput{
		UserID:   viewerID(c),
		BucketID: bucketID,
		Text:     form.String("text"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(presentComment(comment))
}

// DeleteComment handles DELETE /api/comments/:id
// @Summary Delete a comment
// @Description Only the author may delete a comment
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.commentService.Delete(c.UserContext(), id, viewerID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
