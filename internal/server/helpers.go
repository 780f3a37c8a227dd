package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"strings"

	"bucketlist/internal/middleware"
	"bucketlist/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 404 JSON response and returns errResponseWritten,
// matching how the API treats ids that cannot exist.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Resource", c.Params(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// respondError renders a service error with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}
	if appErr.Code == models.CodeInternal {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
	}
	return models.RespondWithError(c, models.StatusFor(appErr.Code), appErr)
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
		return models.CodeValidation
	case fiber.StatusUnauthorized:
		return models.CodeUnauthorized
	case fiber.StatusForbidden:
		return models.CodeForbidden
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return models.CodeNotFound
	default:
		if status < fiber.StatusInternalServerError {
			return ""
		}
		return models.CodeInternal
	}
}

// viewerID is the authenticated caller, or 0 for anonymous requests.
func viewerID(c *fiber.Ctx) uint {
	id, _ := middleware.UserID(c)
	return id
}

// requestForm gives JSON, urlencoded and multipart bodies one shape: scalar
// fields as strings, explicit JSON nulls, and uploaded files.
type requestForm struct {
	values map[string]string
	nulls  map[string]bool
	files  map[string]*multipart.FileHeader
}

func parseRequestForm(c *fiber.Ctx) (*requestForm, error) {
	form := &requestForm{
		values: map[string]string{},
		nulls:  map[string]bool{},
		files:  map[string]*multipart.FileHeader{},
	}
	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))

	switch {
	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		mf, err := c.MultipartForm()
		if err != nil {
			return nil, models.NewValidationError("Malformed multipart body")
		}
		for key, vals := range mf.Value {
			if len(vals) > 0 {
				form.values[key] = vals[0]
			}
		}
		for key, fhs := range mf.File {
			if len(fhs) > 0 {
				form.files[key] = fhs[0]
			}
		}
	case strings.HasPrefix(contentType, fiber.MIMEApplicationForm):
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			form.values[string(key)] = string(value)
		})
	default:
		body := bytes.TrimSpace(c.Body())
		if len(body) == 0 {
			return form, nil
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, models.NewValidationError("Invalid request body")
		}
		for key, msg := range raw {
			trimmed := bytes.TrimSpace(msg)
			switch {
			case bytes.Equal(trimmed, []byte("null")):
				form.nulls[key] = true
			case len(trimmed) > 0 && trimmed[0] == '"':
				var s string
				if err := json.Unmarshal(trimmed, &s); err != nil {
					return nil, models.NewValidationError("Invalid request body")
				}
				form.values[key] = s
			default:
				form.values[key] = string(trimmed)
			}
		}
	}
	return form, nil
}

// String returns the field's value, or nil when it was not sent.
func (f *requestForm) String(key string) *string {
	if v, ok := f.values[key]; ok {
		return &v
	}
	return nil
}

// Value returns the field's value or "".
func (f *requestForm) Value(key string) string {
	return f.values[key]
}

// Bool parses a boolean field the way HTML forms and JSON both send them.
func (f *requestForm) Bool(key string) (*bool, error) {
	v, ok := f.values[key]
	if !ok {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "on", "yes":
		b := true
		return &b, nil
	case "false", "0", "off", "no":
		b := false
		return &b, nil
	}
	return nil, models.NewFieldValidationError(map[string][]string{key: {"Must be a valid boolean."}})
}

// File returns the uploaded file for key. cleared is true when the client
// sent an explicit null or empty value to remove the current file.
func (f *requestForm) File(key string) (fh *multipart.FileHeader, cleared bool, err error) {
	if fh, ok := f.files[key]; ok {
		return fh, false, nil
	}
	if f.nulls[key] {
		return nil, true, nil
	}
	if v, ok := f.values[key]; ok {
		if v == "" {
			return nil, true, nil
		}
		return nil, false, models.NewFieldValidationError(map[string][]string{
			key: {"The submitted data was not a file. Check the encoding type on the form."},
		})
	}
	return nil, false, nil
}

// mediaURL turns a storage key into an absolute URL, resolving relative
// local-storage paths against PUBLIC_BASE_URL or the request's own origin.
func (s *Server) mediaURL(c *fiber.Ctx, key *string) *string {
	if key == nil || *key == "" {
		return nil
	}
	u := s.storage.URL(*key)
	if strings.HasPrefix(u, "/") {
		base := strings.TrimRight(s.config.PublicBaseURL, "/")
		if base == "" {
			base = c.BaseURL()
		}
		u = base + u
	}
	return &u
}

// bindBody decodes a JSON or form body into out. An empty body leaves out
// untouched so required-field checks report what is missing.
func bindBody(c *fiber.Ctx, out interface{}) error {
	if len(bytes.TrimSpace(c.Body())) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}
