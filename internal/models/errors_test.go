package models

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := map[string]int{
		CodeValidation:      400,
		CodeInvalidToken:    400,
		CodeUnauthorized:    401,
		CodeForbidden:       403,
		CodeAccountDisabled: 403,
		CodeNotFound:        404,
		CodeInternal:        500,
		"SOMETHING_ELSE":    500,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFor(code), code)
	}
}

func TestRespondWithError(t *testing.T) {
	app := fiber.New()
	app.Get("/fields", func(c *fiber.Ctx) error {
		return RespondWithError(c, 400, NewFieldValidationError(map[string][]string{
			"re_password": {"Passwords do not match."},
		}))
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return RespondWithError(c, 500, NewInternalError(errors.New("dsn=secret")))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/fields", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	var body ErrorResponse
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, CodeValidation, body.Code)
	assert.Equal(t, []string{"Passwords do not match."}, body.Fields["re_password"])

	resp, err = app.Test(httptest.NewRequest("GET", "/internal", nil))
	require.NoError(t, err)
	raw, _ = io.ReadAll(resp.Body)
	assert.NotContains(t, string(raw), "secret")
}

func TestBucketStatus(t *testing.T) {
	b := Bucket{}
	assert.Equal(t, StatusActive, b.Status())
	b.IsCompleted = true
	assert.Equal(t, StatusCompleted, b.Status())
}
