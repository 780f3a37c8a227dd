package middleware

import (
	"context"
	"strings"

	"bucketlist/internal/models"
	"bucketlist/internal/token"

	"github.com/gofiber/fiber/v2"
)

// Access describes who may call a route.
type Access int

const (
	// Optional routes identify the caller when a valid bearer token is sent.
	Optional Access = iota
	// Authenticated routes reject requests without a valid access token.
	Authenticated
)

// TokenVerifier validates access tokens.
type TokenVerifier interface {
	VerifyAccess(ctx context.Context, raw string) (*token.Claims, error)
}

// Auth returns the middleware enforcing access. Under Optional a missing
// header means anonymous, but a malformed or expired token is still a 401.
func Auth(verifier TokenVerifier, access Access) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, present := bearerToken(c)
		if !present {
			if access == Optional {
				return c.Next()
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication credentials were not provided."))
		}
		if raw == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid authorization header format"))
		}

		claims, err := verifier.VerifyAccess(c.UserContext(), raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}
		userID, err := claims.UserID()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid user ID in token"))
		}

		c.Locals("userID", userID)
		c.Locals("username", claims.Username)
		// Sync to UserContext for logging and downstream services
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))

		return c.Next()
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>". present
// is false when no Authorization header was sent at all.
func bearerToken(c *fiber.Ctx) (raw string, present bool) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", true
	}
	return parts[1], true
}

// UserID returns the authenticated caller, if any.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok
}
