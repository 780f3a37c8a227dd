// Package token issues and verifies the JWT access/refresh pairs used by the API.
package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Issuer is written to the iss claim of every token.
	Issuer = "bucketlist-api"
	// Audience is written to the aud claim of every token.
	Audience = "bucketlist-client"

	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// ErrInvalidToken covers malformed, expired, revoked and wrong-type tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the registered claims plus the token type and cached username.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
	Username  string `json:"username,omitempty"`
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return uint(id), nil
}

// Pair is what signup, login and refresh hand back to the client.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Blacklist stores revoked refresh token IDs until they expire.
type Blacklist interface {
	// Add records jti. It reports false when jti was already present.
	Add(ctx context.Context, jti string, expiresAt time.Time) (bool, error)
	Contains(ctx context.Context, jti string) (bool, error)
}

// Service signs and checks tokens with a shared HMAC secret.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	blacklist  Blacklist
	now        func() time.Time
}

// NewService returns a Service. blacklist must not be nil.
func NewService(secret string, accessTTL, refreshTTL time.Duration, blacklist Blacklist) *Service {
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		blacklist:  blacklist,
		now:        time.Now,
	}
}

// IssuePair signs a fresh access and refresh token for the user.
func (s *Service) IssuePair(userID uint, username string) (Pair, error) {
	if len(s.secret) == 0 {
		return Pair{}, errors.New("JWT secret not configured")
	}
	access, err := s.sign(userID, username, TypeAccess, s.accessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.sign(userID, username, TypeRefresh, s.refreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

func (s *Service) sign(userID uint, username, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		TokenType: tokenType,
		Username:  username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (s *Service) parse(raw, wantType string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyAccess validates an access token presented in the Authorization header.
func (s *Service) VerifyAccess(_ context.Context, raw string) (*Claims, error) {
	return s.parse(raw, TypeAccess)
}

// VerifyRefresh validates a refresh token and checks it has not been revoked.
func (s *Service) VerifyRefresh(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.parse(raw, TypeRefresh)
	if err != nil {
		return nil, err
	}
	revoked, err := s.blacklist.Contains(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Revoke blacklists a verified refresh token until it expires. A token that
// was revoked concurrently by another request yields ErrInvalidToken, so a
// refresh token can be spent at most once.
func (s *Service) Revoke(ctx context.Context, claims *Claims) error {
	added, err := s.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	if !added {
		return ErrInvalidToken
	}
	return nil
}
