package service

import (
	"context"
	"errors"
	"strings"

	"bucketlist/internal/middleware"
	"bucketlist/internal/models"
	"bucketlist/internal/observability"
	"bucketlist/internal/repository"
	"bucketlist/internal/token"
	"bucketlist/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// Messages returned to clients by the auth endpoints.
const (
	MsgInvalidCredentials = "Invalid username or password."
	MsgPasswordsMismatch  = "Passwords do not match."
	MsgUsernameTaken      = "A user with that username already exists."
	MsgEmailTaken         = "A user with that email already exists."
	MsgWrongPassword      = "Your old password was entered incorrectly. Please enter it again."
	maxLocationLength     = 100
	maxNameLength         = 150
)

// TokenManager issues and revokes token pairs. *token.Service satisfies it.
type TokenManager interface {
	IssuePair(userID uint, username string) (token.Pair, error)
	VerifyRefresh(ctx context.Context, raw string) (*token.Claims, error)
	Revoke(ctx context.Context, claims *token.Claims) error
}

// AuthService implements signup, login, logout, token refresh and password
// change.
type AuthService struct {
	users      repository.UserRepository
	tokens     TokenManager
	policy     validation.PasswordPolicy
	bcryptCost int
	dummyHash  []byte
}

// NewAuthService wires the auth operations. A zero bcryptCost means
// bcrypt.DefaultCost.
func NewAuthService(
	users repository.UserRepository,
	tokens TokenManager,
	policy validation.PasswordPolicy,
	bcryptCost int,
) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	// Compared against on unknown usernames so both failure paths cost one
	// bcrypt comparison.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcryptCost)
	return &AuthService{
		users:      users,
		tokens:     tokens,
		policy:     policy,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
	}
}

// SignupInput is the registration payload. re_password is checked and
// discarded; location is validated but not stored.
type SignupInput struct {
	FirstName  string `json:"first_name" form:"first_name"`
	LastName   string `json:"last_name" form:"last_name"`
	Username   string `json:"username" form:"username"`
	Email      string `json:"email" form:"email"`
	Password   string `json:"password" form:"password"`
	RePassword string `json:"re_password" form:"re_password"`
	Location   string `json:"location" form:"location"`
}

// AuthResult is a user together with a freshly issued token pair.
type AuthResult struct {
	User   *models.User
	Tokens token.Pair
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (result *AuthResult, err error) {
	ctx, finish := observability.StartSpan(ctx, "AuthService", "Signup")
	defer func() { finish(err) }()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Location = strings.TrimSpace(in.Location)

	fields := validation.FieldErrors{}
	fields.Required("first_name", in.FirstName)
	fields.Required("last_name", in.LastName)
	fields.Required("location", in.Location)
	if fields.Required("username", in.Username) {
		if err := validation.ValidateUsername(in.Username); err != nil {
			fields.Add("username", err.Error())
		}
	}
	if fields.Required("email", in.Email) {
		if err := validation.ValidateEmail(in.Email); err != nil {
			fields.Add("email", err.Error())
		}
	}
	for field, value := range map[string]string{"first_name": in.FirstName, "last_name": in.LastName} {
		if len([]rune(value)) > maxNameLength {
			fields.Add(field, "Ensure this field has no more than 150 characters.")
		}
	}
	if len([]rune(in.Location)) > maxLocationLength {
		fields.Add("location", "Ensure this field has no more than 100 characters.")
	}

	passwordGiven := fields.Required("password", in.Password)
	confirmGiven := fields.Required("re_password", in.RePassword)
	if passwordGiven && confirmGiven && in.Password != in.RePassword {
		fields.Add("re_password", MsgPasswordsMismatch)
	}
	if passwordGiven {
		for _, problem := range s.policy.Check(in.Password, validation.UserAttributes{
			Username:  in.Username,
			Email:     in.Email,
			FirstName: in.FirstName,
			LastName:  in.LastName,
		}) {
			fields.Add("password", problem)
		}
	}

	if _, bad := fields["username"]; !bad && in.Username != "" {
		existing, err := s.users.GetByUsername(ctx, in.Username)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			fields.Add("username", MsgUsernameTaken)
		}
	}
	if _, bad := fields["email"]; !bad && in.Email != "" {
		existing, err := s.users.GetByEmail(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			fields.Add("email", MsgEmailTaken)
		}
	}

	if !fields.Empty() {
		observability.RecordAuth("signup", "rejected")
		return nil, models.NewFieldValidationError(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hash),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		IsActive:  true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
			// Lost a race with a concurrent signup for the same name.
			return nil, models.NewFieldValidationError(map[string][]string{"username": {MsgUsernameTaken}})
		}
		return nil, err
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	observability.RecordAuth("signup", "success")
	middleware.Logger.InfoContext(ctx, "user signed up", "user_id", user.ID)
	return &AuthResult{User: user, Tokens: pair}, nil
}

// LoginInput holds the credentials posted to /login.
type LoginInput struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (result *AuthResult, err error) {
	ctx, finish := observability.StartSpan(ctx, "AuthService", "Login")
	defer func() { finish(err) }()

	fields := validation.FieldErrors{}
	fields.Required("username", in.Username)
	fields.Required("password", in.Password)
	if !fields.Empty() {
		return nil, models.NewFieldValidationError(fields)
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(in.Username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
		observability.RecordAuth("login", "failure")
		return nil, models.NewUnauthorizedError(MsgInvalidCredentials)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		observability.RecordAuth("login", "failure")
		return nil, models.NewUnauthorizedError(MsgInvalidCredentials)
	}
	if !user.IsActive {
		observability.RecordAuth("login", "disabled")
		return nil, models.NewAccountDisabledError()
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	observability.RecordAuth("login", "success")
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Logout blacklists the presented refresh token until it expires.
func (s *AuthService) Logout(ctx context.Context, refresh string) (err error) {
	ctx, finish := observability.StartSpan(ctx, "AuthService", "Logout")
	defer func() { finish(err) }()

	if strings.TrimSpace(refresh) == "" {
		return fieldError("refresh", "This field is required.")
	}
	claims, err := s.tokens.VerifyRefresh(ctx, refresh)
	if err != nil {
		return refreshError(err, models.NewInvalidTokenError())
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return refreshError(err, models.NewInvalidTokenError())
	}
	observability.RecordAuth("logout", "success")
	return nil
}

// Refresh spends a refresh token and returns a new pair.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (pair token.Pair, err error) {
	ctx, finish := observability.StartSpan(ctx, "AuthService", "Refresh")
	defer func() { finish(err) }()

	if strings.TrimSpace(refresh) == "" {
		return token.Pair{}, fieldError("refresh", "This field is required.")
	}
	unauthorized := models.NewUnauthorizedError("Token is invalid or expired")
	claims, err := s.tokens.VerifyRefresh(ctx, refresh)
	if err != nil {
		return token.Pair{}, refreshError(err, unauthorized)
	}
	userID, err := claims.UserID()
	if err != nil {
		return token.Pair{}, unauthorized
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return token.Pair{}, unauthorized
		}
		return token.Pair{}, err
	}
	if !user.IsActive {
		return token.Pair{}, models.NewAccountDisabledError()
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return token.Pair{}, refreshError(err, unauthorized)
	}

	pair, err = s.tokens.IssuePair(user.ID, user.Username)
	if err != nil {
		return token.Pair{}, models.NewInternalError(err)
	}
	observability.RecordAuth("refresh", "success")
	return pair, nil
}

// refreshError maps token.ErrInvalidToken to invalid and anything else to an
// internal error.
func refreshError(err error, invalid *models.AppError) error {
	if errors.Is(err, token.ErrInvalidToken) {
		observability.RecordAuth("refresh_token", "invalid")
		return invalid
	}
	return models.NewInternalError(err)
}

// ChangePasswordInput is the payload of /password/change.
type ChangePasswordInput struct {
	OldPassword   string `json:"old_password" form:"old_password"`
	NewPassword   string `json:"new_password" form:"new_password"`
	ReNewPassword string `json:"re_new_password" form:"re_new_password"`
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, in ChangePasswordInput) (err error) {
	ctx, finish := observability.StartSpan(ctx, "AuthService", "ChangePassword")
	defer func() { finish(err) }()

	fields := validation.FieldErrors{}
	fields.Required("old_password", in.OldPassword)
	fields.Required("new_password", in.NewPassword)
	fields.Required("re_new_password", in.ReNewPassword)
	if !fields.Empty() {
		return models.NewFieldValidationError(fields)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.OldPassword)) != nil {
		fields.Add("old_password", MsgWrongPassword)
	}
	if in.NewPassword != in.ReNewPassword {
		fields.Add("re_new_password", MsgPasswordsMismatch)
	}
	for _, problem := range s.policy.Check(in.NewPassword, validation.UserAttributes{
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}) {
		fields.Add("new_password", problem)
	}
	if !fields.Empty() {
		return models.NewFieldValidationError(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.bcryptCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	observability.RecordAuth("password_change", "success")
	return nil
}
