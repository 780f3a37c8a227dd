package service

import (
	"context"
	"io"
	"strings"

	"bucketlist/internal/models"
	"bucketlist/internal/observability"
	"bucketlist/internal/repository"
	"bucketlist/internal/validation"
)

// ProfileService reads and edits the caller's profile.
type ProfileService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	images   *ImageStore
}

func NewProfileService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	images *ImageStore,
) *ProfileService {
	return &ProfileService{users: users, profiles: profiles, images: images}
}

// ProfileDetails is a profile together with its owner's username.
type ProfileDetails struct {
	Profile  *models.Profile
	Username string
}

// UpdateProfileInput carries PUT and PATCH payloads. Nil fields are left
// unchanged; Partial is false for PUT, which requires location and bio.
type UpdateProfileInput struct {
	UserID         uint
	Partial        bool
	Location       *string
	Bio            *string
	ProfilePicture io.Reader
}

func (s *ProfileService) Get(ctx context.Context, userID uint) (details *ProfileDetails, err error) {
	ctx, finish := observability.StartSpan(ctx, "ProfileService", "Get")
	defer func() { finish(err) }()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetOrCreate(ctx, user)
	if err != nil {
		return nil, err
	}
	return &ProfileDetails{Profile: profile, Username: user.Username}, nil
}

func (s *ProfileService) Update(ctx context.Context, in UpdateProfileInput) (details *ProfileDetails, err error) {
	ctx, finish := observability.StartSpan(ctx, "ProfileService", "Update")
	defer func() { finish(err) }()

	fields := validation.FieldErrors{}
	if !in.Partial {
		if in.Location == nil {
			fields.Add("location", "This field is required.")
		}
		if in.Bio == nil {
			fields.Add("bio", "This field is required.")
		}
	}
	if in.Location != nil {
		trimmed := strings.TrimSpace(*in.Location)
		in.Location = &trimmed
		if len([]rune(trimmed)) > maxLocationLength {
			fields.Add("location", "Ensure this field has no more than 100 characters.")
		}
	}
	if !fields.Empty() {
		return nil, models.NewFieldValidationError(fields)
	}

	details, err = s.Get(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	profile := details.Profile

	var oldPicture *string
	if in.ProfilePicture != nil {
		key, err := s.images.Save(ctx, "profile_picture", "profile_pics", in.ProfilePicture)
		if err != nil {
			return nil, err
		}
		oldPicture = profile.ProfilePicture
		profile.ProfilePicture = &key
	}
	if in.Location != nil {
		profile.Location = *in.Location
	}
	if in.Bio != nil {
		profile.Bio = *in.Bio
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		if in.ProfilePicture != nil {
			s.images.Remove(ctx, profile.ProfilePicture)
		}
		return nil, err
	}
	s.images.Remove(ctx, oldPicture)
	return details, nil
}

// Stats returns the stored bucket counters.
func (s *ProfileService) Stats(ctx context.Context, userID uint) (*models.Profile, error) {
	details, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return details.Profile, nil
}
