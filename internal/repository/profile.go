package repository

import (
	"context"
	"errors"

	"bucketlist/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	// GetOrCreate returns the user's profile, inserting a default one first
	// if none exists. Concurrent first reads converge on a single row.
	GetOrCreate(ctx context.Context, user *models.User) (*models.Profile, error)
	// Update writes the user-editable columns only.
	Update(ctx context.Context, profile *models.Profile) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetOrCreate(ctx context.Context, user *models.User) (*models.Profile, error) {
	db := r.db.WithContext(ctx)

	defaults := models.Profile{
		UserID:    user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&defaults).Error
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, models.NewNotFoundError("User", user.ID)
		}
		return nil, models.NewInternalError(err)
	}

	var profile models.Profile
	if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	err := r.db.WithContext(ctx).
		Model(profile).
		Select("location", "bio", "profile_picture").
		Updates(profile).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
