package repository

import (
	"context"

	"quill/internal/database"
	"quill/internal/models"

	"gorm.io/gorm"
)

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	GetOrCreate(ctx context.Context, username string) (*models.Profile, bool, error)
	Update(ctx context.Context, profile *models.Profile) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByID(ctx context.Context, id uint) (*models.Profile, error) {
	var profile models.Profile
	if err := database.Conn(ctx, r.db).First(&profile, id).Error; err != nil {
		return nil, notFound(err, "Profile", id)
	}
	return &profile, nil
}

// GetByUsername matches username case-insensitively.
func (r *profileRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	err := database.Conn(ctx, r.db).
		Where("LOWER(username) = LOWER(?)", username).
		First(&profile).Error
	if err != nil {
		return nil, notFound(err, "Profile", username)
	}
	return &profile, nil
}

// GetOrCreate returns the profile for username, creating it when absent.
// The bool reports whether a row was created.
func (r *profileRepository) GetOrCreate(ctx context.Context, username string) (*models.Profile, bool, error) {
	var profile models.Profile
	err := database.Conn(ctx, r.db).Where("username = ?", username).First(&profile).Error
	if err == nil {
		return &profile, false, nil
	}
	if err = notFound(err, "Profile", username); !models.IsNotFound(err) {
		return nil, false, err
	}

	created := &models.Profile{Username: username}
	err = database.Savepoint(ctx, r.db, func(ctx context.Context) error {
		return database.Conn(ctx, r.db).Create(created).Error
	})
	if err == nil {
		return created, true, nil
	}
	if !database.IsUniqueViolation(err) {
		return nil, false, err
	}

	if err := database.Conn(ctx, r.db).Where("username = ?", username).First(&profile).Error; err != nil {
		return nil, false, err
	}
	return &profile, false, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	return database.Conn(ctx, r.db).
		Model(profile).
		Select("biography", "picture_image_id", "updated_at").
		Updates(profile).Error
}
