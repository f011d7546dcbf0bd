package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"quill/internal/cache"
	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/repository"

	"gorm.io/gorm"
)

const (
	maxUsernameLength  = 150
	maxBiographyLength = 5000
)

type ProfileService struct {
	db          *gorm.DB
	profileRepo repository.ProfileRepository
	postRepo    repository.PostRepository
	imageRepo   repository.ImageRepository
	cache       *cache.Cache
}

// ProfilePatch is a partial profile update. ClearPicture removes the
// picture; otherwise a nil PictureImageID leaves it alone.
type ProfilePatch struct {
	Biography      *string
	PictureImageID *uint
	ClearPicture   bool
}

func NewProfileService(
	db *gorm.DB,
	profileRepo repository.ProfileRepository,
	postRepo repository.PostRepository,
	imageRepo repository.ImageRepository,
	c *cache.Cache,
) *ProfileService {
	return &ProfileService{
		db:          db,
		profileRepo: profileRepo,
		postRepo:    postRepo,
		imageRepo:   imageRepo,
		cache:       c,
	}
}

// GetProfile returns the profile with the ids of its published posts.
func (s *ProfileService) GetProfile(ctx context.Context, id uint) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withPosts(ctx, profile)
}

func (s *ProfileService) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	return s.withPosts(ctx, profile)
}

// GetMyProfile is GetProfile for the signed-in caller.
func (s *ProfileService) GetMyProfile(ctx context.Context, caller uint) (*models.Profile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, caller)
}

func (s *ProfileService) UpdateMyProfile(ctx context.Context, caller uint, patch ProfilePatch) (*models.Profile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if patch.Biography != nil && utf8.RuneCountInString(*patch.Biography) > maxBiographyLength {
		return nil, models.NewValidationError("Biography too long (max 5000 characters)")
	}

	err := database.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		profile, err := s.profileRepo.GetByID(ctx, caller)
		if err != nil {
			return err
		}
		if patch.Biography != nil {
			profile.Biography = *patch.Biography
		}
		switch {
		case patch.ClearPicture:
			profile.PictureImageID = nil
		case patch.PictureImageID != nil:
			img, err := s.imageRepo.GetByID(ctx, *patch.PictureImageID)
			if models.IsNotFound(err) {
				return models.NewValidationError("Picture image does not exist")
			}
			if err != nil {
				return err
			}
			if err := requireOwner(caller, img.ProfileID, "You can only use your own images"); err != nil {
				return err
			}
			profile.PictureImageID = patch.PictureImageID
		}
		return s.profileRepo.Update(ctx, profile)
	})
	if err != nil {
		return nil, err
	}

	profile, err := s.GetProfile(ctx, caller)
	if err != nil {
		return nil, err
	}
	// Cached posts embed their author.
	keys := make([]string, 0, len(profile.PostIDs))
	for _, id := range profile.PostIDs {
		keys = append(keys, cache.PostKey(id))
	}
	s.cache.Invalidate(ctx, keys...)
	return profile, nil
}

// EnsureProfile returns the profile for username, creating it on first use.
// The identity provider calls it when an account is registered.
func (s *ProfileService) EnsureProfile(ctx context.Context, username string) (*models.Profile, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, false, models.NewValidationError("Username is required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return nil, false, models.NewValidationError("Username too long (max 150 characters)")
	}

	var (
		profile *models.Profile
		created bool
	)
	err := database.RunInTransaction(ctx, s.db, func(ctx context.Context) error {
		var err error
		profile, created, err = s.profileRepo.GetOrCreate(ctx, username)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return profile, created, nil
}

func (s *ProfileService) withPosts(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	ids, err := s.postRepo.ListPublishedIDsByProfile(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	profile.PostIDs = ids
	return profile, nil
}
