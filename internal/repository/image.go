package repository

import (
	"context"

	"quill/internal/database"
	"quill/internal/models"

	"gorm.io/gorm"
)

// ImageRepository defines the interface for image metadata
type ImageRepository interface {
	Create(ctx context.Context, img *models.Image) error
	GetByID(ctx context.Context, id uint) (*models.Image, error)
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new image repository
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, img *models.Image) error {
	return database.Conn(ctx, r.db).Create(img).Error
}

func (r *imageRepository) GetByID(ctx context.Context, id uint) (*models.Image, error) {
	var img models.Image
	if err := database.Conn(ctx, r.db).First(&img, id).Error; err != nil {
		return nil, notFound(err, "Image", id)
	}
	return &img, nil
}
