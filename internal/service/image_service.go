package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/storage"

	"github.com/gabriel-vasile/mimetype"
)

const DefaultImageMaxUploadSizeMB = 5

// Sniffed MIME types and the formats they are stored as.
var imageFormats = map[string]string{
	"image/png":     models.ImageFormatPNG,
	"image/jpeg":    models.ImageFormatJPEG,
	"image/svg+xml": models.ImageFormatSVG,
}

// ImageService stores uploaded pictures. Bytes are kept as uploaded; only
// the format is recorded.
type ImageService struct {
	imageRepo          repository.ImageRepository
	blobs              storage.BlobStore
	maxUploadSizeBytes int64
}

func NewImageService(imageRepo repository.ImageRepository, blobs storage.BlobStore, maxUploadSizeMB int) *ImageService {
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = DefaultImageMaxUploadSizeMB
	}
	return &ImageService{
		imageRepo:          imageRepo,
		blobs:              blobs,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// DetectImageFormat sniffs data and returns its stored format.
func DetectImageFormat(data []byte) (format, ext string, err error) {
	mtype := mimetype.Detect(data)
	for m := mtype; m != nil; m = m.Parent() {
		if f, ok := imageFormats[m.String()]; ok {
			return f, mtype.Extension(), nil
		}
	}
	return "", "", models.NewValidationError(fmt.Sprintf("Unsupported image type %s (use PNG, JPEG or SVG)", mtype.String()))
}

func (s *ImageService) UploadImage(ctx context.Context, caller uint, data []byte) (*models.Image, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(data)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	format, ext, err := DetectImageFormat(data)
	if err != nil {
		return nil, err
	}

	key, err := s.blobs.Put(ctx, data, ext)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	img := &models.Image{
		ProfileID:  caller,
		Format:     format,
		StorageKey: key,
		SizeBytes:  int64(len(data)),
	}
	if err := s.imageRepo.Create(ctx, img); err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove orphaned blob", slog.String("key", key), slog.String("error", delErr.Error()))
		}
		return nil, err
	}
	return img, nil
}

// OpenImage returns the image metadata and a reader over its bytes. The
// caller closes the reader.
func (s *ImageService) OpenImage(ctx context.Context, id uint) (*models.Image, io.ReadCloser, error) {
	img, err := s.imageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, img.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, models.NewNotFoundError("Image", id)
	}
	if err != nil {
		return nil, nil, err
	}
	return img, rc, nil
}
