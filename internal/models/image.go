package models

import "time"

// Supported image formats.
const (
	ImageFormatPNG  = "PNG"
	ImageFormatJPEG = "JPEG"
	ImageFormatSVG  = "SVG"
)

// Image is metadata for an uploaded picture. The bytes live in blob storage
// under StorageKey.
type Image struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProfileID  uint      `gorm:"not null;index" json:"profile_id"`
	Format     string    `gorm:"size:8;not null" json:"format"`
	StorageKey string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	SizeBytes  int64     `gorm:"not null" json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsSupportedImageFormat reports whether format is one the store accepts.
func IsSupportedImageFormat(format string) bool {
	switch format {
	case ImageFormatPNG, ImageFormatJPEG, ImageFormatSVG:
		return true
	}
	return false
}

// ContentType returns the MIME type served for the image.
func (i *Image) ContentType() string {
	switch i.Format {
	case ImageFormatPNG:
		return "image/png"
	case ImageFormatJPEG:
		return "image/jpeg"
	case ImageFormatSVG:
		return "image/svg+xml"
	}
	return "application/octet-stream"
}
