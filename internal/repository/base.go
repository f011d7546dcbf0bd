// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"

	"quill/internal/models"

	"gorm.io/gorm"
)

// notFound maps gorm.ErrRecordNotFound onto a NOT_FOUND AppError and passes
// every other error through.
func notFound(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return err
}
