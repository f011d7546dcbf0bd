// Package models contains data structures for the application's domain models.
package models

import "time"

// Profile is the public identity of an author. The identity provider owns
// credentials; this row only carries what other readers see.
type Profile struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Username       string `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Biography      string `gorm:"type:text" json:"biography"`
	PictureImageID *uint  `json:"picture_image_id,omitempty"`
	// PostIDs lists the profile's published posts; filled on read.
	PostIDs   []uint    `gorm:"-" json:"post_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
