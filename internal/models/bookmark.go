package models

import "time"

const MaxBookmarkTitleLength = 200

// Bookmark is a profile's saved reference to a post with a private title.
// The combination of PostID and ProfileID must be unique.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_bookmarks_post_profile" json:"post_id"`
	ProfileID uint      `gorm:"not null;uniqueIndex:idx_bookmarks_post_profile;index" json:"profile_id"`
	Title     string    `gorm:"size:200;not null;default:''" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
