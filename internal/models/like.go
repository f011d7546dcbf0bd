package models

import "time"

// Like records that a profile likes a post.
// The combination of PostID and ProfileID must be unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_post_profile" json:"post_id"`
	ProfileID uint      `gorm:"not null;uniqueIndex:idx_likes_post_profile;index" json:"profile_id"`
	CreatedAt time.Time `json:"created_at"`
}
