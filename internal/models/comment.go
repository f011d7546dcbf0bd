package models

import "time"

const (
	MaxCommentLength    = 10000
	MaxAuthorNameLength = 64
)

// Comment represents a comment on a post. Anonymous comments have no
// AuthorProfileID and carry a display AuthorName instead.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"not null;index" json:"post_id"`
	AuthorProfileID *uint     `gorm:"index" json:"author_profile_id,omitempty"`
	AuthorProfile   *Profile  `gorm:"foreignKey:AuthorProfileID" json:"author_profile,omitempty"`
	AuthorName      string    `gorm:"size:64" json:"author_name"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsAnonymous reports whether the comment was left without a profile.
func (c *Comment) IsAnonymous() bool {
	return c.AuthorProfileID == nil
}
