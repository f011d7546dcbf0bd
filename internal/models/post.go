package models

import "time"

const (
	MaxTitleLength = 300
	MaxBodyLength  = 50000
	MaxTagLength   = 64
)

// Post is a blog entry. A post with IsDraft set is visible only to its owner.
type Post struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	ProfileID uint     `gorm:"not null;index" json:"profile_id"`
	Profile   *Profile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	Title     string   `gorm:"size:300;not null;default:''" json:"title"`
	Body      string   `gorm:"type:text;not null;default:''" json:"body"`
	ImageID   *uint    `json:"image_id,omitempty"`
	Tags      []Tag    `gorm:"many2many:post_tags" json:"tags"`
	IsDraft   bool     `gorm:"not null;default:false;index" json:"is_draft"`
	// LikesCount is not persisted; computed at query time
	LikesCount int       `gorm:"->;-:migration" json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsVisibleTo reports whether the caller may see the post.
func (p *Post) IsVisibleTo(callerID uint) bool {
	return !p.IsDraft || (callerID != 0 && p.ProfileID == callerID)
}

// Tag is a free-form label. Values are stored case-sensitively but matched
// case-insensitively.
type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Value string `gorm:"size:64;uniqueIndex;not null" json:"value"`
}

// PostTag is the join row between posts and tags.
type PostTag struct {
	PostID uint `gorm:"primaryKey"`
	TagID  uint `gorm:"primaryKey;index"`
}

// TableName pins the join table used by Post.Tags.
func (PostTag) TableName() string {
	return "post_tags"
}

// PostPage is one page of post ids matching a query.
type PostPage struct {
	IDs      []uint `json:"ids"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	HasNext  bool   `json:"has_next"`
}
