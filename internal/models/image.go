package models

import (
	"time"
)

// Image is the metadata record for a stored blob. Exactly one of UserID
// (profile image) or PostID (post image) is set; the partial unique
// indexes keep at most one image per owner.
type Image struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Key         string    `gorm:"unique;not null" json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UserID      *uint     `gorm:"uniqueIndex" json:"user_id,omitempty"`
	PostID      *uint     `gorm:"uniqueIndex" json:"post_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
