// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation represents a named chat conversation. Conversations are
// created lazily by name; Participant is a free-text list of usernames
// searched by substring.
type Conversation struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Participant string         `json:"participant"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Messages    []Message      `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

// Message represents a chat message. A message belongs to exactly one
// conversation; the conversation side owns the relation.
type Message struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	ConversationID uint   `gorm:"not null;index" json:"conversation_id"`
	Sender         string `gorm:"not null" json:"sender"`
	// Timestamp is the display timestamp, formatted at write time.
	Timestamp string    `gorm:"not null" json:"timestamp"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
