package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a direct message between two connected accounts (PostgreSQL)
type Message struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	SenderID    uuid.UUID `json:"sender_id" gorm:"type:uuid;index"`
	RecipientID uuid.UUID `json:"recipient_id" gorm:"type:uuid;index"`
	Content     string    `json:"content" gorm:"size:2000"`
	IsRead      bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// SendMessageRequest defines the request body for sending a direct message
type SendMessageRequest struct {
	RecipientID uuid.UUID `json:"recipient_id" validate:"required"`
	Content     string    `json:"content" validate:"required,min=1,max=2000"`
}

// Conversation summarizes the latest exchange with one counterparty
type Conversation struct {
	User        Profile  `json:"user"`
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int64    `json:"unread_count"`
}
