package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	NotificationTypeConnectionRequest = "connection_request"
	NotificationTypeConnectionAccept  = "connection_accept"
	NotificationTypeMessage           = "message"
	NotificationTypeInviteJoined      = "invite_joined"
)

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Type        string    `json:"type" gorm:"size:30;index"`
	ActorID     uuid.UUID `json:"actor_id" gorm:"type:uuid;index"`
	RecipientID uuid.UUID `json:"recipient_id" gorm:"type:uuid;index"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read" gorm:"default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
