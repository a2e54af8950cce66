package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ConnectionStatusPending  = "pending"
	ConnectionStatusAccepted = "accepted"
)

// Connection represents a relationship record between two accounts. At most
// one record exists per unordered pair; declined and removed connections are
// deleted outright, there is no terminal "rejected" state.
type Connection struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	RequesterID uuid.UUID  `json:"requester_id" gorm:"type:uuid;index"`
	RequesteeID uuid.UUID  `json:"requestee_id" gorm:"type:uuid;index"`
	Status      string     `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (c *Connection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ConnectionWithFriend is an accepted connection flattened to the other
// party's profile, regardless of who originally sent the request.
type ConnectionWithFriend struct {
	Connection
	Friend Profile `json:"friend"`
}

// PendingRequest is an incoming pending connection with the requester attached
type PendingRequest struct {
	Connection
	Requester Profile `json:"requester"`
}

// CreateConnectionRequest defines the request body for sending a connection request
type CreateConnectionRequest struct {
	RequesteeID uuid.UUID `json:"requestee_id" validate:"required"`
}
