package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshSession stores a hashed refresh token. Rotation revokes the old
// session and links it to its replacement so that reuse of a rotated token
// can be detected and answered by revoking every session of the account.
type RefreshSession struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	AccountID  uuid.UUID  `json:"account_id" gorm:"type:uuid;index"`
	TokenHash  string     `json:"-" gorm:"size:64;uniqueIndex"`
	ExpiresAt  time.Time  `json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy *uuid.UUID `json:"replaced_by,omitempty" gorm:"type:uuid"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (s *RefreshSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
