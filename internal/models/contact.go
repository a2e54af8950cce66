package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContactHash stores one hashed phone number from a user's address book.
// Hashes are unsalted SHA-256 of normalized digits for interop with
// previously synced records.
type ContactHash struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	AccountID uuid.UUID `json:"account_id" gorm:"type:uuid;index;uniqueIndex:idx_account_hash"`
	Hash      string    `json:"hash" gorm:"size:64;index;uniqueIndex:idx_account_hash"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *ContactHash) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// SyncContactsRequest replaces the caller's uploaded contact hash set
type SyncContactsRequest struct {
	Hashes []string `json:"hashes" validate:"required,dive,len=64,hexadecimal"`
}

// HashPhoneNumber normalizes a phone number to digits (10-digit numbers get
// a leading US country code) and returns the hex SHA-256 of the result.
func HashPhoneNumber(phoneNumber string) string {
	var digits strings.Builder
	for _, r := range phoneNumber {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if len(normalized) == 10 {
		normalized = "1" + normalized
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
