package models

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InviteCode is a single-use code. Once UsedByUserID is set it is never
// unset or reassigned; the claim is a conditional update guarded by
// "currently null".
type InviteCode struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Code            string     `json:"code" gorm:"size:9;uniqueIndex"`
	CreatedByUserID uuid.UUID  `json:"created_by_user_id" gorm:"type:uuid;index"`
	UsedByUserID    *uuid.UUID `json:"used_by_user_id,omitempty" gorm:"type:uuid;index"`
	UsedAt          *time.Time `json:"used_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (i *InviteCode) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ValidateInviteRequest defines the request body for checking an invite code
type ValidateInviteRequest struct {
	Code string `json:"code" validate:"required,min=6"`
}

// ValidateInviteResponse reports whether a code can still be claimed
type ValidateInviteResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// InviteStats summarizes the caller's invite progress
type InviteStats struct {
	TotalInvites  int         `json:"total_invites"`
	UsedInvites   int         `json:"used_invites"`
	CurrentCap    int         `json:"current_cap"`
	NextCapUnlock *TierUnlock `json:"next_cap_unlock,omitempty"`
}

// TierUnlock describes the next connection-cap tier and how many more
// successful invites are needed to reach it
type TierUnlock struct {
	Cap           int `json:"cap"`
	InvitesNeeded int `json:"invites_needed"`
}

// Connection-cap tiers unlocked by cumulative successful invites.
// 0-1 invites -> 15, 2-4 -> 25, 5-9 -> 35, 10+ -> 50.
var inviteTiers = []struct {
	invites int
	cap     int
}{
	{0, 15},
	{2, 25},
	{5, 35},
	{10, 50},
}

// CapForInvites returns the connection cap earned by n successful invites.
// The result is non-decreasing in n, which keeps the stored cap monotonic.
func CapForInvites(n int) int {
	cap := inviteTiers[0].cap
	for _, tier := range inviteTiers {
		if n >= tier.invites {
			cap = tier.cap
		}
	}
	return cap
}

// NextTier returns the next cap threshold and the invites remaining to reach
// it, or nil if n already earns the maximum tier.
func NextTier(n int) *TierUnlock {
	for _, tier := range inviteTiers[1:] {
		if n < tier.invites {
			return &TierUnlock{Cap: tier.cap, InvitesNeeded: tier.invites - n}
		}
	}
	return nil
}

// inviteCodeAlphabet excludes visually ambiguous characters (0/O, 1/I/L)
const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateInviteCode returns a readable XXXX-XXXX code
func GenerateInviteCode() (string, error) {
	buf := make([]byte, 0, 9)
	for i := 0; i < 8; i++ {
		if i == 4 {
			buf = append(buf, '-')
		}
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(inviteCodeAlphabet))))
		if err != nil {
			return "", err
		}
		buf = append(buf, inviteCodeAlphabet[idx.Int64()])
	}
	return string(buf), nil
}
