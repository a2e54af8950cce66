package repositories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/onlyfriends/server/internal/models"
	"gorm.io/gorm"
)

// InviteRepository defines the interface for invite-code data operations
type InviteRepository interface {
	GetOrCreateActiveCode(creatorID uuid.UUID) (*models.InviteCode, error)
	GetByCode(code string) (*models.InviteCode, error)
	Claim(code string, claimantID uuid.UUID) (*models.InviteCode, error)
	CountCreatedBy(creatorID uuid.UUID) (int64, error)
	GetInvitedProfiles(creatorID uuid.UUID) ([]models.Profile, error)
}

// PostgresInviteRepository implements InviteRepository for PostgreSQL
type PostgresInviteRepository struct {
	db *gorm.DB
}

// NewPostgresInviteRepository creates a new PostgresInviteRepository
func NewPostgresInviteRepository(db *gorm.DB) *PostgresInviteRepository {
	return &PostgresInviteRepository{db: db}
}

// GetOrCreateActiveCode returns the creator's most recent unused code,
// generating a fresh one if none exists. Collisions on the unique index are
// retried with a new code.
func (r *PostgresInviteRepository) GetOrCreateActiveCode(creatorID uuid.UUID) (*models.InviteCode, error) {
	var existing models.InviteCode
	err := r.db.Where("created_by_user_id = ? AND used_by_user_id IS NULL", creatorID).
		Order("created_at DESC").First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < 3; attempt++ {
		code, err := models.GenerateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}
		invite := &models.InviteCode{Code: code, CreatedByUserID: creatorID}
		if err := r.db.Create(invite).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return nil, err
		}
		return invite, nil
	}
	return nil, fmt.Errorf("could not generate a unique invite code")
}

// GetByCode retrieves an invite code by its normalized code string
func (r *PostgresInviteRepository) GetByCode(code string) (*models.InviteCode, error) {
	var invite models.InviteCode
	err := r.db.First(&invite, "code = ?", NormalizeInviteCode(code)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &invite, nil
}

// Claim consumes the code for the claimant and credits the issuer in one
// transaction: the claim UPDATE is guarded by "used_by_user_id IS NULL" so a
// code can never be reassigned, and the issuer's invites_sent_count and
// connection_cap move together with it.
func (r *PostgresInviteRepository) Claim(code string, claimantID uuid.UUID) (*models.InviteCode, error) {
	var claimed models.InviteCode
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
			UPDATE invite_codes SET used_by_user_id = ?, used_at = now()
			WHERE code = ? AND used_by_user_id IS NULL`,
			claimantID, NormalizeInviteCode(code))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var existing models.InviteCode
			if err := tx.First(&existing, "code = ?", NormalizeInviteCode(code)).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			return ErrCodeUsed
		}

		if err := tx.First(&claimed, "code = ?", NormalizeInviteCode(code)).Error; err != nil {
			return err
		}

		// Credit the issuer. CapForInvites is non-decreasing, which keeps the
		// stored cap monotonic.
		var issuer models.Profile
		if err := tx.First(&issuer, "account_id = ?", claimed.CreatedByUserID).Error; err != nil {
			return err
		}
		issuer.InvitesSentCount++
		issuer.ConnectionCap = models.CapForInvites(issuer.InvitesSentCount)
		return tx.Save(&issuer).Error
	})
	if err != nil {
		return nil, err
	}
	return &claimed, nil
}

// CountCreatedBy counts every code the creator has generated, used or not
func (r *PostgresInviteRepository) CountCreatedBy(creatorID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.InviteCode{}).Where("created_by_user_id = ?", creatorID).Count(&count).Error
	return count, err
}

// GetInvitedProfiles retrieves profiles of users who joined via the
// creator's codes
func (r *PostgresInviteRepository) GetInvitedProfiles(creatorID uuid.UUID) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.
		Joins("JOIN invite_codes ON invite_codes.used_by_user_id = profiles.account_id").
		Where("invite_codes.created_by_user_id = ?", creatorID).
		Order("invite_codes.used_at DESC").
		Find(&profiles).Error
	return profiles, err
}

// NormalizeInviteCode trims whitespace and uppercases a user-entered code
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
