package repositories

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/onlyfriends/server/internal/models"
	"gorm.io/gorm"
)

// RefreshRepository defines the interface for refresh-session operations
type RefreshRepository interface {
	Create(accountID uuid.UUID, tokenHash string, expiresAt time.Time) (*models.RefreshSession, error)
	FindActiveByTokenHash(tokenHash string) (*models.RefreshSession, error)
	FindByTokenHashIncludeRevoked(tokenHash string) (*models.RefreshSession, error)
	RevokeAndSetReplacedBy(sessionID, replacedBy uuid.UUID) error
	Revoke(sessionID uuid.UUID) error
	RevokeAllForAccount(accountID uuid.UUID) error
}

// PostgresRefreshRepository implements RefreshRepository for PostgreSQL
type PostgresRefreshRepository struct {
	db *gorm.DB
}

// NewPostgresRefreshRepository creates a new PostgresRefreshRepository
func NewPostgresRefreshRepository(db *gorm.DB) *PostgresRefreshRepository {
	return &PostgresRefreshRepository{db: db}
}

// Create inserts a new refresh session
func (r *PostgresRefreshRepository) Create(accountID uuid.UUID, tokenHash string, expiresAt time.Time) (*models.RefreshSession, error) {
	session := &models.RefreshSession{
		AccountID: accountID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	if err := r.db.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// FindActiveByTokenHash returns the session if it exists, is not revoked
// and has not expired
func (r *PostgresRefreshRepository) FindActiveByTokenHash(tokenHash string) (*models.RefreshSession, error) {
	var session models.RefreshSession
	err := r.db.Where("token_hash = ? AND revoked_at IS NULL AND expires_at > now()", tokenHash).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// FindByTokenHashIncludeRevoked returns the session regardless of revocation
// status, used for reuse detection
func (r *PostgresRefreshRepository) FindByTokenHashIncludeRevoked(tokenHash string) (*models.RefreshSession, error) {
	var session models.RefreshSession
	err := r.db.Where("token_hash = ?", tokenHash).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// RevokeAndSetReplacedBy revokes the session and links it to its replacement
func (r *PostgresRefreshRepository) RevokeAndSetReplacedBy(sessionID, replacedBy uuid.UUID) error {
	res := r.db.Model(&models.RefreshSession{}).Where("id = ?", sessionID).
		Updates(map[string]interface{}{"revoked_at": time.Now(), "replaced_by": replacedBy})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Revoke revokes the session
func (r *PostgresRefreshRepository) Revoke(sessionID uuid.UUID) error {
	res := r.db.Model(&models.RefreshSession{}).Where("id = ?", sessionID).
		Update("revoked_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeAllForAccount revokes every active session of the account, the
// response to a rotated token being presented again
func (r *PostgresRefreshRepository) RevokeAllForAccount(accountID uuid.UUID) error {
	return r.db.Model(&models.RefreshSession{}).
		Where("account_id = ? AND revoked_at IS NULL", accountID).
		Update("revoked_at", time.Now()).Error
}
