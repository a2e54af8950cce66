package repositories

import (
	"github.com/google/uuid"
	"github.com/onlyfriends/server/internal/models"
	"gorm.io/gorm"
)

// ContactRepository defines the interface for contact-hash operations
type ContactRepository interface {
	ReplaceHashes(accountID uuid.UUID, hashes []string) error
	CountHashes(accountID uuid.UUID) (int64, error)
	ClearHashes(accountID uuid.UUID) error
	FindAccountsWithHash(hash string) ([]uuid.UUID, error)
	HasHash(accountID uuid.UUID, hash string) (bool, error)
}

// PostgresContactRepository implements ContactRepository for PostgreSQL
type PostgresContactRepository struct {
	db *gorm.DB
}

// NewPostgresContactRepository creates a new PostgresContactRepository
func NewPostgresContactRepository(db *gorm.DB) *PostgresContactRepository {
	return &PostgresContactRepository{db: db}
}

// ReplaceHashes swaps the account's uploaded hash set for the new one in a
// single transaction
func (r *PostgresContactRepository) ReplaceHashes(accountID uuid.UUID, hashes []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", accountID).Delete(&models.ContactHash{}).Error; err != nil {
			return err
		}
		if len(hashes) == 0 {
			return nil
		}
		rows := make([]models.ContactHash, 0, len(hashes))
		seen := make(map[string]struct{}, len(hashes))
		for _, h := range hashes {
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			rows = append(rows, models.ContactHash{AccountID: accountID, Hash: h})
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

// CountHashes counts the account's uploaded hashes
func (r *PostgresContactRepository) CountHashes(accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.ContactHash{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}

// ClearHashes removes every hash the account uploaded
func (r *PostgresContactRepository) ClearHashes(accountID uuid.UUID) error {
	return r.db.Where("account_id = ?", accountID).Delete(&models.ContactHash{}).Error
}

// FindAccountsWithHash returns accounts that uploaded the given hash
func (r *PostgresContactRepository) FindAccountsWithHash(hash string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&models.ContactHash{}).Where("hash = ?", hash).
		Pluck("account_id", &ids).Error
	return ids, err
}

// HasHash reports whether the account's uploaded set contains the hash
func (r *PostgresContactRepository) HasHash(accountID uuid.UUID, hash string) (bool, error) {
	var count int64
	err := r.db.Model(&models.ContactHash{}).
		Where("account_id = ? AND hash = ?", accountID, hash).
		Count(&count).Error
	return count > 0, err
}
