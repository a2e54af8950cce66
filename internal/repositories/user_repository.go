package repositories

import (
	"errors"

	"github.com/google/uuid"
	"github.com/onlyfriends/server/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for account and profile data operations
type UserRepository interface {
	CreateAccountWithProfile(account *models.Account, profile *models.Profile) error
	GetAccountByID(id uuid.UUID) (*models.Account, error)
	GetAccountByPhone(phone string) (*models.Account, error)
	GetProfileByAccountID(accountID uuid.UUID) (*models.Profile, error)
	GetProfilesByAccountIDs(accountIDs []uuid.UUID) ([]models.Profile, error)
	UpdateProfile(profile *models.Profile) error
	SearchProfiles(query string, excludeAccountID uuid.UUID) ([]models.Profile, error)
	DeactivateAccount(id uuid.UUID) error
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateAccountWithProfile creates the account and its profile in one
// transaction so a half-registered account can never be observed
func (r *PostgresUserRepository) CreateAccountWithProfile(account *models.Account, profile *models.Profile) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrPhoneTaken
			}
			return err
		}
		profile.AccountID = account.ID
		return tx.Create(profile).Error
	})
}

// GetAccountByID retrieves an account by ID, profile attached
func (r *PostgresUserRepository) GetAccountByID(id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.Preload("Profile").First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountByPhone retrieves an account by its E.164 phone number
func (r *PostgresUserRepository) GetAccountByPhone(phone string) (*models.Account, error) {
	var account models.Account
	if err := r.db.Preload("Profile").First(&account, "phone_number = ?", phone).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetProfileByAccountID retrieves the profile belonging to an account
func (r *PostgresUserRepository) GetProfileByAccountID(accountID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.First(&profile, "account_id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// GetProfilesByAccountIDs retrieves profiles for a set of accounts
func (r *PostgresUserRepository) GetProfilesByAccountIDs(accountIDs []uuid.UUID) ([]models.Profile, error) {
	var profiles []models.Profile
	if len(accountIDs) == 0 {
		return profiles, nil
	}
	err := r.db.Where("account_id IN ?", accountIDs).Find(&profiles).Error
	return profiles, err
}

// UpdateProfile saves an edited profile
func (r *PostgresUserRepository) UpdateProfile(profile *models.Profile) error {
	return r.db.Save(profile).Error
}

// SearchProfiles searches profiles by name or username, excluding the caller
func (r *PostgresUserRepository) SearchProfiles(query string, excludeAccountID uuid.UUID) ([]models.Profile, error) {
	var profiles []models.Profile
	pattern := "%" + query + "%"
	err := r.db.Where("account_id <> ?", excludeAccountID).
		Where("LOWER(first_name) LIKE LOWER(?) OR LOWER(last_name) LIKE LOWER(?) OR LOWER(username) LIKE LOWER(?)",
			pattern, pattern, pattern).
		Limit(25).Find(&profiles).Error
	return profiles, err
}

// DeactivateAccount marks an account inactive without deleting its records
func (r *PostgresUserRepository) DeactivateAccount(id uuid.UUID) error {
	res := r.db.Model(&models.Account{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
