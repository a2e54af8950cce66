package repositories

import (
	"github.com/google/uuid"
	"github.com/onlyfriends/server/internal/models"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for direct-message operations
type MessageRepository interface {
	CreateMessage(message *models.Message) error
	GetConversation(a, b uuid.UUID, page, limit int) ([]models.Message, error)
	MarkConversationRead(recipientID, senderID uuid.UUID) error
	GetConversationPartners(accountID uuid.UUID) ([]uuid.UUID, error)
	GetLastMessage(a, b uuid.UUID) (*models.Message, error)
	GetUnreadCountFrom(recipientID, senderID uuid.UUID) (int64, error)
}

// PostgresMessageRepository implements MessageRepository for PostgreSQL
type PostgresMessageRepository struct {
	db *gorm.DB
}

// NewPostgresMessageRepository creates a new PostgresMessageRepository
func NewPostgresMessageRepository(db *gorm.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

// CreateMessage stores a new direct message
func (r *PostgresMessageRepository) CreateMessage(message *models.Message) error {
	return r.db.Create(message).Error
}

// GetConversation retrieves messages between two accounts, newest first
func (r *PostgresMessageRepository) GetConversation(a, b uuid.UUID, page, limit int) ([]models.Message, error) {
	var messages []models.Message
	offset := (page - 1) * limit
	err := r.db.Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
		a, b, b, a).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&messages).Error
	return messages, err
}

// MarkConversationRead marks every unread message from sender to recipient as read
func (r *PostgresMessageRepository) MarkConversationRead(recipientID, senderID uuid.UUID) error {
	return r.db.Model(&models.Message{}).
		Where("recipient_id = ? AND sender_id = ? AND is_read = ?", recipientID, senderID, false).
		Update("is_read", true).Error
}

// GetConversationPartners returns the distinct accounts the user has
// exchanged messages with, most recent conversation first
func (r *PostgresMessageRepository) GetConversationPartners(accountID uuid.UUID) ([]uuid.UUID, error) {
	var partners []uuid.UUID
	err := r.db.Raw(`
		SELECT other_id FROM (
			SELECT CASE WHEN sender_id = ? THEN recipient_id ELSE sender_id END AS other_id,
			       max(created_at) AS last_at
			FROM messages
			WHERE sender_id = ? OR recipient_id = ?
			GROUP BY other_id
		) t ORDER BY last_at DESC`,
		accountID, accountID, accountID).Scan(&partners).Error
	return partners, err
}

// GetLastMessage retrieves the most recent message between two accounts
func (r *PostgresMessageRepository) GetLastMessage(a, b uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := r.db.Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
		a, b, b, a).
		Order("created_at DESC").First(&message).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &message, nil
}

// GetUnreadCountFrom counts unread messages from one sender to the recipient
func (r *PostgresMessageRepository) GetUnreadCountFrom(recipientID, senderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("recipient_id = ? AND sender_id = ? AND is_read = ?", recipientID, senderID, false).
		Count(&count).Error
	return count, err
}
