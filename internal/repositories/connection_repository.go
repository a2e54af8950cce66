package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/onlyfriends/server/internal/models"
	"gorm.io/gorm"
)

// ConnectionRepository defines the interface for connection data operations
type ConnectionRepository interface {
	CreateRequest(requesterID, requesteeID uuid.UUID, requesterCap int) (*models.Connection, error)
	GetByID(id uuid.UUID) (*models.Connection, error)
	FindBetween(a, b uuid.UUID) (*models.Connection, error)
	Accept(id, requesteeID uuid.UUID, requesteeCap int) (*models.Connection, error)
	Delete(id uuid.UUID) error
	GetAcceptedWithFriends(accountID uuid.UUID) ([]models.ConnectionWithFriend, error)
	GetPendingIncoming(accountID uuid.UUID) ([]models.PendingRequest, error)
	GetPendingOutgoing(accountID uuid.UUID) ([]models.Connection, error)
	CountAccepted(accountID uuid.UUID) (int64, error)
	IsConnected(a, b uuid.UUID) (bool, error)
}

// PostgresConnectionRepository implements ConnectionRepository for PostgreSQL
type PostgresConnectionRepository struct {
	db *gorm.DB
}

// NewPostgresConnectionRepository creates a new PostgresConnectionRepository
func NewPostgresConnectionRepository(db *gorm.DB) *PostgresConnectionRepository {
	return &PostgresConnectionRepository{db: db}
}

// CreateRequest inserts a pending connection. The cap check on the requester
// is part of the INSERT itself so a concurrent accept cannot slip the count
// past the cap between a read and a write.
func (r *PostgresConnectionRepository) CreateRequest(requesterID, requesteeID uuid.UUID, requesterCap int) (*models.Connection, error) {
	existing, err := r.FindBetween(requesterID, requesteeID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Status == models.ConnectionStatusAccepted {
			return nil, ErrAlreadyConnected
		}
		return nil, ErrRequestPending
	}

	id := uuid.New()
	res := r.db.Exec(`
		INSERT INTO connections (id, requester_id, requestee_id, status, created_at, updated_at)
		SELECT ?, ?, ?, 'pending', now(), now()
		WHERE (SELECT count(*) FROM connections
		       WHERE status = 'accepted' AND (requester_id = ? OR requestee_id = ?)) < ?`,
		id, requesterID, requesteeID, requesterID, requesterID, requesterCap)
	if res.Error != nil {
		return nil, fmt.Errorf("create connection request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrCapReached
	}
	return r.GetByID(id)
}

// GetByID retrieves a connection by ID
func (r *PostgresConnectionRepository) GetByID(id uuid.UUID) (*models.Connection, error) {
	var conn models.Connection
	if err := r.db.First(&conn, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindBetween retrieves the connection between two accounts, in either direction
func (r *PostgresConnectionRepository) FindBetween(a, b uuid.UUID) (*models.Connection, error) {
	var conn models.Connection
	err := r.db.Where("(requester_id = ? AND requestee_id = ?) OR (requester_id = ? AND requestee_id = ?)",
		a, b, b, a).First(&conn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// Accept transitions a pending request to accepted. Only the requestee may
// accept, and the requestee's cap check runs inside the UPDATE; the
// requester's cap was already validated at creation time and is deliberately
// not re-checked here.
func (r *PostgresConnectionRepository) Accept(id, requesteeID uuid.UUID, requesteeCap int) (*models.Connection, error) {
	res := r.db.Exec(`
		UPDATE connections SET status = 'accepted', confirmed_at = now(), updated_at = now()
		WHERE id = ? AND requestee_id = ? AND status = 'pending'
		AND (SELECT count(*) FROM connections c
		     WHERE c.status = 'accepted' AND (c.requester_id = ? OR c.requestee_id = ?)) < ?`,
		id, requesteeID, requesteeID, requesteeID, requesteeCap)
	if res.Error != nil {
		return nil, fmt.Errorf("accept connection request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Work out which precondition failed for the error response.
		conn, err := r.GetByID(id)
		if err != nil {
			return nil, err
		}
		switch {
		case conn.RequesteeID != requesteeID:
			return nil, ErrForbidden
		case conn.Status != models.ConnectionStatusPending:
			return nil, ErrNotPending
		default:
			return nil, ErrCapReached
		}
	}
	return r.GetByID(id)
}

// Delete removes a connection record outright. Declines and removals keep
// no audit trail, so a later request between the same pair starts clean.
func (r *PostgresConnectionRepository) Delete(id uuid.UUID) error {
	res := r.db.Delete(&models.Connection{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAcceptedWithFriends retrieves all accepted connections involving the
// account, each flattened to the other party's profile
func (r *PostgresConnectionRepository) GetAcceptedWithFriends(accountID uuid.UUID) ([]models.ConnectionWithFriend, error) {
	var conns []models.Connection
	err := r.db.Where("status = ? AND (requester_id = ? OR requestee_id = ?)",
		models.ConnectionStatusAccepted, accountID, accountID).
		Order("confirmed_at DESC").Find(&conns).Error
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return []models.ConnectionWithFriend{}, nil
	}

	otherIDs := make([]uuid.UUID, 0, len(conns))
	for _, c := range conns {
		otherIDs = append(otherIDs, otherParty(c, accountID))
	}

	var profiles []models.Profile
	if err := r.db.Where("account_id IN ?", otherIDs).Find(&profiles).Error; err != nil {
		return nil, err
	}
	byAccount := make(map[uuid.UUID]models.Profile, len(profiles))
	for _, p := range profiles {
		byAccount[p.AccountID] = p
	}

	out := make([]models.ConnectionWithFriend, 0, len(conns))
	for _, c := range conns {
		out = append(out, models.ConnectionWithFriend{
			Connection: c,
			Friend:     byAccount[otherParty(c, accountID)],
		})
	}
	return out, nil
}

// GetPendingIncoming retrieves pending requests where the account is the
// requestee, with the requester's profile attached
func (r *PostgresConnectionRepository) GetPendingIncoming(accountID uuid.UUID) ([]models.PendingRequest, error) {
	var conns []models.Connection
	err := r.db.Where("status = ? AND requestee_id = ?", models.ConnectionStatusPending, accountID).
		Order("created_at DESC").Find(&conns).Error
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return []models.PendingRequest{}, nil
	}

	requesterIDs := make([]uuid.UUID, 0, len(conns))
	for _, c := range conns {
		requesterIDs = append(requesterIDs, c.RequesterID)
	}
	var profiles []models.Profile
	if err := r.db.Where("account_id IN ?", requesterIDs).Find(&profiles).Error; err != nil {
		return nil, err
	}
	byAccount := make(map[uuid.UUID]models.Profile, len(profiles))
	for _, p := range profiles {
		byAccount[p.AccountID] = p
	}

	out := make([]models.PendingRequest, 0, len(conns))
	for _, c := range conns {
		out = append(out, models.PendingRequest{Connection: c, Requester: byAccount[c.RequesterID]})
	}
	return out, nil
}

// GetPendingOutgoing retrieves pending requests sent by the account
func (r *PostgresConnectionRepository) GetPendingOutgoing(accountID uuid.UUID) ([]models.Connection, error) {
	var conns []models.Connection
	err := r.db.Where("status = ? AND requester_id = ?", models.ConnectionStatusPending, accountID).
		Order("created_at DESC").Find(&conns).Error
	return conns, err
}

// CountAccepted counts accepted connections involving the account. Cap-gated
// mutations do not call this; their count runs inside the mutating statement.
func (r *PostgresConnectionRepository) CountAccepted(accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.Connection{}).
		Where("status = ? AND (requester_id = ? OR requestee_id = ?)",
			models.ConnectionStatusAccepted, accountID, accountID).
		Count(&count).Error
	return count, err
}

// IsConnected reports whether an accepted connection exists between the pair
func (r *PostgresConnectionRepository) IsConnected(a, b uuid.UUID) (bool, error) {
	conn, err := r.FindBetween(a, b)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return conn.Status == models.ConnectionStatusAccepted, nil
}

func otherParty(c models.Connection, accountID uuid.UUID) uuid.UUID {
	if c.RequesterID == accountID {
		return c.RequesteeID
	}
	return c.RequesterID
}
