package repositories

import (
	"github.com/google/uuid"
	"github.com/onlyfriends/server/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostViewRepository defines the interface for post-view tracking
type PostViewRepository interface {
	MarkViewed(postID string, viewerID uuid.UUID) error
	GetViewedSet(viewerID uuid.UUID, postIDs []string) (map[string]bool, error)
	GetViewers(postID string) ([]uuid.UUID, error)
}

// PostgresPostViewRepository implements PostViewRepository for PostgreSQL
type PostgresPostViewRepository struct {
	db *gorm.DB
}

// NewPostgresPostViewRepository creates a new PostgresPostViewRepository
func NewPostgresPostViewRepository(db *gorm.DB) *PostgresPostViewRepository {
	return &PostgresPostViewRepository{db: db}
}

// MarkViewed records a view once per viewer; repeat views are no-ops
func (r *PostgresPostViewRepository) MarkViewed(postID string, viewerID uuid.UUID) error {
	view := models.PostView{PostID: postID, ViewerID: viewerID}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&view).Error
}

// GetViewedSet reports which of the given posts the viewer has seen
func (r *PostgresPostViewRepository) GetViewedSet(viewerID uuid.UUID, postIDs []string) (map[string]bool, error) {
	viewed := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return viewed, nil
	}
	var seen []string
	err := r.db.Model(&models.PostView{}).
		Where("viewer_id = ? AND post_id IN ?", viewerID, postIDs).
		Pluck("post_id", &seen).Error
	if err != nil {
		return nil, err
	}
	for _, id := range seen {
		viewed[id] = true
	}
	return viewed, nil
}

// GetViewers returns the accounts that have viewed the post
func (r *PostgresPostViewRepository) GetViewers(postID string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&models.PostView{}).Where("post_id = ?", postID).
		Order("viewed_at ASC").
		Pluck("viewer_id", &ids).Error
	return ids, err
}
