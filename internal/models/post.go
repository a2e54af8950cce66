package models

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

// Post represents a post stored in MongoDB. Temporary posts carry an expiry
// and are filtered out of the feed once expired.
type Post struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID      string             `json:"user_id" bson:"user_id"` // account UUID as string
	Content     string             `json:"content" bson:"content"`
	ImageURL    string             `json:"image_url,omitempty" bson:"image_url,omitempty"`
	IsTemporary bool               `json:"is_temporary" bson:"is_temporary"`
	IsArchived  bool               `json:"is_archived" bson:"is_archived"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// PostWithAuthor pairs a post with its author's profile for feed responses
type PostWithAuthor struct {
	Post
	Author Profile `json:"author"`
	Viewed bool    `json:"viewed"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content     string `json:"content" validate:"required,min=1,max=500"`
	ImageURL    string `json:"image_url,omitempty" validate:"omitempty,url"`
	IsTemporary bool   `json:"is_temporary"`
}

// PostView records that a viewer has seen a post, once per viewer (PostgreSQL)
type PostView struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	PostID   string    `json:"post_id" gorm:"size:24;index;uniqueIndex:idx_post_viewer"`
	ViewerID uuid.UUID `json:"viewer_id" gorm:"type:uuid;index;uniqueIndex:idx_post_viewer"`
	ViewedAt time.Time `json:"viewed_at" gorm:"autoCreateTime"`
}

func (v *PostView) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
