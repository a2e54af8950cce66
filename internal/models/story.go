package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Story represents a 24-hour story stored in MongoDB
type Story struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID          string             `json:"user_id" bson:"user_id"`
	Content         string             `json:"content,omitempty" bson:"content,omitempty"`
	ImageURL        string             `json:"image_url,omitempty" bson:"image_url,omitempty"`
	BackgroundColor string             `json:"background_color,omitempty" bson:"background_color,omitempty"`
	ExpiresAt       time.Time          `json:"expires_at" bson:"expires_at"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
}

// CreateStoryRequest defines the request body for creating a story
type CreateStoryRequest struct {
	Content         string `json:"content,omitempty" validate:"omitempty,max=280"`
	ImageURL        string `json:"image_url,omitempty" validate:"omitempty,url"`
	BackgroundColor string `json:"background_color,omitempty" validate:"omitempty,hexcolor"`
}

// StoryGroup bundles one author's unexpired stories
type StoryGroup struct {
	Author  Profile `json:"author"`
	Stories []Story `json:"stories"`
}
