package repositories

import (
	"context"
	"time"

	"github.com/onlyfriends/server/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const storyLifetime = 24 * time.Hour

// StoryRepository defines the interface for story data operations
type StoryRepository interface {
	CreateStory(ctx context.Context, story *models.Story) error
	GetActiveStoriesByUserIDs(ctx context.Context, userIDs []string) ([]models.Story, error)
	DeleteStory(ctx context.Context, id, userID string) error
}

// MongoStoryRepository implements StoryRepository for MongoDB
type MongoStoryRepository struct {
	collection *mongo.Collection
}

// NewMongoStoryRepository creates a new MongoStoryRepository
func NewMongoStoryRepository(db *mongo.Database) *MongoStoryRepository {
	return &MongoStoryRepository{collection: db.Collection("stories")}
}

// CreateStory creates a story with a 24-hour expiry
func (r *MongoStoryRepository) CreateStory(ctx context.Context, story *models.Story) error {
	story.ID = primitive.NewObjectID()
	story.CreatedAt = time.Now()
	story.ExpiresAt = story.CreatedAt.Add(storyLifetime)
	_, err := r.collection.InsertOne(ctx, story)
	return err
}

// GetActiveStoriesByUserIDs retrieves unexpired stories by the given
// authors, oldest first so clients can play them in order
func (r *MongoStoryRepository) GetActiveStoriesByUserIDs(ctx context.Context, userIDs []string) ([]models.Story, error) {
	filter := bson.M{
		"user_id":    bson.M{"$in": userIDs},
		"expires_at": bson.M{"$gt": time.Now()},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stories []models.Story
	if err = cursor.All(ctx, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

// DeleteStory deletes a story. Only the owner may delete.
func (r *MongoStoryRepository) DeleteStory(ctx context.Context, id, userID string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
