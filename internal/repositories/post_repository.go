package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/onlyfriends/server/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostsByUserID(ctx context.Context, userID string, skip, limit int64) ([]models.Post, error)
	GetFeedPosts(ctx context.Context, userIDs []string, skip, limit int64) ([]models.Post, error)
	ArchivePost(ctx context.Context, id, userID string) error
	DeletePost(ctx context.Context, id, userID string) error
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	post.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid post ID format: %w", err)
	}

	var post models.Post
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&post)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetPostsByUserID retrieves unarchived posts by a specific user
func (r *MongoPostRepository) GetPostsByUserID(ctx context.Context, userID string, skip, limit int64) ([]models.Post, error) {
	filter := bson.M{"user_id": userID, "is_archived": false}
	return r.findPosts(ctx, filter, skip, limit)
}

// GetFeedPosts retrieves unexpired, unarchived posts by the given authors,
// newest first. Expiry of temporary posts is evaluated at query time.
func (r *MongoPostRepository) GetFeedPosts(ctx context.Context, userIDs []string, skip, limit int64) ([]models.Post, error) {
	filter := bson.M{
		"user_id":     bson.M{"$in": userIDs},
		"is_archived": false,
		"$or": bson.A{
			bson.M{"is_temporary": false},
			bson.M{"expires_at": bson.M{"$gt": time.Now()}},
		},
	}
	return r.findPosts(ctx, filter, skip, limit)
}

func (r *MongoPostRepository) findPosts(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Post, error) {
	var posts []models.Post
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ArchivePost hides a post without deleting it. Only the owner may archive.
func (r *MongoPostRepository) ArchivePost(ctx context.Context, id, userID string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid post ID format: %w", err)
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objID, "user_id": userID},
		bson.M{"$set": bson.M{"is_archived": true, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePost deletes a post. Only the owner may delete.
func (r *MongoPostRepository) DeletePost(ctx context.Context, id, userID string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid post ID format: %w", err)
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
