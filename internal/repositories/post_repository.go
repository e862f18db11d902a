package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/socialgraph/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	GetPostsByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Post, error)
	GetPostsByAuthors(ctx context.Context, authorIDs []primitive.ObjectID, skip, limit int64) ([]models.Post, error)
	GetAllPosts(ctx context.Context, skip, limit int64) ([]models.Post, error)
	GetPostsSince(ctx context.Context, since time.Time) ([]models.Post, error)
	AddLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error)
	RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error)
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// CreatePost creates a new post in MongoDB
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	if post.Media == nil {
		post.Media = []models.Media{}
	}
	post.Likes = []primitive.ObjectID{}
	_, err := r.collection.InsertOne(ctx, post)
	return err
}

// GetPostByID retrieves a post by ID from MongoDB
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("post: %w", ErrNotFound)
		}
		return nil, err
	}
	return &post, nil
}

func (r *MongoPostRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.Post, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *MongoPostRepository) GetPostsByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Post, error) {
	return r.find(ctx, bson.M{"author": authorID}, options.Find().SetSort(newestFirst))
}

// GetPostsByAuthors returns one page of posts written by any of authorIDs, newest first
func (r *MongoPostRepository) GetPostsByAuthors(ctx context.Context, authorIDs []primitive.ObjectID, skip, limit int64) ([]models.Post, error) {
	if len(authorIDs) == 0 {
		return []models.Post{}, nil
	}
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(newestFirst)
	return r.find(ctx, bson.M{"author": bson.M{"$in": authorIDs}}, findOptions)
}

// GetAllPosts retrieves all posts from MongoDB with pagination
func (r *MongoPostRepository) GetAllPosts(ctx context.Context, skip, limit int64) ([]models.Post, error) {
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(newestFirst)
	return r.find(ctx, bson.D{}, findOptions)
}

func (r *MongoPostRepository) GetPostsSince(ctx context.Context, since time.Time) ([]models.Post, error) {
	return r.find(ctx, bson.M{"createdAt": bson.M{"$gte": since}}, options.Find().SetSort(newestFirst))
}

// AddLike appends userID to the post's likes unless it is already there. It
// returns the updated post, or nil when no post matched (missing or already liked).
func (r *MongoPostRepository) AddLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	filter := bson.M{"_id": postID, "likes": bson.M{"$ne": userID}}
	return r.toggle(ctx, filter, bson.M{"$push": bson.M{"likes": userID}})
}

// RemoveLike pulls userID from the post's likes. It returns nil when no post
// matched (missing or not liked).
func (r *MongoPostRepository) RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (*models.Post, error) {
	filter := bson.M{"_id": postID, "likes": userID}
	return r.toggle(ctx, filter, bson.M{"$pull": bson.M{"likes": userID}})
}

func (r *MongoPostRepository) toggle(ctx context.Context, filter, update bson.M) (*models.Post, error) {
	var post models.Post
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}
