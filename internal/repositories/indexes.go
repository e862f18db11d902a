package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the MongoDB indexes the repositories rely on. The
// unique indexes on users back ErrDuplicateKey at signup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	// Federated accounts may have no email.
	uniqueEmail := options.Index().SetUnique(true).
		SetPartialFilterExpression(bson.M{"email": bson.M{"$gt": ""}})

	specs := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: uniqueEmail},
			{Keys: bson.D{{Key: "firebaseUid", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		"posts": {
			{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		"comments": {
			{Keys: bson.D{{Key: "postId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		"notifications": {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "read", Value: 1}}},
		},
	}
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
