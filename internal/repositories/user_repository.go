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

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	GetUsersExcluding(ctx context.Context, exclude []primitive.ObjectID, limit int64) ([]models.User, error)
	UpdateProfilePicture(ctx context.Context, id, url string) (*models.User, error)
	UpdateUsername(ctx context.Context, id, username string) (*models.User, error)
	LinkFirebaseUID(ctx context.Context, id, uid string) error
	AddFollow(ctx context.Context, actorID, targetID string) (bool, error)
	RemoveFollow(ctx context.Context, actorID, targetID string) (bool, error)
	DedupeFollowLists(ctx context.Context) (int, error)
}

// MongoUserRepository implements UserRepository for MongoDB
type MongoUserRepository struct {
	collection   *mongo.Collection
	transactions bool
}

// NewMongoUserRepository creates a new MongoUserRepository. When transactions
// is set, follow and unfollow write both user documents inside one session
// transaction, which requires a replica set.
func NewMongoUserRepository(db *mongo.Database, transactions bool) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users"), transactions: transactions}
}

var withoutPassword = bson.M{"password": 0}

func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	if user.Following == nil {
		user.Following = []string{}
	}
	if user.Followers == nil {
		user.Followers = []string{}
	}
	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user: %w", ErrDuplicateKey)
		}
		return err
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, filter, opts...).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user without the password hash
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	objID, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": objID}, options.FindOne().SetProjection(withoutPassword))
}

// GetUserByEmail retrieves a user including the password hash. Only the
// login path should call it.
func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"firebaseUid": uid}, options.FindOne().SetProjection(withoutPassword))
}

func (r *MongoUserRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, filter, opts.SetProjection(withoutPassword))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *MongoUserRepository) GetUsers(ctx context.Context) ([]models.User, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *MongoUserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

// GetUsersExcluding returns up to limit users whose ID is not in exclude
func (r *MongoUserRepository) GetUsersExcluding(ctx context.Context, exclude []primitive.ObjectID, limit int64) ([]models.User, error) {
	return r.find(ctx, bson.M{"_id": bson.M{"$nin": exclude}}, options.Find().SetLimit(limit))
}

func (r *MongoUserRepository) update(ctx context.Context, id string, set bson.M) (*models.User, error) {
	objID, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)

	var user models.User
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		case mongo.IsDuplicateKeyError(err):
			return nil, fmt.Errorf("user: %w", ErrDuplicateKey)
		}
		return nil, err
	}
	return &user, nil
}

func (r *MongoUserRepository) UpdateProfilePicture(ctx context.Context, id, url string) (*models.User, error) {
	return r.update(ctx, id, bson.M{"profilePicture": url})
}

func (r *MongoUserRepository) UpdateUsername(ctx context.Context, id, username string) (*models.User, error) {
	return r.update(ctx, id, bson.M{"username": username})
}

func (r *MongoUserRepository) LinkFirebaseUID(ctx context.Context, id, uid string) error {
	_, err := r.update(ctx, id, bson.M{"firebaseUid": uid})
	return err
}

// AddFollow records that actorID follows targetID on both user documents.
// Each side is a conditional push, so repeating it never duplicates an entry.
// The returned flag reports whether the actor's following list changed.
func (r *MongoUserRepository) AddFollow(ctx context.Context, actorID, targetID string) (bool, error) {
	return r.mirror(ctx, actorID, targetID, func(field, value string) (bson.M, bson.M) {
		return bson.M{field: bson.M{"$ne": value}}, bson.M{"$push": bson.M{field: value}}
	})
}

// RemoveFollow pulls targetID from the actor's following and actorID from the
// target's followers.
func (r *MongoUserRepository) RemoveFollow(ctx context.Context, actorID, targetID string) (bool, error) {
	return r.mirror(ctx, actorID, targetID, func(field, value string) (bson.M, bson.M) {
		return bson.M{field: value}, bson.M{"$pull": bson.M{field: value}}
	})
}

type mirrorUpdate func(field, value string) (filter bson.M, update bson.M)

func (r *MongoUserRepository) mirror(ctx context.Context, actorID, targetID string, build mirrorUpdate) (bool, error) {
	actor, err := ParseID(actorID)
	if err != nil {
		return false, err
	}
	target, err := ParseID(targetID)
	if err != nil {
		return false, err
	}

	var changed bool
	err = r.withTransaction(ctx, func(ctx context.Context) error {
		changed = false

		filter, update := build("following", target.Hex())
		filter["_id"] = actor
		res, err := r.collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return fmt.Errorf("update following of %s: %w", actorID, err)
		}
		changed = res.ModifiedCount > 0

		filter, update = build("followers", actor.Hex())
		filter["_id"] = target
		if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
			return fmt.Errorf("update followers of %s: %w", targetID, err)
		}
		return nil
	})
	return changed, err
}

func (r *MongoUserRepository) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !r.transactions {
		return fn(ctx)
	}
	session, err := r.collection.Database().Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// DedupeFollowLists rewrites every user whose following or followers list
// contains repeated or non-string entries. It returns the number of users changed.
func (r *MongoUserRepository) DedupeFollowLists(ctx context.Context) (int, error) {
	opts := options.Find().SetProjection(bson.M{"following": 1, "followers": 1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	updated := 0
	for cursor.Next(ctx) {
		var doc struct {
			ID        primitive.ObjectID `bson:"_id"`
			Following primitive.A        `bson:"following"`
			Followers primitive.A        `bson:"followers"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return updated, err
		}

		following, fChanged := NormalizeIDList(doc.Following)
		followers, rChanged := NormalizeIDList(doc.Followers)
		if !fChanged && !rChanged {
			continue
		}
		set := bson.M{"following": following, "followers": followers}
		if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": set}); err != nil {
			return updated, fmt.Errorf("rewrite follow lists of %s: %w", doc.ID.Hex(), err)
		}
		updated++
	}
	return updated, cursor.Err()
}

// NormalizeIDList converts a stored follow list to deduplicated hex strings.
// Entries stored as ObjectIDs are converted; entries of any other type are dropped.
func NormalizeIDList(raw primitive.A) ([]string, bool) {
	ids := make([]string, 0, len(raw))
	changed := false
	for _, v := range raw {
		switch id := v.(type) {
		case string:
			ids = append(ids, id)
		case primitive.ObjectID:
			ids = append(ids, id.Hex())
			changed = true
		default:
			changed = true
		}
	}
	deduped := DedupeIDs(ids)
	return deduped, changed || len(deduped) != len(ids)
}
