package repositories

import (
	"context"
	"time"

	"github.com/socialgraph/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	CreateNotifications(ctx context.Context, notifications []models.Notification) error
	GetByRecipient(ctx context.Context, recipientID primitive.ObjectID, limit int64) ([]models.Notification, error)
	GetUnreadCount(ctx context.Context, recipientID primitive.ObjectID) (int64, error)
	MarkAllAsRead(ctx context.Context, recipientID primitive.ObjectID) (int64, error)
}

type mongoNotificationRepository struct {
	collection *mongo.Collection
}

func NewMongoNotificationRepository(db *mongo.Database) NotificationRepository {
	return &mongoNotificationRepository{collection: db.Collection("notifications")}
}

func prepare(n *models.Notification, now time.Time) {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.Data == nil {
		n.Data = map[string]interface{}{}
	}
}

func (r *mongoNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	prepare(notification, time.Now())
	_, err := r.collection.InsertOne(ctx, notification)
	return err
}

// CreateNotifications writes a batch with one unordered InsertMany.
func (r *mongoNotificationRepository) CreateNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, len(notifications))
	for i := range notifications {
		prepare(&notifications[i], now)
		docs[i] = notifications[i]
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return err
}

func (r *mongoNotificationRepository) GetByRecipient(ctx context.Context, recipientID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"userId": recipientID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *mongoNotificationRepository) GetUnreadCount(ctx context.Context, recipientID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"userId": recipientID, "read": false})
}

func (r *mongoNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID primitive.ObjectID) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"userId": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
