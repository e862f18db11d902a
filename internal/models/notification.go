package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
	NotificationNewPost NotificationType = "new_post"
)

// Payload keys. FromUser names the originating actor; the other two are the
// display snapshot captured when the notification is created.
const (
	DataFromUser           = "fromUser"
	DataFromUsername       = "fromUsername"
	DataFromProfilePicture = "fromProfilePicture"
	DataPostID             = "postId"
	DataCommentID          = "commentId"
)

// Notification represents a user notification (MongoDB)
type Notification struct {
	ID        primitive.ObjectID     `json:"_id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID     `json:"userId" bson:"userId"`
	Type      NotificationType       `json:"type" bson:"type"`
	Data      map[string]interface{} `json:"data" bson:"data"`
	Read      bool                   `json:"read" bson:"read"`
	CreatedAt time.Time              `json:"createdAt" bson:"createdAt"`
}
