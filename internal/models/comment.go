package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a flat comment on a post
type Comment struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	PostID    primitive.ObjectID `json:"postId" bson:"postId"`
	Author    primitive.ObjectID `json:"author" bson:"author"`
	Text      string             `json:"text" bson:"text"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// CommentView is a comment with its author resolved for display.
type CommentView struct {
	ID        primitive.ObjectID `json:"_id"`
	PostID    primitive.ObjectID `json:"postId"`
	Author    UserCompact        `json:"author"`
	Text      string             `json:"text"`
	CreatedAt time.Time          `json:"createdAt"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Text string `json:"text" validate:"required,min=1,max=1000"`
}
