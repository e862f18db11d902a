package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaKind classifies an attached media file.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaGIF   MediaKind = "gif"
	MediaOther MediaKind = "other"
)

// MaxPostMedia is the maximum number of media entries on a post.
const MaxPostMedia = 5

// Media references a durably stored file.
type Media struct {
	URL  string    `json:"url" bson:"url"`
	Kind MediaKind `json:"type" bson:"type"`
}

// Post represents a social media post stored in MongoDB
type Post struct {
	ID          primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Title       string               `json:"title" bson:"title"`
	Description string               `json:"description" bson:"description"`
	Author      primitive.ObjectID   `json:"author" bson:"author"`
	Media       []Media              `json:"media" bson:"media"`
	Likes       []primitive.ObjectID `json:"likes" bson:"likes"`
	CreatedAt   time.Time            `json:"createdAt" bson:"createdAt"`
}

// LikedBy reports whether userID is in the post's like set.
func (p *Post) LikedBy(userID primitive.ObjectID) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// CreatePostRequest defines the form fields for creating a new post
type CreatePostRequest struct {
	Title       string `json:"title" form:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" form:"description" validate:"required,min=1,max=5000"`
}

// LikeResult is returned by a like toggle.
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likesCount"`
}
