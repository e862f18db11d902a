package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a user document stored in MongoDB.
// Following and Followers hold user IDs as hex strings and must mirror each other.
type User struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Username       string             `json:"username" bson:"username"`
	Email          string             `json:"email,omitempty" bson:"email"`
	Password       string             `json:"-" bson:"password,omitempty"` // bcrypt hash, never serialized
	Following      []string           `json:"following" bson:"following"`
	Followers      []string           `json:"followers" bson:"followers"`
	ProfilePicture string             `json:"profilePicture,omitempty" bson:"profilePicture,omitempty"`
	FirebaseUID    string             `json:"-" bson:"firebaseUid,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
}

// UserCompact is the display-safe projection of a user.
type UserCompact struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id"`
	Username       string             `json:"username" bson:"username"`
	ProfilePicture string             `json:"profilePicture,omitempty" bson:"profilePicture,omitempty"`
}

// ToCompact returns the display-safe projection of u.
func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:             u.ID,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
	}
}

type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
}

// TokenResponse is returned by signup and login.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// JwtCustomClaims carries the user ID in the standard subject claim.
type JwtCustomClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the authenticated user's hex ID.
func (c *JwtCustomClaims) UserID() string {
	return c.Subject
}
