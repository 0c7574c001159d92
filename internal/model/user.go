package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the document stored in the `users` collection. Refresh tokens and
// favourites are embedded so the store can mutate them with atomic array
// operations on a single document.
//
// PasswordHash is empty for accounts created through an OAuth provider; such
// users cannot log in locally. The provider id fields are the lookup keys for
// federated logins and are never exposed in API responses.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Email         string             `bson:"email,omitempty"`
	Name          string             `bson:"name"`
	Surname       string             `bson:"surname"`
	PasswordHash  string             `bson:"password_hash,omitempty"`
	AvatarURL     string             `bson:"avatar_url"`
	Favourites    []Favourite        `bson:"favourites"`
	RefreshTokens []RefreshToken     `bson:"refresh_tokens"`
	SpotifyID     string             `bson:"spotify_id,omitempty"`
	GoogleID      string             `bson:"google_id,omitempty"`
	FacebookID    string             `bson:"facebook_id,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

// Favourite is an embedded favourite-city entry. Duplicates by city name are
// allowed; removal pulls every entry matching the name.
type Favourite struct {
	City      string    `bson:"city"`
	CreatedAt time.Time `bson:"created_at"`
}

// RefreshToken is an embedded entry in the user's revocable token list. Only
// the SHA-256 hex digest of the raw token is stored; a signature-valid token
// whose hash is no longer in the list must be rejected.
type RefreshToken struct {
	TokenHash string    `bson:"token_hash"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}
