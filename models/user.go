package models

import "time"

// DefaultBio is set on users provisioned from the identity provider.
const DefaultBio = "Hey there! I'm using BuzzConnect."

// User is keyed by the identity provider's user ID, not an ObjectID.
type User struct {
	ID             string    `bson:"_id" json:"_id"`
	Email          string    `bson:"email" json:"email"`
	FullName       string    `bson:"full_name" json:"full_name"`
	Username       string    `bson:"username" json:"username"`
	Bio            string    `bson:"bio" json:"bio"`
	ProfilePicture string    `bson:"profile_picture" json:"profile_picture"`
	CoverPhoto     string    `bson:"cover_photo" json:"cover_photo"`
	Location       string    `bson:"location" json:"location"`
	Followers      []string  `bson:"followers" json:"followers"`
	Following      []string  `bson:"following" json:"following"`
	Connections    []string  `bson:"connections" json:"connections"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt"`
}
