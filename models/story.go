package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StoryText  = "text"
	StoryImage = "image"
	StoryVideo = "video"
)

type Story struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID          string             `bson:"user" json:"userId"`
	Content         string             `bson:"content" json:"content"`
	MediaURL        string             `bson:"media_url" json:"media_url"`
	MediaType       string             `bson:"media_type" json:"media_type"`
	BackgroundColor string             `bson:"background_color" json:"background_color"`
	ViewsCount      []string           `bson:"views_count" json:"views_count"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`

	User *User `bson:"-" json:"user,omitempty"` // Populated in response only
}
