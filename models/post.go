package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PostText          = "text"
	PostImage         = "image"
	PostTextWithImage = "text_with_image"
)

type Post struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID     string             `bson:"user" json:"userId"`
	Content    string             `bson:"content" json:"content"`
	ImageURLs  []string           `bson:"image_urls" json:"image_urls"`
	PostType   string             `bson:"post_type" json:"post_type"`
	LikesCount []string           `bson:"likes_count" json:"likes_count"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`

	User *User `bson:"-" json:"user,omitempty"` // Populated in response only
}
