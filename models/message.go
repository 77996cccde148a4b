package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MessageText  = "text"
	MessageImage = "image"
)

type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FromUserID  string             `bson:"from_user_id" json:"from_user_id"`
	ToUserID    string             `bson:"to_user_id" json:"to_user_id"`
	Text        string             `bson:"text" json:"text"`
	MessageType string             `bson:"message_type" json:"message_type"`
	MediaURL    string             `bson:"media_url" json:"media_url"`
	Seen        bool               `bson:"seen" json:"seen"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`

	// Populated in responses only
	FromUser *User `bson:"-" json:"from_user,omitempty"`
	ToUser   *User `bson:"-" json:"to_user,omitempty"`
}
