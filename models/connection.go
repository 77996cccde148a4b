package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
)

type Connection struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FromUserID string             `bson:"from_user_id" json:"from_user_id"`
	ToUserID   string             `bson:"to_user_id" json:"to_user_id"`
	Status     string             `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`

	// Populated in responses only
	FromUser *User `bson:"-" json:"from_user,omitempty"`
	ToUser   *User `bson:"-" json:"to_user,omitempty"`
}
