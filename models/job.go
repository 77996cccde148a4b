package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// Job is a durable delayed task. Scheduled work survives process restarts
// because jobs live in the store, not in in-process timers.
type Job struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Kind      string             `bson:"kind" json:"kind"`
	Payload   map[string]string  `bson:"payload" json:"payload"`
	RunAt     time.Time          `bson:"runAt" json:"runAt"`
	Status    string             `bson:"status" json:"status"`
	Error     string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
