package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"buzzconnect/models"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("store: not found")

// ListField names one of the relationship lists on a user document.
type ListField string

const (
	ListFollowers   ListField = "followers"
	ListFollowing   ListField = "following"
	ListConnections ListField = "connections"
)

// UserUpdate carries a partial profile update; nil fields are left untouched.
type UserUpdate struct {
	Email          *string
	FullName       *string
	Username       *string
	Bio            *string
	Location       *string
	ProfilePicture *string
	CoverPhoto     *string
}

// Store is the persistence boundary for the whole application. The Mongo
// implementation backs production; Memory backs tests.
//
// Paired list mutations (follow, accept-connection) are separate calls on
// purpose: the application performs them as independent writes with no
// cross-document transaction, and a crash between them leaves asymmetric
// state. That limitation is part of the contract, not an accident of it.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	SearchUsers(ctx context.Context, input, excludeID string) ([]models.User, error)
	AddToUserList(ctx context.Context, id string, field ListField, value string) error
	RemoveFromUserList(ctx context.Context, id string, field ListField, value string) error
	RemoveUserFromAllLists(ctx context.Context, id string) error

	// Connections
	CreateConnection(ctx context.Context, conn *models.Connection) error
	GetConnection(ctx context.Context, id primitive.ObjectID) (*models.Connection, error)
	FindConnectionBetween(ctx context.Context, a, b string) (*models.Connection, error)
	FindConnectionFromTo(ctx context.Context, from, to string) (*models.Connection, error)
	CountConnectionRequestsSince(ctx context.Context, from string, since time.Time) (int64, error)
	ListPendingConnectionsTo(ctx context.Context, to string) ([]models.Connection, error)
	SetConnectionStatus(ctx context.Context, id primitive.ObjectID, status string) error
	DeleteConnectionsForUser(ctx context.Context, userID string) error

	// Posts
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	ListPostsByUsers(ctx context.Context, userIDs []string) ([]models.Post, error)
	SetPostLikes(ctx context.Context, id primitive.ObjectID, likes []string) error
	DeletePostsByUser(ctx context.Context, userID string) error

	// Stories
	CreateStory(ctx context.Context, story *models.Story) error
	DeleteStory(ctx context.Context, id primitive.ObjectID) error
	ListStoriesByUsers(ctx context.Context, userIDs []string) ([]models.Story, error)
	DeleteStoriesByUser(ctx context.Context, userID string) error

	// Messages
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListThread(ctx context.Context, a, b string) ([]models.Message, error)
	MarkThreadSeen(ctx context.Context, from, to string) error
	ListMessagesTo(ctx context.Context, to string) ([]models.Message, error)
	CountUnseenByRecipient(ctx context.Context) (map[string]int, error)
	DeleteMessagesForUser(ctx context.Context, userID string) error

	// Jobs
	EnqueueJob(ctx context.Context, job *models.Job) error
	ClaimDueJob(ctx context.Context, now time.Time) (*models.Job, error)
	MarkJob(ctx context.Context, id primitive.ObjectID, status, errMsg string) error

	// Push subscriptions
	SavePushSubscription(ctx context.Context, sub *models.PushSubscription) error
	ListPushSubscriptions(ctx context.Context, userID string) ([]models.PushSubscription, error)
	DeletePushSubscriptionsForUser(ctx context.Context, userID string) error
}
