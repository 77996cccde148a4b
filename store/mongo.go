package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"buzzconnect/models"
)

// Mongo implements Store on top of a MongoDB database.
type Mongo struct {
	users       *mongo.Collection
	posts       *mongo.Collection
	stories     *mongo.Collection
	messages    *mongo.Collection
	connections *mongo.Collection
	jobs        *mongo.Collection
	pushSubs    *mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		users:       db.Collection("users"),
		posts:       db.Collection("posts"),
		stories:     db.Collection("stories"),
		messages:    db.Collection("messages"),
		connections: db.Collection("connections"),
		jobs:        db.Collection("jobs"),
		pushSubs:    db.Collection("push_subscriptions"),
	}
}

var _ Store = (*Mongo)(nil)

func mapErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// ----- Users -----

func (m *Mongo) CreateUser(ctx context.Context, user *models.User) error {
	_, err := m.users.InsertOne(ctx, user)
	return err
}

func (m *Mongo) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := m.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (m *Mongo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := m.users.FindOne(ctx, bson.M{"username": username}).Decode(&user); err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (m *Mongo) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now()}
	for key, val := range map[string]*string{
		"email":           upd.Email,
		"full_name":       upd.FullName,
		"username":        upd.Username,
		"bio":             upd.Bio,
		"location":        upd.Location,
		"profile_picture": upd.ProfilePicture,
		"cover_photo":     upd.CoverPhoto,
	} {
		if val != nil {
			set[key] = *val
		}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := m.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (m *Mongo) DeleteUser(ctx context.Context, id string) error {
	_, err := m.users.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (m *Mongo) SearchUsers(ctx context.Context, input, excludeID string) ([]models.User, error) {
	pattern := primitive.Regex{Pattern: input, Options: "i"}
	filter := bson.M{
		"_id": bson.M{"$ne": excludeID},
		"$or": bson.A{
			bson.M{"username": pattern},
			bson.M{"email": pattern},
			bson.M{"full_name": pattern},
			bson.M{"location": pattern},
		},
	}

	cursor, err := m.users.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (m *Mongo) AddToUserList(ctx context.Context, id string, field ListField, value string) error {
	_, err := m.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{string(field): value}})
	return err
}

func (m *Mongo) RemoveFromUserList(ctx context.Context, id string, field ListField, value string) error {
	_, err := m.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{string(field): value}})
	return err
}

func (m *Mongo) RemoveUserFromAllLists(ctx context.Context, id string) error {
	_, err := m.users.UpdateMany(ctx, bson.M{}, bson.M{"$pull": bson.M{
		"followers":   id,
		"following":   id,
		"connections": id,
	}})
	return err
}

// ----- Connections -----

func (m *Mongo) CreateConnection(ctx context.Context, conn *models.Connection) error {
	if conn.ID.IsZero() {
		conn.ID = primitive.NewObjectID()
	}
	_, err := m.connections.InsertOne(ctx, conn)
	return err
}

func (m *Mongo) GetConnection(ctx context.Context, id primitive.ObjectID) (*models.Connection, error) {
	var conn models.Connection
	if err := m.connections.FindOne(ctx, bson.M{"_id": id}).Decode(&conn); err != nil {
		return nil, mapErr(err)
	}
	return &conn, nil
}

func (m *Mongo) FindConnectionBetween(ctx context.Context, a, b string) (*models.Connection, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"from_user_id": a, "to_user_id": b},
		bson.M{"from_user_id": b, "to_user_id": a},
	}}
	var conn models.Connection
	if err := m.connections.FindOne(ctx, filter).Decode(&conn); err != nil {
		return nil, mapErr(err)
	}
	return &conn, nil
}

func (m *Mongo) FindConnectionFromTo(ctx context.Context, from, to string) (*models.Connection, error) {
	var conn models.Connection
	err := m.connections.FindOne(ctx, bson.M{"from_user_id": from, "to_user_id": to}).Decode(&conn)
	if err != nil {
		return nil, mapErr(err)
	}
	return &conn, nil
}

func (m *Mongo) CountConnectionRequestsSince(ctx context.Context, from string, since time.Time) (int64, error) {
	return m.connections.CountDocuments(ctx, bson.M{
		"from_user_id": from,
		"createdAt":    bson.M{"$gte": since},
	})
}

func (m *Mongo) ListPendingConnectionsTo(ctx context.Context, to string) ([]models.Connection, error) {
	cursor, err := m.connections.Find(ctx, bson.M{"to_user_id": to, "status": models.ConnectionPending})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var conns []models.Connection
	if err := cursor.All(ctx, &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

func (m *Mongo) SetConnectionStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	_, err := m.connections.UpdateByID(ctx, id, bson.M{"$set": bson.M{"status": status}})
	return err
}

func (m *Mongo) DeleteConnectionsForUser(ctx context.Context, userID string) error {
	_, err := m.connections.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"from_user_id": userID},
		bson.M{"to_user_id": userID},
	}})
	return err
}

// ----- Posts -----

func (m *Mongo) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	_, err := m.posts.InsertOne(ctx, post)
	return err
}

func (m *Mongo) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	if err := m.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		return nil, mapErr(err)
	}
	return &post, nil
}

func (m *Mongo) ListPostsByUsers(ctx context.Context, userIDs []string) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := m.posts.Find(ctx, bson.M{"user": bson.M{"$in": userIDs}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (m *Mongo) SetPostLikes(ctx context.Context, id primitive.ObjectID, likes []string) error {
	_, err := m.posts.UpdateByID(ctx, id, bson.M{"$set": bson.M{"likes_count": likes}})
	return err
}

func (m *Mongo) DeletePostsByUser(ctx context.Context, userID string) error {
	_, err := m.posts.DeleteMany(ctx, bson.M{"user": userID})
	return err
}

// ----- Stories -----

func (m *Mongo) CreateStory(ctx context.Context, story *models.Story) error {
	if story.ID.IsZero() {
		story.ID = primitive.NewObjectID()
	}
	_, err := m.stories.InsertOne(ctx, story)
	return err
}

func (m *Mongo) DeleteStory(ctx context.Context, id primitive.ObjectID) error {
	_, err := m.stories.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (m *Mongo) ListStoriesByUsers(ctx context.Context, userIDs []string) ([]models.Story, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := m.stories.Find(ctx, bson.M{"user": bson.M{"$in": userIDs}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stories []models.Story
	if err := cursor.All(ctx, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func (m *Mongo) DeleteStoriesByUser(ctx context.Context, userID string) error {
	_, err := m.stories.DeleteMany(ctx, bson.M{"user": userID})
	return err
}

// ----- Messages -----

func (m *Mongo) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	_, err := m.messages.InsertOne(ctx, msg)
	return err
}

func (m *Mongo) ListThread(ctx context.Context, a, b string) ([]models.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"from_user_id": a, "to_user_id": b},
		bson.M{"from_user_id": b, "to_user_id": a},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := m.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (m *Mongo) MarkThreadSeen(ctx context.Context, from, to string) error {
	_, err := m.messages.UpdateMany(ctx,
		bson.M{"from_user_id": from, "to_user_id": to},
		bson.M{"$set": bson.M{"seen": true}})
	return err
}

func (m *Mongo) ListMessagesTo(ctx context.Context, to string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := m.messages.Find(ctx, bson.M{"to_user_id": to}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (m *Mongo) CountUnseenByRecipient(ctx context.Context) (map[string]int, error) {
	cursor, err := m.messages.Find(ctx, bson.M{"seen": false})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, msg := range msgs {
		counts[msg.ToUserID]++
	}
	return counts, nil
}

func (m *Mongo) DeleteMessagesForUser(ctx context.Context, userID string) error {
	_, err := m.messages.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"from_user_id": userID},
		bson.M{"to_user_id": userID},
	}})
	return err
}

// ----- Jobs -----

func (m *Mongo) EnqueueJob(ctx context.Context, job *models.Job) error {
	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}
	_, err := m.jobs.InsertOne(ctx, job)
	return err
}

// ClaimDueJob atomically flips the earliest due pending job to running so
// concurrent workers never pick up the same job twice.
func (m *Mongo) ClaimDueJob(ctx context.Context, now time.Time) (*models.Job, error) {
	filter := bson.M{
		"status": models.JobPending,
		"runAt":  bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"status": models.JobRunning}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "runAt", Value: 1}}).
		SetReturnDocument(options.After)

	var job models.Job
	if err := m.jobs.FindOneAndUpdate(ctx, filter, update, opts).Decode(&job); err != nil {
		return nil, mapErr(err)
	}
	return &job, nil
}

func (m *Mongo) MarkJob(ctx context.Context, id primitive.ObjectID, status, errMsg string) error {
	_, err := m.jobs.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status": status,
		"error":  errMsg,
	}})
	return err
}

// ----- Push subscriptions -----

func (m *Mongo) SavePushSubscription(ctx context.Context, sub *models.PushSubscription) error {
	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	filter := bson.M{"userId": sub.UserID, "sub.endpoint": sub.Sub.Endpoint}
	update := bson.M{"$set": bson.M{"userId": sub.UserID, "sub": sub.Sub}}
	opts := options.Update().SetUpsert(true)
	_, err := m.pushSubs.UpdateOne(ctx, filter, update, opts)
	return err
}

func (m *Mongo) ListPushSubscriptions(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	cursor, err := m.pushSubs.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var subs []models.PushSubscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func (m *Mongo) DeletePushSubscriptionsForUser(ctx context.Context, userID string) error {
	_, err := m.pushSubs.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}
