package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"buzzconnect/models"
)

// Memory is an in-memory Store used by the test suites. It mirrors the
// Mongo implementation's semantics, including the per-document (non
// transactional) nature of list mutations.
type Memory struct {
	mu          sync.RWMutex
	users       map[string]*models.User
	posts       []*models.Post
	stories     []*models.Story
	messages    []*models.Message
	connections []*models.Connection
	jobs        []*models.Job
	pushSubs    []*models.PushSubscription
}

func NewMemory() *Memory {
	return &Memory{users: make(map[string]*models.User)}
}

var _ Store = (*Memory)(nil)

func copyUser(u *models.User) *models.User {
	cp := *u
	cp.Followers = append([]string(nil), u.Followers...)
	cp.Following = append([]string(nil), u.Following...)
	cp.Connections = append([]string(nil), u.Connections...)
	return &cp
}

func removeString(list []string, value string) []string {
	out := list[:0]
	for _, item := range list {
		if item != value {
			out = append(out, item)
		}
	}
	return out
}

// ----- Users -----

func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(user), nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Username == username {
			return copyUser(user), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateUser(_ context.Context, id string, upd UserUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Email != nil {
		user.Email = *upd.Email
	}
	if upd.FullName != nil {
		user.FullName = *upd.FullName
	}
	if upd.Username != nil {
		user.Username = *upd.Username
	}
	if upd.Bio != nil {
		user.Bio = *upd.Bio
	}
	if upd.Location != nil {
		user.Location = *upd.Location
	}
	if upd.ProfilePicture != nil {
		user.ProfilePicture = *upd.ProfilePicture
	}
	if upd.CoverPhoto != nil {
		user.CoverPhoto = *upd.CoverPhoto
	}
	user.UpdatedAt = time.Now()
	return copyUser(user), nil
}

func (m *Memory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

func (m *Memory) SearchUsers(_ context.Context, input, excludeID string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(input)
	var out []models.User
	for _, user := range m.users {
		if user.ID == excludeID {
			continue
		}
		haystacks := []string{user.Username, user.Email, user.FullName, user.Location}
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), needle) {
				out = append(out, *copyUser(user))
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) AddToUserList(_ context.Context, id string, field ListField, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil
	}
	switch field {
	case ListFollowers:
		user.Followers = append(user.Followers, value)
	case ListFollowing:
		user.Following = append(user.Following, value)
	case ListConnections:
		user.Connections = append(user.Connections, value)
	}
	return nil
}

func (m *Memory) RemoveFromUserList(_ context.Context, id string, field ListField, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil
	}
	switch field {
	case ListFollowers:
		user.Followers = removeString(user.Followers, value)
	case ListFollowing:
		user.Following = removeString(user.Following, value)
	case ListConnections:
		user.Connections = removeString(user.Connections, value)
	}
	return nil
}

func (m *Memory) RemoveUserFromAllLists(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		user.Followers = removeString(user.Followers, id)
		user.Following = removeString(user.Following, id)
		user.Connections = removeString(user.Connections, id)
	}
	return nil
}

// ----- Connections -----

func (m *Memory) CreateConnection(_ context.Context, conn *models.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn.ID.IsZero() {
		conn.ID = primitive.NewObjectID()
	}
	cp := *conn
	m.connections = append(m.connections, &cp)
	return nil
}

func (m *Memory) GetConnection(_ context.Context, id primitive.ObjectID) (*models.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.connections {
		if conn.ID == id {
			cp := *conn
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindConnectionBetween(_ context.Context, a, b string) (*models.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.connections {
		if (conn.FromUserID == a && conn.ToUserID == b) ||
			(conn.FromUserID == b && conn.ToUserID == a) {
			cp := *conn
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindConnectionFromTo(_ context.Context, from, to string) (*models.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.connections {
		if conn.FromUserID == from && conn.ToUserID == to {
			cp := *conn
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CountConnectionRequestsSince(_ context.Context, from string, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, conn := range m.connections {
		if conn.FromUserID == from && !conn.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) ListPendingConnectionsTo(_ context.Context, to string) ([]models.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Connection
	for _, conn := range m.connections {
		if conn.ToUserID == to && conn.Status == models.ConnectionPending {
			out = append(out, *conn)
		}
	}
	return out, nil
}

func (m *Memory) SetConnectionStatus(_ context.Context, id primitive.ObjectID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conn := range m.connections {
		if conn.ID == id {
			conn.Status = status
			return nil
		}
	}
	return nil
}

func (m *Memory) DeleteConnectionsForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.connections[:0]
	for _, conn := range m.connections {
		if conn.FromUserID != userID && conn.ToUserID != userID {
			kept = append(kept, conn)
		}
	}
	m.connections = kept
	return nil
}

// ----- Posts -----

func (m *Memory) CreatePost(_ context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	cp := *post
	cp.ImageURLs = append([]string(nil), post.ImageURLs...)
	cp.LikesCount = append([]string(nil), post.LikesCount...)
	m.posts = append(m.posts, &cp)
	return nil
}

func (m *Memory) GetPost(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, post := range m.posts {
		if post.ID == id {
			cp := *post
			cp.LikesCount = append([]string(nil), post.LikesCount...)
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListPostsByUsers(_ context.Context, userIDs []string) ([]models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	authors := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		authors[id] = true
	}
	var out []models.Post
	for _, post := range m.posts {
		if authors[post.UserID] {
			cp := *post
			cp.LikesCount = append([]string(nil), post.LikesCount...)
			out = append(out, cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) SetPostLikes(_ context.Context, id primitive.ObjectID, likes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, post := range m.posts {
		if post.ID == id {
			post.LikesCount = append([]string(nil), likes...)
			return nil
		}
	}
	return nil
}

func (m *Memory) DeletePostsByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.posts[:0]
	for _, post := range m.posts {
		if post.UserID != userID {
			kept = append(kept, post)
		}
	}
	m.posts = kept
	return nil
}

// ----- Stories -----

func (m *Memory) CreateStory(_ context.Context, story *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if story.ID.IsZero() {
		story.ID = primitive.NewObjectID()
	}
	cp := *story
	m.stories = append(m.stories, &cp)
	return nil
}

func (m *Memory) DeleteStory(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.stories[:0]
	for _, story := range m.stories {
		if story.ID != id {
			kept = append(kept, story)
		}
	}
	m.stories = kept
	return nil
}

func (m *Memory) ListStoriesByUsers(_ context.Context, userIDs []string) ([]models.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	authors := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		authors[id] = true
	}
	var out []models.Story
	for _, story := range m.stories {
		if authors[story.UserID] {
			out = append(out, *story)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteStoriesByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.stories[:0]
	for _, story := range m.stories {
		if story.UserID != userID {
			kept = append(kept, story)
		}
	}
	m.stories = kept
	return nil
}

// ----- Messages -----

func (m *Memory) CreateMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *Memory) ListThread(_ context.Context, a, b string) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Message
	for _, msg := range m.messages {
		if (msg.FromUserID == a && msg.ToUserID == b) ||
			(msg.FromUserID == b && msg.ToUserID == a) {
			out = append(out, *msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) MarkThreadSeen(_ context.Context, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.FromUserID == from && msg.ToUserID == to {
			msg.Seen = true
		}
	}
	return nil
}

func (m *Memory) ListMessagesTo(_ context.Context, to string) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Message
	for _, msg := range m.messages {
		if msg.ToUserID == to {
			out = append(out, *msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CountUnseenByRecipient(_ context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int)
	for _, msg := range m.messages {
		if !msg.Seen {
			counts[msg.ToUserID]++
		}
	}
	return counts, nil
}

func (m *Memory) DeleteMessagesForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.FromUserID != userID && msg.ToUserID != userID {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	return nil
}

// ----- Jobs -----

func (m *Memory) EnqueueJob(_ context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID.IsZero() {
		job.ID = primitive.NewObjectID()
	}
	cp := *job
	m.jobs = append(m.jobs, &cp)
	return nil
}

func (m *Memory) ClaimDueJob(_ context.Context, now time.Time) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due *models.Job
	for _, job := range m.jobs {
		if job.Status != models.JobPending || job.RunAt.After(now) {
			continue
		}
		if due == nil || job.RunAt.Before(due.RunAt) {
			due = job
		}
	}
	if due == nil {
		return nil, ErrNotFound
	}
	due.Status = models.JobRunning
	cp := *due
	return &cp, nil
}

func (m *Memory) MarkJob(_ context.Context, id primitive.ObjectID, status, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.ID == id {
			job.Status = status
			job.Error = errMsg
			return nil
		}
	}
	return nil
}

// Jobs returns a snapshot of every job, newest last. Test helper.
func (m *Memory) Jobs() []models.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *job)
	}
	return out
}

// ----- Push subscriptions -----

func (m *Memory) SavePushSubscription(_ context.Context, sub *models.PushSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.pushSubs {
		if existing.UserID == sub.UserID && existing.Sub.Endpoint == sub.Sub.Endpoint {
			existing.Sub = sub.Sub
			return nil
		}
	}
	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	cp := *sub
	m.pushSubs = append(m.pushSubs, &cp)
	return nil
}

func (m *Memory) ListPushSubscriptions(_ context.Context, userID string) ([]models.PushSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.PushSubscription
	for _, sub := range m.pushSubs {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (m *Memory) DeletePushSubscriptionsForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.pushSubs[:0]
	for _, sub := range m.pushSubs {
		if sub.UserID != userID {
			kept = append(kept, sub)
		}
	}
	m.pushSubs = kept
	return nil
}
