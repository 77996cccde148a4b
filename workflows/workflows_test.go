package workflows

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buzzconnect/mailer"
	"buzzconnect/models"
	"buzzconnect/scheduler"
	"buzzconnect/store"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (f *fakeMailer) Send(email mailer.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, email)
	return nil
}

func (f *fakeMailer) Sent() []mailer.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Email(nil), f.sent...)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store *store.Memory
	mail  *fakeMailer
	clock *fakeClock
	sched *scheduler.Scheduler
	svc   *Service
}

func newFixture() *fixture {
	st := store.NewMemory()
	mail := &fakeMailer{}
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	sched := scheduler.New(st, time.Second)
	sched.SetClock(clock.Now)
	svc := New(st, mail, sched)
	svc.SetClock(clock.Now)
	return &fixture{store: st, mail: mail, clock: clock, sched: sched, svc: svc}
}

func (f *fixture) seedUser(t *testing.T, id, username, email string) {
	t.Helper()
	require.NoError(t, f.store.CreateUser(context.Background(), &models.User{
		ID:       id,
		Username: username,
		Email:    email,
		FullName: username,
	}))
}

func TestSyncUserCreatedUsesEmailLocalPart(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.SyncUserCreated(ctx, "u_1", "jane@example.com", "Jane", "Doe", "http://img/jane.png"))

	user, err := f.store.GetUser(ctx, "u_1")
	require.NoError(t, err)
	assert.Equal(t, "jane", user.Username)
	assert.Equal(t, "Jane Doe", user.FullName)
	assert.Equal(t, models.DefaultBio, user.Bio)
	assert.Equal(t, "http://img/jane.png", user.ProfilePicture)
}

func TestSyncUserCreatedAppendsSuffixOnCollision(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "u_1", "jane", "first-jane@example.com")

	require.NoError(t, f.svc.SyncUserCreated(ctx, "u_2", "jane@other.com", "Jane", "Smith", ""))

	user, err := f.store.GetUser(ctx, "u_2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(user.Username, "jane"))
	assert.NotEqual(t, "jane", user.Username)
}

func TestSyncUserUpdatedPatchesProfile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "u_1", "jane", "jane@example.com")

	require.NoError(t, f.svc.SyncUserUpdated(ctx, "u_1", "new@example.com", "Jane", "Doe", "http://img/new.png"))

	user, err := f.store.GetUser(ctx, "u_1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, "Jane Doe", user.FullName)
	assert.Equal(t, "http://img/new.png", user.ProfilePicture)
	assert.Equal(t, "jane", user.Username, "username is not provider-owned")
}

func TestSyncUserDeletedCascades(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "gone", "gone", "gone@example.com")
	f.seedUser(t, "stays", "stays", "stays@example.com")

	require.NoError(t, f.store.AddToUserList(ctx, "stays", store.ListFollowers, "gone"))
	require.NoError(t, f.store.AddToUserList(ctx, "stays", store.ListFollowing, "gone"))
	require.NoError(t, f.store.AddToUserList(ctx, "stays", store.ListConnections, "gone"))

	require.NoError(t, f.store.CreatePost(ctx, &models.Post{UserID: "gone"}))
	require.NoError(t, f.store.CreateStory(ctx, &models.Story{UserID: "gone"}))
	require.NoError(t, f.store.CreateMessage(ctx, &models.Message{FromUserID: "gone", ToUserID: "stays"}))
	require.NoError(t, f.store.CreateMessage(ctx, &models.Message{FromUserID: "stays", ToUserID: "gone"}))
	require.NoError(t, f.store.CreateConnection(ctx, &models.Connection{FromUserID: "gone", ToUserID: "stays", Status: models.ConnectionPending}))

	require.NoError(t, f.svc.SyncUserDeleted(ctx, "gone"))

	_, err := f.store.GetUser(ctx, "gone")
	assert.ErrorIs(t, err, store.ErrNotFound)

	stays, err := f.store.GetUser(ctx, "stays")
	require.NoError(t, err)
	assert.Empty(t, stays.Followers)
	assert.Empty(t, stays.Following)
	assert.Empty(t, stays.Connections)

	posts, err := f.store.ListPostsByUsers(ctx, []string{"gone"})
	require.NoError(t, err)
	assert.Empty(t, posts)

	stories, err := f.store.ListStoriesByUsers(ctx, []string{"gone"})
	require.NoError(t, err)
	assert.Empty(t, stories)

	msgs, err := f.store.ListMessagesTo(ctx, "stays")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = f.store.FindConnectionBetween(ctx, "gone", "stays")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConnectionRequestSendsMailNowAndReminderLater(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "alice", "alice", "alice@example.com")
	f.seedUser(t, "bob", "bob", "bob@example.com")

	conn := &models.Connection{FromUserID: "alice", ToUserID: "bob", Status: models.ConnectionPending, CreatedAt: f.clock.Now()}
	require.NoError(t, f.store.CreateConnection(ctx, conn))
	require.NoError(t, f.svc.ConnectionRequested(ctx, conn.ID))

	// Immediate notification mail.
	f.sched.Poll(ctx)
	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "bob@example.com", sent[0].To)
	assert.Contains(t, sent[0].Subject, "New Connection Request")
	assert.Contains(t, sent[0].Body, "@alice")

	// Reminder is not due yet.
	f.sched.Poll(ctx)
	assert.Len(t, f.mail.Sent(), 1)

	// After the fixed delay it fires.
	f.clock.Advance(ReminderDelay + time.Minute)
	f.sched.Poll(ctx)
	sent = f.mail.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1].Subject, "Reminder")
}

func TestReminderSkippedWhenAccepted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "alice", "alice", "alice@example.com")
	f.seedUser(t, "bob", "bob", "bob@example.com")

	conn := &models.Connection{FromUserID: "alice", ToUserID: "bob", Status: models.ConnectionPending, CreatedAt: f.clock.Now()}
	require.NoError(t, f.store.CreateConnection(ctx, conn))
	require.NoError(t, f.svc.ConnectionRequested(ctx, conn.ID))

	f.sched.Poll(ctx)
	require.Len(t, f.mail.Sent(), 1)

	require.NoError(t, f.store.SetConnectionStatus(ctx, conn.ID, models.ConnectionAccepted))

	f.clock.Advance(ReminderDelay + time.Minute)
	f.sched.Poll(ctx)
	assert.Len(t, f.mail.Sent(), 1, "no reminder once accepted")
}

func TestStoryDeletedAfterLifetime(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	story := &models.Story{UserID: "alice", Content: "hello", CreatedAt: f.clock.Now()}
	require.NoError(t, f.store.CreateStory(ctx, story))
	require.NoError(t, f.svc.StoryCreated(ctx, story.ID))

	f.sched.Poll(ctx)
	stories, err := f.store.ListStoriesByUsers(ctx, []string{"alice"})
	require.NoError(t, err)
	assert.Len(t, stories, 1, "story lives out its lifetime")

	f.clock.Advance(ReminderDelay + time.Minute)
	f.sched.Poll(ctx)
	stories, err = f.store.ListStoriesByUsers(ctx, []string{"alice"})
	require.NoError(t, err)
	assert.Empty(t, stories)
}

func TestUnseenDigestCountsPerRecipient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedUser(t, "alice", "alice", "alice@example.com")
	f.seedUser(t, "bob", "bob", "bob@example.com")

	require.NoError(t, f.store.CreateMessage(ctx, &models.Message{FromUserID: "bob", ToUserID: "alice"}))
	require.NoError(t, f.store.CreateMessage(ctx, &models.Message{FromUserID: "bob", ToUserID: "alice"}))
	require.NoError(t, f.store.CreateMessage(ctx, &models.Message{FromUserID: "alice", ToUserID: "bob", Seen: true}))

	require.NoError(t, f.svc.SendUnseenDigest(ctx))

	sent := f.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].To)
	assert.Contains(t, sent[0].Subject, "2 unseen messages")
}
