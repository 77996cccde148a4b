package handlers_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buzzconnect/models"
	"buzzconnect/store"
	"buzzconnect/workflows"
)

func TestCreateStorySchedulesDeletion(t *testing.T) {
	e := newEnv(t)
	e.seedUser("alice")
	ctx := context.Background()

	form := url.Values{}
	form.Set("content", "24 hours of fame")
	form.Set("media_type", models.StoryText)
	form.Set("background_color", "#4f46e5")
	w := e.postForm("/api/story/create", "alice", form)
	require.Equal(t, true, decode(t, w)["success"])

	jobs := e.store.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, workflows.KindStoryDelete, jobs[0].Kind)
	assert.Equal(t, e.clock.Now().Add(workflows.ReminderDelay), jobs[0].RunAt)

	// Within the lifetime the story is served.
	e.sched.Poll(ctx)
	stories, err := e.store.ListStoriesByUsers(ctx, []string{"alice"})
	require.NoError(t, err)
	require.Len(t, stories, 1)

	// Past the lifetime the scheduled deletion removes it.
	e.clock.Advance(workflows.ReminderDelay + time.Minute)
	e.sched.Poll(ctx)
	stories, err = e.store.ListStoriesByUsers(ctx, []string{"alice"})
	require.NoError(t, err)
	assert.Empty(t, stories)
}

func TestStoryListScope(t *testing.T) {
	e := newEnv(t)
	for _, id := range []string{"alice", "bob", "dave"} {
		e.seedUser(id)
	}
	ctx := context.Background()
	require.NoError(t, e.store.AddToUserList(ctx, "alice", store.ListFollowing, "bob"))

	require.NoError(t, e.store.CreateStory(ctx, &models.Story{UserID: "bob", Content: "followed", CreatedAt: e.clock.Now()}))
	require.NoError(t, e.store.CreateStory(ctx, &models.Story{UserID: "dave", Content: "stranger", CreatedAt: e.clock.Now()}))

	w := e.get("/api/story/get", "alice")
	body := decode(t, w)
	require.Equal(t, true, body["success"])

	stories := body["stories"].([]any)
	require.Len(t, stories, 1)
	assert.Equal(t, "followed", stories[0].(map[string]any)["content"])
}
