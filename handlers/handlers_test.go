package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"buzzconnect/handlers"
	"buzzconnect/mailer"
	"buzzconnect/models"
	"buzzconnect/realtime"
	"buzzconnect/routes"
	"buzzconnect/scheduler"
	"buzzconnect/store"
	"buzzconnect/workflows"
)

const webhookSecret = "whsec_test"

// staticVerifier treats the bearer token itself as the user ID.
type staticVerifier struct{}

func (staticVerifier) Verify(token string) (string, error) {
	if token == "" {
		return "", errors.New("empty token")
	}
	return token, nil
}

type fakeUploader struct{}

func (fakeUploader) Upload(_ context.Context, fh *multipart.FileHeader, folder string, _ int) (string, error) {
	return fmt.Sprintf("https://cdn.test/%s/%s", folder, fh.Filename), nil
}

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

type fakeNotifier struct {
	mu       sync.Mutex
	notified []string
}

func (f *fakeNotifier) Notify(_ context.Context, userID string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, userID)
}

func (f *fakeNotifier) Notified() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.notified...)
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

type env struct {
	t      *testing.T
	store  *store.Memory
	hub    *realtime.Hub
	mail   *fakeMailer
	clock  *fakeClock
	sched  *scheduler.Scheduler
	wf     *workflows.Service
	pushed *fakeNotifier
	router *gin.Engine
}

func newEnv(t *testing.T) *env {
	gin.SetMode(gin.TestMode)

	st := store.NewMemory()
	hub := realtime.NewHub()
	mail := &fakeMailer{}
	pushed := &fakeNotifier{}
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}

	sched := scheduler.New(st, time.Second)
	sched.SetClock(clock.Now)
	wf := workflows.New(st, mail, sched)
	wf.SetClock(clock.Now)

	users := handlers.NewUserHandler(st, fakeUploader{}, wf)
	users.Now = clock.Now
	posts := handlers.NewPostHandler(st, fakeUploader{})
	posts.Now = clock.Now
	stories := handlers.NewStoryHandler(st, fakeUploader{}, wf)
	stories.Now = clock.Now
	messages := handlers.NewMessageHandler(st, fakeUploader{}, hub, pushed)
	messages.Now = clock.Now

	router := routes.Setup(routes.Deps{
		Users:    users,
		Posts:    posts,
		Stories:  stories,
		Messages: messages,
		Webhooks: handlers.NewWebhookHandler(wf, webhookSecret),
		Verifier: staticVerifier{},
		Origins:  []string{"http://localhost:5173"},
	})

	return &env{
		t: t, store: st, hub: hub, mail: mail, clock: clock,
		sched: sched, wf: wf, pushed: pushed, router: router,
	}
}

func (e *env) seedUser(id string) {
	e.t.Helper()
	require.NoError(e.t, e.store.CreateUser(context.Background(), &models.User{
		ID:        id,
		Username:  id,
		Email:     id + "@example.com",
		FullName:  id,
		CreatedAt: e.clock.Now(),
	}))
}

func (e *env) user(id string) *models.User {
	e.t.Helper()
	user, err := e.store.GetUser(context.Background(), id)
	require.NoError(e.t, err)
	return user
}

func (e *env) postJSON(path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(e.t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) postForm(path, token string, form url.Values) *httptest.ResponseRecorder {
	e.t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) get(path, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
