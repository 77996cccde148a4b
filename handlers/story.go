package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"buzzconnect/media"
	"buzzconnect/models"
	"buzzconnect/store"
	"buzzconnect/workflows"
)

type StoryHandler struct {
	Store     store.Store
	Uploader  media.Uploader
	Workflows *workflows.Service
	Now       func() time.Time
}

func NewStoryHandler(st store.Store, up media.Uploader, wf *workflows.Service) *StoryHandler {
	return &StoryHandler{Store: st, Uploader: up, Workflows: wf, Now: time.Now}
}

// Create stores a story and schedules its deletion after the 24-hour
// lifetime.
func (h *StoryHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	content := c.PostForm("content")
	mediaType := c.PostForm("media_type")
	backgroundColor := c.PostForm("background_color")

	mediaURL := ""
	if mediaType == models.StoryImage || mediaType == models.StoryVideo {
		fh, err := c.FormFile("media")
		if err == nil {
			mediaURL, err = h.Uploader.Upload(ctx, fh, "stories", 1280)
			if err != nil {
				fail(c, err.Error())
				return
			}
		}
	}

	story := &models.Story{
		UserID:          authUserID(c),
		Content:         content,
		MediaURL:        mediaURL,
		MediaType:       mediaType,
		BackgroundColor: backgroundColor,
		ViewsCount:      []string{},
		CreatedAt:       h.Now(),
	}
	if err := h.Store.CreateStory(ctx, story); err != nil {
		serverError(c, "CreateStory", err)
		return
	}

	if err := h.Workflows.StoryCreated(ctx, story.ID); err != nil {
		serverError(c, "CreateStory", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// List returns stories of the caller, their connections and the accounts
// they follow, newest first.
func (h *StoryHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	userID := authUserID(c)

	user, err := h.Store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		fail(c, "User not found")
		return
	}
	if err != nil {
		serverError(c, "GetStories", err)
		return
	}

	authorIDs := append([]string{userID}, user.Connections...)
	authorIDs = append(authorIDs, user.Following...)

	stories, err := h.Store.ListStoriesByUsers(ctx, authorIDs)
	if err != nil {
		serverError(c, "GetStories", err)
		return
	}

	authors := map[string]*models.User{userID: user}
	for i := range stories {
		author, ok := authors[stories[i].UserID]
		if !ok {
			author, err = h.Store.GetUser(ctx, stories[i].UserID)
			if err != nil {
				continue
			}
			authors[stories[i].UserID] = author
		}
		stories[i].User = author
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "stories": stories})
}
