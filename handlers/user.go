package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"buzzconnect/media"
	"buzzconnect/models"
	"buzzconnect/store"
	"buzzconnect/workflows"
)

// connectionRequestLimit caps connection requests per sender per rolling
// 24-hour window.
const connectionRequestLimit = 20

type UserHandler struct {
	Store     store.Store
	Uploader  media.Uploader
	Workflows *workflows.Service
	Now       func() time.Time
}

func NewUserHandler(st store.Store, up media.Uploader, wf *workflows.Service) *UserHandler {
	return &UserHandler{Store: st, Uploader: up, Workflows: wf, Now: time.Now}
}

// GetData returns the caller's own user document.
func (h *UserHandler) GetData(c *gin.Context) {
	user, err := h.Store.GetUser(c.Request.Context(), authUserID(c))
	if errors.Is(err, store.ErrNotFound) {
		fail(c, "User not found")
		return
	}
	if err != nil {
		serverError(c, "GetData", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// Update patches the caller's profile from a multipart form. A requested
// username that is already taken by another user is silently dropped in
// favour of the current one.
func (h *UserHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	userID := authUserID(c)

	existing, err := h.Store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		fail(c, "User not found")
		return
	}
	if err != nil {
		serverError(c, "UpdateUser", err)
		return
	}

	upd := store.UserUpdate{}
	if v, ok := c.GetPostForm("bio"); ok {
		upd.Bio = &v
	}
	if v, ok := c.GetPostForm("location"); ok {
		upd.Location = &v
	}
	if v, ok := c.GetPostForm("full_name"); ok {
		upd.FullName = &v
	}

	username := c.PostForm("username")
	if username == "" {
		username = existing.Username
	}
	if username != existing.Username {
		if _, err := h.Store.GetUserByUsername(ctx, username); err == nil {
			username = existing.Username
		} else if !errors.Is(err, store.ErrNotFound) {
			serverError(c, "UpdateUser", err)
			return
		}
	}
	upd.Username = &username

	if fh, err := c.FormFile("profile"); err == nil {
		url, err := h.Uploader.Upload(ctx, fh, "avatars", 512)
		if err != nil {
			fail(c, err.Error())
			return
		}
		upd.ProfilePicture = &url
	}
	if fh, err := c.FormFile("cover"); err == nil {
		url, err := h.Uploader.Upload(ctx, fh, "covers", 1280)
		if err != nil {
			fail(c, err.Error())
			return
		}
		upd.CoverPhoto = &url
	}

	user, err := h.Store.UpdateUser(ctx, userID, upd)
	if err != nil {
		serverError(c, "UpdateUser", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user, "message": "Profile Updated"})
}

// Discover searches users by username, email, name or location.
func (h *UserHandler) Discover(c *gin.Context) {
	var req struct {
		Input string `json:"input"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "Invalid request body")
		return
	}

	users, err := h.Store.SearchUsers(c.Request.Context(), req.Input, authUserID(c))
	if err != nil {
		serverError(c, "Discover", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": users})
}

// Follow adds the target to the caller's following list and the caller to
// the target's followers list. The two writes are independent; a crash in
// between leaves asymmetric state.
func (h *UserHandler) Follow(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	userID := authUserID(c)

	user, err := h.Store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		fail(c, "User not found")
		return
	}
	if err != nil {
		serverError(c, "Follow", err)
		return
	}

	for _, id := range user.Following {
		if id == req.ID {
			fail(c, "You are already following this user")
			return
		}
	}

	if err := h.Store.AddToUserList(ctx, userID, store.ListFollowing, req.ID); err != nil {
		serverError(c, "Follow", err)
		return
	}
	if err := h.Store.AddToUserList(ctx, req.ID, store.ListFollowers, userID); err != nil {
		serverError(c, "Follow", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "You are now following this user"})
}

// Unfollow removes both list memberships. Unfollowing a user who was never
// followed leaves state unchanged.
func (h *UserHandler) Unfollow(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	userID := authUserID(c)

	if _, err := h.Store.GetUser(ctx, userID); errors.Is(err, store.ErrNotFound) {
		fail(c, "User not found")
		return
	} else if err != nil {
		serverError(c, "Unfollow", err)
		return
	}

	if err := h.Store.RemoveFromUserList(ctx, userID, store.ListFollowing, req.ID); err != nil {
		serverError(c, "Unfollow", err)
		return
	}
	if err := h.Store.RemoveFromUserList(ctx, req.ID, store.ListFollowers, userID); err != nil {
		serverError(c, "Unfollow", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "You have unfollowed this user"})
}

// Connect sends a connection request, rate-limited per sender and
// deduplicated against an existing connection in either direction.
func (h *UserHandler) Connect(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	userID := authUserID(c)

	since := h.Now().Add(-24 * time.Hour)
	recent, err := h.Store.CountConnectionRequestsSince(ctx, userID, since)
	if err != nil {
		serverError(c, "Connect", err)
		return
	}
	if recent >= connectionRequestLimit {
		fail(c, "Too many connection requests in 24 hours. Please try again later.")
		return
	}

	existing, err := h.Store.FindConnectionBetween(ctx, userID, req.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		serverError(c, "Connect", err)
		return
	}

	if existing == nil {
		conn := &models.Connection{
			FromUserID: userID,
			ToUserID:   req.ID,
			Status:     models.ConnectionPending,
			CreatedAt:  h.Now(),
		}
		if err := h.Store.CreateConnection(ctx, conn); err != nil {
			serverError(c, "Connect", err)
			return
		}
		if err := h.Workflows.ConnectionRequested(ctx, conn.ID); err != nil {
			serverError(c, "Connect", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Connection request sent successfully"})
		return
	}

	if existing.Status == models.ConnectionAccepted {
		fail(c, "You are already connected with this user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Connection request pending"})
}

// Accept flips a pending request addressed to the caller and adds each
// user to the other's connections list.
func (h *UserHandler) Accept(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	userID := authUserID(c)

	conn, err := h.Store.FindConnectionFromTo(ctx, req.ID, userID)
	if errors.Is(err, store.ErrNotFound) {
		fail(c, "Connection request not found")
		return
	}
	if err != nil {
		serverError(c, "Accept", err)
		return
	}

	if _, err := h.Store.GetUser(ctx, userID); err != nil {
		fail(c, "User not found")
		return
	}
	if _, err := h.Store.GetUser(ctx, req.ID); err != nil {
		fail(c, "User not found")
		return
	}

	if err := h.Store.AddToUserList(ctx, userID, store.ListConnections, req.ID); err != nil {
		serverError(c, "Accept", err)
		return
	}
	if err := h.Store.AddToUserList(ctx, req.ID, store.ListConnections, userID); err != nil {
		serverError(c, "Accept", err)
		return
	}
	if err := h.Store.SetConnectionStatus(ctx, conn.ID, models.ConnectionAccepted); err != nil {
		serverError(c, "Accept", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Connection request accepted"})
}

// Connections returns the caller's connections, followers, following and
// the users behind their pending incoming requests.
func (h *UserHandler) Connections(c *gin.Context) {
	ctx := c.Request.Context()
	userID := authUserID(c)

	user, err := h.Store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		fail(c, "User not found")
		return
	}
	if err != nil {
		serverError(c, "Connections", err)
		return
	}

	pending, err := h.Store.ListPendingConnectionsTo(ctx, userID)
	if err != nil {
		serverError(c, "Connections", err)
		return
	}

	var pendingUsers []models.User
	for _, conn := range pending {
		from, err := h.Store.GetUser(ctx, conn.FromUserID)
		if err != nil {
			continue
		}
		pendingUsers = append(pendingUsers, *from)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"connections":        h.populateUsers(ctx, user.Connections),
		"followers":          h.populateUsers(ctx, user.Followers),
		"following":          h.populateUsers(ctx, user.Following),
		"pendingConnections": pendingUsers,
	})
}

// Profiles returns a public profile together with that user's posts.
func (h *UserHandler) Profiles(c *gin.Context) {
	var req struct {
		ProfileID string `json:"profileId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()

	profile, err := h.Store.GetUser(ctx, req.ProfileID)
	if errors.Is(err, store.ErrNotFound) {
		fail(c, "Profile not found")
		return
	}
	if err != nil {
		serverError(c, "Profiles", err)
		return
	}

	posts, err := h.Store.ListPostsByUsers(ctx, []string{req.ProfileID})
	if err != nil {
		serverError(c, "Profiles", err)
		return
	}
	for i := range posts {
		posts[i].User = profile
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile, "posts": posts})
}

func (h *UserHandler) populateUsers(ctx context.Context, ids []string) []models.User {
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		user, err := h.Store.GetUser(ctx, id)
		if err != nil {
			continue
		}
		users = append(users, *user)
	}
	return users
}
