package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"buzzconnect/media"
	"buzzconnect/models"
	"buzzconnect/store"
)

type PostHandler struct {
	Store    store.Store
	Uploader media.Uploader
	Now      func() time.Time
}

func NewPostHandler(st store.Store, up media.Uploader) *PostHandler {
	return &PostHandler{Store: st, Uploader: up, Now: time.Now}
}

// Add creates a post from a multipart form with optional images.
func (h *PostHandler) Add(c *gin.Context) {
	ctx := c.Request.Context()

	content := c.PostForm("content")
	postType := c.PostForm("post_type")

	var imageURLs []string
	if form, err := c.MultipartForm(); err == nil {
		for _, fh := range form.File["images"] {
			url, err := h.Uploader.Upload(ctx, fh, "posts", 1280)
			if err != nil {
				fail(c, err.Error())
				return
			}
			imageURLs = append(imageURLs, url)
		}
	}

	post := &models.Post{
		UserID:     authUserID(c),
		Content:    content,
		ImageURLs:  imageURLs,
		PostType:   postType,
		LikesCount: []string{},
		CreatedAt:  h.Now(),
	}
	if err := h.Store.CreatePost(ctx, post); err != nil {
		serverError(c, "AddPost", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Post added successfully"})
}

// Feed returns posts authored by the caller, their connections and the
// accounts they follow, newest first.
func (h *PostHandler) Feed(c *gin.Context) {
	ctx := c.Request.Context()
	userID := authUserID(c)

	user, err := h.Store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		fail(c, "User not found")
		return
	}
	if err != nil {
		serverError(c, "Feed", err)
		return
	}

	authorIDs := append([]string{userID}, user.Connections...)
	authorIDs = append(authorIDs, user.Following...)

	posts, err := h.Store.ListPostsByUsers(ctx, authorIDs)
	if err != nil {
		serverError(c, "Feed", err)
		return
	}

	authors := map[string]*models.User{userID: user}
	for i := range posts {
		author, ok := authors[posts[i].UserID]
		if !ok {
			author, err = h.Store.GetUser(ctx, posts[i].UserID)
			if err != nil {
				continue
			}
			authors[posts[i].UserID] = author
		}
		posts[i].User = author
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "posts": posts})
}

// Like toggles the caller's membership in the post's like list.
func (h *PostHandler) Like(c *gin.Context) {
	var req struct {
		PostID string `json:"postId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "Invalid request body")
		return
	}

	postID, err := primitive.ObjectIDFromHex(req.PostID)
	if err != nil {
		fail(c, "Post not found")
		return
	}

	ctx := c.Request.Context()
	userID := authUserID(c)

	post, err := h.Store.GetPost(ctx, postID)
	if errors.Is(err, store.ErrNotFound) {
		fail(c, "Post not found")
		return
	}
	if err != nil {
		serverError(c, "LikePost", err)
		return
	}

	liked := false
	for _, id := range post.LikesCount {
		if id == userID {
			liked = true
			break
		}
	}

	var likes []string
	message := "Post liked"
	if liked {
		for _, id := range post.LikesCount {
			if id != userID {
				likes = append(likes, id)
			}
		}
		message = "Post unliked"
	} else {
		likes = append(post.LikesCount, userID)
	}

	if err := h.Store.SetPostLikes(ctx, postID, likes); err != nil {
		serverError(c, "LikePost", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}
