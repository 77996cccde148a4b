package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"buzzconnect/media"
	"buzzconnect/models"
	"buzzconnect/push"
	"buzzconnect/realtime"
	"buzzconnect/store"
)

// heartbeatInterval keeps intermediary proxies from timing out idle
// streams. Fixed on purpose.
const heartbeatInterval = 15 * time.Second

type MessageHandler struct {
	Store    store.Store
	Uploader media.Uploader
	Hub      *realtime.Hub
	Push     push.Notifier
	Now      func() time.Time
}

func NewMessageHandler(st store.Store, up media.Uploader, hub *realtime.Hub, notifier push.Notifier) *MessageHandler {
	return &MessageHandler{Store: st, Uploader: up, Hub: hub, Push: notifier, Now: time.Now}
}

// Stream is the long-lived SSE endpoint a client opens per session. It
// emits a "system" handshake on registration, "message" events for new
// chat messages and "ping" heartbeats.
func (h *MessageHandler) Stream(c *gin.Context) {
	userID := c.Param("userId")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache, no-transform")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	sub := h.Hub.Register(userID)
	defer h.Hub.Unregister(sub)

	write := func(event string, data any) bool {
		if err := sse.Encode(c.Writer, sse.Event{Event: event, Data: data}); err != nil {
			return false
		}
		c.Writer.Flush()
		return true
	}

	if !write("system", gin.H{"connected": true, "time": h.Now().UnixMilli()}) {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if !write(ev.Name, ev.Data) {
				return
			}
		case t := <-heartbeat.C:
			if !write("ping", t.UnixMilli()) {
				return
			}
		}
	}
}

// Send stores a message, then fans it out to the recipient's open streams.
// With no open stream the recipient gets a web-push notification instead;
// either way the message is already durable.
func (h *MessageHandler) Send(c *gin.Context) {
	ctx := c.Request.Context()
	fromUserID := authUserID(c)

	toUserID := c.PostForm("to_user_id")
	text := c.PostForm("text")
	if toUserID == "" {
		fail(c, "Recipient is required")
		return
	}

	mediaURL := ""
	messageType := models.MessageText
	if fh, err := c.FormFile("image"); err == nil {
		mediaURL, err = h.Uploader.Upload(ctx, fh, "messages", 1280)
		if err != nil {
			fail(c, err.Error())
			return
		}
		messageType = models.MessageImage
	}

	msg := &models.Message{
		FromUserID:  fromUserID,
		ToUserID:    toUserID,
		Text:        text,
		MessageType: messageType,
		MediaURL:    mediaURL,
		CreatedAt:   h.Now(),
	}
	if err := h.Store.CreateMessage(ctx, msg); err != nil {
		serverError(c, "SendMessage", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})

	if sender, err := h.Store.GetUser(ctx, fromUserID); err == nil {
		msg.FromUser = sender
	}

	if h.Hub.Connections(toUserID) > 0 {
		h.Hub.Broadcast(toUserID, "message", msg)
		return
	}
	h.Push.Notify(ctx, toUserID, gin.H{
		"title": "New message",
		"body":  text,
		"from":  fromUserID,
	})
}

// Thread returns the conversation between the caller and another user,
// newest first, and bulk-marks the received side as seen.
func (h *MessageHandler) Thread(c *gin.Context) {
	var req struct {
		ToUserID string `json:"to_user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	userID := authUserID(c)

	messages, err := h.Store.ListThread(ctx, userID, req.ToUserID)
	if err != nil {
		serverError(c, "GetChatMessages", err)
		return
	}

	if err := h.Store.MarkThreadSeen(ctx, req.ToUserID, userID); err != nil {
		serverError(c, "GetChatMessages", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

// Recent returns the caller's inbox, newest first, with sender and
// recipient populated.
func (h *MessageHandler) Recent(c *gin.Context) {
	ctx := c.Request.Context()
	userID := authUserID(c)

	messages, err := h.Store.ListMessagesTo(ctx, userID)
	if err != nil {
		serverError(c, "GetRecentMessages", err)
		return
	}

	users := map[string]*models.User{}
	lookup := func(id string) *models.User {
		if u, ok := users[id]; ok {
			return u
		}
		u, err := h.Store.GetUser(ctx, id)
		if err != nil {
			return nil
		}
		users[id] = u
		return u
	}
	for i := range messages {
		messages[i].FromUser = lookup(messages[i].FromUserID)
		messages[i].ToUser = lookup(messages[i].ToUserID)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

// Subscribe stores a web-push subscription for the caller.
func (h *MessageHandler) Subscribe(c *gin.Context) {
	var sub models.PushSubscription
	if err := c.ShouldBindJSON(&sub.Sub); err != nil {
		fail(c, "Invalid subscription")
		return
	}
	sub.UserID = authUserID(c)

	if err := h.Store.SavePushSubscription(c.Request.Context(), &sub); err != nil {
		serverError(c, "Subscribe", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Subscribed"})
}
