package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"buzzconnect/workflows"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Webhook-Signature"

// identityEvent is the lifecycle payload posted by the identity provider.
type identityEvent struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		ImageURL       string `json:"image_url"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	} `json:"data"`
}

type WebhookHandler struct {
	Workflows *workflows.Service
	Secret    string
}

func NewWebhookHandler(wf *workflows.Service, secret string) *WebhookHandler {
	return &WebhookHandler{Workflows: wf, Secret: secret}
}

// Identity consumes identity-provider lifecycle events and applies them to
// the local user set through the workflow service.
func (h *WebhookHandler) Identity(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, "Unable to read request body")
		return
	}

	if !h.verifySignature(body, c.GetHeader(SignatureHeader)) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Invalid webhook signature",
		})
		return
	}

	var event identityEvent
	if err := json.Unmarshal(body, &event); err != nil {
		fail(c, "Invalid event payload")
		return
	}

	email := ""
	if len(event.Data.EmailAddresses) > 0 {
		email = event.Data.EmailAddresses[0].EmailAddress
	}

	ctx := c.Request.Context()
	switch event.Type {
	case "user.created":
		err = h.Workflows.SyncUserCreated(ctx, event.Data.ID, email,
			event.Data.FirstName, event.Data.LastName, event.Data.ImageURL)
	case "user.updated":
		err = h.Workflows.SyncUserUpdated(ctx, event.Data.ID, email,
			event.Data.FirstName, event.Data.LastName, event.Data.ImageURL)
	case "user.deleted":
		err = h.Workflows.SyncUserDeleted(ctx, event.Data.ID)
	default:
		fail(c, "Unknown event type")
		return
	}

	if err != nil {
		serverError(c, "IdentityWebhook", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if h.Secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
