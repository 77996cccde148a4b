package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"buzzconnect/middleware"
)

// authUserID returns the caller identity placed in the context by the auth
// middleware.
func authUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}

// fail reports a business-rule rejection. Logical failures keep HTTP 200;
// only authentication (401) and unexpected errors (500) change the status.
func fail(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": false, "message": message})
}

func serverError(c *gin.Context, tag string, err error) {
	log.Printf("[%s] %v", tag, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": "Something went wrong",
	})
}
