package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"buzzconnect/handlers"
	"buzzconnect/middleware"
)

// Deps bundles everything the router wires together.
type Deps struct {
	Users    *handlers.UserHandler
	Posts    *handlers.PostHandler
	Stories  *handlers.StoryHandler
	Messages *handlers.MessageHandler
	Webhooks *handlers.WebhookHandler
	Verifier middleware.TokenVerifier
	Origins  []string
}

func Setup(deps Deps) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.RateLimit(middleware.NewIPRateLimiter(120, time.Minute)))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "BuzzConnect Server is Live")
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	router.POST("/api/webhooks/identity", deps.Webhooks.Identity)

	auth := middleware.Auth(deps.Verifier)

	user := router.Group("/api/user", auth)
	user.GET("/data", deps.Users.GetData)
	user.POST("/update", deps.Users.Update)
	user.POST("/discover", deps.Users.Discover)
	user.POST("/follow", deps.Users.Follow)
	user.POST("/unfollow", deps.Users.Unfollow)
	user.POST("/connect", deps.Users.Connect)
	user.POST("/accept", deps.Users.Accept)
	user.GET("/connections", deps.Users.Connections)
	user.POST("/profiles", deps.Users.Profiles)

	post := router.Group("/api/post", auth)
	post.POST("/add", deps.Posts.Add)
	post.GET("/feed", deps.Posts.Feed)
	post.POST("/like", deps.Posts.Like)

	story := router.Group("/api/story", auth)
	story.POST("/create", deps.Stories.Create)
	story.GET("/get", deps.Stories.List)

	message := router.Group("/api/message")
	// The SSE stream is opened by EventSource, which cannot set headers;
	// the client identifies itself by path. This is the only GET under
	// /api/message: a static GET sibling would collide with the wildcard
	// in gin's route tree.
	message.GET("/:userId", deps.Messages.Stream)
	message.POST("/send", auth, deps.Messages.Send)
	message.POST("/get", auth, deps.Messages.Thread)
	message.POST("/recent", auth, deps.Messages.Recent)
	message.POST("/subscribe", auth, deps.Messages.Subscribe)

	return router
}
