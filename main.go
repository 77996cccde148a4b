package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/mongo"

	"buzzconnect/config"
	"buzzconnect/database"
	"buzzconnect/handlers"
	"buzzconnect/media"
	"buzzconnect/mailer"
	"buzzconnect/middleware"
	"buzzconnect/push"
	"buzzconnect/realtime"
	"buzzconnect/routes"
	"buzzconnect/scheduler"
	"buzzconnect/store"
	"buzzconnect/workflows"
)

func main() {
	log.Println("Starting BuzzConnect server...")

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	log.Println("Connecting to MongoDB...")
	var client *mongo.Client
	var dbErr error
	for i := 1; i <= 3; i++ {
		client, dbErr = database.Connect(context.Background(), cfg.MongoURI)
		if dbErr == nil {
			break
		}
		log.Printf("MongoDB connection attempt %d failed: %v", i, dbErr)
		time.Sleep(2 * time.Second)
	}
	if dbErr != nil {
		log.Fatal("Failed to connect to MongoDB:", dbErr)
	}
	defer database.Disconnect(client)
	log.Println("MongoDB connected")

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	st := store.NewMongo(client.Database(cfg.MongoDatabase))
	hub := realtime.NewHub()

	var uploader media.Uploader
	if cfg.CloudinaryURL != "" {
		uploader, err = media.NewCloudinary(cfg.CloudinaryURL)
		if err != nil {
			log.Fatal("Failed to init media uploader:", err)
		}
	} else {
		log.Fatal("CLOUDINARY_URL must be set")
	}

	mail := mailer.NewSMTP(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.Sender)

	var notifier push.Notifier = push.Noop{}
	if cfg.Push.VAPIDPrivateKey != "" {
		notifier = push.NewWebPush(st, cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber)
	}

	sched := scheduler.New(st, cfg.Scheduler.PollEvery())
	wf := workflows.New(st, mail, sched)

	schedCtx, stopSched := context.WithCancel(context.Background())
	defer stopSched()
	go sched.Run(schedCtx)

	loc, err := time.LoadLocation(cfg.Scheduler.DigestTimezone)
	if err != nil {
		log.Fatal("Invalid digest timezone:", err)
	}
	digest := cron.New(cron.WithLocation(loc))
	if _, err := digest.AddFunc(cfg.Scheduler.DigestCron, func() {
		if err := wf.SendUnseenDigest(context.Background()); err != nil {
			log.Printf("Unseen message digest failed: %v", err)
		}
	}); err != nil {
		log.Fatal("Invalid digest cron expression:", err)
	}
	digest.Start()
	defer digest.Stop()

	router := routes.Setup(routes.Deps{
		Users:    handlers.NewUserHandler(st, uploader, wf),
		Posts:    handlers.NewPostHandler(st, uploader),
		Stories:  handlers.NewStoryHandler(st, uploader, wf),
		Messages: handlers.NewMessageHandler(st, uploader, hub, notifier),
		Webhooks: handlers.NewWebhookHandler(wf, cfg.WebhookSecret),
		Verifier: middleware.JWTVerifier{Secret: []byte(cfg.JWTSecret)},
		Origins:  cfg.AllowedOrigins,
	})

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: SSE streams stay open indefinitely.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Server running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("Forced shutdown:", err)
	}

	log.Println("Server stopped")
}
