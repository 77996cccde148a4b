package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port           string    `yaml:"port"`
	MongoURI       string    `yaml:"mongo_uri"`
	MongoDatabase  string    `yaml:"mongo_database"`
	JWTSecret      string    `yaml:"jwt_secret"`
	WebhookSecret  string    `yaml:"webhook_secret"`
	CloudinaryURL  string    `yaml:"cloudinary_url"`
	AllowedOrigins []string  `yaml:"allowed_origins"`
	SMTP           SMTP      `yaml:"smtp"`
	Push           Push      `yaml:"push"`
	Scheduler      Scheduler `yaml:"scheduler"`
}

type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Sender   string `yaml:"sender"`
}

type Push struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	Subscriber      string `yaml:"subscriber"`
}

type Scheduler struct {
	PollInterval   string `yaml:"poll_interval"`
	DigestCron     string `yaml:"digest_cron"`
	DigestTimezone string `yaml:"digest_timezone"`
}

// PollEvery parses the configured poll interval, falling back to 10s on
// a missing or malformed value.
func (s Scheduler) PollEvery() time.Duration {
	d, err := time.ParseDuration(s.PollInterval)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

func defaults() *Config {
	return &Config{
		Port:           "4000",
		MongoURI:       "mongodb://127.0.0.1:27017",
		MongoDatabase:  "buzzconnect",
		AllowedOrigins: []string{"http://localhost:5173"},
		SMTP: SMTP{
			Host: "smtp-relay.brevo.com",
			Port: 587,
		},
		Scheduler: Scheduler{
			PollInterval:   "10s",
			DigestCron:     "0 9 * * *",
			DigestTimezone: "America/New_York",
		},
	}
}

// Load reads the optional YAML file at path, then applies environment
// variable overrides on top.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	}

	overrideString(&cfg.Port, "PORT")
	overrideString(&cfg.MongoURI, "MONGODB_URI")
	overrideString(&cfg.MongoDatabase, "MONGODB_DATABASE")
	overrideString(&cfg.JWTSecret, "JWT_SECRET")
	overrideString(&cfg.WebhookSecret, "WEBHOOK_SECRET")
	overrideString(&cfg.CloudinaryURL, "CLOUDINARY_URL")
	overrideString(&cfg.SMTP.Host, "SMTP_HOST")
	overrideInt(&cfg.SMTP.Port, "SMTP_PORT")
	overrideString(&cfg.SMTP.User, "SMTP_USER")
	overrideString(&cfg.SMTP.Password, "SMTP_PASS")
	overrideString(&cfg.SMTP.Sender, "SENDER_EMAIL")
	overrideString(&cfg.Push.VAPIDPublicKey, "VAPID_PUBLIC_KEY")
	overrideString(&cfg.Push.VAPIDPrivateKey, "VAPID_PRIVATE_KEY")
	overrideString(&cfg.Push.Subscriber, "VAPID_SUBSCRIBER")

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = strings.Split(v, ",")
	}

	return cfg, nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
