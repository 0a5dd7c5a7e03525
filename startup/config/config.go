package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	FrontendURL string

	MongoHost string
	MongoPort string
	MongoDB   string

	RedisHost string
	RedisPort string

	StorageBackend string
	SessionBackend string
	SessionSecret  string
	SessionTTL     time.Duration

	FileStorage     string
	UploadDir       string
	HDFSURI         string
	HDFSRoot        string
	ImageCache      bool
	ImageCacheTTL   time.Duration
	RulesLinkSecret string
	RulesLinkTTL    time.Duration

	BcryptCost          int
	RequireListingPhoto bool
	CleanupAttempts     int
	CleanupBackoff      time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	JaegerAddress string
	LogLevel      string
	LogFile       string
	ModelPath     string
	PolicyPath    string
}

// NewConfig reads the environment, preloaded from a .env file when one exists.
func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        env("PORT", "8000"),
		Environment: env("APP_ENV", "development"),
		FrontendURL: env("FRONTEND_URL", "http://localhost:5173"),

		MongoHost: env("MONGO_DB_HOST", "localhost"),
		MongoPort: env("MONGO_DB_PORT", "27017"),
		MongoDB:   env("MONGO_DB", "rental"),

		RedisHost: env("REDIS_HOST", "localhost"),
		RedisPort: env("REDIS_PORT", "6379"),

		StorageBackend: env("STORAGE_BACKEND", "mongo"),
		SessionBackend: env("SESSION_BACKEND", "redis"),
		SessionSecret:  env("SESSION_SECRET", ""),
		SessionTTL:     envDuration("SESSION_TTL", 7*24*time.Hour),

		FileStorage:     env("FILE_STORAGE", "local"),
		UploadDir:       env("UPLOAD_DIR", "./uploads"),
		HDFSURI:         env("HDFS_URI", "namenode:9000"),
		HDFSRoot:        env("HDFS_ROOT", "/rental/uploads"),
		ImageCache:      envBool("IMAGE_CACHE", false),
		ImageCacheTTL:   envDuration("IMAGE_CACHE_TTL", 30*time.Minute),
		RulesLinkSecret: env("SECRET_KEY", ""),
		RulesLinkTTL:    envDuration("RULES_LINK_TTL", 15*time.Minute),

		BcryptCost:          envInt("BCRYPT_COST", 12),
		RequireListingPhoto: envBool("REQUIRE_LISTING_PHOTO", true),
		CleanupAttempts:     envInt("CLEANUP_ATTEMPTS", 5),
		CleanupBackoff:      envDuration("CLEANUP_BACKOFF", 2*time.Second),

		SMTPHost:     env("SMTP_HOST", ""),
		SMTPPort:     envInt("SMTP_PORT", 587),
		SMTPUser:     env("SMTP_AUTH_MAIL", ""),
		SMTPPassword: env("SMTP_AUTH_PASSWORD", ""),
		SMTPFrom:     env("SMTP_FROM", env("SMTP_AUTH_MAIL", "")),

		JaegerAddress: env("JAEGER_ADDRESS", ""),
		LogLevel:      env("LOG_LEVEL", "info"),
		LogFile:       env("LOG_FILE", ""),
		ModelPath:     env("RBAC_MODEL", "./rbac_model.conf"),
		PolicyPath:    env("RBAC_POLICY", "./policy.csv"),
	}

	if cfg.Local() {
		if cfg.SessionSecret == "" {
			cfg.SessionSecret = localSessionSecret
		}
		if cfg.RulesLinkSecret == "" {
			cfg.RulesLinkSecret = localLinkSecret
		}
	}
	return cfg
}

const (
	localSessionSecret = "local-session-secret-32-bytes!!!"
	localLinkSecret    = "local-link-secret"
)

// Local reports a development deployment served over plain HTTP.
func (c *Config) Local() bool {
	switch c.Environment {
	case "development", "local", "test":
		return true
	}
	return false
}

// SecureCookies is true for every deployment that is not local.
func (c *Config) SecureCookies() bool {
	return !c.Local()
}

// Validate fails when a non-local deployment is missing a signing secret.
func (c *Config) Validate() error {
	if c.Local() {
		return nil
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET must be set outside local development")
	}
	if c.RulesLinkSecret == "" {
		return errors.New("SECRET_KEY must be set outside local development")
	}
	return nil
}

func env(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}
