package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	MetricsPort string

	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool
	PostgresURL       string
	RedisURL          string

	JWTSecret     string
	JWTExpiration time.Duration

	CloudinaryURL           string
	UploadDir               string
	FirebaseCredentialsPath string

	LogLevel  string
	LogFormat string

	RateLimitPerMinute int

	FanoutBatchSize    int
	FanoutConcurrency  int
	FanoutPollInterval time.Duration
	FanoutMaxAttempts  int
}

// Load reads configuration from the environment, after loading a .env file
// if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		MetricsPort:             getEnv("METRICS_PORT", "9090"),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "socialmedia"),
		PostgresURL:             getEnv("POSTGRES_URL", ""),
		RedisURL:                getEnv("REDIS_URL", ""),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		CloudinaryURL:           getEnv("CLOUDINARY_URL", ""),
		UploadDir:               getEnv("UPLOAD_DIR", "./uploads"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "json"),
	}

	var errs []error
	cfg.MongoTransactions = getBool("MONGO_TRANSACTIONS", false, &errs)
	cfg.JWTExpiration = getDuration("JWT_EXPIRATION", time.Hour, &errs)
	cfg.RateLimitPerMinute = getInt("RATE_LIMIT_PER_MINUTE", 120, &errs)
	cfg.FanoutBatchSize = getInt("FANOUT_BATCH_SIZE", 500, &errs)
	cfg.FanoutConcurrency = getInt("FANOUT_CONCURRENCY", 4, &errs)
	cfg.FanoutPollInterval = getDuration("FANOUT_POLL_INTERVAL", 2*time.Second, &errs)
	cfg.FanoutMaxAttempts = getInt("FANOUT_MAX_ATTEMPTS", 5, &errs)

	if cfg.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI environment variable not set"))
	}
	if cfg.PostgresURL == "" {
		errs = append(errs, errors.New("POSTGRES_URL environment variable not set"))
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			errs = append(errs, errors.New("JWT_SECRET environment variable not set"))
		} else {
			cfg.JWTSecret = "supersecretjwtkey"
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a positive integer, got %q", key, raw))
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool, errs *[]error) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a boolean, got %q", key, raw))
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a positive duration, got %q", key, raw))
		return defaultValue
	}
	return v
}
