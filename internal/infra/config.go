package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	DBMaxConns  int

	NATSURL         string
	QueueStream     string
	QueueSubject    string
	QueueDurable    string
	QueueAckWait    time.Duration
	QueueMaxDeliver int

	StorageBackend string
	StoragePath    string
	StorageBaseURL string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	ScrapeTimeout     time.Duration
	JobDeadline       time.Duration
	LinkTTL           time.Duration
	LinkRenewalMargin time.Duration
	Retention         time.Duration
	SweepInterval     time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),

		NATSURL:         getEnv("NATS_URL", "nats://localhost:4222"),
		QueueStream:     getEnv("QUEUE_STREAM", "ADGEN_JOBS"),
		QueueSubject:    getEnv("QUEUE_SUBJECT", "adgen.jobs"),
		QueueDurable:    getEnv("QUEUE_DURABLE", "adgen-workers"),
		QueueAckWait:    getEnvDuration("QUEUE_ACK_WAIT", 16*time.Minute),
		QueueMaxDeliver: getEnvInt("QUEUE_MAX_DELIVER", 5),

		StorageBackend: getEnv("STORAGE_BACKEND", "s3"),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:"+getEnv("PORT", "8080")+"/static"),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		S3UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		ScrapeTimeout:     getEnvDuration("SCRAPE_TIMEOUT", 10*time.Second),
		JobDeadline:       getEnvDuration("JOB_DEADLINE", 15*time.Minute),
		LinkTTL:           getEnvDuration("LINK_TTL", time.Hour),
		LinkRenewalMargin: getEnvDuration("LINK_RENEWAL_MARGIN", 5*time.Minute),
		Retention:         getEnvDuration("JOB_RETENTION", 24*time.Hour),
		SweepInterval:     getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   getEnvList("ALLOWED_ORIGINS"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.StorageBackend == "s3" && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND is s3")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v == "true" || v == "1"
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
