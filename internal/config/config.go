package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Dataset sources.
const (
	SourceDir      = "dir"
	SourcePostgres = "postgres"
	SourceS3       = "s3"
)

// Model backends.
const (
	BackendFile      = "file"
	BackendTFServing = "tfserving"
)

// Session stores.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dataset source configuration.
	DatasetSource string
	DatasetDir    string
	DatabaseURL   string
	S3Endpoint    string
	S3Bucket      string
	S3Prefix      string
	S3AccessKey   string
	S3SecretKey   string
	S3UseSSL      bool
	StationsFile  string

	// Model configuration.
	ModelBackend      string
	ModelPath         string
	TFServingURL      string
	TFServingModel    string
	ModelTimeout      time.Duration
	RequireContiguous bool

	// Session store configuration.
	SessionStore     string
	SessionCacheSize int
	SessionTTL       time.Duration
	RedisAddr        string
	RedisDB          int

	// Prediction events.
	KafkaEnabled          bool
	KafkaBrokers          []string
	KafkaPredictionsTopic string
}

// LoadDotEnv applies variables from the given files (default ".env") without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	modelTimeout, err := parseDuration("MODEL_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	sessionTTL, err := parseDuration("SESSION_TTL", "30m")
	if err != nil {
		return nil, err
	}
	sessionCacheSize, err := parsePositiveInt("SESSION_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	redisDB, err := parseNonNegativeInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	s3UseSSL, err := parseBool("S3_USE_SSL", false)
	if err != nil {
		return nil, err
	}
	requireContiguous, err := parseBool("FORECAST_REQUIRE_CONTIGUOUS", false)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatasetSource: strings.ToLower(envOrDefault("DATASET_SOURCE", SourceDir)),
		DatasetDir:    envOrDefault("DATASET_DIR", "./data"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		S3Prefix:      os.Getenv("S3_PREFIX"),
		S3AccessKey:   os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:   os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:      s3UseSSL,
		StationsFile:  os.Getenv("STATIONS_FILE"),

		ModelBackend:      strings.ToLower(envOrDefault("MODEL_BACKEND", BackendFile)),
		ModelPath:         envOrDefault("MODEL_PATH", "./model/pm25_lstm_model.json"),
		TFServingURL:      os.Getenv("TFSERVING_URL"),
		TFServingModel:    envOrDefault("TFSERVING_MODEL", "pm25_lstm"),
		ModelTimeout:      modelTimeout,
		RequireContiguous: requireContiguous,

		SessionStore:     strings.ToLower(envOrDefault("SESSION_STORE", StoreMemory)),
		SessionCacheSize: sessionCacheSize,
		SessionTTL:       sessionTTL,
		RedisAddr:        envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisDB:          redisDB,

		KafkaEnabled:          kafkaEnabled,
		KafkaBrokers:          parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaPredictionsTopic: envOrDefault("KAFKA_PREDICTIONS_TOPIC", "aq-predictions"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatasetSource {
	case SourceDir:
		if c.DatasetDir == "" {
			return errors.New("DATASET_DIR is required")
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when DATASET_SOURCE=postgres")
		}
	case SourceS3:
		if c.S3Endpoint == "" || c.S3Bucket == "" {
			return errors.New("S3_ENDPOINT and S3_BUCKET are required when DATASET_SOURCE=s3")
		}
	default:
		return fmt.Errorf("invalid DATASET_SOURCE %q", c.DatasetSource)
	}

	switch c.ModelBackend {
	case BackendFile:
		if c.ModelPath == "" {
			return errors.New("MODEL_PATH is required")
		}
	case BackendTFServing:
		if c.TFServingURL == "" {
			return errors.New("TFSERVING_URL is required when MODEL_BACKEND=tfserving")
		}
	default:
		return fmt.Errorf("invalid MODEL_BACKEND %q", c.ModelBackend)
	}

	switch c.SessionStore {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("invalid SESSION_STORE %q", c.SessionStore)
	}

	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
		}
		if c.KafkaPredictionsTopic == "" {
			return errors.New("KAFKA_PREDICTIONS_TOPIC is required when KAFKA_ENABLED=true")
		}
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, s)
	}
	return b, nil
}
