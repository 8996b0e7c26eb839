package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, SourceDir, cfg.DatasetSource)
	assert.Equal(t, "./data", cfg.DatasetDir)
	assert.Equal(t, BackendFile, cfg.ModelBackend)
	assert.Equal(t, "./model/pm25_lstm_model.json", cfg.ModelPath)
	assert.Equal(t, "pm25_lstm", cfg.TFServingModel)
	assert.Equal(t, 5*time.Second, cfg.ModelTimeout)
	assert.False(t, cfg.RequireContiguous)
	assert.Equal(t, StoreMemory, cfg.SessionStore)
	assert.Equal(t, 1000, cfg.SessionCacheSize)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "aq-predictions", cfg.KafkaPredictionsTopic)
	assert.Empty(t, cfg.StationsFile)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATASET_SOURCE", "S3")
	t.Setenv("S3_ENDPOINT", "minio:9000")
	t.Setenv("S3_BUCKET", "prsa")
	t.Setenv("S3_PREFIX", "beijing/")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("STATIONS_FILE", "/etc/aq/stations.yaml")
	t.Setenv("MODEL_BACKEND", "tfserving")
	t.Setenv("TFSERVING_URL", "http://tfserving:8501")
	t.Setenv("MODEL_TIMEOUT", "2s")
	t.Setenv("FORECAST_REQUIRE_CONTIGUOUS", "true")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_PREDICTIONS_TOPIC", "predictions")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, SourceS3, cfg.DatasetSource)
	assert.Equal(t, "minio:9000", cfg.S3Endpoint)
	assert.Equal(t, "prsa", cfg.S3Bucket)
	assert.Equal(t, "beijing/", cfg.S3Prefix)
	assert.True(t, cfg.S3UseSSL)
	assert.Equal(t, "/etc/aq/stations.yaml", cfg.StationsFile)
	assert.Equal(t, BackendTFServing, cfg.ModelBackend)
	assert.Equal(t, "http://tfserving:8501", cfg.TFServingURL)
	assert.Equal(t, 2*time.Second, cfg.ModelTimeout)
	assert.True(t, cfg.RequireContiguous)
	assert.Equal(t, StoreRedis, cfg.SessionStore)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "predictions", cfg.KafkaPredictionsTopic)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"MODEL_TIMEOUT", "0s"},
		{"SESSION_TTL", "soon"},
		{"SESSION_CACHE_SIZE", "0"},
		{"REDIS_DB", "-1"},
		{"S3_USE_SSL", "maybe"},
		{"FORECAST_REQUIRE_CONTIGUOUS", "yes please"},
		{"KAFKA_ENABLED", "sometimes"},
		{"DATASET_SOURCE", "ftp"},
		{"MODEL_BACKEND", "onnx"},
		{"SESSION_STORE", "memcached"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_RequiredPerBackend(t *testing.T) {
	t.Run("postgres needs DATABASE_URL", func(t *testing.T) {
		t.Setenv("DATASET_SOURCE", "postgres")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL")
	})
	t.Run("s3 needs bucket", func(t *testing.T) {
		t.Setenv("DATASET_SOURCE", "s3")
		t.Setenv("S3_ENDPOINT", "minio:9000")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "S3_BUCKET")
	})
	t.Run("tfserving needs url", func(t *testing.T) {
		t.Setenv("MODEL_BACKEND", "tfserving")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TFSERVING_URL")
	})
	t.Run("kafka needs brokers", func(t *testing.T) {
		t.Setenv("KAFKA_ENABLED", "true")
		t.Setenv("KAFKA_BROKERS", " , ")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "KAFKA_BROKERS")
	})
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DATASET_DIR=/srv/prsa\nLOG_LEVEL=warn\n"), 0o600))
	t.Setenv("LOG_LEVEL", "error")
	// Register DATASET_DIR for cleanup; godotenv only sets unset variables.
	t.Setenv("DATASET_DIR", "")
	require.NoError(t, os.Unsetenv("DATASET_DIR"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/prsa", cfg.DatasetDir)
	assert.Equal(t, "error", cfg.LogLevel, "existing variables win")
}
