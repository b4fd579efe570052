package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "product-created-events", cfg.Topics.ProductCreated)
	assert.Equal(t, "withdraw-money-topic", cfg.Topics.Withdraw)
	assert.Equal(t, "deposit-money-topic", cfg.Topics.Deposit)
	assert.Equal(t, "product-created-events-dlt", cfg.Topics.DeadLetter(cfg.Topics.ProductCreated))
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Retry.Backoff)
	assert.Equal(t, "all", cfg.Producer.RequiredAcks)
	assert.Equal(t, 5, cfg.Producer.MaxInFlight)
	assert.Equal(t, 3, cfg.Kafka.Partitions)
	assert.False(t, cfg.Products.TrackAsyncPublish)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_BACKOFF", "250ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TOPIC_DLT_SUFFIX", ".dlq")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Backoff)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "deposit-money-topic.dlq", cfg.Topics.DeadLetter(cfg.Topics.Deposit))
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
http:
  port: "9000"
remote:
  base_url: "http://mock:8090"
  timeout: 2s
products:
  track_async_publish: true
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.HTTP.Port)
	assert.Equal(t, "http://mock:8090", cfg.Remote.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Remote.Timeout)
	assert.True(t, cfg.Products.TrackAsyncPublish)
}

func TestLoad_RejectsUnsafeInFlight(t *testing.T) {
	t.Setenv("PRODUCER_MAX_IN_FLIGHT", "6")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_in_flight")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"acks", func(c *Config) { c.Producer.RequiredAcks = "two" }, "required_acks"},
		{"retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
		{"backoff", func(c *Config) { c.Retry.Backoff = -time.Second }, "retry.backoff"},
		{"brokers", func(c *Config) { c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"suffix", func(c *Config) { c.Topics.DLTSuffix = "" }, "dlt_suffix"},
		{"start offset", func(c *Config) { c.Kafka.StartOffset = "middle" }, "start_offset"},
		{"topic", func(c *Config) { c.Topics.Withdraw = "" }, "topic names"},
		{"redis db", func(c *Config) { c.Redis.DB = -1 }, "redis.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLog_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Log{Level: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, Log{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, Log{Level: "verbose"}.SlogLevel())
}
