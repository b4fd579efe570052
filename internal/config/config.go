package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"eventsaga/internal/domain/deadletter"
)

type Config struct {
	App      App      `yaml:"app"`
	HTTP     HTTP     `yaml:"http"`
	Log      Log      `yaml:"log"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Producer Producer `yaml:"producer"`
	Topics   Topics   `yaml:"topics"`
	Retry    Retry    `yaml:"retry"`
	Remote   Remote   `yaml:"remote"`
	Products Products `yaml:"products"`
	Metrics  Metrics  `yaml:"metrics"`
	Mock     Mock     `yaml:"mock"`
}

type App struct {
	Name    string `yaml:"name" env:"APP_NAME" env-default:"eventsaga"`
	Version string `yaml:"version" env:"APP_VERSION" env-default:"1.0.0"`
}

type HTTP struct {
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// SlogLevel maps Level to a slog level; unknown values mean info.
func (l Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"user"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"password"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-default:"eventsaga"`
}

// DSN is the pgx connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DBName)
}

type Redis struct {
	Addr         string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB           int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	PoolSize     int           `yaml:"pool_size" env:"REDIS_POOL_SIZE" env-default:"0"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"REDIS_READ_TIMEOUT" env-default:"3s"`
	Enabled      bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"true"`
	LedgerTTL    time.Duration `yaml:"ledger_ttl" env:"REDIS_LEDGER_TTL" env-default:"24h"`
}

type Kafka struct {
	Brokers           []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	GroupID           string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"product-created-events"`
	StartOffset       string   `yaml:"start_offset" env:"KAFKA_START_OFFSET" env-default:"earliest"`
	Partitions        int      `yaml:"partitions" env:"KAFKA_PARTITIONS" env-default:"3"`
	ReplicationFactor int      `yaml:"replication_factor" env:"KAFKA_REPLICATION_FACTOR" env-default:"3"`
	MinInSyncReplicas int      `yaml:"min_insync_replicas" env:"KAFKA_MIN_INSYNC_REPLICAS" env-default:"2"`
}

// Producer mirrors the durability knobs of the publishing side.
type Producer struct {
	RequiredAcks string        `yaml:"required_acks" env:"PRODUCER_REQUIRED_ACKS" env-default:"all"`
	MaxInFlight  int           `yaml:"max_in_flight" env:"PRODUCER_MAX_IN_FLIGHT" env-default:"5"`
	MaxAttempts  int           `yaml:"max_attempts" env:"PRODUCER_MAX_ATTEMPTS" env-default:"10"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"PRODUCER_WRITE_TIMEOUT" env-default:"10s"`
	BatchTimeout time.Duration `yaml:"batch_timeout" env:"PRODUCER_BATCH_TIMEOUT" env-default:"5ms"`
	// DeliveryTimeout bounds one logical send including internal retries.
	DeliveryTimeout time.Duration `yaml:"delivery_timeout" env:"PRODUCER_DELIVERY_TIMEOUT" env-default:"120s"`
}

// Topics is the topic-name table, loaded once at process start.
type Topics struct {
	ProductCreated string `yaml:"product_created" env:"TOPIC_PRODUCT_CREATED" env-default:"product-created-events"`
	Withdraw       string `yaml:"withdraw" env:"TOPIC_WITHDRAW" env-default:"withdraw-money-topic"`
	Deposit        string `yaml:"deposit" env:"TOPIC_DEPOSIT" env-default:"deposit-money-topic"`
	DLTSuffix      string `yaml:"dlt_suffix" env:"TOPIC_DLT_SUFFIX" env-default:"-dlt"`
}

func (t Topics) DeadLetter(topic string) string {
	return deadletter.Topic(topic, t.DLTSuffix)
}

// All returns the source topics (dead-letter companions excluded).
func (t Topics) All() []string {
	return []string{t.ProductCreated, t.Withdraw, t.Deposit}
}

type Retry struct {
	MaxAttempts int           `yaml:"max_attempts" env:"RETRY_MAX_ATTEMPTS" env-default:"3"`
	Backoff     time.Duration `yaml:"backoff" env:"RETRY_BACKOFF" env-default:"5s"`
}

type Remote struct {
	BaseURL     string        `yaml:"base_url" env:"REMOTE_BASE_URL" env-default:"http://localhost:8090"`
	SuccessPath string        `yaml:"success_path" env:"REMOTE_SUCCESS_PATH" env-default:"/response/200"`
	Timeout     time.Duration `yaml:"timeout" env:"REMOTE_TIMEOUT" env-default:"5s"`
}

type Products struct {
	// TrackAsyncPublish records the outcome of fire-and-forget publishes so callers can poll it.
	TrackAsyncPublish bool          `yaml:"track_async_publish" env:"PRODUCTS_TRACK_ASYNC_PUBLISH" env-default:"false"`
	TrackTTL          time.Duration `yaml:"track_ttl" env:"PRODUCTS_TRACK_TTL" env-default:"1h"`
}

type Metrics struct {
	Port string `yaml:"port" env:"METRICS_PORT" env-default:"9091"`
}

type Mock struct {
	Port string `yaml:"port" env:"MOCK_PORT" env-default:"8090"`
}

func New() (*Config, error) {
	return Load("config.yaml")
}

// Load reads path when it exists and lets env vars override it.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		// fallback to env vars if file not found
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers must not be empty"))
	}
	if c.Kafka.Partitions < 1 {
		errs = append(errs, errors.New("kafka.partitions must be at least 1"))
	}
	switch strings.ToLower(c.Kafka.StartOffset) {
	case "earliest", "latest":
	default:
		errs = append(errs, fmt.Errorf("kafka.start_offset %q must be earliest or latest", c.Kafka.StartOffset))
	}
	switch strings.ToLower(c.Producer.RequiredAcks) {
	case "all", "one", "none":
	default:
		errs = append(errs, fmt.Errorf("producer.required_acks %q must be all, one or none", c.Producer.RequiredAcks))
	}
	// more than 5 in-flight sends could reorder a key on internal retry
	if c.Producer.MaxInFlight < 1 || c.Producer.MaxInFlight > 5 {
		errs = append(errs, fmt.Errorf("producer.max_in_flight %d must be between 1 and 5", c.Producer.MaxInFlight))
	}
	if c.Producer.MaxAttempts < 1 {
		errs = append(errs, errors.New("producer.max_attempts must be at least 1"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	if c.Retry.Backoff < 0 {
		errs = append(errs, errors.New("retry.backoff must not be negative"))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, errors.New("redis.db must not be negative"))
	}
	if c.Topics.DLTSuffix == "" {
		errs = append(errs, errors.New("topics.dlt_suffix must not be empty"))
	}
	for _, topic := range c.Topics.All() {
		if topic == "" {
			errs = append(errs, errors.New("topic names must not be empty"))
			break
		}
	}

	return errors.Join(errs...)
}
