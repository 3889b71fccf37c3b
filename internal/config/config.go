package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/txtalert/reminder-gateway/pkg/logger"
)

const ConfigTagName = "env"
const ConfigDefaultTagName = "default"

var config *Config

// Config holds every env-sourced value used by the binaries. Only this
// struct may be used to read configuration, no direct access to env, ini
// or any other config source should be made elsewhere.
type Config struct {
	AppEnv              string `env:"APP_ENV" default:"dev"`
	AppName             string `env:"APP_NAME" default:"reminder_gateway"`
	AppDebug            bool   `env:"APP_DEBUG" default:"1"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI"`

	HttpListenAddr            string `env:"HTTP_LISTEN_ADDR" validation:"mustExists"`
	HttpServerReadTimeout     int    `env:"HTTP_SERVER_READ_TIMEOUT"`
	HttpServerWriteTimeout    int    `env:"HTTP_SERVER_WRITE_TIMEOUT"`
	HttpServerReadBufferSize  int    `env:"HTTP_SERVER_READ_BUFFER_SIZE"`
	HttpServerWriteBufferSize int    `env:"HTTP_SERVER_WRITE_BUFFER_SIZE"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE"`

	LogLevel []string `env:"LOG_LEVEL"`

	// Gateway event stream (please-call-me, reconciled receipts)
	EventsStreamName        string        `env:"EVENTS_STREAM_NAME" default:"gateway:events"`
	EventsConsumerGroup     string        `env:"EVENTS_CONSUMER_GROUP" default:"gateway-workers"`
	EventsConsumerName      string        `env:"EVENTS_CONSUMER_NAME"`
	EventsMaxRetries        int           `env:"EVENTS_MAX_RETRIES" default:"3"`
	EventsVisibilityTimeout time.Duration `env:"EVENTS_VISIBILITY_TIMEOUT" default:"30s"`
	EventsPollInterval      time.Duration `env:"EVENTS_POLL_INTERVAL" default:"1s"`
	EventsBatchSize         int64         `env:"EVENTS_BATCH_SIZE" default:"10"`
	EventsMaxLen            int64         `env:"EVENTS_MAX_LEN"`
	EventsEnableDLQ         bool          `env:"EVENTS_ENABLE_DLQ" default:"1"`

	// Opera-style SMS aggregator
	AggregatorURL       string        `env:"AGGREGATOR_URL"`
	AggregatorServiceID string        `env:"AGGREGATOR_SERVICE_ID"`
	AggregatorPassword  string        `env:"AGGREGATOR_PASSWORD"`
	AggregatorChannel   string        `env:"AGGREGATOR_CHANNEL"`
	AggregatorTimeout   time.Duration `env:"AGGREGATOR_TIMEOUT" default:"5s"`
	GatewayBackend      string        `env:"GATEWAY_BACKEND" default:"opera"` // opera or dummy

	// Reminder batch job
	RemindersRunLockTTL time.Duration `env:"REMINDERS_RUNLOCK_TTL" default:"1h"`
	RemindersInterval   time.Duration `env:"REMINDERS_INTERVAL" default:"24h"`

	// Statistics digest
	SMTPAddr      string `env:"SMTP_ADDR"`
	SMTPUsername  string `env:"SMTP_USER"`
	SMTPPassword  string `env:"SMTP_PASS"`
	SMTPFrom      string `env:"SMTP_FROM" default:"txtalert@localhost"`
	DigestEnabled bool   `env:"DIGEST_ENABLED" default:"1"`

	// HTTP basic auth users, one entry per user: "name:password:perm1|perm2"
	AuthUsers []string `env:"AUTH_USERS"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)

	if err != nil {
		return errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

// Set replaces the loaded config, for tests.
func Set(c *Config) {
	config = c
}
