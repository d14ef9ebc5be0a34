package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/jeongwonlab/possync/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const ConfigTagName = "env"
const ConfigDefaultTagName = "default"

var config *Config

// Config holds every env-sourced value used by the terminal and display
// processes. Only this struct may be read for configuration; no direct
// access to env or any other config source should be made elsewhere.
type Config struct {
	AppEnv   string `env:"APP_ENV" default:"dev"`
	AppName  string `env:"APP_NAME" default:"possync"`
	AppDebug bool   `env:"APP_DEBUG" default:"1"`

	HttpListenAddr         string `env:"HTTP_LISTEN_ADDR" validation:"mustExists"`
	HttpServerReadTimeout  int    `env:"HTTP_SERVER_READ_TIMEOUT"`
	HttpServerWriteTimeout int    `env:"HTTP_SERVER_WRITE_TIMEOUT"`

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

	// Store context interpolated into display-facing messages.
	StoreName string `env:"STORE_NAME" default:"Jeongwonlab"`

	// VAT is an explicit separate totals line; 0 disables it.
	VatRatePercent int `env:"VAT_RATE_PERCENT" default:"20"`

	// Display actions older than this are silently discarded.
	ActionFreshnessWindow time.Duration `env:"ACTION_FRESHNESS_WINDOW" default:"5s"`

	// Delay before a SUCCESS/ERROR session auto-resets to IDLE.
	SessionResetDelay time.Duration `env:"SESSION_RESET_DELAY" default:"4s"`

	ActionQueueName         string        `env:"ACTION_QUEUE_NAME" default:"actions"`
	ActionConsumerGroup     string        `env:"ACTION_CONSUMER_GROUP" default:"terminal"`
	ActionConsumerName      string        `env:"ACTION_CONSUMER_NAME"`
	ActionMaxRetries        int           `env:"ACTION_MAX_RETRIES" default:"3"`
	ActionVisibilityTimeout time.Duration `env:"ACTION_VISIBILITY_TIMEOUT" default:"30s"`
	ActionPollInterval      time.Duration `env:"ACTION_POLL_INTERVAL" default:"200ms"`
	ActionBatchSize         int64         `env:"ACTION_BATCH_SIZE" default:"10"`
	ActionQueueMaxLen       int64         `env:"ACTION_QUEUE_MAX_LEN" default:"10000"`
	ActionEnableDLQ         bool          `env:"ACTION_ENABLE_DLQ" default:"1"`

	LogLevel []string `env:"LOG_LEVEL"`
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
