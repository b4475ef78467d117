package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/courtline/go/internal/dbconfig"
	"github.com/mcdev12/courtline/go/internal/notifications/bus"
	"github.com/mcdev12/courtline/go/internal/notifications/channels"
	"github.com/mcdev12/courtline/go/internal/notifications/outbox"
	"github.com/mcdev12/courtline/go/internal/notifications/render"
)

// StoreDriver selects the outbox backend.
type StoreDriver string

const (
	StorePostgres StoreDriver = "postgres"
	StoreMongo    StoreDriver = "mongo"
)

var ErrUnknownStoreDriver = errors.New("unknown store driver")

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type StoreConfig struct {
	Driver   StoreDriver     `yaml:"driver"`
	Postgres dbconfig.Config `yaml:"postgres"`
	Mongo    MongoConfig     `yaml:"mongo"`
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// Config is the notifier's full configuration. It is built once at startup
// and handed to each component.
type Config struct {
	LogLevel string               `yaml:"log_level"`
	Store    StoreConfig          `yaml:"store"`
	NATS     bus.Config           `yaml:"nats"`
	HTTP     HTTPConfig           `yaml:"http"`
	Render   render.Config        `yaml:"render"`
	Email    channels.EmailConfig `yaml:"email"`
	SMS      channels.SMSConfig   `yaml:"sms"`
	Slack    channels.SlackConfig `yaml:"slack"`
}

func Default() Config {
	senderTimeout := 10 * time.Second
	return Config{
		LogLevel: "info",
		Store: StoreConfig{
			Driver:   StorePostgres,
			Postgres: dbconfig.Default(),
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "courtline",
				Collection: outbox.DefaultCollection,
			},
		},
		NATS: bus.DefaultConfig(),
		HTTP: HTTPConfig{
			Addr:         ":8090",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Render: render.DefaultConfig(),
		Email: channels.EmailConfig{
			Timeout: senderTimeout,
			Breaker: channels.DefaultBreakerConfig(),
		},
		SMS: channels.SMSConfig{
			Timeout: senderTimeout,
			Breaker: channels.DefaultBreakerConfig(),
		},
		Slack: channels.SlackConfig{
			Timeout: senderTimeout,
			Breaker: channels.DefaultBreakerConfig(),
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path (or
// NOTIFIER_CONFIG when path is empty), then the environment. A .env file is
// loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("NOTIFIER_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.Store.Driver = StoreDriver(getEnv("STORE_DRIVER", string(cfg.Store.Driver)))
	cfg.Store.Postgres.ApplyEnv()
	cfg.Store.Mongo.URI = getEnv("MONGO_URI", cfg.Store.Mongo.URI)
	cfg.Store.Mongo.Database = getEnv("MONGO_DATABASE", cfg.Store.Mongo.Database)
	cfg.Store.Mongo.Collection = getEnv("MONGO_COLLECTION", cfg.Store.Mongo.Collection)

	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	cfg.NATS.StreamName = getEnv("NATS_STREAM", cfg.NATS.StreamName)
	cfg.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", cfg.NATS.SubjectPrefix)
	cfg.NATS.ConsumerName = getEnv("NATS_CONSUMER", cfg.NATS.ConsumerName)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", cfg.HTTP.AllowedOrigins)

	cfg.Render.ShopName = getEnv("SHOP_NAME", cfg.Render.ShopName)
	cfg.Render.SiteURL = getEnv("SHOP_SITE_URL", cfg.Render.SiteURL)
	cfg.Render.ShopAddress = getEnv("SHOP_ADDRESS", cfg.Render.ShopAddress)
	cfg.Render.Timezone = getEnv("SHOP_TIMEZONE", cfg.Render.Timezone)
	cfg.Render.AdminBCC = getEnvAsList("ADMIN_BCC", cfg.Render.AdminBCC)

	cfg.Email.BaseURL = getEnv("EMAIL_API_URL", cfg.Email.BaseURL)
	cfg.Email.APIKey = getEnv("EMAIL_API_KEY", cfg.Email.APIKey)
	cfg.Email.From = getEnv("EMAIL_FROM", cfg.Email.From)

	cfg.SMS.BaseURL = getEnv("SMS_API_URL", cfg.SMS.BaseURL)
	cfg.SMS.APIKey = getEnv("SMS_API_KEY", cfg.SMS.APIKey)
	cfg.SMS.From = getEnv("SMS_FROM", cfg.SMS.From)

	cfg.Slack.WebhookURL = getEnv("SLACK_WEBHOOK_URL", cfg.Slack.WebhookURL)

	if secs := getEnvAsInt("SENDER_TIMEOUT_SECONDS", 0); secs > 0 {
		timeout := time.Duration(secs) * time.Second
		cfg.Email.Timeout = timeout
		cfg.SMS.Timeout = timeout
		cfg.Slack.Timeout = timeout
	}
}

// Validate checks settings the notifier cannot start without. Missing channel
// credentials are not checked here; the affected channel fails at send time.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StorePostgres, StoreMongo:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreDriver, c.Store.Driver)
	}
	if c.NATS.StreamName == "" || c.NATS.SubjectPrefix == "" {
		return errors.New("nats stream name and subject prefix are required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
