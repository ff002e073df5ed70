package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverJSON     = "json"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	BotToken    string        `envconfig:"BOT_TOKEN"`
	AdminIDs    []int64       `envconfig:"ADMIN_IDS"`
	PollTimeout time.Duration `envconfig:"POLL_TIMEOUT" default:"10s"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`

	StorageDriver  string         `envconfig:"STORAGE_DRIVER" default:"json"`
	DataFile       string         `envconfig:"DATA_FILE" default:"data/bot_data.json"`
	SQLitePath     string         `envconfig:"SQLITE_PATH" default:"data/bot.db"`
	MigrationsPath string         `envconfig:"MIGRATIONS_PATH" default:"migrations"`
	Database       DatabaseConfig `ignored:"true"`

	FlowTTL         time.Duration `envconfig:"FLOW_TTL"`
	CleanupSchedule string        `envconfig:"CLEANUP_SCHEDULE" default:"@daily"`
	RetentionDays   int           `envconfig:"RETENTION_DAYS" default:"30"`
	StatusAddr      string        `envconfig:"STATUS_ADDR"`
	MenuFile        string        `envconfig:"MENU_FILE"`

	ChannelURL     string `envconfig:"CHANNEL_URL"`
	SiteURL        string `envconfig:"SITE_URL"`
	SupportContact string `envconfig:"SUPPORT_CONTACT"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"backoffice"`
	User     string `envconfig:"DB_USER" default:"backoffice"`
	Password string `envconfig:"DB_PASSWORD"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := envconfig.Process("", &cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to process db env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and normalizes the storage driver
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}

	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	switch c.StorageDriver {
	case DriverMemory, DriverJSON, DriverSQLite:
	case DriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.RetentionDays <= 0 {
		return fmt.Errorf("RETENTION_DAYS must be positive")
	}
	return nil
}

// DSN returns PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}
