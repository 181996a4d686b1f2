package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrConfiguration wraps every load or validation failure.
var ErrConfiguration = errors.New("configuration error")

const envPrefix = "AIPS"

var defaults = map[string]any{
	"environment": "development",

	"log.level": "info",

	"database.driver":            "sqlite",
	"database.dsn":               "file:ai_post_scheduler.db?_time_format=sqlite",
	"database.max_open_conns":    25,
	"database.max_idle_conns":    25,
	"database.conn_max_lifetime": 5 * time.Minute,

	"scheduler.poll_spec":    "@every 1m",
	"scheduler.batch_size":   5,
	"scheduler.concurrency":  2,
	"scheduler.timezone":     "Local",
	"scheduler.max_catch_up": 100,
	"scheduler.job_timeout":  10 * time.Minute,

	"ai.api_key":           "",
	"ai.model":             "gemini-2.0-flash",
	"ai.temperature":       0.7,
	"ai.max_output_tokens": 2000,
	"ai.timeout":           2 * time.Minute,

	"resilience.retry.enabled":       true,
	"resilience.retry.max_attempts":  3,
	"resilience.retry.initial_delay": time.Second,
	"resilience.retry.max_delay":     30 * time.Second,

	"resilience.circuit_breaker.enabled":           true,
	"resilience.circuit_breaker.failure_threshold": 5,
	"resilience.circuit_breaker.timeout":           60 * time.Second,

	"resilience.rate_limit.enabled":             true,
	"resilience.rate_limit.requests_per_minute": 20,

	"posts.default_status":   "draft",
	"posts.default_category": "",
	"posts.default_author":   "",

	"site.name":        "My Blog",
	"site.description": "",

	"telegram.token":    "",
	"telegram.admin_id": 0,

	"mcp.enabled": false,
	"mcp.listen":  ":8080",
	"mcp.token":   "",

	"events.amqp_url": "",
	"events.exchange": "ai_post_scheduler",
}

// Environment variable names kept from earlier deployments.
var legacyEnv = map[string]string{
	"database.dsn":      "DATABASE_URL",
	"telegram.token":    "TELEGRAM_TOKEN",
	"telegram.admin_id": "ADMIN_TELEGRAM_ID",
	"log.level":         "LOG_LEVEL",
	"environment":       "ENVIRONMENT",
}

// AppConfig holds all configuration for the application.
// Values come from defaults, an optional config.yaml and AIPS_* environment variables.
type AppConfig struct {
	Environment string           `mapstructure:"environment" validate:"required,oneof=development staging production test"`
	Log         LogConfig        `mapstructure:"log"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Scheduler   SchedulerConfig  `mapstructure:"scheduler"`
	AI          AIConfig         `mapstructure:"ai"`
	Resilience  ResilienceConfig `mapstructure:"resilience"`
	Posts       PostsConfig      `mapstructure:"posts"`
	Site        SiteConfig       `mapstructure:"site"`
	Telegram    TelegramConfig   `mapstructure:"telegram"`
	MCP         MCPConfig        `mapstructure:"mcp"`
	Events      EventsConfig     `mapstructure:"events"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=trace debug info warn warning error fatal panic"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type SchedulerConfig struct {
	PollSpec    string        `mapstructure:"poll_spec" validate:"required"`
	BatchSize   int           `mapstructure:"batch_size" validate:"min=1,max=100"`
	Concurrency int           `mapstructure:"concurrency" validate:"min=1,max=32"`
	Timezone    string        `mapstructure:"timezone"`
	MaxCatchUp  int           `mapstructure:"max_catch_up" validate:"min=1"`
	JobTimeout  time.Duration `mapstructure:"job_timeout" validate:"min=1s"`
}

type AIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model" validate:"required"`
	Temperature     float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens" validate:"min=1"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"min=1s,max=10m"`
}

type ResilienceConfig struct {
	Retry          RetryConfig          `mapstructure:"retry"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
}

type RetryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"min=1,max=10"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay" validate:"gtefield=InitialDelay"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold int           `mapstructure:"failure_threshold" validate:"min=1"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"min=1s"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" validate:"min=1"`
}

type PostsConfig struct {
	DefaultStatus   string `mapstructure:"default_status" validate:"oneof=draft publish pending"`
	DefaultCategory string `mapstructure:"default_category"`
	DefaultAuthor   string `mapstructure:"default_author"`
}

type SiteConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

type TelegramConfig struct {
	Token   string `mapstructure:"token"`
	AdminID int64  `mapstructure:"admin_id" validate:"required_with=Token"`
}

type MCPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen" validate:"required_if=Enabled true"`
	Token   string `mapstructure:"token"`
}

type EventsConfig struct {
	AMQPURL  string `mapstructure:"amqp_url" validate:"omitempty,url"`
	Exchange string `mapstructure:"exchange" validate:"required_with=AMQPURL"`
}

// Load reads configuration from defaults, the config file and the environment.
// An empty configFile looks for config.yaml in the working directory; a missing file is fine.
func Load(configFile string) (*AppConfig, error) {
	// .env never overrides variables that are already set.
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("%w: binding %s: %v", ErrConfiguration, key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}
	cfg.Environment = strings.ToLower(cfg.Environment)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the scheduler timezone.
func (c *AppConfig) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: invalid scheduler timezone %q: %v", ErrConfiguration, c.Scheduler.Timezone, err)
	}
	return nil
}

// Location resolves the scheduler timezone. Empty means the server's local time.
func (c *AppConfig) Location() (*time.Location, error) {
	if c.Scheduler.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Scheduler.Timezone)
}

// IsProduction reports whether logs should be machine readable.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "staging"
}
