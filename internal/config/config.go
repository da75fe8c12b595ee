package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ==================== Config ====================

type Config struct {
	App struct {
		Env      string `mapstructure:"env"`
		Name     string `mapstructure:"name"`
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"app"`

	Database struct {
		URL      string `mapstructure:"url"`
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"database"`

	Secret struct {
		EncryptionKey string `mapstructure:"encryption_key"`
	} `mapstructure:"secret"`

	Discord struct {
		Token string `mapstructure:"token"`
	} `mapstructure:"discord"`

	Ebay struct {
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
		Environment  string `mapstructure:"environment"`
		Scopes       string `mapstructure:"scopes"`
	} `mapstructure:"ebay"`

	Tracking struct {
		Provider          string  `mapstructure:"provider"`
		SeventeenTrackKey string  `mapstructure:"seventeen_track_key"`
		AfterShipKey      string  `mapstructure:"aftership_key"`
		RequestsPerSec    float64 `mapstructure:"requests_per_sec"`
	} `mapstructure:"tracking"`

	HTTP struct {
		Timeout    time.Duration `mapstructure:"timeout"`
		RetryCount int           `mapstructure:"retry_count"`
	} `mapstructure:"http"`

	Schedule struct {
		Mode           string        `mapstructure:"mode"`
		Timezone       string        `mapstructure:"timezone"`
		Hour           int           `mapstructure:"hour"`
		Minute         int           `mapstructure:"minute"`
		Interval       time.Duration `mapstructure:"interval"`
		AccountPause   time.Duration `mapstructure:"account_pause"`
		AccountTimeout time.Duration `mapstructure:"account_timeout"`
	} `mapstructure:"schedule"`

	Ops struct {
		Port            string        `mapstructure:"port"`
		AdminToken      string        `mapstructure:"admin_token"`
		TriggerCooldown time.Duration `mapstructure:"trigger_cooldown"`
	} `mapstructure:"ops"`
}

// legacy environment variable names, kept so existing deployments keep working
var envBindings = map[string]string{
	"app.env":                      "APP_ENV",
	"app.log_level":                "LOG_LEVEL",
	"database.url":                 "DATABASE_URL",
	"secret.encryption_key":        "TOKEN_ENCRYPTION_KEY",
	"discord.token":                "DISCORD_TOKEN",
	"ebay.client_id":               "EBAY_CLIENT_ID",
	"ebay.client_secret":           "EBAY_CLIENT_SECRET",
	"ebay.environment":             "EBAY_ENVIRONMENT",
	"ebay.scopes":                  "EBAY_OAUTH_SCOPES",
	"tracking.provider":            "TRACKING_PROVIDER",
	"tracking.seventeen_track_key": "SEVENTEENTRACK_API_KEY",
	"tracking.aftership_key":       "AFTERSHIP_API_KEY",
	"ops.port":                     "HTTP_PORT",
	"ops.admin_token":              "OPS_ADMIN_TOKEN",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.name", "ebay-shipping-notifier")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.log_level", "warn")

	v.SetDefault("ebay.environment", "production")
	v.SetDefault("ebay.scopes", "https://api.ebay.com/oauth/api_scope/sell.fulfillment.readonly")

	v.SetDefault("tracking.provider", "seventeen-track")
	v.SetDefault("tracking.requests_per_sec", 3.0)

	v.SetDefault("http.timeout", 20*time.Second)
	v.SetDefault("http.retry_count", 3)

	v.SetDefault("schedule.mode", "daily")
	v.SetDefault("schedule.timezone", "America/New_York")
	v.SetDefault("schedule.hour", 9)
	v.SetDefault("schedule.minute", 0)
	v.SetDefault("schedule.interval", 60*time.Second)
	v.SetDefault("schedule.account_pause", 250*time.Millisecond)
	v.SetDefault("schedule.account_timeout", 10*time.Minute)

	v.SetDefault("ops.port", "8080")
	v.SetDefault("ops.trigger_cooldown", time.Minute)
}

// Load reads .env, an optional config file and the environment.
// path may be empty, in which case ./config.yaml is tried.
func Load(path string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the process cannot start without
func (c *Config) Validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(c.Secret.EncryptionKey) < 32 {
		errs = append(errs, errors.New("TOKEN_ENCRYPTION_KEY must be at least 32 characters"))
	}
	if c.Ebay.ClientID == "" || c.Ebay.ClientSecret == "" {
		errs = append(errs, errors.New("EBAY_CLIENT_ID and EBAY_CLIENT_SECRET are required"))
	}
	switch c.Ebay.Environment {
	case "production", "sandbox":
	default:
		errs = append(errs, fmt.Errorf("unknown eBay environment %q", c.Ebay.Environment))
	}
	switch c.Schedule.Mode {
	case "daily", "interval":
	default:
		errs = append(errs, fmt.Errorf("unknown schedule mode %q", c.Schedule.Mode))
	}
	if c.Schedule.Mode == "interval" && c.Schedule.Interval <= 0 {
		errs = append(errs, errors.New("schedule.interval must be positive"))
	}

	return errors.Join(errs...)
}

// TrackingKey returns the API key for the selected tracking provider
func (c *Config) TrackingKey() string {
	if c.Tracking.Provider == "aftership" {
		return c.Tracking.AfterShipKey
	}
	return c.Tracking.SeventeenTrackKey
}
