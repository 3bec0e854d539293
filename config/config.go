package config

import (
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// devPINSecret is only used when no secret is configured; a warning is logged.
const devPINSecret = "dropshare-dev-secret"

type WebServerConfig struct {
	Port            string `mapstructure:"port"`
	IP              string `mapstructure:"ip"`
	Scheme          string `mapstructure:"scheme"`
	BaseURL         string `mapstructure:"base_url"`
	StaticDir       string `mapstructure:"static_dir"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type StorageConfig struct {
	UploadDir   string `mapstructure:"upload_dir"`
	MaxUploadMB int    `mapstructure:"max_upload_mb"`
	MaxFiles    int    `mapstructure:"max_files"`
}

type ShareConfig struct {
	PINSecret              string `mapstructure:"pin_secret"`
	SlugLength             int    `mapstructure:"slug_length"`
	MinSlugLength          int    `mapstructure:"min_slug_length"`
	MaxSlugLength          int    `mapstructure:"max_slug_length"`
	CleanupIntervalSeconds int    `mapstructure:"cleanup_interval_seconds"`
	LimitCleanupDelayMS    int    `mapstructure:"limit_cleanup_delay_ms"`
	SlugSuggestionsCount   int    `mapstructure:"slug_suggestions_count"` // alternatives offered when a custom slug is taken
}

type CacheConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxSizeMB   int  `mapstructure:"max_size_mb"`
	TTLSeconds  int  `mapstructure:"ttl_seconds"`
	CounterSize int  `mapstructure:"counter_size"`
}

type RedisConfig struct {
	Address          string `mapstructure:"address"`
	Password         string `mapstructure:"password"`
	DB               int    `mapstructure:"db"`
	PoolSize         int    `mapstructure:"pool_size"`
	MinIdleConns     int    `mapstructure:"min_idle_conns"`
	OperationTimeout int    `mapstructure:"operation_timeout"`
}

type NewsletterConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type EmailConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     string `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromEmail    string `mapstructure:"from_email"`
	FromName     string `mapstructure:"from_name"`
}

type AdminConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	APIKey     string `mapstructure:"api_key"`
	APIKeyHash string `mapstructure:"api_key_hash"` // bcrypt hash, preferred over api_key
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	WebServer  WebServerConfig  `mapstructure:"webserver"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Share      ShareConfig      `mapstructure:"share"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Newsletter NewsletterConfig `mapstructure:"newsletter"`
	Email      EmailConfig      `mapstructure:"email"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// BaseURL returns the configured public base URL, or one built from scheme, IP and port.
func (c Config) BaseURL() string {
	if c.WebServer.BaseURL != "" {
		return strings.TrimRight(c.WebServer.BaseURL, "/")
	}
	return c.WebServer.Scheme + "://" + c.WebServer.IP + ":" + c.WebServer.Port
}

// Validate checks values that would leave the registry unusable.
func (c *Config) Validate() error {
	if c.Share.PINSecret == "" {
		log.Warn().Msg("share.pin_secret not set, using development secret")
		c.Share.PINSecret = devPINSecret
	}
	if c.Share.CleanupIntervalSeconds <= 0 {
		return errors.New("share.cleanup_interval_seconds must be positive")
	}
	if c.Share.LimitCleanupDelayMS < 0 {
		return errors.New("share.limit_cleanup_delay_ms must not be negative")
	}
	if c.Share.SlugLength < 4 {
		return errors.New("share.slug_length must be at least 4")
	}
	if c.Share.MinSlugLength < 1 || c.Share.MaxSlugLength < c.Share.MinSlugLength {
		return errors.New("share.min_slug_length/max_slug_length out of range")
	}
	if c.Storage.UploadDir == "" {
		return errors.New("storage.upload_dir is required")
	}
	if c.Storage.MaxFiles <= 0 || c.Storage.MaxUploadMB <= 0 {
		return errors.New("storage.max_files and storage.max_upload_mb must be positive")
	}
	return nil
}

func LoadConfig() (Config, error) {
	var config Config

	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Enable environment variable overrides
	v.SetEnvPrefix("DROPSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, err
		}
		log.Info().Msg("No config file found, using defaults and environment")
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, err
	}

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func MustLoadConfig() Config {
	config, err := LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	return config
}

func setDefaults(v *viper.Viper) {
	// WebServer defaults
	v.SetDefault("webserver.port", "8080")
	v.SetDefault("webserver.ip", "127.0.0.1")
	v.SetDefault("webserver.scheme", "http")
	v.SetDefault("webserver.base_url", "")
	v.SetDefault("webserver.static_dir", "")
	v.SetDefault("webserver.read_timeout", 30)
	v.SetDefault("webserver.write_timeout", 0) // downloads can stream for a long time
	v.SetDefault("webserver.shutdown_timeout", 30)

	// Storage defaults
	v.SetDefault("storage.upload_dir", "./uploads")
	v.SetDefault("storage.max_upload_mb", 100)
	v.SetDefault("storage.max_files", 10)

	// Share defaults
	v.SetDefault("share.pin_secret", "")
	v.SetDefault("share.slug_length", 8)
	v.SetDefault("share.min_slug_length", 3)
	v.SetDefault("share.max_slug_length", 64)
	v.SetDefault("share.cleanup_interval_seconds", 60)
	v.SetDefault("share.limit_cleanup_delay_ms", 1000)
	v.SetDefault("share.slug_suggestions_count", 3)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size_mb", 16)
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("cache.counter_size", 100000)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.operation_timeout", 5)

	v.SetDefault("newsletter.enabled", false)

	// Email defaults
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", "587")
	v.SetDefault("email.smtp_username", "")
	v.SetDefault("email.smtp_password", "")
	v.SetDefault("email.from_email", "")
	v.SetDefault("email.from_name", "DropShare")

	// Admin defaults
	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.api_key", "")
	v.SetDefault("admin.api_key_hash", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", true)
}
