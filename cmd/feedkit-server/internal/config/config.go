// Package config provides configuration management for the feedkit callback server.
// Values come from defaults, an optional config file and FEEDKIT_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. FEEDKIT_CALLBACK_BASE_URL.
const EnvPrefix = "FEEDKIT"

// ServerConfig defines the HTTP server parameters
type ServerConfig struct {
	// ListenOn is the interface the HTTP server will listen on
	ListenOn string `mapstructure:"listen_on" json:"listen_on" validate:"required,ip"`
	// Port is the port the HTTP server will listen on
	Port uint16 `mapstructure:"listen_port" json:"listen_port" validate:"required,gt=0"`
	// ReadTimeout is the maximum duration for reading a request in seconds
	ReadTimeout int `mapstructure:"read_timeout_sec" json:"read_timeout_sec" validate:"gte=0"`
	// WriteTimeout is the maximum duration for writing a response in seconds
	WriteTimeout int `mapstructure:"write_timeout_sec" json:"write_timeout_sec" validate:"gte=0"`
	// IdleTimeout is the keep-alive idle timeout in seconds
	IdleTimeout int `mapstructure:"idle_timeout_sec" json:"idle_timeout_sec" validate:"gte=0"`
	// APIRateLimit is the sustained /api/v1 request rate per second, 0 disables limiting
	APIRateLimit float64 `mapstructure:"api_rate_limit" json:"api_rate_limit" validate:"gte=0"`
	// APIRateBurst is the /api/v1 burst size
	APIRateBurst int `mapstructure:"api_rate_burst" json:"api_rate_burst" validate:"gte=1"`
	// CORSAllowedOrigins lists browser origins allowed to call the API
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins" json:"cors_allowed_origins" validate:"dive,url"`
}

// CallbackConfig defines the public callback endpoint
type CallbackConfig struct {
	// BaseURL is the externally reachable callback URL; subscription keys are appended to it
	BaseURL string `mapstructure:"base_url" json:"base_url" validate:"required,url"`
	// SubscriberCount is reported to hubs in X-Hub-On-Behalf-Of
	SubscriberCount int `mapstructure:"subscriber_count" json:"subscriber_count" validate:"gte=1"`
}

// DatabaseConfig defines the SQL store connection
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" json:"driver" validate:"required,oneof=mysql postgres sqlite3"`
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port" validate:"gte=0"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"-"`
	Database string `mapstructure:"name" json:"name" validate:"required"`
	// Migrate applies the embedded schema migrations at startup
	Migrate bool `mapstructure:"migrate" json:"migrate"`
}

// RedisConfig defines the Redis store connection
type RedisConfig struct {
	Addr      string `mapstructure:"addr" json:"addr" validate:"required,hostname_port"`
	Password  string `mapstructure:"password" json:"-"`
	DB        int    `mapstructure:"db" json:"db" validate:"gte=0"`
	KeyPrefix string `mapstructure:"key_prefix" json:"key_prefix"`
}

// StoreConfig selects and configures the subscription backend
type StoreConfig struct {
	Backend  string         `mapstructure:"backend" json:"backend" validate:"required,oneof=sql redis memory"`
	Database DatabaseConfig `mapstructure:"database" json:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis" json:"redis" validate:"required"`
}

// PurgeConfig defines the expired subscription purge loop
type PurgeConfig struct {
	IntervalSec int `mapstructure:"interval_sec" json:"interval_sec" validate:"gte=1"`
	BatchSize   int `mapstructure:"batch_size" json:"batch_size" validate:"gte=1"`
}

// Config defines the complete server config
type Config struct {
	Server        ServerConfig   `mapstructure:"server" json:"server" validate:"required"`
	Callback      CallbackConfig `mapstructure:"callback" json:"callback" validate:"required"`
	Store         StoreConfig    `mapstructure:"store" json:"store" validate:"required"`
	Purge         PurgeConfig    `mapstructure:"purge" json:"purge" validate:"required"`
	Notifications bool           `mapstructure:"notifications" json:"notifications"`
}

// InstallDefaultConfigValues installs default config parameters in v
func InstallDefaultConfigValues(v *viper.Viper) {
	v.SetDefault("server.listen_on", "0.0.0.0")
	v.SetDefault("server.listen_port", 8080)
	v.SetDefault("server.read_timeout_sec", 15)
	v.SetDefault("server.write_timeout_sec", 15)
	v.SetDefault("server.idle_timeout_sec", 60)
	v.SetDefault("server.api_rate_limit", 10)
	v.SetDefault("server.api_rate_burst", 20)
	v.SetDefault("server.cors_allowed_origins", []string{})

	v.SetDefault("callback.base_url", "http://localhost:8080/callback")
	v.SetDefault("callback.subscriber_count", 1)

	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.database.driver", "sqlite3")
	v.SetDefault("store.database.host", "localhost")
	v.SetDefault("store.database.port", 0)
	v.SetDefault("store.database.user", "")
	v.SetDefault("store.database.password", "")
	v.SetDefault("store.database.name", "feedkit.db")
	v.SetDefault("store.database.migrate", true)
	v.SetDefault("store.redis.addr", "127.0.0.1:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key_prefix", "feedkit:")

	v.SetDefault("purge.interval_sec", 60)
	v.SetDefault("purge.batch_size", 100)

	v.SetDefault("notifications", true)
}

// Load builds the config from defaults, configFile (if set) and the environment,
// then validates it.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	InstallDefaultConfigValues(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	return Parse(v)
}

// Parse unmarshals and validates the config held by v.
func Parse(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// DSN returns the database connection string for the configured driver.
func (c DatabaseConfig) DSN() string {
	switch strings.ToLower(c.Driver) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case "sqlite3":
		return c.Database // file path or :memory:
	default:
		return ""
	}
}
