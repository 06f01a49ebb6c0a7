package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Operator  OperatorConfig  `mapstructure:"operator"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	// WebhookSecrets is comma-separated; multiple entries support
	// zero-downtime secret rotation.
	WebhookSecrets string `mapstructure:"webhook_secrets"`
}

type DispatchConfig struct {
	Secret  string        `mapstructure:"secret"`
	Header  string        `mapstructure:"header"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SweepConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Lookback time.Duration `mapstructure:"lookback"`
	PageSize int           `mapstructure:"page_size"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type RateLimitConfig struct {
	WebhookRPS   float64 `mapstructure:"webhook_rps"`
	WebhookBurst int     `mapstructure:"webhook_burst"`
	AuthRPS      float64 `mapstructure:"auth_rps"`
	AuthBurst    int     `mapstructure:"auth_burst"`
}

type OperatorConfig struct {
	Token string `mapstructure:"token"`
}

// secretOverrides carries the values that should come from the environment in
// production rather than from the config file.
type secretOverrides struct {
	ProviderAPIKey   string `envconfig:"PROVIDER_API_KEY"`
	WebhookSecrets   string `envconfig:"PROVIDER_WEBHOOK_SECRETS"`
	DispatchSecret   string `envconfig:"PAYMENTS_EVENTS_SECRET"`
	JWTSecret        string `envconfig:"JWT_SECRET"`
	OperatorToken    string `envconfig:"OPERATOR_TOKEN"`
	DatabasePassword string `envconfig:"DB_PASSWORD"`
	RedisURL         string `envconfig:"REDIS_URL"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var secrets secretOverrides
	if err := envconfig.Process("", &secrets); err != nil {
		return nil, fmt.Errorf("failed to read secret overrides: %w", err)
	}
	applyOverrides(&config, secrets)
	applyDefaults(&config)

	return &config, nil
}

func applyOverrides(config *Config, secrets secretOverrides) {
	if secrets.ProviderAPIKey != "" {
		config.Provider.APIKey = secrets.ProviderAPIKey
	}
	if secrets.WebhookSecrets != "" {
		config.Provider.WebhookSecrets = secrets.WebhookSecrets
	}
	if secrets.DispatchSecret != "" {
		config.Dispatch.Secret = secrets.DispatchSecret
	}
	if secrets.JWTSecret != "" {
		config.JWT.Secret = secrets.JWTSecret
	}
	if secrets.OperatorToken != "" {
		config.Operator.Token = secrets.OperatorToken
	}
	if secrets.DatabasePassword != "" {
		config.Database.Password = secrets.DatabasePassword
	}
	if secrets.RedisURL != "" {
		config.Redis.URL = secrets.RedisURL
	}
}

func applyDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = 4242
	}
	if config.Dispatch.Header == "" {
		config.Dispatch.Header = "X-Payments-Signature"
	}
	if config.Dispatch.Path == "" {
		config.Dispatch.Path = "/payments/events/"
	}
	if config.Dispatch.Timeout <= 0 {
		config.Dispatch.Timeout = 5 * time.Second
	}
	if config.Sweep.Interval <= 0 {
		config.Sweep.Interval = 10 * time.Minute
	}
	if config.Sweep.Lookback <= 0 {
		config.Sweep.Lookback = 60 * time.Minute
	}
	if config.Sweep.PageSize <= 0 {
		config.Sweep.PageSize = 50
	}
	if config.Sweep.LockTTL <= 0 {
		config.Sweep.LockTTL = config.Sweep.Interval
	}
	if config.JWT.AccessTTL <= 0 {
		config.JWT.AccessTTL = 15 * time.Minute
	}
	if config.JWT.RefreshTTL <= 0 {
		config.JWT.RefreshTTL = 7 * 24 * time.Hour
	}
	if config.RateLimit.WebhookRPS <= 0 {
		config.RateLimit.WebhookRPS = 5
	}
	if config.RateLimit.WebhookBurst <= 0 {
		config.RateLimit.WebhookBurst = 20
	}
	if config.RateLimit.AuthRPS <= 0 {
		config.RateLimit.AuthRPS = 1
	}
	if config.RateLimit.AuthBurst <= 0 {
		config.RateLimit.AuthBurst = 5
	}
}
