package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "SPONSORDESK"

type Config struct {
	DatabaseURL    string           `mapstructure:"database_url"`
	ServerPort     string           `mapstructure:"server_port"`
	AllowedOrigins []string         `mapstructure:"allowed_origins"`
	LogLevel       string           `mapstructure:"log_level"`
	Auth           AuthConfig       `mapstructure:"auth"`
	Derivation     DerivationConfig `mapstructure:"derivation"`
	Temporal       TemporalConfig   `mapstructure:"temporal"`
	Broker         BrokerConfig     `mapstructure:"broker"`
	Email          EmailConfig      `mapstructure:"email"`
}

type AuthConfig struct {
	JWTSecret                string        `mapstructure:"jwt_secret"`
	TokenTTL                 time.Duration `mapstructure:"token_ttl"`
	RequireEmailConfirmation bool          `mapstructure:"require_email_confirmation"`
	ConfirmURLTemplate       string        `mapstructure:"confirm_url_template"`
	// RateLimit is the sustained number of login/signup attempts per minute per client.
	RateLimit int `mapstructure:"rate_limit"`
	RateBurst int `mapstructure:"rate_burst"`
}

// DerivationConfig controls the notification scan loop.
type DerivationConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Mode        string        `mapstructure:"mode"`
	InitialScan bool          `mapstructure:"initial_scan"`
}

const (
	DerivationModeLocal    = "local"
	DerivationModeTemporal = "temporal"
)

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	// MaxConcurrentScans caps parallel derivation activities per worker.
	MaxConcurrentScans int `mapstructure:"max_concurrent_scans"`
}

// BrokerConfig enables the outbound notification publishers. Empty URLs leave them off.
type BrokerConfig struct {
	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPExchange string `mapstructure:"amqp_exchange"`
	NATSURL      string `mapstructure:"nats_url"`
	NATSSubject  string `mapstructure:"nats_subject"`
}

type EmailConfig struct {
	From     string `mapstructure:"from"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// NotifyHighPriority mails every high-priority notification to its owner.
	NotifyHighPriority bool `mapstructure:"notify_high_priority"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "")
	v.SetDefault("server_port", "8080")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("log_level", "info")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 72*time.Hour)
	v.SetDefault("auth.require_email_confirmation", false)
	v.SetDefault("auth.confirm_url_template", "http://localhost:5173/confirm?token=%s")
	v.SetDefault("auth.rate_limit", 10)
	v.SetDefault("auth.rate_burst", 5)

	v.SetDefault("derivation.interval", 60*time.Minute)
	v.SetDefault("derivation.mode", DerivationModeLocal)
	v.SetDefault("derivation.initial_scan", true)

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "sponsordesk-derivation")
	v.SetDefault("temporal.max_concurrent_scans", 4)

	v.SetDefault("broker.amqp_url", "")
	v.SetDefault("broker.amqp_exchange", "sponsordesk.notifications")
	v.SetDefault("broker.nats_url", "")
	v.SetDefault("broker.nats_subject", "sponsordesk.notifications")

	v.SetDefault("email.from", "")
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.notify_high_priority", false)
}

// Load reads .env, config.yaml and SPONSORDESK_* variables, exiting on invalid configuration.
func Load() *Config {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := LoadFrom(".", "./config")
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	return cfg
}

// LoadFrom reads an optional config.yaml from the given directories and applies
// environment overrides.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
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

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("database_url must be set")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth.jwt_secret must be set")
	}
	if c.Derivation.Interval <= 0 {
		return errors.New("derivation.interval must be positive")
	}
	switch c.Derivation.Mode {
	case DerivationModeLocal, DerivationModeTemporal:
	default:
		return fmt.Errorf("derivation.mode must be %q or %q, got %q", DerivationModeLocal, DerivationModeTemporal, c.Derivation.Mode)
	}
	if (c.Auth.RequireEmailConfirmation || c.Email.NotifyHighPriority) && c.Email.SMTPHost == "" {
		return errors.New("email.smtp_host must be set when confirmation or notification mail is enabled")
	}
	return nil
}
