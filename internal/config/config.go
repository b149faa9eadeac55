package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Outbox     OutboxConfig     `mapstructure:"outbox"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Booking    BookingConfig    `mapstructure:"booking"`
	PayFast    PayFastConfig    `mapstructure:"payfast"`
	Membership MembershipConfig `mapstructure:"membership"`
	SMTP       SMTPConfig       `mapstructure:"smtp"`
	Log        LogConfig        `mapstructure:"log"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	Retention     time.Duration `mapstructure:"retention"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type MonitoringConfig struct {
	MetricsPrefix string `mapstructure:"metrics_prefix"`
}

type BookingConfig struct {
	// BookingFee is the platform fee as a decimal string, e.g. "10.00".
	BookingFee             string `mapstructure:"booking_fee"`
	SlotGranularityMinutes int    `mapstructure:"slot_granularity_minutes"`

	// Timezone is the IANA zone appointment times are given in.
	Timezone string `mapstructure:"timezone"`
}

type PayFastConfig struct {
	MerchantID  string `mapstructure:"merchant_id"`
	MerchantKey string `mapstructure:"merchant_key"`
	Passphrase  string `mapstructure:"passphrase"`
	Sandbox     bool   `mapstructure:"sandbox"`
	NotifyURL   string `mapstructure:"notify_url"`
	ReturnURL   string `mapstructure:"return_url"`
	CancelURL   string `mapstructure:"cancel_url"`
	// MembershipReturnURL and MembershipCancelURL fall back to ReturnURL/CancelURL.
	MembershipReturnURL string        `mapstructure:"membership_return_url"`
	MembershipCancelURL string        `mapstructure:"membership_cancel_url"`
	DedupTTL            time.Duration `mapstructure:"dedup_ttl"`
}

type MembershipPlan struct {
	Amount       string `mapstructure:"amount"`
	ItemName     string `mapstructure:"item_name"`
	ValidityDays int    `mapstructure:"validity_days"`
}

type MembershipConfig struct {
	Plans map[string]MembershipPlan `mapstructure:"plans"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// secrets are read from the environment only and override file values.
type secrets struct {
	DBPassword         string `envconfig:"DB_PASSWORD"`
	DBHost             string `envconfig:"DB_HOST"`
	JWTSecret          string `envconfig:"JWT_SECRET"`
	RedisURL           string `envconfig:"REDIS_URL"`
	PayFastMerchantID  string `envconfig:"PAYFAST_MERCHANT_ID"`
	PayFastMerchantKey string `envconfig:"PAYFAST_MERCHANT_KEY"`
	PayFastPassphrase  string `envconfig:"PAYFAST_PASSPHRASE"`
	SMTPPassword       string `envconfig:"SMTP_PASSWORD"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("jwt.issuer", "medmap")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", 2*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", 5*time.Second)
	v.SetDefault("outbox.retention", 24*time.Hour)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("monitoring.metrics_prefix", "medmap")
	v.SetDefault("booking.booking_fee", "10.00")
	v.SetDefault("booking.slot_granularity_minutes", 30)
	v.SetDefault("booking.timezone", "UTC")
	v.SetDefault("payfast.sandbox", true)
	v.SetDefault("payfast.dedup_ttl", 10*time.Minute)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yml and layers environment secrets on top.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app/config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applySecrets(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applySecrets(cfg *Config) error {
	var s secrets
	if err := envconfig.Process("", &s); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	override := func(dst *string, value string) {
		if value != "" {
			*dst = value
		}
	}
	override(&cfg.Database.Password, s.DBPassword)
	override(&cfg.Database.Host, s.DBHost)
	override(&cfg.JWT.Secret, s.JWTSecret)
	override(&cfg.Redis.URL, s.RedisURL)
	override(&cfg.PayFast.MerchantID, s.PayFastMerchantID)
	override(&cfg.PayFast.MerchantKey, s.PayFastMerchantKey)
	override(&cfg.PayFast.Passphrase, s.PayFastPassphrase)
	override(&cfg.SMTP.Password, s.SMTPPassword)
	return nil
}
