package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	SMSProviderArkesel = "arkesel"
	SMSProviderSNS     = "sns"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL"`
	RabbitMQURL string `env:"RABBITMQ_URL"`

	DBMaxOpenConns     int           `env:"DB_MAX_OPEN_CONNS,default=20"`
	DBMaxIdleConns     int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	DBConnMaxLifetime  time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`
	DBSlowQueryLogTime time.Duration `env:"DB_SLOW_QUERY_THRESHOLD,default=250ms"`

	SMSProvider string `env:"SMS_PROVIDER,default=arkesel"`
	SMSAPIURL   string `env:"SMS_API_URL,default=https://sms.arkesel.com/api/v2/sms/send"`
	SMSAPIKey   string `env:"SMS_API_KEY"`
	SMSSenderID string `env:"SMS_SENDER_ID,default=Awo)Pa"`
	SNSRegion   string `env:"SNS_REGION,default=eu-west-1"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,default=587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`
	AlertEmail   string `env:"ALERT_EMAIL"`

	ConnectivityCheckURL string        `env:"CONNECTIVITY_CHECK_URL,default=https://www.google.com"`
	ConnectivityInterval time.Duration `env:"CONNECTIVITY_INTERVAL,default=60s"`

	GatewayRateLimitPerSec int    `env:"GATEWAY_RATE_LIMIT_PER_SEC,default=10"`
	PinRateLimitPerSec     int    `env:"PIN_RATE_LIMIT_PER_SEC,default=5"`
	AlertConcurrency       int    `env:"ALERT_WORKER_CONCURRENCY,default=2"`
	VisitReminderCron      string `env:"VISIT_REMINDER_CRON,default=0 9 * * *"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.SMSProvider = strings.ToLower(strings.TrimSpace(c.SMSProvider))
	switch c.SMSProvider {
	case SMSProviderArkesel:
		if strings.TrimSpace(c.SMSAPIKey) == "" {
			return fmt.Errorf("SMS_API_KEY is required for the %s provider", SMSProviderArkesel)
		}
	case SMSProviderSNS:
	default:
		return fmt.Errorf("unsupported SMS_PROVIDER %q", c.SMSProvider)
	}

	if c.GatewayRateLimitPerSec <= 0 {
		return fmt.Errorf("GATEWAY_RATE_LIMIT_PER_SEC must be positive")
	}
	if c.PinRateLimitPerSec <= 0 {
		return fmt.Errorf("PIN_RATE_LIMIT_PER_SEC must be positive")
	}
	return nil
}

// EmailEnabled reports whether an SMTP relay is configured.
func (c *Config) EmailEnabled() bool {
	return strings.TrimSpace(c.SMTPHost) != "" && strings.TrimSpace(c.SMTPFrom) != ""
}
