// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTPTTL is the challenge lifetime (e.g. "10m").
	OTPTTL string `mapstructure:"OTP_TTL"`
	// OTPMaxAttempts is the verify attempt ceiling per challenge; default 3.
	OTPMaxAttempts int `mapstructure:"OTP_MAX_ATTEMPTS"`
	// OTPSweepInterval enables the periodic expiry sweeper when set (e.g. "1m").
	// Empty disables it; sweeps then piggyback on issue calls only.
	OTPSweepInterval string `mapstructure:"OTP_SWEEP_INTERVAL"`
	// OTPReturnToClient when true enables dev code mode: the plaintext code is
	// kept readable in-process instead of requiring a mailbox. Must not be true
	// when Env is production (Load fails).
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`

	// MailProvider selects the sender implementation: "api" or "smtp".
	MailProvider string `mapstructure:"MAIL_PROVIDER"`
	// MailFrom is the sender address on outgoing messages.
	MailFrom string `mapstructure:"MAIL_FROM"`
	// MailAPIKey is the bearer key for the transactional mail API.
	MailAPIKey string `mapstructure:"MAIL_API_KEY"`
	// MailAPIBaseURL is the transactional mail API endpoint.
	MailAPIBaseURL string `mapstructure:"MAIL_API_BASE_URL"`
	// SMTPHost, SMTPPort, SMTPUsername, SMTPPassword configure the SMTP sender.
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI). Env vars
// override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 3)
	v.SetDefault("OTP_SWEEP_INTERVAL", "")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("MAIL_PROVIDER", "api")
	v.SetDefault("MAIL_FROM", "no-reply@lead-console.local")
	v.SetDefault("MAIL_API_KEY", "")
	v.SetDefault("MAIL_API_BASE_URL", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 465)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.OTPReturnToClient && cfg.Env == "production" {
		return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	if cfg.OTPMaxAttempts < 1 {
		return nil, errors.New("config: OTP_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.MailProvider != "api" && cfg.MailProvider != "smtp" {
		return nil, errors.New("config: MAIL_PROVIDER must be \"api\" or \"smtp\"")
	}

	return &cfg, nil
}

// TTL parses OTPTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) TTL() time.Duration {
	d, err := time.ParseDuration(c.OTPTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// SweepInterval parses OTPSweepInterval as a time.Duration. Returns 0
// (sweeper disabled) if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	if c.OTPSweepInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.OTPSweepInterval)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}
