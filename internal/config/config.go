package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	SweepIntervalSeconds int `mapstructure:"SWEEP_INTERVAL_SECONDS"`
	ConsultMinutes       int `mapstructure:"CONSULT_MINUTES"`
	ArrivalBufferMinutes int `mapstructure:"ARRIVAL_BUFFER_MINUTES"`
	NotifyPosition       int `mapstructure:"NOTIFY_POSITION"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SWEEP_INTERVAL_SECONDS", 120)
	v.SetDefault("CONSULT_MINUTES", 10)
	v.SetDefault("ARRIVAL_BUFFER_MINUTES", 10)
	v.SetDefault("NOTIFY_POSITION", 2)
	v.SetDefault("SMTP_PORT", 587)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("SWEEP_INTERVAL_SECONDS")
	v.BindEnv("CONSULT_MINUTES")
	v.BindEnv("ARRIVAL_BUFFER_MINUTES")
	v.BindEnv("NOTIFY_POSITION")
	v.BindEnv("SMTP_HOST")
	v.BindEnv("SMTP_PORT")
	v.BindEnv("SMTP_USERNAME")
	v.BindEnv("SMTP_PASSWORD")
	v.BindEnv("SMTP_FROM")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SweepInterval returns the sweep period as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// Validate checks that the configuration is safe to run. Outside development
// mode a real SMTP gateway is required; in development the mail gateway logs
// instead of sending.
func (c *Config) Validate() error {
	if c.SweepIntervalSeconds < 1 {
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be at least 1, got %d", c.SweepIntervalSeconds)
	}
	if c.ConsultMinutes < 1 {
		return fmt.Errorf("CONSULT_MINUTES must be at least 1, got %d", c.ConsultMinutes)
	}
	if c.ArrivalBufferMinutes < 0 {
		return fmt.Errorf("ARRIVAL_BUFFER_MINUTES must not be negative, got %d", c.ArrivalBufferMinutes)
	}
	if c.NotifyPosition < 1 {
		return fmt.Errorf("NOTIFY_POSITION must be at least 1, got %d", c.NotifyPosition)
	}
	if !c.IsDev() {
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required outside development mode")
		}
		if c.SMTPFrom == "" {
			return fmt.Errorf("SMTP_FROM is required outside development mode")
		}
	}
	return nil
}
