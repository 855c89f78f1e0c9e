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
	JWTSecret   string   `mapstructure:"JWT_SECRET"`
	TokenTTL    string   `mapstructure:"TOKEN_TTL"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	BloodBankAddr    string `mapstructure:"BLOODBANK_ADDR"`
	BloodBankTimeout string `mapstructure:"BLOODBANK_TIMEOUT"`
	SendingApp       string `mapstructure:"SENDING_APP"`
	SendingFac       string `mapstructure:"SENDING_FAC"`
	ReceivingApp     string `mapstructure:"RECEIVING_APP"`
	ReceivingFac     string `mapstructure:"RECEIVING_FAC"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("TOKEN_TTL", "2h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("BLOODBANK_TIMEOUT", "5s")
	v.SetDefault("SENDING_APP", "HEMOVIGIL")
	v.SetDefault("SENDING_FAC", "WARD")
	v.SetDefault("RECEIVING_APP", "LAB")
	v.SetDefault("RECEIVING_FAC", "BLOODBANK")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("TOKEN_TTL")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("BLOODBANK_ADDR")
	v.BindEnv("BLOODBANK_TIMEOUT")
	v.BindEnv("SENDING_APP")
	v.BindEnv("SENDING_FAC")
	v.BindEnv("RECEIVING_APP")
	v.BindEnv("RECEIVING_FAC")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

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

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// TokenTTLDuration parses TOKEN_TTL, falling back to two hours.
func (c *Config) TokenTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.TokenTTL)
	if err != nil || d <= 0 {
		return 2 * time.Hour
	}
	return d
}

// BloodBankTimeoutDuration parses BLOODBANK_TIMEOUT, falling back to 5s.
func (c *Config) BloodBankTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.BloodBankTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// Validate checks that the configuration is safe to run. Outside
// development a real JWT secret and a blood bank address are required.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when ENV is not development")
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.JWTSecret))
		}
		if c.BloodBankAddr == "" {
			return fmt.Errorf("BLOODBANK_ADDR is required when ENV is not development")
		}
	}
	if c.TokenTTL != "" {
		if _, err := time.ParseDuration(c.TokenTTL); err != nil {
			return fmt.Errorf("TOKEN_TTL is not a valid duration: %w", err)
		}
	}
	if c.BloodBankTimeout != "" {
		if _, err := time.ParseDuration(c.BloodBankTimeout); err != nil {
			return fmt.Errorf("BLOODBANK_TIMEOUT is not a valid duration: %w", err)
		}
	}
	return nil
}
