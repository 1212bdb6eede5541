package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	DatabaseURL     string   `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret       string   `mapstructure:"JWT_SECRET"`
	TokenTTLMinutes int      `mapstructure:"TOKEN_TTL_MINUTES"`
	VerifyToken     string   `mapstructure:"VERIFY_TOKEN"`
	WhatsAppToken   string   `mapstructure:"WHATSAPP_TOKEN"`
	PhoneNumberID   string   `mapstructure:"WHATSAPP_PHONE_NUMBER_ID"`
	WhatsAppAPIBase string   `mapstructure:"WHATSAPP_API_BASE"`
	AnthropicAPIKey string   `mapstructure:"ANTHROPIC_API_KEY"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	WelcomeMessage  string   `mapstructure:"WELCOME_MESSAGE"`
}

// DefaultWelcomeMessage greets a patient the first time they write in.
const DefaultWelcomeMessage = "Welcome to your care channel. Our team and virtual " +
	"assistant will check in with you here. Feel free to reply whenever it suits you."

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("TOKEN_TTL_MINUTES", 60)
	v.SetDefault("WHATSAPP_API_BASE", "https://graph.facebook.com/v20.0")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("WELCOME_MESSAGE", DefaultWelcomeMessage)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("TOKEN_TTL_MINUTES")
	v.BindEnv("VERIFY_TOKEN")
	v.BindEnv("WHATSAPP_TOKEN")
	v.BindEnv("WHATSAPP_PHONE_NUMBER_ID")
	v.BindEnv("WHATSAPP_API_BASE")
	v.BindEnv("ANTHROPIC_API_KEY")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("WELCOME_MESSAGE")

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

// ClassifierEnabled reports whether an AI classification service is configured.
// Without a key the ingestion pipeline still runs, just without enrichment.
func (c *Config) ClassifierEnabled() bool {
	return c.AnthropicAPIKey != ""
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret and a webhook verify token must be set so that the operator
// API and the provider subscription handshake are actually protected.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when ENV is not development")
		}
		if c.VerifyToken == "" {
			return fmt.Errorf("VERIFY_TOKEN is required when ENV is not development")
		}
	}
	if c.TokenTTLMinutes <= 0 {
		return fmt.Errorf("TOKEN_TTL_MINUTES must be positive, got %d", c.TokenTTLMinutes)
	}
	if c.WhatsAppToken != "" && c.PhoneNumberID == "" {
		return fmt.Errorf("WHATSAPP_PHONE_NUMBER_ID is required when WHATSAPP_TOKEN is set")
	}
	return nil
}
