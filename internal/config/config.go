package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	GatewayURL      string   `mapstructure:"GATEWAY_URL"`
	GatewayAnonKey  string   `mapstructure:"GATEWAY_ANON_KEY"`
	GatewayJWTKey   string   `mapstructure:"GATEWAY_JWT_SECRET"`
	GatewayBucket   string   `mapstructure:"GATEWAY_BUCKET"`
	GeocodingAPIKey string   `mapstructure:"GEOCODING_API_KEY"`
	WhatsAppNumber  string   `mapstructure:"EMERGENCY_WHATSAPP_NUMBER"`
	RequireLocation bool     `mapstructure:"EMERGENCY_REQUIRE_LOCATION"`
	SubmitTimeoutMS int      `mapstructure:"SUBMIT_TIMEOUT_MS"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("GATEWAY_BUCKET", "prescriptions")
	v.SetDefault("EMERGENCY_WHATSAPP_NUMBER", "919395072164")
	v.SetDefault("EMERGENCY_REQUIRE_LOCATION", true)
	v.SetDefault("SUBMIT_TIMEOUT_MS", 15000)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("GATEWAY_URL")
	v.BindEnv("GATEWAY_ANON_KEY")
	v.BindEnv("GATEWAY_JWT_SECRET")
	v.BindEnv("GATEWAY_BUCKET")
	v.BindEnv("GEOCODING_API_KEY")
	v.BindEnv("EMERGENCY_WHATSAPP_NUMBER")
	v.BindEnv("EMERGENCY_REQUIRE_LOCATION")
	v.BindEnv("SUBMIT_TIMEOUT_MS")
	v.BindEnv("CORS_ORIGINS")

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

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SubmitTimeout is the bounded wait applied to each form submission attempt.
func (c *Config) SubmitTimeout() time.Duration {
	if c.SubmitTimeoutMS <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.SubmitTimeoutMS) * time.Millisecond
}

// GeocodingEnabled reports whether reverse geocoding is configured. A missing
// credential degrades location capture to raw coordinates, it is not an error.
func (c *Config) GeocodingEnabled() bool {
	return c.GeocodingAPIKey != ""
}

// Validate checks that the configuration is safe to run. Outside development
// mode a gateway URL is required; the in-memory gateway is a development
// convenience only.
func (c *Config) Validate() error {
	if !c.IsDev() && c.GatewayURL == "" {
		return fmt.Errorf(
			"GATEWAY_URL must be set when ENV is not development (current ENV=%q). "+
				"Refusing to start without a remote data gateway", c.Env)
	}
	if c.WhatsAppNumber == "" {
		return fmt.Errorf("EMERGENCY_WHATSAPP_NUMBER is required")
	}
	if strings.ContainsAny(c.WhatsAppNumber, "+ -()") {
		return fmt.Errorf("EMERGENCY_WHATSAPP_NUMBER must be digits only in international format, got %q", c.WhatsAppNumber)
	}
	return nil
}
