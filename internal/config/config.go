// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"SERVER_TIMEOUT_SECONDS"`

	// Database Configuration
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Google OAuth Configuration
	GoogleClientID           string        `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret       string        `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI        string        `mapstructure:"GOOGLE_REDIRECT_URI"`
	OAuthStateCookieName     string        `mapstructure:"OAUTH_STATE_COOKIE_NAME"`
	OAuthIntentCookieName    string        `mapstructure:"OAUTH_INTENT_COOKIE_NAME"`
	OAuthCookieDomain        string        `mapstructure:"OAUTH_COOKIE_DOMAIN"`
	OAuthCookieSecure        bool          `mapstructure:"OAUTH_COOKIE_SECURE"`
	OAuthCookieHTTPOnly      bool          `mapstructure:"OAUTH_COOKIE_HTTP_ONLY"`
	OAuthCookieSameSite      string        `mapstructure:"OAUTH_COOKIE_SAME_SITE"`
	OAuthCookieMaxAgeMinutes int           `mapstructure:"OAUTH_COOKIE_MAX_AGE_MINUTES"`
	OAuthExchangeTimeout     time.Duration `mapstructure:"OAUTH_EXCHANGE_TIMEOUT_SECONDS"`

	// Stripe / Payment Configuration
	StripeSecretKey      string        `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret  string        `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	CheckoutSuccessURL   string        `mapstructure:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL    string        `mapstructure:"CHECKOUT_CANCEL_URL"`
	CheckoutTimeout      time.Duration `mapstructure:"CHECKOUT_TIMEOUT_SECONDS"`

	// Plan Catalog Configuration
	FreePlanTrialDays  int    `mapstructure:"FREE_PLAN_TRIAL_DAYS"`
	ProPlanPriceID     string `mapstructure:"PRO_PLAN_PRICE_ID"`
	PremiumPlanPriceID string `mapstructure:"PREMIUM_PLAN_PRICE_ID"`

	// Registration Flow Configuration
	PendingRegistrationTTL    time.Duration `mapstructure:"PENDING_REGISTRATION_TTL_HOURS"`
	RegistrationSweepSchedule string        `mapstructure:"REGISTRATION_SWEEP_SCHEDULE"`
	PostLoginRedirectURL      string        `mapstructure:"POST_LOGIN_REDIRECT_URL"`
	RegistrationRedirectURL   string        `mapstructure:"REGISTRATION_REDIRECT_URL"`

	// JWT Configuration
	JWTSecretKey       string        `mapstructure:"JWT_SECRET_KEY"`
	JWTAccessTokenTTL  time.Duration `mapstructure:"JWT_ACCESS_TOKEN_TTL_MINUTES"`
	JWTRefreshTokenTTL time.Duration `mapstructure:"JWT_REFRESH_TOKEN_TTL_HOURS"`
	JWTIssuer          string        `mapstructure:"JWT_ISSUER"`

	// Notification Relay Configuration
	NotificationRelayURL     string        `mapstructure:"NOTIFICATION_RELAY_URL"`
	NotificationRelayTimeout time.Duration `mapstructure:"NOTIFICATION_RELAY_TIMEOUT_SECONDS"`
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()

	// Set default values
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "bookline_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/v1/auth/google/callback")
	v.SetDefault("OAUTH_STATE_COOKIE_NAME", "bl_oauth_state")
	v.SetDefault("OAUTH_INTENT_COOKIE_NAME", "bl_oauth_intent")
	v.SetDefault("OAUTH_COOKIE_DOMAIN", "")
	v.SetDefault("OAUTH_COOKIE_SECURE", false)
	v.SetDefault("OAUTH_COOKIE_HTTP_ONLY", true)
	v.SetDefault("OAUTH_COOKIE_SAME_SITE", "Lax")
	v.SetDefault("OAUTH_COOKIE_MAX_AGE_MINUTES", 10)
	v.SetDefault("OAUTH_EXCHANGE_TIMEOUT_SECONDS", 10)

	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("CHECKOUT_SUCCESS_URL", "http://localhost:3000/registration/complete")
	v.SetDefault("CHECKOUT_CANCEL_URL", "http://localhost:3000/registration/cancelled")
	v.SetDefault("CHECKOUT_TIMEOUT_SECONDS", 10)

	v.SetDefault("FREE_PLAN_TRIAL_DAYS", 30)
	v.SetDefault("PRO_PLAN_PRICE_ID", "")
	v.SetDefault("PREMIUM_PLAN_PRICE_ID", "")

	v.SetDefault("PENDING_REGISTRATION_TTL_HOURS", 24)
	v.SetDefault("REGISTRATION_SWEEP_SCHEDULE", "@hourly")
	v.SetDefault("POST_LOGIN_REDIRECT_URL", "http://localhost:3000/app")
	v.SetDefault("REGISTRATION_REDIRECT_URL", "http://localhost:3000/register")

	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_ACCESS_TOKEN_TTL_MINUTES", 60)
	v.SetDefault("JWT_REFRESH_TOKEN_TTL_HOURS", 720)
	v.SetDefault("JWT_ISSUER", "bookline")

	v.SetDefault("NOTIFICATION_RELAY_URL", "")
	v.SetDefault("NOTIFICATION_RELAY_TIMEOUT_SECONDS", 5)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Convert duration fields
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.OAuthExchangeTimeout = time.Duration(v.GetInt("OAUTH_EXCHANGE_TIMEOUT_SECONDS")) * time.Second
	cfg.CheckoutTimeout = time.Duration(v.GetInt("CHECKOUT_TIMEOUT_SECONDS")) * time.Second
	cfg.PendingRegistrationTTL = time.Duration(v.GetInt("PENDING_REGISTRATION_TTL_HOURS")) * time.Hour
	cfg.JWTAccessTokenTTL = time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL_MINUTES")) * time.Minute
	cfg.JWTRefreshTokenTTL = time.Duration(v.GetInt("JWT_REFRESH_TOKEN_TTL_HOURS")) * time.Hour
	cfg.NotificationRelayTimeout = time.Duration(v.GetInt("NOTIFICATION_RELAY_TIMEOUT_SECONDS")) * time.Second

	// Basic validation for critical configs
	if strings.TrimSpace(cfg.JWTSecretKey) == "" {
		return nil, fmt.Errorf("FATAL: JWT_SECRET_KEY is not set. Session tokens cannot be issued without it")
	}
	if strings.TrimSpace(cfg.GoogleClientID) == "" || strings.TrimSpace(cfg.GoogleClientSecret) == "" {
		return nil, fmt.Errorf("FATAL: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required for the OAuth registration flow")
	}
	// Paid plans cannot be offered without a payment gateway to back them.
	if cfg.ProPlanPriceID != "" || cfg.PremiumPlanPriceID != "" {
		if strings.TrimSpace(cfg.StripeSecretKey) == "" {
			return nil, fmt.Errorf("FATAL: STRIPE_SECRET_KEY is not set but paid plan price ids are configured")
		}
		if strings.TrimSpace(cfg.StripeWebhookSecret) == "" {
			return nil, fmt.Errorf("FATAL: STRIPE_WEBHOOK_SECRET is not set but paid plan price ids are configured")
		}
	}

	return &cfg, nil
}
