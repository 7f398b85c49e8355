// internal/config/config.go
package config

import (
	"fmt"
	"os"
)

// Config holds everything the payments service needs at process start.
// Values come from the environment; secrets are required, infrastructure
// endpoints fall back to local defaults.
type Config struct {
	// Database (PostgreSQL)
	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string

	// Kafka
	KafkaBroker         string
	PurchaseEventsTopic string
	DiagnosticsTopic    string
	ConsumerGroup       string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string

	// Identity service (verified-email lookups, claim elevation)
	IdentityBaseURL string

	// HTTP
	ListenAddr string
	// OAuthLandingURL is where the creator lands after a successful account
	// link (302 target of the /oauth callback).
	OAuthLandingURL string
}

// LoadConfig reads the environment. Missing secrets fail hard here rather
// than at first use.
func LoadConfig() (*Config, error) {
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}

	cfg := &Config{
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBHost:     envOr("DB_HOST", "localhost"),
		DBPort:     envOr("DB_PORT", "5432"),

		KafkaBroker:         envOr("KAFKA_BROKER", "localhost:9092"),
		PurchaseEventsTopic: envOr("PURCHASE_EVENTS_TOPIC", "purchase-events"),
		DiagnosticsTopic:    envOr("DIAGNOSTICS_TOPIC", "payment-diagnostics"),
		ConsumerGroup:       envOr("CONSUMER_GROUP", "payments-service"),

		StripeSecretKey:     stripeKey,
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		IdentityBaseURL: envOr("IDENTITY_BASE_URL", "http://identity-service:8081"),

		ListenAddr:      envOr("LISTEN_ADDR", ":8080"),
		OAuthLandingURL: envOr("OAUTH_LANDING_URL", "https://boardgamestar.com/my-account"),
	}
	return cfg, nil
}

// GetDBURL formats the config into a PostgreSQL connection string.
func (c *Config) GetDBURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
