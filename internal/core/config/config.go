package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tieiiikw/Laampay/internal/core/security"
)

type Config struct {
	Port        string
	DatabaseURL string
	Env         string

	GatewayURL string

	// ProviderPublicKey / MerchantPrivateKey hold PEM, either inline or as
	// a file path.
	ProviderPublicKey  string
	MerchantPrivateKey string
	VerifyMode         security.VerifyMode

	WithdrawDelay time.Duration

	KafkaBrokers []string

	WebhookURL    string
	WebhookSecret string
}

// LoadConfig reads .env and the environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on system env variables")
	}

	cfg := &Config{
		Port:               getEnv("PORT", "3000"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Env:                getEnv("ENV", "development"),
		GatewayURL:         getEnv("GATEWAY_URL", ""),
		ProviderPublicKey:  getEnv("PROVIDER_PUBLIC_KEY", ""),
		MerchantPrivateKey: getEnv("MERCHANT_PRIVATE_KEY", ""),
		VerifyMode:         security.VerifyMode(getEnv("VERIFY_MODE", string(security.ModeStrict))),
		WithdrawDelay:      getDuration("WITHDRAW_DELAY", 5*time.Second),
		WebhookURL:         getEnv("WEBHOOK_URL", ""),
		WebhookSecret:      getEnv("WEBHOOK_SECRET", ""),
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	// Permissive verification is a sandbox convenience; production always
	// rejects unverifiable callbacks.
	if cfg.Env == "production" && cfg.VerifyMode != security.ModeStrict {
		slog.Warn("forcing strict callback verification in production")
		cfg.VerifyMode = security.ModeStrict
	}

	return cfg
}

// PEM returns the PEM bytes for a key setting: inline content is used
// as-is, anything else is treated as a file path.
func PEM(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	if strings.Contains(value, "-----BEGIN") {
		return []byte(value), nil
	}
	return os.ReadFile(value)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration, using fallback", "key", key, "value", raw)
		return fallback
	}
	return d
}
