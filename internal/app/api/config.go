package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const localPendingTimeout = 30 * time.Minute

// Config carries environment-driven settings for the API process.
type Config struct {
	Port        string
	Environment string
	PostgresDSN string
	RedisAddr   string

	// PendingTimeout bounds how long a reservation may hold stock.
	PendingTimeout time.Duration
	// ScanInterval paces the fallback expiry scanner.
	ScanInterval time.Duration

	PaymentSecret    string
	PaymentPayPage   string
	PaymentNotifyURL string
	PaymentReturnURL string
}

// LoadConfig reads environment variables, applies defaults, and validates
// basic constraints. The pending timeout has no production default: an
// operator must choose it deliberately, and only local environments get a
// fallback.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:             envDefault("PORT", "8080"),
		Environment:      envDefault("ENVIRONMENT", "local"),
		PostgresDSN:      strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		RedisAddr:        strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		PaymentSecret:    strings.TrimSpace(os.Getenv("PAYMENT_SECRET")),
		PaymentPayPage:   strings.TrimSpace(os.Getenv("PAYMENT_PAY_PAGE")),
		PaymentNotifyURL: strings.TrimSpace(os.Getenv("PAYMENT_NOTIFY_URL")),
		PaymentReturnURL: strings.TrimSpace(os.Getenv("PAYMENT_RETURN_URL")),
	}
	timeout, err := secondsEnv("ORDER_PENDING_TIMEOUT_SECONDS")
	if err != nil {
		return Config{}, err
	}
	switch {
	case timeout > 0:
		cfg.PendingTimeout = timeout
	case cfg.Environment == "local":
		cfg.PendingTimeout = localPendingTimeout
	default:
		return Config{}, fmt.Errorf("ORDER_PENDING_TIMEOUT_SECONDS is required when ENVIRONMENT=%s", cfg.Environment)
	}
	interval, err := secondsEnv("EXPIRY_SCAN_INTERVAL_SECONDS")
	if err != nil {
		return Config{}, err
	}
	cfg.ScanInterval = interval
	return cfg, nil
}

func secondsEnv(key string) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return time.Duration(seconds) * time.Second, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
