package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL     string
	Port            string
	UnlockJWTSecret string

	// Lockout tuning
	LockThreshold int
	LockDuration  time.Duration

	// Token lifetimes
	TrustTokenTTL    time.Duration
	DownloadTokenTTL time.Duration
	UnlockProofTTL   time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:             "8080",
		LockThreshold:    5,
		LockDuration:     15 * time.Minute,
		TrustTokenTTL:    30 * 24 * time.Hour,
		DownloadTokenTTL: 10 * time.Minute,
		UnlockProofTTL:   10 * time.Minute,
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.DatabaseURL = databaseURL

	secret := os.Getenv("UNLOCK_JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("UNLOCK_JWT_SECRET environment variable is required")
	}
	cfg.UnlockJWTSecret = secret

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	var err error
	if cfg.LockThreshold, err = intEnv("LOCK_THRESHOLD", cfg.LockThreshold); err != nil {
		return nil, err
	}
	if cfg.LockDuration, err = durationEnv("LOCK_DURATION", cfg.LockDuration); err != nil {
		return nil, err
	}
	if cfg.TrustTokenTTL, err = durationEnv("TRUST_TOKEN_TTL", cfg.TrustTokenTTL); err != nil {
		return nil, err
	}
	if cfg.DownloadTokenTTL, err = durationEnv("DOWNLOAD_TOKEN_TTL", cfg.DownloadTokenTTL); err != nil {
		return nil, err
	}
	if cfg.UnlockProofTTL, err = durationEnv("UNLOCK_PROOF_TTL", cfg.UnlockProofTTL); err != nil {
		return nil, err
	}

	return cfg, nil
}

// intEnv reads a positive integer from the environment, keeping the fallback
// when the variable is unset.
func intEnv(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, v)
	}
	return n, nil
}

// durationEnv reads a Go duration (e.g. "15m", "720h") from the environment
func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", name, v)
	}
	return d, nil
}
