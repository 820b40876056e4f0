package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the client.
type Config struct {
	// StoreURL is the base URL of the remote store, e.g. https://xyz.supabase.co.
	StoreURL string
	// StoreKey is the anon/public API key sent with every request.
	StoreKey string
	// RequestTimeout bounds every individual store call.
	RequestTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present. The store endpoint and access key have
// no defaults: their absence is a startup error, not a runtime one.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		StoreURL:       strings.TrimSpace(os.Getenv("SITETRACK_STORE_URL")),
		StoreKey:       strings.TrimSpace(os.Getenv("SITETRACK_STORE_KEY")),
		RequestTimeout: parseTimeout(strings.TrimSpace(os.Getenv("SITETRACK_TIMEOUT_SECONDS"))),
	}

	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	if cfg.StoreURL == "" {
		return cfg, fmt.Errorf("SITETRACK_STORE_URL is required")
	}
	if cfg.StoreKey == "" {
		return cfg, fmt.Errorf("SITETRACK_STORE_KEY is required")
	}

	cfg.StoreURL = strings.TrimRight(cfg.StoreURL, "/")

	return cfg, nil
}

func parseTimeout(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw + "s")
	if err != nil || d <= 0 {
		return 0
	}
	return d
}
