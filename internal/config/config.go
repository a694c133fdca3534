package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string        // COOP_DATABASE_URL (required)
	HTTPAddr    string        // COOP_HTTP_ADDR (default ":8080")
	NATSURL     string        // COOP_NATS_URL (optional, empty = no cross-process invalidation)
	AuthToken   string        // COOP_AUTH_TOKEN (optional, empty = auth disabled)
	CacheTTL    time.Duration // COOP_CONFIG_CACHE_TTL (default 5m)
	Schema      string        // COOP_SCHEMA ("canonical" or "legacy", default "canonical")

	// Rate limiting, per client
	RateLimit float64 // COOP_RATE_LIMIT requests/sec (default 20; 0 = disabled)
	RateBurst int     // COOP_RATE_BURST (default 40)

	// Sync settings
	SyncInterval   time.Duration // COOP_SYNC_INTERVAL (default 0 = disabled)
	SyncS3Bucket   string        // COOP_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // COOP_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // COOP_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // COOP_SYNC_S3_KEY (default "coop/config-snapshot.jsonl")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:    os.Getenv("COOP_DATABASE_URL"),
		HTTPAddr:       envOrDefault("COOP_HTTP_ADDR", ":8080"),
		NATSURL:        os.Getenv("COOP_NATS_URL"),
		AuthToken:      os.Getenv("COOP_AUTH_TOKEN"),
		Schema:         envOrDefault("COOP_SCHEMA", "canonical"),
		SyncS3Bucket:   os.Getenv("COOP_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("COOP_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("COOP_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("COOP_SYNC_S3_KEY", "coop/config-snapshot.jsonl"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("COOP_DATABASE_URL is required")
	}
	if c.Schema != "canonical" && c.Schema != "legacy" {
		return nil, fmt.Errorf("COOP_SCHEMA: unknown schema %q", c.Schema)
	}

	var err error
	if c.CacheTTL, err = durationEnv("COOP_CONFIG_CACHE_TTL", "5m"); err != nil {
		return nil, err
	}
	if c.SyncInterval, err = durationEnv("COOP_SYNC_INTERVAL", "0"); err != nil {
		return nil, err
	}

	rate := envOrDefault("COOP_RATE_LIMIT", "20")
	if c.RateLimit, err = strconv.ParseFloat(rate, 64); err != nil || c.RateLimit < 0 {
		return nil, fmt.Errorf("COOP_RATE_LIMIT: invalid rate %q", rate)
	}
	burst := envOrDefault("COOP_RATE_BURST", "40")
	if c.RateBurst, err = strconv.Atoi(burst); err != nil || c.RateBurst < 1 {
		return nil, fmt.Errorf("COOP_RATE_BURST: invalid burst %q", burst)
	}

	return c, nil
}

func durationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
