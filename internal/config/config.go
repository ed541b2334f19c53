// Package config reads service settings from the environment, after loading
// an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	// DatasetPath is an XLSX export of the registry, used when DatabaseURL
	// is empty.
	DatasetPath string
	GroupsPath  string
	CacheTTL    time.Duration
	// FetchMaxElapsed bounds the retries of one record fetch.
	FetchMaxElapsed time.Duration
	Environment     string
	LogLevel        string
	// AssetsHost serves the echarts scripts, e.g. from a local mirror.
	AssetsHost string
	// StrictCategories fails a request on a record outside the phase or
	// state vocabularies instead of skipping the record.
	StrictCategories bool
}

// Load reads files (default ".env") into the environment, ignoring missing
// ones, then builds a Config.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)
	return FromEnv()
}

func FromEnv() (Config, error) {
	c := Config{
		Port:        envOr("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DatasetPath: os.Getenv("DATASET_PATH"),
		GroupsPath:  envOr("GROUPS_PATH", "grupos.json"),
		Environment: os.Getenv("ENVIRONMENT"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		AssetsHost:  os.Getenv("ASSETS_HOST"),
	}
	var err error
	if v := os.Getenv("STRICT_CATEGORIES"); v != "" {
		if c.StrictCategories, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("config: STRICT_CATEGORIES: %w", err)
		}
	}
	if c.CacheTTL, err = durationOr("CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if c.FetchMaxElapsed, err = durationOr("FETCH_MAX_ELAPSED", 20*time.Second); err != nil {
		return Config{}, err
	}
	if c.DatabaseURL == "" && c.DatasetPath == "" {
		return Config{}, fmt.Errorf("config: one of DATABASE_URL or DATASET_PATH is required")
	}
	return c, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func durationOr(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// plain integers are seconds
		if n, aerr := strconv.Atoi(v); aerr == nil {
			return time.Duration(n) * time.Second, nil
		}
		return 0, fmt.Errorf("config: %s: %w", k, err)
	}
	return d, nil
}
