// Package config loads the JSON5 configuration file and watches it for
// changes.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// Config is the full application configuration.
type Config struct {
	Provider ProviderConfig `json:"provider"`
	Store    StoreConfig    `json:"store"`
	Schedule ScheduleConfig `json:"schedule"`
	LogLevel string         `json:"logLevel"`
}

// ProviderConfig selects the LLM backend for rule inference, task
// generation, and embeddings.
type ProviderConfig struct {
	APIKey         string `json:"apiKey"`
	APIBase        string `json:"apiBase"`
	Model          string `json:"model"`
	EmbeddingModel string `json:"embeddingModel"`
	TimeoutMs      int    `json:"timeoutMs"`
}

// StoreConfig selects the persistence backends. Users always live in the
// data directory; tasks go to Postgres when a DSN is set, otherwise to a
// local sqlite file; the recurrence cache goes to Redis when an address
// is set, otherwise to a JSON file.
type StoreConfig struct {
	DataDir     string `json:"dataDir"`
	PostgresDSN string `json:"postgresDsn"`
	RedisAddr   string `json:"redisAddr"`
	RedisDB     int    `json:"redisDb"`
}

// ScheduleConfig tunes goal selection and the periodic task cron.
type ScheduleConfig struct {
	Cron           string  `json:"cron"`
	ExploreProb    float64 `json:"exploreProb"`
	RulesPerMinute int     `json:"rulesPerMinute"`
	CacheSize      int     `json:"cacheSize"`
}

func Default() *Config {
	return &Config{
		Provider: ProviderConfig{},
		Store: StoreConfig{
			DataDir: "data",
		},
		Schedule: ScheduleConfig{
			Cron:           "0 9 * * *",
			ExploreProb:    0.3,
			RulesPerMinute: 30,
			CacheSize:      1024,
		},
		LogLevel: "info",
	}
}

// Load reads the config file over defaults, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err == nil {
		if err := json5.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TINYSTEP_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("TINYSTEP_API_BASE"); v != "" {
		cfg.Provider.APIBase = v
	}
	if v := os.Getenv("TINYSTEP_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("TINYSTEP_EMBEDDING_MODEL"); v != "" {
		cfg.Provider.EmbeddingModel = v
	}
	if v := os.Getenv("TINYSTEP_DATA_DIR"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := os.Getenv("TINYSTEP_POSTGRES_DSN"); v != "" {
		cfg.Store.PostgresDSN = v
	}
	if v := os.Getenv("TINYSTEP_REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := os.Getenv("TINYSTEP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TINYSTEP_EXPLORE_PROB"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Schedule.ExploreProb = f
		}
	}
}
