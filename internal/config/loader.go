package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// EnvPath names the variable consulted when no -config flag is given.
const EnvPath = "ARB_CONFIG"

// Load merges, in order: built-in defaults, the TOML file at path (or
// $ARB_CONFIG; a missing file is fine), a .env file if present, and
// environment overrides. The result has not been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// match
	setFloat64(&cfg.Match.EventMinScore, "ARB_EVENT_MIN_SCORE")
	setFloat64(&cfg.Match.MarketMinScore, "ARB_MARKET_MIN_SCORE")
	setInt(&cfg.Match.Limit, "ARB_LIMIT")
	setStr(&cfg.Match.Category, "ARB_CATEGORY")
	setBool(&cfg.Match.UseEmbeddings, "ARB_USE_EMBEDDINGS")
	setBool(&cfg.Match.UseCache, "ARB_USE_CACHE")
	setStr(&cfg.Match.LogMode, "MATCH_LOG_MODE")
	setStr(&cfg.Match.LogFile, "MATCH_LOG_FILE")

	// arb
	setFloat64(&cfg.Arb.MinProfit, "ARB_MIN_PROFIT")
	setInt(&cfg.Arb.MaxDays, "ARB_MAX_DAYS")
	setDuration(&cfg.Arb.ScanInterval, "ARB_SCAN_INTERVAL")

	// embedding
	setStr(&cfg.Embedding.APIKey, "NEBIUS_API_KEY")
	setStr(&cfg.Embedding.BaseURL, "NEBIUS_BASE_URL")
	setStr(&cfg.Embedding.Model, "NEBIUS_EMBED_MODEL")
	setInt(&cfg.Embedding.BatchSize, "ARB_EMBED_BATCH_SIZE")
	setDuration(&cfg.Embedding.BatchPause, "ARB_EMBED_BATCH_PAUSE")
	setInt(&cfg.Embedding.MaxRetries, "ARB_EMBED_MAX_RETRIES")

	// venues
	setStr(&cfg.Venues.PolymarketURL, "POLYMARKET_API_URL")
	setStr(&cfg.Venues.KalshiURL, "KALSHI_API_URL")
	setStr(&cfg.Venues.KalshiAPIKey, "KALSHI_API_KEY")
	setDuration(&cfg.Venues.Timeout, "ARB_HTTP_TIMEOUT")

	// redis
	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setDuration(&cfg.Redis.TTL, "REDIS_EMBED_TTL")
	setStr(&cfg.Redis.Prefix, "REDIS_EMBED_PREFIX")

	// sqlite
	setStr(&cfg.SQLite.Path, "SQLITE_PATH")

	// kafka
	setBool(&cfg.Kafka.Enabled, "KAFKA_ENABLED")
	setStringSlice(&cfg.Kafka.Brokers, "KAFKA_BROKERS")
	setStr(&cfg.Kafka.Topic, "OPPORTUNITIES_KAFKA_TOPIC")
	setStr(&cfg.Kafka.Group, "ARB_WATCH_GROUP")

	// server
	setStr(&cfg.Server.Addr, "ARB_SERVER_ADDR")
	setStringSlice(&cfg.Server.CORSOrigins, "ARB_CORS_ORIGINS")

	setStr(&cfg.LogLevel, "LOG_LEVEL")
}

// Each helper only touches dst when the variable is set and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
