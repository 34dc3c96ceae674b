package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hetulpatel/crossarb/internal/matcher"
	"github.com/hetulpatel/crossarb/internal/service"
)

// Config is the root configuration shared by every binary.
type Config struct {
	Match     MatchConfig     `toml:"match"`
	Arb       ArbConfig       `toml:"arb"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Venues    VenueConfig     `toml:"venues"`
	Redis     RedisConfig     `toml:"redis"`
	SQLite    SQLiteConfig    `toml:"sqlite"`
	Kafka     KafkaConfig     `toml:"kafka"`
	Server    ServerConfig    `toml:"server"`
	LogLevel  string          `toml:"log_level"`
}

// MatchConfig holds matcher thresholds and run defaults. Thresholds at or
// below 1 are cosine similarities, above 1 lexical percentages.
type MatchConfig struct {
	EventMinScore  float64 `toml:"event_min_score"`
	MarketMinScore float64 `toml:"market_min_score"`
	Limit          int     `toml:"limit"`
	Category       string  `toml:"category"`
	UseEmbeddings  bool    `toml:"use_embeddings"`
	UseCache       bool    `toml:"use_cache"`
	LogMode        string  `toml:"log_mode"`
	LogFile        string  `toml:"log_file"`
}

// ArbConfig filters priced opportunities. MaxDays of 0 disables the filter.
type ArbConfig struct {
	MinProfit    float64  `toml:"min_profit"`
	MaxDays      int      `toml:"max_days"`
	ScanInterval duration `toml:"scan_interval"`
}

type EmbeddingConfig struct {
	APIKey     string   `toml:"api_key"`
	BaseURL    string   `toml:"base_url"`
	Model      string   `toml:"model"`
	BatchSize  int      `toml:"batch_size"`
	BatchPause duration `toml:"batch_pause"`
	MaxRetries int      `toml:"max_retries"`
}

type VenueConfig struct {
	PolymarketURL string   `toml:"polymarket_url"`
	KalshiURL     string   `toml:"kalshi_url"`
	KalshiAPIKey  string   `toml:"kalshi_api_key"`
	Timeout       duration `toml:"timeout"`
}

// RedisConfig configures the embedding vector cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string   `toml:"addr"`
	Password string   `toml:"password"`
	DB       int      `toml:"db"`
	TTL      duration `toml:"ttl"`
	Prefix   string   `toml:"prefix"`
}

type SQLiteConfig struct {
	Path string `toml:"path"`
}

type KafkaConfig struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
	Group   string   `toml:"group"`
}

type ServerConfig struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"`
}

// duration decodes TOML strings like "1.6s" or "5m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Defaults() Config {
	return Config{
		Match: MatchConfig{
			EventMinScore:  0.75,
			MarketMinScore: 0.82,
			Limit:          200,
			UseEmbeddings:  true,
			UseCache:       true,
			LogMode:        "quiet",
		},
		Arb: ArbConfig{
			ScanInterval: duration{5 * time.Minute},
		},
		Embedding: EmbeddingConfig{
			BaseURL:    "https://api.tokenfactory.nebius.com/v1/",
			Model:      "Qwen/Qwen3-Embedding-8B",
			BatchSize:  80,
			BatchPause: duration{1600 * time.Millisecond},
			MaxRetries: 5,
		},
		Venues: VenueConfig{
			PolymarketURL: "https://gamma-api.polymarket.com",
			KalshiURL:     "https://api.elections.kalshi.com/trade-api/v2",
			Timeout:       duration{15 * time.Second},
		},
		Redis: RedisConfig{
			TTL:    duration{240 * time.Hour},
			Prefix: "emb",
		},
		SQLite: SQLiteConfig{
			Path: ".cache/market_matches.db",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"kafka-broker:9092"},
			Topic:   "arb.opportunities",
			Group:   "arb-watch",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8081",
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validLogModes = map[string]bool{
	"": true, "quiet": true, "summary": true, "verbose": true,
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if !validLogModes[strings.ToLower(c.Match.LogMode)] {
		errs = append(errs, fmt.Sprintf("unknown match.log_mode %q (valid: quiet, summary, verbose)", c.Match.LogMode))
	}
	if c.Match.EventMinScore < 0 || c.Match.EventMinScore > 100 {
		errs = append(errs, "match.event_min_score must be within [0, 100]")
	}
	if c.Match.MarketMinScore < 0 || c.Match.MarketMinScore > 100 {
		errs = append(errs, "match.market_min_score must be within [0, 100]")
	}
	if c.Match.Limit <= 0 {
		errs = append(errs, "match.limit must be > 0")
	}
	if c.Arb.MinProfit < 0 || c.Arb.MinProfit >= 1 {
		errs = append(errs, "arb.min_profit must be within [0, 1)")
	}
	if c.Arb.MaxDays < 0 {
		errs = append(errs, "arb.max_days must be >= 0")
	}
	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, "embedding.batch_size must be > 0")
	}
	if c.Embedding.MaxRetries < 0 {
		errs = append(errs, "embedding.max_retries must be >= 0")
	}
	if c.SQLite.Path == "" {
		errs = append(errs, "sqlite.path is required")
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, "kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, "kafka.topic is required when kafka is enabled")
		}
	}
	if c.Server.Addr == "" {
		errs = append(errs, "server.addr is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Request turns the match and arb sections into the runner's defaults.
func (c *Config) Request() service.Request {
	req := service.Request{
		Limit:          c.Match.Limit,
		Category:       c.Match.Category,
		EventMinScore:  c.Match.EventMinScore,
		MarketMinScore: c.Match.MarketMinScore,
		UseEmbeddings:  c.Match.UseEmbeddings,
		UseCache:       c.Match.UseCache,
		MinProfit:      c.Arb.MinProfit,
	}
	if c.Arb.MaxDays > 0 {
		days := c.Arb.MaxDays
		req.MaxDays = &days
	}
	return req
}

// MatchLogger builds the match logger described by the match section.
func (c *Config) MatchLogger() *matcher.Logger {
	l := matcher.NewLogger(matcher.ParseLogMode(c.Match.LogMode))
	if c.Match.LogFile != "" {
		l = l.WithFile(c.Match.LogFile)
	}
	return l
}
