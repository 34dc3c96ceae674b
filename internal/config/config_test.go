package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hetulpatel/crossarb/internal/matcher"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arb.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Match.EventMinScore != 0.75 || cfg.Match.MarketMinScore != 0.82 {
		t.Errorf("thresholds = %v/%v", cfg.Match.EventMinScore, cfg.Match.MarketMinScore)
	}
	if cfg.Embedding.BatchSize != 80 || cfg.Embedding.BatchPause.Duration != 1600*time.Millisecond || cfg.Embedding.MaxRetries != 5 {
		t.Errorf("embedding defaults = %+v", cfg.Embedding)
	}
	if cfg.SQLite.Path != ".cache/market_matches.db" || cfg.Server.Addr != "127.0.0.1:8081" {
		t.Errorf("paths = %q %q", cfg.SQLite.Path, cfg.Server.Addr)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
log_level = "debug"

[match]
event_min_score = 60
market_min_score = 70
category = "Economics"

[arb]
min_profit = 0.02
max_days = 30

[embedding]
batch_pause = "500ms"

[kafka]
enabled = true
brokers = ["a:9092"]
`)
	t.Setenv("ARB_MARKET_MIN_SCORE", "80")
	t.Setenv("KAFKA_BROKERS", "b:9092, c:9092")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "m.db"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Match.Category != "Economics" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Match.EventMinScore != 60 {
		t.Errorf("event_min_score = %v, want 60", cfg.Match.EventMinScore)
	}
	if cfg.Match.MarketMinScore != 80 {
		t.Errorf("market_min_score = %v, want env override 80", cfg.Match.MarketMinScore)
	}
	if cfg.Embedding.BatchPause.Duration != 500*time.Millisecond {
		t.Errorf("batch_pause = %v", cfg.Embedding.BatchPause.Duration)
	}
	if strings.Join(cfg.Kafka.Brokers, ",") != "b:9092,c:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Embedding.BatchSize != 80 {
		t.Errorf("untouched default lost: batch_size = %d", cfg.Embedding.BatchSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_PathFromEnv(t *testing.T) {
	path := writeFile(t, "[match]\nlimit = 50\n")
	t.Setenv(EnvPath, path)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Match.Limit != 50 {
		t.Errorf("limit = %d, want 50", cfg.Match.Limit)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Match.Limit != 200 {
		t.Errorf("limit = %d, want default 200", cfg.Match.Limit)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeFile(t, "[match\nlimit = ")
	if _, err := Load(path); err == nil {
		t.Error("expected decode error")
	}
}

func TestLoad_BadEnvIgnored(t *testing.T) {
	t.Setenv("ARB_LIMIT", "many")
	t.Setenv("ARB_USE_CACHE", "false")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Match.Limit != 200 {
		t.Errorf("unparsable ARB_LIMIT changed limit to %d", cfg.Match.Limit)
	}
	if cfg.Match.UseCache {
		t.Error("ARB_USE_CACHE=false not applied")
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Match.Limit = 0
	cfg.Arb.MinProfit = 1.5
	cfg.Kafka.Enabled = true
	cfg.Kafka.Topic = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"log_level", "match.limit", "arb.min_profit", "kafka.topic"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestRequest(t *testing.T) {
	cfg := Defaults()
	req := cfg.Request()
	if req.MaxDays != nil {
		t.Errorf("MaxDays = %v, want nil when disabled", *req.MaxDays)
	}
	if req.EventMinScore != 0.75 || req.Limit != 200 || !req.UseEmbeddings {
		t.Errorf("request = %+v", req)
	}

	cfg.Arb.MaxDays = 45
	req = cfg.Request()
	if req.MaxDays == nil || *req.MaxDays != 45 {
		t.Errorf("MaxDays = %v, want 45", req.MaxDays)
	}
}

func TestMatchLogger(t *testing.T) {
	cfg := Defaults()
	cfg.Match.LogMode = "summary"
	if got := cfg.MatchLogger().Mode(); got != matcher.LogModeSummary {
		t.Errorf("mode = %v, want summary", got)
	}
}
