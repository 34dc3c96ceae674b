// Package app assembles the scan pipeline from a loaded Config.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hetulpatel/crossarb/internal/cache"
	"github.com/hetulpatel/crossarb/internal/config"
	"github.com/hetulpatel/crossarb/internal/embed"
	"github.com/hetulpatel/crossarb/internal/kalshi"
	"github.com/hetulpatel/crossarb/internal/logging"
	"github.com/hetulpatel/crossarb/internal/pipeline"
	"github.com/hetulpatel/crossarb/internal/polymarket"
	"github.com/hetulpatel/crossarb/internal/service"
	"github.com/hetulpatel/crossarb/internal/storage/sqlite"
)

// App owns everything a binary needs to run scans.
type App struct {
	Config *config.Config
	Runner *service.Runner
	Cache  sqlite.MatchCache

	embeddings cache.EmbeddingCache
}

// Build wires venue clients, the embedding provider, the redis vector cache
// and the sqlite match cache. A missing API key or an unreachable redis
// degrades the run instead of failing it.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Cache: sqlite.MatchCache{Path: cfg.SQLite.Path}}

	if cfg.Redis.Addr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		ec, err := cache.NewRedisEmbeddingCache(pingCtx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL.Duration,
			Prefix:   cfg.Redis.Prefix,
		})
		cancel()
		if err != nil {
			logging.Warnf("[app] embedding cache disabled: %v", err)
		} else {
			a.embeddings = ec
		}
	}

	orch := &pipeline.Orchestrator{Cache: a.Cache, Logger: cfg.MatchLogger()}
	if cfg.Match.UseEmbeddings {
		client, err := embed.New(embed.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			BatchSize:  cfg.Embedding.BatchSize,
			BatchPause: cfg.Embedding.BatchPause.Duration,
			MaxRetries: cfg.Embedding.MaxRetries,
			Cache:      a.embeddings,
		})
		if err != nil {
			logging.Warnf("[app] embeddings unavailable (%v), using lexical matching", err)
		} else {
			orch.Provider = client
		}
	}

	// Create the cache tables up front so a bad path fails at startup.
	store, err := sqlite.Open(cfg.SQLite.Path)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open match cache: %w", err)
	}
	store.Close()

	slugs := kalshi.NewSlugCache()
	a.Runner = &service.Runner{
		Polymarket: polymarket.NewClient(polymarket.Config{
			BaseURL: cfg.Venues.PolymarketURL,
			Timeout: cfg.Venues.Timeout.Duration,
		}),
		Kalshi: kalshi.NewClient(kalshi.Config{
			BaseURL: cfg.Venues.KalshiURL,
			APIKey:  cfg.Venues.KalshiAPIKey,
			Timeout: cfg.Venues.Timeout.Duration,
			Slugs:   slugs,
		}),
		Matcher: orch,
	}
	return a, nil
}

func (a *App) Close() {
	if a.embeddings != nil {
		if err := a.embeddings.Close(); err != nil {
			logging.Errorf("[app] close embedding cache: %v", err)
		}
	}
}
