package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/hetulpatel/crossarb/internal/app"
	"github.com/hetulpatel/crossarb/internal/collectors"
	"github.com/hetulpatel/crossarb/internal/config"
	"github.com/hetulpatel/crossarb/internal/logging"
	"github.com/hetulpatel/crossarb/internal/report"
	"github.com/hetulpatel/crossarb/internal/service"
	"github.com/hetulpatel/crossarb/internal/similarity"
	"github.com/hetulpatel/crossarb/internal/storage/sqlite"
)

var errUsage = errors.New("usage")

// scanFlags are shared by compare and arb; defaults come from config.
type scanFlags struct {
	configPath     string
	limit          int
	category       string
	minScore       float64
	eventMinScore  float64
	noEmbeddings   bool
	refreshCache   bool
	minProfitCents float64
	maxDays        int
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// loadConfig reads -config before the remaining flags are defined so that
// config values become flag defaults.
func loadConfig(args []string) (*config.Config, error) {
	path := ""
	for i, a := range args {
		switch {
		case a == "--config" || a == "-config":
			if i+1 < len(args) {
				path = args[i+1]
			}
		case strings.HasPrefix(a, "--config="):
			path = strings.TrimPrefix(a, "--config=")
		case strings.HasPrefix(a, "-config="):
			path = strings.TrimPrefix(a, "-config=")
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

func (f *scanFlags) register(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&f.configPath, "config", "", "path to TOML config")
	fs.IntVar(&f.limit, "limit", cfg.Match.Limit, "max events to fetch from each platform")
	fs.StringVar(&f.category, "category", cfg.Match.Category, "filter by category")
	fs.Float64Var(&f.minScore, "min-score", cfg.Match.MarketMinScore, "bracket match threshold (cosine 0-1, or lexical 0-100)")
	fs.Float64Var(&f.eventMinScore, "event-min-score", cfg.Match.EventMinScore, "event match threshold")
	fs.BoolVar(&f.noEmbeddings, "no-embeddings", !cfg.Match.UseEmbeddings, "use lexical matching only")
	fs.BoolVar(&f.refreshCache, "refresh-cache", false, "ignore cached matches and rescore every pair")
}

func (f *scanFlags) request(cfg *config.Config) service.Request {
	req := cfg.Request()
	req.Limit = f.limit
	req.Category = f.category
	req.MarketMinScore = f.minScore
	req.EventMinScore = f.eventMinScore
	req.UseEmbeddings = !f.noEmbeddings
	req.RefreshCache = f.refreshCache
	req.MinProfit = f.minProfitCents / 100
	req.MaxDays = nil
	if f.maxDays > 0 {
		days := f.maxDays
		req.MaxDays = &days
	}
	return req
}

func printProgress(msg string) {
	fmt.Printf("  %s\n", msg)
}

func runList(ctx context.Context, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	fs := newFlagSet("list")
	fs.String("config", "", "path to TOML config")
	source := fs.String("source", "", "polymarket or kalshi")
	limit := fs.Int("limit", 50, "max number of events to fetch")
	category := fs.String("category", "", "filter by category")
	grouped := fs.Bool("group-by-category", false, "group results by category")
	if err := parse(fs, args); err != nil {
		return err
	}

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var c collectors.Collector
	switch strings.ToLower(*source) {
	case "polymarket":
		c = a.Runner.Polymarket
	case "kalshi":
		c = a.Runner.Kalshi
	default:
		return fmt.Errorf("unknown source %q, use polymarket or kalshi", *source)
	}

	fmt.Printf("Fetching %s events (limit=%d)\n", c.Name(), *limit)
	events, err := c.Fetch(ctx, collectors.FetchOptions{Limit: *limit, Category: *category})
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No events found.")
		return nil
	}
	if *grouped {
		err = report.EventsByCategory(os.Stdout, c.Name(), events)
	} else {
		err = report.Events(os.Stdout, c.Name()+" events", events)
	}
	if err != nil {
		return err
	}
	fmt.Printf("\nTotal: %d events\n", len(events))
	return nil
}

func runCompare(ctx context.Context, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	fs := newFlagSet("compare")
	var f scanFlags
	f.register(fs, cfg)
	brackets := fs.Bool("brackets", false, "match at bracket level (events, then sub-markets)")
	if err := parse(fs, args); err != nil {
		return err
	}
	req := f.request(cfg)

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Fetching events from both platforms (limit=%d each)\n", req.Limit)
	res, err := a.Runner.Fetch(ctx, req, printProgress)
	if err != nil {
		return err
	}
	if len(res.Polymarket) == 0 || len(res.Kalshi) == 0 {
		fmt.Println("\nOnly one platform returned data, showing available events:")
		available := res.Polymarket
		if len(available) == 0 {
			available = res.Kalshi
		}
		return report.Events(os.Stdout, "Available events", available)
	}

	if *brackets {
		pairs, err := a.Runner.Brackets(ctx, res, req, printProgress)
		if err != nil {
			return err
		}
		return report.Brackets(os.Stdout, pairs)
	}

	ems, err := a.Runner.Matcher.MatchEvents(ctx, res.Polymarket, res.Kalshi, similarity.Threshold(req.MarketMinScore), req.UseEmbeddings)
	if err != nil {
		return err
	}
	if len(ems) == 0 {
		fmt.Printf("No matching events found at score >= %v. Try lowering --min-score or use --brackets.\n", req.MarketMinScore)
		return nil
	}
	return report.EventMatches(os.Stdout, ems, len(res.Polymarket), len(res.Kalshi))
}

func runArb(ctx context.Context, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	fs := newFlagSet("arb")
	var f scanFlags
	f.register(fs, cfg)
	fs.Float64Var(&f.minProfitCents, "min-profit", cfg.Arb.MinProfit*100, "min gross profit in cents per $1 contract")
	fs.IntVar(&f.maxDays, "max-days", cfg.Arb.MaxDays, "exclude opportunities resolving more than N days out (0 = no limit)")
	if err := parse(fs, args); err != nil {
		return err
	}
	req := f.request(cfg)

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ops, err := a.Runner.Arb(ctx, req, printProgress)
	if errors.Is(err, service.ErrNoOpportunities) {
		fmt.Println("No arbitrage opportunities found with current thresholds.")
		fmt.Println("Tips: lower --min-score / --event-min-score, or set --min-profit 0 to show any positive spread")
		return nil
	}
	if err != nil {
		return err
	}
	return report.Opportunities(os.Stdout, ops)
}

func runCache(ctx context.Context, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	fs := newFlagSet("cache")
	fs.String("config", "", "path to TOML config")
	if err := parse(fs, args); err != nil {
		return err
	}
	action := "stats"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}

	c := sqlite.MatchCache{Path: cfg.SQLite.Path}
	switch action {
	case "stats":
		stats, err := c.Stats(ctx)
		if err != nil {
			return err
		}
		return report.CacheStats(os.Stdout, stats)
	case "clear":
		if err := c.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("Cache cleared.")
		return nil
	case "list":
		recs, err := c.ListEventPairs(ctx)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("Cache is empty.")
			return nil
		}
		return report.CachedPairs(os.Stdout, recs)
	default:
		return fmt.Errorf("unknown cache action %q, use stats, clear or list", action)
	}
}
