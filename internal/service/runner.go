package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hetulpatel/crossarb/internal/arb"
	"github.com/hetulpatel/crossarb/internal/collectors"
	"github.com/hetulpatel/crossarb/internal/matches"
	"github.com/hetulpatel/crossarb/internal/pipeline"
	"github.com/hetulpatel/crossarb/internal/similarity"
)

var (
	ErrNoEvents        = errors.New("no events retrieved from either platform")
	ErrNoMatches       = errors.New("no matches found, try lowering threshold")
	ErrNoOpportunities = errors.New("no opportunities found")
)

// Request carries the knobs of one compare or arb run.
type Request struct {
	Limit          int     `json:"limit"`
	Category       string  `json:"category,omitempty"`
	EventMinScore  float64 `json:"event_min_score"`
	MarketMinScore float64 `json:"market_min_score"`
	UseEmbeddings  bool    `json:"use_embeddings"`
	UseCache       bool    `json:"use_cache"`
	RefreshCache   bool    `json:"refresh_cache"`
	MinProfit      float64 `json:"min_profit"`
	MaxDays        *int    `json:"max_days,omitempty"`
	// Today pins the arb reference date; zero means now.
	Today time.Time `json:"-"`
}

// Runner wires fetch, match and arbitrage into one call.
type Runner struct {
	Polymarket collectors.Collector
	Kalshi     collectors.Collector
	Matcher    *pipeline.Orchestrator
}

func noop(string) {}

// Fetch pulls both venues concurrently. A failed venue counts as empty; only
// both venues coming back empty is an error.
func (r *Runner) Fetch(ctx context.Context, req Request, report func(string)) (collectors.FetchResult, error) {
	if report == nil {
		report = noop
	}
	report("Fetching Polymarket and Kalshi events")
	res := collectors.FetchBoth(ctx, r.Polymarket, r.Kalshi, collectors.FetchOptions{Limit: req.Limit, Category: req.Category})
	if res.PolymarketErr != nil {
		report(fmt.Sprintf("Polymarket fetch failed: %v", res.PolymarketErr))
	}
	if res.KalshiErr != nil {
		report(fmt.Sprintf("Kalshi fetch failed: %v", res.KalshiErr))
	}
	if len(res.Polymarket) == 0 && len(res.Kalshi) == 0 {
		if err := errors.Join(res.PolymarketErr, res.KalshiErr); err != nil {
			return res, fmt.Errorf("%w: %w", ErrNoEvents, err)
		}
		return res, ErrNoEvents
	}
	report(fmt.Sprintf("Got %d PM events, %d KS events", len(res.Polymarket), len(res.Kalshi)))
	return res, nil
}

// CompareEvents matches events by title only.
func (r *Runner) CompareEvents(ctx context.Context, req Request, report func(string)) ([]matches.EventMatch, error) {
	res, err := r.Fetch(ctx, req, report)
	if err != nil {
		return nil, err
	}
	ems, err := r.Matcher.MatchEvents(ctx, res.Polymarket, res.Kalshi, similarity.Threshold(req.EventMinScore), req.UseEmbeddings)
	if err != nil {
		return nil, err
	}
	if len(ems) == 0 {
		return nil, ErrNoMatches
	}
	return ems, nil
}

// Compare fetches both venues and runs the two-level bracket match.
func (r *Runner) Compare(ctx context.Context, req Request, report func(string)) ([]matches.BracketMatch, error) {
	if report == nil {
		report = noop
	}
	res, err := r.Fetch(ctx, req, report)
	if err != nil {
		return nil, err
	}
	return r.Brackets(ctx, res, req, report)
}

// Arb runs Compare and prices every matched bracket pair.
func (r *Runner) Arb(ctx context.Context, req Request, report func(string)) ([]matches.Opportunity, error) {
	if report == nil {
		report = noop
	}
	pairs, err := r.Compare(ctx, req, report)
	if err != nil {
		return nil, err
	}
	report("Computing arbitrage")
	ops := arb.Find(pairs, arb.Config{MinProfit: req.MinProfit, MaxDays: req.MaxDays, Today: req.Today})
	report(fmt.Sprintf("Found %d arbitrage opportunities", len(ops)))
	if len(ops) == 0 {
		return nil, ErrNoOpportunities
	}
	return ops, nil
}

// Brackets runs the two-level match over an already fetched result.
func (r *Runner) Brackets(ctx context.Context, res collectors.FetchResult, req Request, report func(string)) ([]matches.BracketMatch, error) {
	if report == nil {
		report = noop
	}
	pairs, err := r.Matcher.MatchBrackets(ctx, res.Polymarket, res.Kalshi, pipeline.Options{
		EventMinScore:  similarity.Threshold(req.EventMinScore),
		MarketMinScore: similarity.Threshold(req.MarketMinScore),
		UseEmbeddings:  req.UseEmbeddings,
		UseCache:       req.UseCache,
		RefreshCache:   req.RefreshCache,
		Progress:       report,
	})
	if err != nil {
		return nil, fmt.Errorf("match brackets: %w", err)
	}
	if len(pairs) == 0 {
		return nil, ErrNoMatches
	}
	return pairs, nil
}
