package pipeline

import (
	"context"
	"fmt"

	"github.com/hetulpatel/crossarb/internal/collectors"
	"github.com/hetulpatel/crossarb/internal/logging"
	"github.com/hetulpatel/crossarb/internal/matcher"
	"github.com/hetulpatel/crossarb/internal/matches"
	"github.com/hetulpatel/crossarb/internal/similarity"
)

// MatchCache persists sub-market matches per event pair.
type MatchCache interface {
	Load(ctx context.Context, pmEvent, ksEvent *collectors.Event) ([]matches.MarketMatch, error)
	Save(ctx context.Context, em *matches.EventMatch, mms []matches.MarketMatch) error
}

// Orchestrator runs the two-level match: events by title, then the markets
// inside each matched event pair by question.
type Orchestrator struct {
	// Provider is optional; without it every match is lexical.
	Provider similarity.Provider
	// Cache is optional; without it MatchBrackets always recomputes.
	Cache  MatchCache
	Logger *matcher.Logger
}

type Options struct {
	EventMinScore  similarity.Score
	MarketMinScore similarity.Score
	UseEmbeddings  bool
	UseCache       bool
	// RefreshCache skips cache reads but still writes fresh results.
	RefreshCache bool
	Progress     func(string)
}

func (o Options) progress(format string, args ...any) {
	if o.Progress != nil {
		o.Progress(fmt.Sprintf(format, args...))
	}
}

// MatchEvents pairs Polymarket and Kalshi events by title. Embeddings are used
// when enabled and a provider is configured; a provider failure is logged and
// the lexical scorer takes over with the threshold rescaled.
func (o *Orchestrator) MatchEvents(ctx context.Context, pm, ks []collectors.Event, min similarity.Score, useEmbeddings bool) ([]matches.EventMatch, error) {
	assigned, err := o.assign(ctx, collectors.Titles(pm), collectors.Titles(ks), min, useEmbeddings, "event")
	if err != nil {
		return nil, err
	}
	out := make([]matches.EventMatch, 0, len(assigned))
	for _, a := range assigned {
		em := matches.EventMatch{Polymarket: pm[a.Row], Kalshi: ks[a.Col], Score: a.Score.Rounded()}
		o.Logger.LogEventMatch(&em, a.threshold)
		out = append(out, em)
	}
	return out, nil
}

// MatchBrackets matches events, then the markets within each matched pair.
// The result keeps the event match order. Cache failures abort the run.
func (o *Orchestrator) MatchBrackets(ctx context.Context, pm, ks []collectors.Event, opts Options) ([]matches.BracketMatch, error) {
	opts.progress("Matching %d Polymarket events against %d Kalshi events", len(pm), len(ks))
	events, err := o.MatchEvents(ctx, pm, ks, opts.EventMinScore, opts.UseEmbeddings)
	if err != nil {
		return nil, err
	}
	opts.progress("Matched %d event pairs, matching brackets", len(events))

	useCache := opts.UseCache && o.Cache != nil
	out := make([]matches.BracketMatch, 0, len(events))
	for i := range events {
		em := events[i]
		mms, err := o.matchPair(ctx, &em, opts, useCache)
		if err != nil {
			return nil, err
		}
		out = append(out, matches.BracketMatch{Event: em, Markets: mms})
	}
	opts.progress("Matched %d event pairs, %d brackets", len(out), matches.CountMarkets(out))
	return out, nil
}

func (o *Orchestrator) matchPair(ctx context.Context, em *matches.EventMatch, opts Options, useCache bool) ([]matches.MarketMatch, error) {
	pmMarkets, ksMarkets := em.Polymarket.Markets, em.Kalshi.Markets
	if len(pmMarkets) == 0 || len(ksMarkets) == 0 {
		return []matches.MarketMatch{}, nil
	}

	// One market on each side: the event match is the bracket match.
	if len(pmMarkets) == 1 && len(ksMarkets) == 1 {
		mms := []matches.MarketMatch{{Polymarket: pmMarkets[0], Kalshi: ksMarkets[0], Score: em.Score}}
		if useCache {
			if err := o.Cache.Save(ctx, em, mms); err != nil {
				return nil, fmt.Errorf("cache save %s: %w", matches.EventPairKey(em.Polymarket.ID, em.Kalshi.ID), err)
			}
		}
		return mms, nil
	}

	if useCache && !opts.RefreshCache {
		cached, err := o.Cache.Load(ctx, &em.Polymarket, &em.Kalshi)
		if err != nil {
			return nil, fmt.Errorf("cache load %s: %w", matches.EventPairKey(em.Polymarket.ID, em.Kalshi.ID), err)
		}
		if cached != nil {
			logging.Debugf("[pipeline] cache hit %s (%d brackets)", matches.EventPairKey(em.Polymarket.ID, em.Kalshi.ID), len(cached))
			return cached, nil
		}
	}

	assigned, err := o.assign(ctx, collectors.Questions(pmMarkets), collectors.Questions(ksMarkets), opts.MarketMinScore, opts.UseEmbeddings, "bracket")
	if err != nil {
		return nil, err
	}
	mms := make([]matches.MarketMatch, 0, len(assigned))
	for _, a := range assigned {
		mm := matches.MarketMatch{Polymarket: pmMarkets[a.Row], Kalshi: ksMarkets[a.Col], Score: a.Score.Rounded()}
		o.Logger.LogMarketMatch(&mm, a.threshold)
		mms = append(mms, mm)
	}

	if useCache {
		if err := o.Cache.Save(ctx, em, mms); err != nil {
			return nil, fmt.Errorf("cache save %s: %w", matches.EventPairKey(em.Polymarket.ID, em.Kalshi.ID), err)
		}
	}
	return mms, nil
}

type assignment struct {
	matcher.Assignment
	threshold similarity.Score
}

// assign scores a x b and runs the greedy matcher. The threshold is moved
// onto whichever unit the score matrix ends up in.
func (o *Orchestrator) assign(ctx context.Context, a, b []string, min similarity.Score, useEmbeddings bool, level string) ([]assignment, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, nil
	}

	var m similarity.Matrix
	embedded := false
	if useEmbeddings && o.Provider != nil {
		var err error
		m, err = similarity.EmbedMatrix(ctx, o.Provider, a, b)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.Warnf("[pipeline] %s embedding failed (%v), falling back to lexical matching", level, err)
		} else {
			embedded = true
		}
	}
	if !embedded {
		m = similarity.LexicalMatrix(a, b)
	}

	threshold := min.As(m.Unit)
	got, err := matcher.Greedy(m, threshold)
	if err != nil {
		return nil, err
	}
	out := make([]assignment, len(got))
	for i, g := range got {
		out[i] = assignment{Assignment: g, threshold: threshold}
	}
	return out, nil
}
