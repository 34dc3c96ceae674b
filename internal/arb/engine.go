package arb

import (
	"sort"
	"time"

	"github.com/hetulpatel/crossarb/internal/collectors"
	"github.com/hetulpatel/crossarb/internal/logging"
	"github.com/hetulpatel/crossarb/internal/matches"
	"github.com/hetulpatel/crossarb/internal/similarity"
)

type Config struct {
	// MinProfit is the gross profit (fraction of $1) an opportunity must exceed.
	MinProfit float64
	// MaxDays drops opportunities resolving more than this many days out.
	// Opportunities without a known close date are never dropped.
	MaxDays *int
	// Today is the reference date; zero means the current UTC date.
	Today time.Time
}

const dateLayout = "2006-01-02"

// Find prices every matched bracket pair and returns the profitable ones,
// ranked by annualized return (unknown dates last, by raw profit).
func Find(pairs []matches.BracketMatch, cfg Config) []matches.Opportunity {
	today := cfg.Today
	if today.IsZero() {
		today = time.Now().UTC()
	}
	today = truncateDay(today)

	var out []matches.Opportunity
	for _, pair := range pairs {
		for _, mm := range pair.Markets {
			op, ok := evaluate(mm, today, cfg)
			if ok {
				out = append(out, op)
			}
		}
	}
	rank(out)
	logging.Debugf("[arb] %d opportunities from %d matched brackets", len(out), matches.CountMarkets(pairs))
	return out
}

// evaluate picks the cheaper of the two cross-venue legs for one market pair.
func evaluate(mm matches.MarketMatch, today time.Time, cfg Config) (matches.Opportunity, bool) {
	pm, ks := mm.Polymarket, mm.Kalshi

	spreadA := pm.YesPrice + ks.NoPrice
	spreadB := ks.YesPrice + pm.NoPrice
	leg, spread := matches.LegBuyYesPMBuyNoKalshi, spreadA
	if spreadB < spreadA {
		leg, spread = matches.LegBuyYesKalshiBuyNoPM, spreadB
	}

	profit := 1 - spread
	if profit <= cfg.MinProfit {
		return matches.Opportunity{}, false
	}

	op := matches.Opportunity{
		Polymarket: pm,
		Kalshi:     ks,
		MatchScore: mm.Score.Value,
		ScoreUnit:  string(mm.Score.Unit),
		BestLeg:    leg,
		Spread:     similarity.Round4(spread),
		Profit:     similarity.Round4(profit),
	}

	if closeDate, ok := earliestClose(pm, ks); ok {
		days := daysBetween(today, closeDate)
		if cfg.MaxDays != nil && days > *cfg.MaxDays {
			return matches.Opportunity{}, false
		}
		op.DaysToResolution = &days
		if days > 0 {
			ann := similarity.Round4(profit / float64(days) * 365)
			op.AnnualizedReturn = &ann
		}
	}
	return op, true
}

// daysBetween counts whole days from a to b. Both are UTC midnights;
// time.Sub would saturate for dates centuries out.
func daysBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / 86400)
}

// earliestClose returns the earlier parseable close date of the two markets.
func earliestClose(markets ...collectors.Market) (time.Time, bool) {
	var (
		earliest time.Time
		found    bool
	)
	for _, m := range markets {
		d, ok := ParseCloseDate(m.CloseTime)
		if !ok {
			continue
		}
		if !found || d.Before(earliest) {
			earliest, found = d, true
		}
	}
	return earliest, found
}

// ParseCloseDate reads the YYYY-MM-DD prefix of a close time. Empty or
// malformed values are reported as unknown.
func ParseCloseDate(s string) (time.Time, bool) {
	if len(s) < len(dateLayout) {
		return time.Time{}, false
	}
	d, err := time.Parse(dateLayout, s[:len(dateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rank(ops []matches.Opportunity) {
	sort.SliceStable(ops, func(i, j int) bool {
		a, b := ops[i].AnnualizedReturn, ops[j].AnnualizedReturn
		if (a == nil) != (b == nil) {
			return a != nil
		}
		if a != nil && *a != *b {
			return *a > *b
		}
		return ops[i].Profit > ops[j].Profit
	})
}
