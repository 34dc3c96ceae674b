// Package report renders scan results as plain-text tables for the CLI.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/hetulpatel/crossarb/internal/collectors"
	"github.com/hetulpatel/crossarb/internal/matches"
	"github.com/hetulpatel/crossarb/internal/storage/sqlite"
)

const none = "-"

func Price(p float64) string {
	return fmt.Sprintf("%.1f¢", p*100)
}

func PricePair(m collectors.Market) string {
	return fmt.Sprintf("Yes %s / No %s", Price(m.YesPrice), Price(m.NoPrice))
}

// Volume abbreviates dollar volume: $950, $12k, $1.2M.
func Volume(v float64) string {
	return "$" + strings.ReplaceAll(humanize.SIWithDigits(v, 1, ""), " ", "")
}

func topMarketPrice(e collectors.Event) string {
	if len(e.Markets) == 0 {
		return none
	}
	return PricePair(e.Markets[0])
}

func orNone(s string) string {
	if s == "" {
		return none
	}
	return s
}

// ShortQuestion drops the "<event title>: " prefix Kalshi questions carry.
func ShortQuestion(m collectors.Market) string {
	return strings.TrimPrefix(m.Question, m.ParentEventTitle+": ")
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// Events lists events, one row each.
func Events(w io.Writer, title string, events []collectors.Event) error {
	fmt.Fprintf(w, "\n%s\n", title)
	tw := table(w)
	fmt.Fprintln(tw, "TITLE\tCATEGORY\tTOP MARKET\tVOLUME\tEND DATE")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Title, collectors.NormalizeCategory(e.Category), topMarketPrice(e), Volume(e.Volume), orNone(e.EndDate))
	}
	return tw.Flush()
}

// EventsByCategory prints one table per normalized category.
func EventsByCategory(w io.Writer, venue string, events []collectors.Event) error {
	for _, g := range collectors.GroupByCategory(events) {
		if err := Events(w, fmt.Sprintf("%s: %s", venue, g.Category), g.Events); err != nil {
			return err
		}
	}
	return nil
}

// EventMatches prints matched event pairs and how many were left unmatched.
func EventMatches(w io.Writer, ems []matches.EventMatch, pmTotal, ksTotal int) error {
	fmt.Fprintln(w, "\nMatched Events")
	tw := table(w)
	fmt.Fprintln(tw, "POLYMARKET\tPM PRICE\tSCORE\tKALSHI PRICE\tKALSHI")
	for _, em := range ems {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			em.Polymarket.Title, topMarketPrice(em.Polymarket), em.Score, topMarketPrice(em.Kalshi), em.Kalshi.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nMatched: %d pairs | Unmatched Polymarket: %d | Unmatched Kalshi: %d\n",
		len(ems), pmTotal-len(ems), ksTotal-len(ems))
	return err
}

// Brackets prints each matched event pair followed by its bracket matches,
// best score first.
func Brackets(w io.Writer, pairs []matches.BracketMatch) error {
	for _, p := range pairs {
		em := p.Event
		if em.Polymarket.Title == em.Kalshi.Title {
			fmt.Fprintf(w, "\n== %s (event score: %s)\n", em.Polymarket.Title, em.Score)
		} else {
			fmt.Fprintf(w, "\n== %s <-> %s (event score: %s)\n", em.Polymarket.Title, em.Kalshi.Title, em.Score)
		}
		if len(p.Markets) == 0 {
			fmt.Fprintf(w, "  No bracket matches above threshold (PM has %d sub-markets, Kalshi has %d)\n",
				len(em.Polymarket.Markets), len(em.Kalshi.Markets))
			continue
		}
		mms := append([]matches.MarketMatch(nil), p.Markets...)
		sort.SliceStable(mms, func(i, j int) bool { return mms[i].Score.Value > mms[j].Score.Value })

		tw := table(w)
		fmt.Fprintln(tw, "  POLYMARKET BRACKET\tPM PRICE\tSCORE\tKALSHI PRICE\tKALSHI BRACKET")
		for _, mm := range mms {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n",
				mm.Polymarket.Question, PricePair(mm.Polymarket), mm.Score, PricePair(mm.Kalshi), ShortQuestion(mm.Kalshi))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func legs(op matches.Opportunity) (pm, ks string) {
	if op.BestLeg == matches.LegBuyYesPMBuyNoKalshi {
		return "Yes " + Price(op.Polymarket.YesPrice), "No " + Price(op.Kalshi.NoPrice)
	}
	return "No " + Price(op.Polymarket.NoPrice), "Yes " + Price(op.Kalshi.YesPrice)
}

// Opportunities prints ranked opportunities.
func Opportunities(w io.Writer, ops []matches.Opportunity) error {
	fmt.Fprintln(w, "\nArbitrage Opportunities (sorted by annualized return)")
	tw := table(w)
	fmt.Fprintln(tw, "POLYMARKET BRACKET\tPM LEG\tKALSHI BRACKET\tKS LEG\tSPREAD\tPROFIT\tDAYS\tANN.%")
	for _, op := range ops {
		pmLeg, ksLeg := legs(op)
		days, annual := none, none
		if op.DaysToResolution != nil {
			days = fmt.Sprint(*op.DaysToResolution)
		}
		if op.AnnualizedReturn != nil {
			annual = fmt.Sprintf("%.1f%%", *op.AnnualizedReturn*100)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			op.Polymarket.Question, pmLeg, ShortQuestion(op.Kalshi), ksLeg, Price(op.Spread), Price(op.Profit), days, annual)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nFound %d opportunities | Profit = gross spread before platform fees\n", len(ops))
	return err
}

// CacheStats prints the match cache summary.
func CacheStats(w io.Writer, s sqlite.Stats) error {
	tw := table(w)
	fmt.Fprintf(tw, "Event pairs cached:\t%d\n", s.EventPairs)
	fmt.Fprintf(tw, "Market pairs cached:\t%d\n", s.MarketPairs)
	fmt.Fprintf(tw, "Oldest entry:\t%s\n", orNone(truncate(s.OldestEntry, 19)))
	fmt.Fprintf(tw, "Newest entry:\t%s\n", orNone(truncate(s.NewestEntry, 19)))
	fmt.Fprintf(tw, "DB location:\t%s\n", s.DBPath)
	return tw.Flush()
}

// CachedPairs lists cached event pairs, newest first.
func CachedPairs(w io.Writer, recs []sqlite.EventPairRecord) error {
	fmt.Fprintf(w, "\nCached Event Pairs (%d total)\n", len(recs))
	tw := table(w)
	fmt.Fprintln(tw, "POLYMARKET EVENT\tPM ID\tSCORE\tKALSHI EVENT\tKS TICKER\tCACHED")
	for _, r := range recs {
		pm := r.PMTitle
		if pm == "" {
			pm = r.PMEventID
		}
		ks := r.KSTitle
		if ks == "" {
			ks = r.KSEventTicker
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			pm, r.PMEventID, r.Score, ks, r.KSEventTicker, truncate(r.CachedAt, 10))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
