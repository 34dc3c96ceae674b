package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hetulpatel/crossarb/internal/collectors"
	"github.com/hetulpatel/crossarb/internal/matches"
	"github.com/hetulpatel/crossarb/internal/similarity"
)

// EventPairRecord is one row of event_pairs.
type EventPairRecord struct {
	PMEventID     string           `json:"pm_event_id"`
	KSEventTicker string           `json:"ks_event_ticker"`
	Score         similarity.Score `json:"event_score"`
	PMTitle       string           `json:"pm_title"`
	KSTitle       string           `json:"ks_title"`
	PMURL         string           `json:"pm_url"`
	KSURL         string           `json:"ks_url"`
	CachedAt      string           `json:"cached_at"`
}

// MarketPairRecord is one row of market_pairs.
type MarketPairRecord struct {
	PMEventID      string           `json:"pm_event_id"`
	KSEventTicker  string           `json:"ks_event_ticker"`
	PMMarketID     string           `json:"pm_market_id"`
	KSMarketTicker string           `json:"ks_market_ticker"`
	Score          similarity.Score `json:"match_score"`
	PMQuestion     string           `json:"pm_question"`
	KSQuestion     string           `json:"ks_question"`
	PMURL          string           `json:"pm_url"`
	KSURL          string           `json:"ks_url"`
	PMCloseTime    string           `json:"pm_close_time"`
	KSCloseTime    string           `json:"ks_close_time"`
	CachedAt       string           `json:"cached_at"`
}

// Stats summarizes what the cache holds. Oldest/Newest are empty when the
// cache has no event pairs.
type Stats struct {
	EventPairs  int    `json:"event_pairs"`
	MarketPairs int    `json:"market_pairs"`
	OldestEntry string `json:"oldest_entry"`
	NewestEntry string `json:"newest_entry"`
	DBPath      string `json:"db_path"`
}

const upsertEventPairSQL = `
INSERT OR REPLACE INTO event_pairs
	(pm_event_id, ks_event_ticker, event_score, score_unit,
	 pm_title, ks_title, pm_url, ks_url, cached_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertMarketPairSQL = `
INSERT OR REPLACE INTO market_pairs
	(pm_event_id, ks_event_ticker, pm_market_id, ks_market_ticker,
	 match_score, score_unit, pm_question, ks_question, pm_url, ks_url,
	 pm_close_time, ks_close_time, cached_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Save persists an event pair and all of its market matches in one
// transaction. The pair's previous market rows are deleted first, so a
// rewrite replaces the pairing rather than merging into it.
func (s *Store) Save(ctx context.Context, em *matches.EventMatch, mms []matches.MarketMatch) error {
	if em == nil {
		return fmt.Errorf("save: nil event match")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	pe, ke := em.Polymarket, em.Kalshi

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertEventPairSQL,
		pe.ID, ke.ID, em.Score.Value, string(em.Score.Unit),
		pe.Title, ke.Title, pe.URL, ke.URL, now,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert event pair %s: %w", matches.EventPairKey(pe.ID, ke.ID), err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM market_pairs WHERE pm_event_id = ? AND ks_event_ticker = ?`, pe.ID, ke.ID,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear market pairs %s: %w", matches.EventPairKey(pe.ID, ke.ID), err)
	}
	for _, mm := range mms {
		pm, ks := mm.Polymarket, mm.Kalshi
		if _, err := tx.ExecContext(ctx, upsertMarketPairSQL,
			pe.ID, ke.ID, pm.MarketID, ks.MarketID,
			mm.Score.Value, string(mm.Score.Unit),
			pm.Question, ks.Question, pm.URL, ks.URL,
			pm.CloseTime, ks.CloseTime, now,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert market pair %s/%s: %w", pm.MarketID, ks.MarketID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load returns cached market matches for an event pair rebuilt from the live
// markets, so prices are current while scores come from the cache.
//
// It returns nil when nothing is cached for the pair, when any live market on
// either side is missing from the cached set (a new bracket appeared), or when
// no cached row still references two live markets.
func (s *Store) Load(ctx context.Context, pmEvent, ksEvent *collectors.Event) ([]matches.MarketMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT pm_market_id, ks_market_ticker, match_score, score_unit
FROM market_pairs
WHERE pm_event_id = ? AND ks_event_ticker = ?
ORDER BY rowid`, pmEvent.ID, ksEvent.ID)
	if err != nil {
		return nil, fmt.Errorf("query market pairs: %w", err)
	}
	defer rows.Close()

	type cachedPair struct {
		pmID, ksID string
		score      similarity.Score
	}
	var cached []cachedPair
	cachedPM := map[string]struct{}{}
	cachedKS := map[string]struct{}{}
	for rows.Next() {
		var (
			c    cachedPair
			unit string
		)
		if err := rows.Scan(&c.pmID, &c.ksID, &c.score.Value, &unit); err != nil {
			return nil, fmt.Errorf("scan market pair: %w", err)
		}
		u, err := similarity.ParseUnit(unit)
		if err != nil {
			return nil, err
		}
		c.score.Unit = u
		cached = append(cached, c)
		cachedPM[c.pmID] = struct{}{}
		cachedKS[c.ksID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market pairs: %w", err)
	}
	if len(cached) == 0 {
		return nil, nil
	}

	if !covers(cachedPM, pmEvent.MarketIDs()) || !covers(cachedKS, ksEvent.MarketIDs()) {
		return nil, nil
	}

	pmByID := pmEvent.MarketsByID()
	ksByID := ksEvent.MarketsByID()
	var out []matches.MarketMatch
	for _, c := range cached {
		pm, okPM := pmByID[c.pmID]
		ks, okKS := ksByID[c.ksID]
		if !okPM || !okKS {
			continue
		}
		out = append(out, matches.MarketMatch{Polymarket: pm, Kalshi: ks, Score: c.score})
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func covers(cached, live map[string]struct{}) bool {
	for id := range live {
		if _, ok := cached[id]; !ok {
			return false
		}
	}
	return true
}

const eventPairColumns = `pm_event_id, ks_event_ticker, event_score, score_unit,
	pm_title, ks_title, pm_url, ks_url, cached_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEventPair(sc scanner) (EventPairRecord, error) {
	var (
		r                          EventPairRecord
		unit                       string
		pmTitle, ksTitle, pmU, ksU sql.NullString
	)
	if err := sc.Scan(&r.PMEventID, &r.KSEventTicker, &r.Score.Value, &unit,
		&pmTitle, &ksTitle, &pmU, &ksU, &r.CachedAt); err != nil {
		return r, err
	}
	u, err := similarity.ParseUnit(unit)
	if err != nil {
		return r, err
	}
	r.Score.Unit = u
	r.PMTitle, r.KSTitle = pmTitle.String, ksTitle.String
	r.PMURL, r.KSURL = pmU.String, ksU.String
	return r, nil
}

// LookupEventPair returns the cached event pair, or nil when absent.
func (s *Store) LookupEventPair(ctx context.Context, pmEventID, ksEventTicker string) (*EventPairRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventPairColumns+` FROM event_pairs WHERE pm_event_id = ? AND ks_event_ticker = ?`,
		pmEventID, ksEventTicker)
	r, err := scanEventPair(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup event pair: %w", err)
	}
	return &r, nil
}

// ListEventPairs returns every cached event pair, newest first.
func (s *Store) ListEventPairs(ctx context.Context) ([]EventPairRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventPairColumns+` FROM event_pairs ORDER BY cached_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list event pairs: %w", err)
	}
	defer rows.Close()
	var out []EventPairRecord
	for rows.Next() {
		r, err := scanEventPair(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event pair: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListMarketPairs returns every cached market pair, newest first.
func (s *Store) ListMarketPairs(ctx context.Context) ([]MarketPairRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT pm_event_id, ks_event_ticker, pm_market_id, ks_market_ticker,
	match_score, score_unit, pm_question, ks_question, pm_url, ks_url,
	pm_close_time, ks_close_time, cached_at
FROM market_pairs ORDER BY cached_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list market pairs: %w", err)
	}
	defer rows.Close()
	var out []MarketPairRecord
	for rows.Next() {
		var (
			r                                    MarketPairRecord
			unit                                 string
			pmQ, ksQ, pmU, ksU, pmClose, ksClose sql.NullString
		)
		if err := rows.Scan(&r.PMEventID, &r.KSEventTicker, &r.PMMarketID, &r.KSMarketTicker,
			&r.Score.Value, &unit, &pmQ, &ksQ, &pmU, &ksU, &pmClose, &ksClose, &r.CachedAt); err != nil {
			return nil, fmt.Errorf("scan market pair: %w", err)
		}
		u, err := similarity.ParseUnit(unit)
		if err != nil {
			return nil, err
		}
		r.Score.Unit = u
		r.PMQuestion, r.KSQuestion = pmQ.String, ksQ.String
		r.PMURL, r.KSURL = pmU.String, ksU.String
		r.PMCloseTime, r.KSCloseTime = pmClose.String, ksClose.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats counts cached rows and reports the oldest and newest event pair.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{DBPath: s.path}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_pairs`).Scan(&st.EventPairs); err != nil {
		return st, fmt.Errorf("count event pairs: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM market_pairs`).Scan(&st.MarketPairs); err != nil {
		return st, fmt.Errorf("count market pairs: %w", err)
	}
	var oldest, newest sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(cached_at), MAX(cached_at) FROM event_pairs`).Scan(&oldest, &newest); err != nil {
		return st, fmt.Errorf("cache age: %w", err)
	}
	st.OldestEntry, st.NewestEntry = oldest.String, newest.String
	return st, nil
}
