package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/hetulpatel/crossarb/internal/similarity"
)

const legacySchema = `
CREATE TABLE event_pairs (
	pm_event_id TEXT NOT NULL, ks_event_ticker TEXT NOT NULL, event_score REAL NOT NULL,
	pm_title TEXT, ks_title TEXT, pm_url TEXT, ks_url TEXT, cached_at TEXT NOT NULL,
	PRIMARY KEY (pm_event_id, ks_event_ticker)
);
CREATE TABLE market_pairs (
	pm_event_id TEXT NOT NULL, ks_event_ticker TEXT NOT NULL,
	pm_market_id TEXT NOT NULL, ks_market_ticker TEXT NOT NULL, match_score REAL NOT NULL,
	pm_question TEXT, ks_question TEXT, pm_url TEXT, ks_url TEXT,
	pm_close_time TEXT, ks_close_time TEXT, cached_at TEXT NOT NULL,
	PRIMARY KEY (pm_market_id, ks_market_ticker)
);
INSERT INTO event_pairs VALUES ('pm-1', 'KX-1', 0.91, 'a', 'b', NULL, NULL, '2026-01-01T00:00:00Z');
INSERT INTO event_pairs VALUES ('pm-2', 'KX-2', 88, 'c', 'd', NULL, NULL, '2026-01-01T00:00:00Z');
INSERT INTO market_pairs VALUES ('pm-2', 'KX-2', 'p1', 'K1', 92, 'q', 'r', NULL, NULL, NULL, NULL, '2026-01-01T00:00:00Z');
`

func TestOpen_MigratesLegacyCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	if _, err := db.Exec(legacySchema); err != nil {
		t.Fatalf("legacy schema: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	cosine, err := s.LookupEventPair(ctx, "pm-1", "KX-1")
	if err != nil || cosine == nil {
		t.Fatalf("LookupEventPair pm-1 = %v, %v", cosine, err)
	}
	if cosine.Score != similarity.CosineScore(0.91) {
		t.Errorf("pm-1 score = %+v, want cosine 0.91", cosine.Score)
	}
	lexical, err := s.LookupEventPair(ctx, "pm-2", "KX-2")
	if err != nil || lexical == nil {
		t.Fatalf("LookupEventPair pm-2 = %v, %v", lexical, err)
	}
	if lexical.Score != similarity.LexicalScore(88) {
		t.Errorf("pm-2 score = %+v, want lexical 88", lexical.Score)
	}
	mps, err := s.ListMarketPairs(ctx)
	if err != nil || len(mps) != 1 || mps[0].Score.Unit != similarity.Lexical {
		t.Errorf("market pairs = %+v, %v", mps, err)
	}

	// A second pass finds nothing left to do.
	n, err := s.MigrateScoreUnits(ctx)
	if err != nil || n != 0 {
		t.Errorf("second migration = %d, %v", n, err)
	}
}

func TestOpen_LeavesCurrentSchemaAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	// A mislabeled row that only the explicit migration should touch.
	if _, err := s.db.Exec(`INSERT INTO event_pairs (pm_event_id, ks_event_ticker, event_score, score_unit, cached_at)
VALUES ('pm-9', 'KX-9', 77, 'cosine', '2026-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	rec, err := s.LookupEventPair(ctx, "pm-9", "KX-9")
	if err != nil || rec == nil {
		t.Fatalf("LookupEventPair = %v, %v", rec, err)
	}
	if rec.Score.Unit != similarity.Cosine {
		t.Errorf("Open relabeled a current-schema row: %+v", rec.Score)
	}

	n, err := s.MigrateScoreUnits(ctx)
	if err != nil || n != 1 {
		t.Fatalf("MigrateScoreUnits = %d, %v; want 1 row", n, err)
	}
	rec, _ = s.LookupEventPair(ctx, "pm-9", "KX-9")
	if rec == nil || rec.Score != similarity.LexicalScore(77) {
		t.Errorf("after migrate = %+v, want lexical 77", rec)
	}
}
