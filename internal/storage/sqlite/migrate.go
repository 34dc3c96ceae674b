package sqlite

import (
	"context"
	"fmt"
)

var scoredTables = []struct {
	table, scoreCol string
}{
	{"event_pairs", "event_score"},
	{"market_pairs", "match_score"},
}

// MigrateScoreUnits upgrades caches written before scores carried a unit.
// It adds the score_unit column where missing and relabels any cosine score
// above 1 as lexical. Returns the number of relabeled rows.
func (s *Store) MigrateScoreUnits(ctx context.Context) (int64, error) {
	return s.migrateScoreUnits(ctx, true)
}

// addScoreUnits is the cheap check Open runs: tables that already carry
// score_unit are left untouched.
func (s *Store) addScoreUnits(ctx context.Context) error {
	_, err := s.migrateScoreUnits(ctx, false)
	return err
}

func (s *Store) migrateScoreUnits(ctx context.Context, relabelAll bool) (int64, error) {
	var relabeled int64
	for _, t := range scoredTables {
		has, err := s.hasColumn(ctx, t.table, "score_unit")
		if err != nil {
			return relabeled, err
		}
		if !has {
			stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN score_unit TEXT NOT NULL DEFAULT 'cosine'`, t.table)
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return relabeled, fmt.Errorf("add score_unit to %s: %w", t.table, err)
			}
		}
		if has && !relabelAll {
			continue
		}
		stmt := fmt.Sprintf(`UPDATE %s SET score_unit = 'lexical' WHERE score_unit = 'cosine' AND %s > 1`, t.table, t.scoreCol)
		res, err := s.db.ExecContext(ctx, stmt)
		if err != nil {
			return relabeled, fmt.Errorf("relabel %s: %w", t.table, err)
		}
		n, _ := res.RowsAffected()
		relabeled += n
	}
	return relabeled, nil
}

func (s *Store) hasColumn(ctx context.Context, table, column string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
