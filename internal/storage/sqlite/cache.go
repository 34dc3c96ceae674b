package sqlite

import (
	"context"

	"github.com/hetulpatel/crossarb/internal/collectors"
	"github.com/hetulpatel/crossarb/internal/matches"
)

// MatchCache opens the database for each operation and closes it afterwards,
// so callers on different goroutines never share a connection.
type MatchCache struct {
	Path string
}

func (c MatchCache) with(fn func(*Store) error) error {
	s, err := Open(c.Path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func (c MatchCache) Save(ctx context.Context, em *matches.EventMatch, mms []matches.MarketMatch) error {
	return c.with(func(s *Store) error {
		return s.Save(ctx, em, mms)
	})
}

func (c MatchCache) Load(ctx context.Context, pmEvent, ksEvent *collectors.Event) ([]matches.MarketMatch, error) {
	var out []matches.MarketMatch
	err := c.with(func(s *Store) error {
		var err error
		out, err = s.Load(ctx, pmEvent, ksEvent)
		return err
	})
	return out, err
}

func (c MatchCache) LookupEventPair(ctx context.Context, pmEventID, ksEventTicker string) (*EventPairRecord, error) {
	var out *EventPairRecord
	err := c.with(func(s *Store) error {
		var err error
		out, err = s.LookupEventPair(ctx, pmEventID, ksEventTicker)
		return err
	})
	return out, err
}

func (c MatchCache) ListEventPairs(ctx context.Context) ([]EventPairRecord, error) {
	var out []EventPairRecord
	err := c.with(func(s *Store) error {
		var err error
		out, err = s.ListEventPairs(ctx)
		return err
	})
	return out, err
}

func (c MatchCache) ListMarketPairs(ctx context.Context) ([]MarketPairRecord, error) {
	var out []MarketPairRecord
	err := c.with(func(s *Store) error {
		var err error
		out, err = s.ListMarketPairs(ctx)
		return err
	})
	return out, err
}

func (c MatchCache) Clear(ctx context.Context) error {
	return c.with(func(s *Store) error {
		return s.Clear(ctx)
	})
}

func (c MatchCache) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	err := c.with(func(s *Store) error {
		var err error
		out, err = s.Stats(ctx)
		return err
	})
	return out, err
}
