package collectors

import (
	"context"
	"fmt"
)

// Venue identifies the platform a market/event belongs to.
type Venue string

const (
	VenuePolymarket Venue = "polymarket"
	VenueKalshi     Venue = "kalshi"
)

// FetchOptions control how many events a collector returns per call.
type FetchOptions struct {
	Limit    int
	Category string
}

// Collector is implemented by venue-specific fetchers (Polymarket, Kalshi).
// Each collector is responsible for fetching and normalizing events into the
// shared Event/Market shape; the matcher never sees raw venue payloads.
type Collector interface {
	Name() string
	Fetch(ctx context.Context, opts FetchOptions) ([]Event, error)
}

// Event is a top-level topic containing one or more tradeable markets (brackets).
type Event struct {
	Venue     Venue    `json:"source"`
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Category  string   `json:"category"`
	Volume    float64  `json:"volume"`
	Liquidity float64  `json:"liquidity"`
	EndDate   string   `json:"end_date"`
	URL       string   `json:"url"`
	Markets   []Market `json:"markets"`
}

// Market is a single yes/no contract belonging to an event.
// CloseTime is a YYYY-MM-DD date, or empty when unknown.
type Market struct {
	Question         string  `json:"question"`
	YesPrice         float64 `json:"yes_price"`
	NoPrice          float64 `json:"no_price"`
	Volume           float64 `json:"volume"`
	Venue            Venue   `json:"source"`
	MarketID         string  `json:"market_id"`
	ParentEventID    string  `json:"parent_event_id"`
	ParentEventTitle string  `json:"parent_event_title"`
	CloseTime        string  `json:"close_time"`
	URL              string  `json:"url"`
}

// Validate checks that every market belongs to the event it is nested in.
func (e *Event) Validate() error {
	for i := range e.Markets {
		m := &e.Markets[i]
		if m.Venue != e.Venue {
			return fmt.Errorf("event %s: market %s has venue %q, want %q", e.ID, m.MarketID, m.Venue, e.Venue)
		}
		if m.ParentEventID != e.ID {
			return fmt.Errorf("event %s: market %s has parent %q", e.ID, m.MarketID, m.ParentEventID)
		}
	}
	return nil
}

// MarketIDs returns the set of market ids in the event.
func (e *Event) MarketIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(e.Markets))
	for _, m := range e.Markets {
		out[m.MarketID] = struct{}{}
	}
	return out
}

// MarketsByID indexes the event's markets by id.
func (e *Event) MarketsByID() map[string]Market {
	out := make(map[string]Market, len(e.Markets))
	for _, m := range e.Markets {
		out[m.MarketID] = m
	}
	return out
}

// Titles returns event titles in order.
func Titles(events []Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Title
	}
	return out
}

// Questions returns market questions in order.
func Questions(markets []Market) []string {
	out := make([]string, len(markets))
	for i, m := range markets {
		out[i] = m.Question
	}
	return out
}
