package collectors

import (
	"context"
	"errors"
	"testing"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"crypto", "Crypto"},
		{" Bitcoin ", "Crypto"},
		{"Elections", "Politics"},
		{"pop culture", "Entertainment"},
		{"", "Other"},
		{"space exploration", "Space Exploration"},
	}
	for _, tt := range tests {
		if got := NormalizeCategory(tt.in); got != tt.want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGroupByCategory(t *testing.T) {
	events := []Event{
		{ID: "1", Category: "sports"},
		{ID: "2", Category: "crypto"},
		{ID: "3", Category: "Sport"},
		{ID: "4", Category: ""},
	}
	groups := GroupByCategory(events)
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3", len(groups))
	}
	wantOrder := []string{"Crypto", "Other", "Sports"}
	for i, g := range groups {
		if g.Category != wantOrder[i] {
			t.Errorf("groups[%d].Category = %q, want %q", i, g.Category, wantOrder[i])
		}
	}
	if len(groups[2].Events) != 2 || groups[2].Events[0].ID != "1" || groups[2].Events[1].ID != "3" {
		t.Errorf("Sports group = %+v, want events 1 and 3 in order", groups[2].Events)
	}
}

func TestEventValidate(t *testing.T) {
	ev := Event{
		Venue: VenuePolymarket,
		ID:    "e1",
		Markets: []Market{
			{Venue: VenuePolymarket, MarketID: "m1", ParentEventID: "e1"},
		},
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	ev.Markets = append(ev.Markets, Market{Venue: VenueKalshi, MarketID: "m2", ParentEventID: "e1"})
	if err := ev.Validate(); err == nil {
		t.Error("Validate() = nil, want venue mismatch error")
	}

	ev.Markets[1] = Market{Venue: VenuePolymarket, MarketID: "m2", ParentEventID: "other"}
	if err := ev.Validate(); err == nil {
		t.Error("Validate() = nil, want parent mismatch error")
	}
}

type stubCollector struct {
	name   string
	events []Event
	err    error
}

func (s stubCollector) Name() string { return s.name }

func (s stubCollector) Fetch(ctx context.Context, opts FetchOptions) ([]Event, error) {
	return s.events, s.err
}

func TestFetchBoth_OneVenueFails(t *testing.T) {
	pm := stubCollector{name: "polymarket", events: []Event{{ID: "a"}}}
	ks := stubCollector{name: "kalshi", err: errors.New("401")}

	res := FetchBoth(context.Background(), pm, ks, FetchOptions{Limit: 10})
	if res.PolymarketErr != nil {
		t.Errorf("PolymarketErr = %v, want nil", res.PolymarketErr)
	}
	if len(res.Polymarket) != 1 {
		t.Errorf("len(Polymarket) = %d, want 1", len(res.Polymarket))
	}
	if res.KalshiErr == nil {
		t.Error("KalshiErr = nil, want error")
	}
	if res.Kalshi != nil {
		t.Errorf("Kalshi = %v, want nil", res.Kalshi)
	}
}
