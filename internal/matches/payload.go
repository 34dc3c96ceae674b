package matches

import (
	"github.com/hetulpatel/crossarb/internal/collectors"
	"github.com/hetulpatel/crossarb/internal/similarity"
)

// EventMatch pairs one Polymarket event with one Kalshi event.
type EventMatch struct {
	Polymarket collectors.Event `json:"poly_event"`
	Kalshi     collectors.Event `json:"kalshi_event"`
	Score      similarity.Score `json:"score"`
}

// MarketMatch pairs one Polymarket market (bracket) with one Kalshi market.
type MarketMatch struct {
	Polymarket collectors.Market `json:"poly_market"`
	Kalshi     collectors.Market `json:"kalshi_market"`
	Score      similarity.Score  `json:"score"`
}

// BracketMatch is a matched event pair together with its matched sub-markets.
// Markets is empty when either side has no markets.
type BracketMatch struct {
	Event   EventMatch    `json:"event_match"`
	Markets []MarketMatch `json:"market_matches"`
}

// CountMarkets sums matched brackets across pairs.
func CountMarkets(pairs []BracketMatch) int {
	n := 0
	for _, p := range pairs {
		n += len(p.Markets)
	}
	return n
}
