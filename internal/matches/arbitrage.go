package matches

import "github.com/hetulpatel/crossarb/internal/collectors"

// Leg names which pair of opposite outcomes is bought across the two venues.
type Leg string

const (
	LegBuyYesPMBuyNoKalshi Leg = "BUY_YES_PM_BUY_NO_KALSHI"
	LegBuyYesKalshiBuyNoPM Leg = "BUY_YES_KALSHI_BUY_NO_PM"
)

// Opportunity is a priced cross-venue arbitrage on one matched bracket pair.
// Spread is the cost of both legs; Profit = 1 - Spread (gross, no fees).
type Opportunity struct {
	Polymarket       collectors.Market `json:"poly_market"`
	Kalshi           collectors.Market `json:"kalshi_market"`
	MatchScore       float64           `json:"match_score"`
	ScoreUnit        string            `json:"score_unit"`
	BestLeg          Leg               `json:"best_leg"`
	Spread           float64           `json:"spread"`
	Profit           float64           `json:"profit"`
	DaysToResolution *int              `json:"days_to_resolution"`
	AnnualizedReturn *float64          `json:"annualized_return"`
}

// PairID is the canonical id of the underlying market pair.
func (o *Opportunity) PairID() string {
	return PairID(o.Polymarket, o.Kalshi)
}
