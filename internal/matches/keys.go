package matches

import (
	"fmt"

	"github.com/hetulpatel/crossarb/internal/collectors"
	"github.com/hetulpatel/crossarb/internal/hashutil"
)

// PairID builds a stable id for a (Polymarket, Kalshi) market pair.
func PairID(pm, ks collectors.Market) string {
	return hashutil.HashStrings(
		fmt.Sprintf("%s:%s", collectors.VenuePolymarket, pm.MarketID),
		fmt.Sprintf("%s:%s", collectors.VenueKalshi, ks.MarketID),
	)
}

// EventPairKey is the human-readable cache key of an event pair.
func EventPairKey(pmEventID, ksEventTicker string) string {
	return fmt.Sprintf("%s|%s", pmEventID, ksEventTicker)
}
