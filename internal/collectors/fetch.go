package collectors

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hetulpatel/crossarb/internal/logging"
)

// FetchResult holds the outcome of fetching both venues. A venue that failed
// has a nil event slice and its error recorded; the other venue is unaffected.
type FetchResult struct {
	Polymarket    []Event
	Kalshi        []Event
	PolymarketErr error
	KalshiErr     error
}

// FetchBoth queries both collectors concurrently.
func FetchBoth(ctx context.Context, pm, ks Collector, opts FetchOptions) FetchResult {
	var res FetchResult
	// Venue errors stay on their side of the result; the group is only a
	// join, so one failure never cancels gctx for the other fetch.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.Polymarket, res.PolymarketErr = pm.Fetch(gctx, opts)
		if res.PolymarketErr != nil {
			logging.Errorf("[%s] fetch failed: %v", pm.Name(), res.PolymarketErr)
		}
		return nil
	})
	g.Go(func() error {
		res.Kalshi, res.KalshiErr = ks.Fetch(gctx, opts)
		if res.KalshiErr != nil {
			logging.Errorf("[%s] fetch failed: %v", ks.Name(), res.KalshiErr)
		}
		return nil
	})
	_ = g.Wait()
	return res
}
