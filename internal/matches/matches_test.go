package matches

import (
	"testing"

	"github.com/hetulpatel/crossarb/internal/collectors"
)

func TestPairIDStable(t *testing.T) {
	pm := collectors.Market{MarketID: "512"}
	ks := collectors.Market{MarketID: "KXFED-25DEC-T4.00"}
	a := PairID(pm, ks)
	b := PairID(pm, ks)
	if a != b {
		t.Fatalf("PairID not stable: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("len(PairID) = %d, want 64 hex chars", len(a))
	}
	if PairID(ks, pm) == a {
		t.Error("PairID should depend on which side each market is on")
	}
}

func TestCountMarkets(t *testing.T) {
	pairs := []BracketMatch{
		{Markets: make([]MarketMatch, 2)},
		{},
		{Markets: make([]MarketMatch, 3)},
	}
	if got := CountMarkets(pairs); got != 5 {
		t.Errorf("CountMarkets = %d, want 5", got)
	}
}

func TestEventPairKey(t *testing.T) {
	if got := EventPairKey("123", "KXBTC"); got != "123|KXBTC" {
		t.Errorf("EventPairKey = %q", got)
	}
}
