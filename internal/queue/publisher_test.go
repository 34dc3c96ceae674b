package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/hetulpatel/crossarb/internal/collectors"
	"github.com/hetulpatel/crossarb/internal/matches"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func opportunity(pmID, ksID string, profit float64) matches.Opportunity {
	return matches.Opportunity{
		Polymarket: collectors.Market{MarketID: pmID, Venue: collectors.VenuePolymarket},
		Kalshi:     collectors.Market{MarketID: ksID, Venue: collectors.VenueKalshi},
		BestLeg:    matches.LegBuyYesKalshiBuyNoPM,
		Spread:     1 - profit,
		Profit:     profit,
	}
}

func TestPublishOpportunities(t *testing.T) {
	w := &recordingWriter{}
	ops := []matches.Opportunity{
		opportunity("p1", "K1", 0.07),
		opportunity("p2", "K2", 0.03),
	}
	if err := PublishOpportunities(context.Background(), w, "run-1", ops); err != nil {
		t.Fatalf("PublishOpportunities: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("wrote %d messages, want 2", len(w.msgs))
	}
	for i, m := range w.msgs {
		if string(m.Key) != ops[i].PairID() {
			t.Errorf("msg %d key = %s, want pair id", i, m.Key)
		}
		got, err := DecodeOpportunity(m.Value)
		if err != nil {
			t.Fatalf("DecodeOpportunity: %v", err)
		}
		if got.RunID != "run-1" || got.Rank != i+1 {
			t.Errorf("msg %d = run %q rank %d", i, got.RunID, got.Rank)
		}
		if got.Opportunity.Profit != ops[i].Profit || got.Opportunity.BestLeg != matches.LegBuyYesKalshiBuyNoPM {
			t.Errorf("msg %d opportunity = %+v", i, got.Opportunity)
		}
	}
}

func TestPublishOpportunities_NothingToSend(t *testing.T) {
	w := &recordingWriter{}
	if err := PublishOpportunities(context.Background(), w, "run", nil); err != nil || len(w.msgs) != 0 {
		t.Errorf("empty publish = %v, %d msgs", err, len(w.msgs))
	}
	if err := PublishOpportunities(context.Background(), nil, "run", []matches.Opportunity{opportunity("p", "K", 0.1)}); err != nil {
		t.Errorf("nil writer = %v", err)
	}
}

func TestPublishOpportunities_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	w := &recordingWriter{err: boom}
	err := PublishOpportunities(context.Background(), w, "run", []matches.Opportunity{opportunity("p", "K", 0.1)})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped broker error", err)
	}
}

func TestDecodeOpportunity_Invalid(t *testing.T) {
	if _, err := DecodeOpportunity([]byte("{")); err == nil {
		t.Error("expected error for truncated json")
	}
	if _, err := DecodeOpportunity([]byte(`{"run_id":"x"}`)); err == nil {
		t.Error("expected error for missing pair_id")
	}
}
