package workers

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/hetulpatel/crossarb/internal/collectors"
	"github.com/hetulpatel/crossarb/internal/matches"
	"github.com/hetulpatel/crossarb/internal/queue"
)

type captureWriter struct {
	msgs []kafkago.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

// scriptedReader replays msgs and errs in order, then cancels the consumer.
type scriptedReader struct {
	steps  []func() (kafkago.Message, error)
	cancel context.CancelFunc
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafkago.Message, error) {
	if len(r.steps) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	step := r.steps[0]
	r.steps = r.steps[1:]
	return step()
}

func published(t *testing.T, profits ...float64) []kafkago.Message {
	t.Helper()
	ops := make([]matches.Opportunity, len(profits))
	for i, p := range profits {
		ops[i] = matches.Opportunity{
			Polymarket: collectors.Market{MarketID: "p1", Question: "Fed cuts 25 bps?"},
			Kalshi:     collectors.Market{MarketID: "K1", Question: "Fed decision: Cut 25bps"},
			BestLeg:    matches.LegBuyYesPMBuyNoKalshi,
			Profit:     p,
		}
	}
	w := &captureWriter{}
	if err := queue.PublishOpportunities(context.Background(), w, "run-1", ops); err != nil {
		t.Fatalf("publish: %v", err)
	}
	return w.msgs
}

func TestConsume_SkipsBadMessages(t *testing.T) {
	msgs := published(t, 0.07)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &scriptedReader{cancel: cancel, steps: []func() (kafkago.Message, error){
		func() (kafkago.Message, error) { return kafkago.Message{}, errors.New("transient") },
		func() (kafkago.Message, error) { return kafkago.Message{Value: []byte("not json")}, nil },
		func() (kafkago.Message, error) { return msgs[0], nil },
	}}

	var got []*queue.OpportunityMessage
	Consume(ctx, reader, func(_ context.Context, m *queue.OpportunityMessage) error {
		got = append(got, m)
		return errors.New("handler errors are logged, not fatal")
	})
	if len(got) != 1 || got[0].Opportunity.Profit != 0.07 {
		t.Fatalf("handled %+v, want the one valid message", got)
	}
}

func TestTracker_ReportsNewAndChanged(t *testing.T) {
	msgs := published(t, 0.07)
	first, _ := queue.DecodeOpportunity(msgs[0].Value)
	same := *first
	moved := *first
	moved.Opportunity.Profit = 0.09

	var buf bytes.Buffer
	tr := NewTracker(&buf, 0.005)
	for _, m := range []*queue.OpportunityMessage{first, &same, &moved} {
		if err := tr.Handle(context.Background(), m); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("printed %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "(new)") || !strings.Contains(lines[0], "annualized=n/a") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "profit=0.0900") || !strings.Contains(lines[1], "was 0.0700") {
		t.Errorf("second line = %q", lines[1])
	}
	if tr.Len() != 1 {
		t.Errorf("Len = %d, want 1", tr.Len())
	}
}
