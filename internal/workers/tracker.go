package workers

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/hetulpatel/crossarb/internal/queue"
)

// Tracker remembers the last profit seen per market pair and prints a line
// only when a pair is new or its profit moved by at least MinChange.
type Tracker struct {
	mu        sync.Mutex
	out       io.Writer
	minChange float64
	last      map[string]float64
}

func NewTracker(out io.Writer, minChange float64) *Tracker {
	return &Tracker{out: out, minChange: minChange, last: make(map[string]float64)}
}

// Handle satisfies Handler.
func (t *Tracker) Handle(_ context.Context, msg *queue.OpportunityMessage) error {
	t.mu.Lock()
	prev, seen := t.last[msg.PairID]
	profit := msg.Opportunity.Profit
	if seen && math.Abs(profit-prev) < t.minChange {
		t.mu.Unlock()
		return nil
	}
	t.last[msg.PairID] = profit
	t.mu.Unlock()

	op := msg.Opportunity
	annual := "n/a"
	if op.AnnualizedReturn != nil {
		annual = fmt.Sprintf("%.1f%%", *op.AnnualizedReturn*100)
	}
	status := "new"
	if seen {
		status = fmt.Sprintf("was %.4f", prev)
	}
	_, err := fmt.Fprintf(t.out, "[arb-opportunity] pair=%s run=%s rank=%d leg=%s profit=%.4f annualized=%s (%s) pm=%q ks=%q\n",
		msg.PairID, msg.RunID, msg.Rank, op.BestLeg, profit, annual, status, op.Polymarket.Question, op.Kalshi.Question)
	return err
}

// Len is the number of pairs seen so far.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}
