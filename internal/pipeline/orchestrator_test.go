package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/hetulpatel/crossarb/internal/collectors"
	"github.com/hetulpatel/crossarb/internal/matches"
	"github.com/hetulpatel/crossarb/internal/similarity"
)

type fakeProvider struct {
	vecs  map[string][]float32
	err   error
	calls int
}

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := f.vecs[t]
		if !ok {
			v = []float32{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

type fakeCache struct {
	loaded  []matches.MarketMatch
	loadErr error
	saveErr error
	loads   int
	saves   []int
}

func (c *fakeCache) Load(context.Context, *collectors.Event, *collectors.Event) ([]matches.MarketMatch, error) {
	c.loads++
	return c.loaded, c.loadErr
}

func (c *fakeCache) Save(_ context.Context, _ *matches.EventMatch, mms []matches.MarketMatch) error {
	c.saves = append(c.saves, len(mms))
	return c.saveErr
}

func newEvent(venue collectors.Venue, id, title string, questions ...string) collectors.Event {
	e := collectors.Event{Venue: venue, ID: id, Title: title}
	for i, q := range questions {
		e.Markets = append(e.Markets, collectors.Market{
			Question:      q,
			Venue:         venue,
			MarketID:      id + "-" + string(rune('a'+i)),
			ParentEventID: id,
		})
	}
	return e
}

func scenario() ([]collectors.Event, []collectors.Event) {
	pm := []collectors.Event{
		newEvent(collectors.VenuePolymarket, "pm-fed", "Fed decision in March 2026",
			"Fed cuts rates by 25 bps in March",
			"Fed holds rates in March",
			"Fed hikes rates in March"),
		newEvent(collectors.VenuePolymarket, "pm-sb", "Super Bowl LX winner", "Chiefs win Super Bowl LX"),
	}
	ks := []collectors.Event{
		newEvent(collectors.VenueKalshi, "KXFED", "Fed decision March 2026",
			"Fed cuts rates 25 bps in March",
			"Fed holds rates steady in March"),
		newEvent(collectors.VenueKalshi, "KXOSCAR", "Oscars Best Picture 2026", "Oppenheimer wins"),
	}
	return pm, ks
}

func defaultOptions() Options {
	return Options{
		EventMinScore:  similarity.Threshold(0.75),
		MarketMinScore: similarity.Threshold(0.82),
		UseEmbeddings:  true,
		UseCache:       true,
	}
}

func checkFedScenario(t *testing.T, got []matches.BracketMatch) {
	t.Helper()
	if len(got) != 1 {
		t.Fatalf("event pairs = %d, want 1", len(got))
	}
	em := got[0].Event
	if em.Polymarket.ID != "pm-fed" || em.Kalshi.ID != "KXFED" {
		t.Errorf("event match = %s/%s", em.Polymarket.ID, em.Kalshi.ID)
	}
	if em.Score.Unit != similarity.Lexical || em.Score.Value < 75 {
		t.Errorf("event score = %+v", em.Score)
	}
	mms := got[0].Markets
	if len(mms) != 2 {
		t.Fatalf("market matches = %d, want 2 (%+v)", len(mms), mms)
	}
	want := map[string]string{"pm-fed-a": "KXFED-a", "pm-fed-b": "KXFED-b"}
	for _, mm := range mms {
		if want[mm.Polymarket.MarketID] != mm.Kalshi.MarketID {
			t.Errorf("unexpected pair %s -> %s", mm.Polymarket.MarketID, mm.Kalshi.MarketID)
		}
		if mm.Score.Value < 82 || mm.Score.Unit != similarity.Lexical {
			t.Errorf("market score = %+v", mm.Score)
		}
		if mm.Score != mm.Score.Rounded() {
			t.Errorf("score %v not rounded to 4 places", mm.Score.Value)
		}
	}
}

func TestMatchBrackets_LexicalEndToEnd(t *testing.T) {
	pm, ks := scenario()
	opts := defaultOptions()
	opts.UseEmbeddings = false
	opts.UseCache = false
	o := &Orchestrator{}
	got, err := o.MatchBrackets(context.Background(), pm, ks, opts)
	if err != nil {
		t.Fatalf("MatchBrackets: %v", err)
	}
	checkFedScenario(t, got)
}

func TestMatchBrackets_ProviderFailureFallsBack(t *testing.T) {
	pm, ks := scenario()
	p := &fakeProvider{err: errors.New("upstream 503")}
	c := &fakeCache{}
	o := &Orchestrator{Provider: p, Cache: c}
	got, err := o.MatchBrackets(context.Background(), pm, ks, defaultOptions())
	if err != nil {
		t.Fatalf("MatchBrackets: %v", err)
	}
	checkFedScenario(t, got)
	if p.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (events, brackets)", p.calls)
	}
	if c.loads != 1 || len(c.saves) != 1 || c.saves[0] != 2 {
		t.Errorf("cache loads=%d saves=%v, want 1 load and one save of 2", c.loads, c.saves)
	}
}

func TestMatchEvents_Embeddings(t *testing.T) {
	pm := []collectors.Event{
		newEvent(collectors.VenuePolymarket, "p1", "Who wins the election"),
		newEvent(collectors.VenuePolymarket, "p2", "Rain in London"),
	}
	ks := []collectors.Event{
		newEvent(collectors.VenueKalshi, "K1", "London rainfall"),
		newEvent(collectors.VenueKalshi, "K2", "Election winner"),
	}
	p := &fakeProvider{vecs: map[string][]float32{
		"Who wins the election": {1, 0, 0},
		"Election winner":       {0.9, 0.1, 0},
		"Rain in London":        {0, 1, 0},
		"London rainfall":       {0, 0.95, 0.05},
	}}
	o := &Orchestrator{Provider: p}
	got, err := o.MatchEvents(context.Background(), pm, ks, similarity.Threshold(0.8), true)
	if err != nil {
		t.Fatalf("MatchEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, em := range got {
		if em.Score.Unit != similarity.Cosine {
			t.Errorf("score unit = %s, want cosine", em.Score.Unit)
		}
		if (em.Polymarket.ID == "p1") != (em.Kalshi.ID == "K2") {
			t.Errorf("wrong pair %s -> %s", em.Polymarket.ID, em.Kalshi.ID)
		}
	}
}

func TestMatchEvents_LexicalThresholdUsedAsIs(t *testing.T) {
	pm, ks := scenario()
	o := &Orchestrator{}
	got, err := o.MatchEvents(context.Background(), pm, ks, similarity.Threshold(95), false)
	if err != nil {
		t.Fatalf("MatchEvents: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d matches above 95, want 0", len(got))
	}
}

func TestMatchBrackets_SingleMarketUsesEventScore(t *testing.T) {
	pm := []collectors.Event{newEvent(collectors.VenuePolymarket, "p1", "Bitcoin above 100k in 2026", "Yes")}
	ks := []collectors.Event{newEvent(collectors.VenueKalshi, "K1", "Bitcoin above 100k 2026", "Bitcoin above 100k 2026: completely different wording")}
	c := &fakeCache{}
	o := &Orchestrator{Cache: c}
	opts := defaultOptions()
	opts.UseEmbeddings = false
	got, err := o.MatchBrackets(context.Background(), pm, ks, opts)
	if err != nil {
		t.Fatalf("MatchBrackets: %v", err)
	}
	if len(got) != 1 || len(got[0].Markets) != 1 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Markets[0].Score != got[0].Event.Score {
		t.Errorf("bracket score %v != event score %v", got[0].Markets[0].Score, got[0].Event.Score)
	}
	if c.loads != 0 || len(c.saves) != 1 {
		t.Errorf("cache loads=%d saves=%v, want no load and one save", c.loads, c.saves)
	}
}

func TestMatchBrackets_EmptySide(t *testing.T) {
	pm := []collectors.Event{newEvent(collectors.VenuePolymarket, "p1", "Fed decision March 2026")}
	ks := []collectors.Event{newEvent(collectors.VenueKalshi, "K1", "Fed decision March 2026", "Cut", "Hold")}
	c := &fakeCache{}
	o := &Orchestrator{Cache: c}
	got, err := o.MatchBrackets(context.Background(), pm, ks, defaultOptions())
	if err != nil {
		t.Fatalf("MatchBrackets: %v", err)
	}
	if len(got) != 1 || got[0].Markets == nil || len(got[0].Markets) != 0 {
		t.Fatalf("got %+v, want one pair with an empty market list", got)
	}
	if c.loads != 0 || len(c.saves) != 0 {
		t.Errorf("cache touched for empty side: loads=%d saves=%v", c.loads, c.saves)
	}
}

func TestMatchBrackets_CacheHit(t *testing.T) {
	pm, ks := scenario()
	cached := []matches.MarketMatch{{
		Polymarket: pm[0].Markets[2],
		Kalshi:     ks[0].Markets[1],
		Score:      similarity.CosineScore(0.9),
	}}
	c := &fakeCache{loaded: cached}
	p := &fakeProvider{err: errors.New("down")}
	o := &Orchestrator{Provider: p, Cache: c}
	got, err := o.MatchBrackets(context.Background(), pm, ks, defaultOptions())
	if err != nil {
		t.Fatalf("MatchBrackets: %v", err)
	}
	if len(got) != 1 || len(got[0].Markets) != 1 || got[0].Markets[0].Polymarket.MarketID != "pm-fed-c" {
		t.Fatalf("got %+v, want the cached pair", got)
	}
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (events only)", p.calls)
	}
	if len(c.saves) != 0 {
		t.Errorf("cache hit saved again: %v", c.saves)
	}
}

func TestMatchBrackets_RefreshSkipsLoad(t *testing.T) {
	pm, ks := scenario()
	c := &fakeCache{loaded: []matches.MarketMatch{{}}}
	o := &Orchestrator{Cache: c}
	opts := defaultOptions()
	opts.UseEmbeddings = false
	opts.RefreshCache = true
	got, err := o.MatchBrackets(context.Background(), pm, ks, opts)
	if err != nil {
		t.Fatalf("MatchBrackets: %v", err)
	}
	checkFedScenario(t, got)
	if c.loads != 0 || len(c.saves) != 1 {
		t.Errorf("loads=%d saves=%v, want 0 loads and 1 save", c.loads, c.saves)
	}
}

func TestMatchBrackets_CacheErrorsPropagate(t *testing.T) {
	pm, ks := scenario()
	boom := errors.New("disk full")
	for _, c := range []*fakeCache{{loadErr: boom}, {saveErr: boom}} {
		o := &Orchestrator{Cache: c}
		opts := defaultOptions()
		opts.UseEmbeddings = false
		if _, err := o.MatchBrackets(context.Background(), pm, ks, opts); !errors.Is(err, boom) {
			t.Errorf("err = %v, want wrapped %v", err, boom)
		}
	}
}

func TestMatchBrackets_Progress(t *testing.T) {
	pm, ks := scenario()
	var msgs []string
	opts := defaultOptions()
	opts.UseEmbeddings = false
	opts.UseCache = false
	opts.Progress = func(m string) { msgs = append(msgs, m) }
	if _, err := (&Orchestrator{}).MatchBrackets(context.Background(), pm, ks, opts); err != nil {
		t.Fatalf("MatchBrackets: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("progress = %q", msgs)
	}
	if msgs[2] != "Matched 1 event pairs, 2 brackets" {
		t.Errorf("last progress = %q", msgs[2])
	}
}
