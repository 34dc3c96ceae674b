package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type embeddingReq struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// fakeAPI answers /v1/embeddings with one vector per input: [len(text), index].
type fakeAPI struct {
	mu          sync.Mutex
	calls       int
	batches     [][]string
	rateLimited int
}

func (f *fakeAPI) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.rateLimited > 0 {
		f.rateLimited--
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota exceeded, please retry in 3s","type":"rate_limit"}}`))
		return
	}
	var req embeddingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.batches = append(f.batches, req.Input)
	data := make([]map[string]any, len(req.Input))
	// reversed order on the wire; the client must reorder by index
	for i := range req.Input {
		k := len(req.Input) - 1 - i
		data[i] = map[string]any{
			"object":    "embedding",
			"index":     k,
			"embedding": []float32{float32(len(req.Input[k])), float32(k)},
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   data,
		"model":  req.Model,
	})
}

func newTestClient(t *testing.T, api *fakeAPI, cfg Config) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(api.handler))
	t.Cleanup(srv.Close)
	cfg.APIKey = "test"
	cfg.BaseURL = srv.URL + "/v1"
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without api key")
	}
}

func TestEmbed_BatchesAndOrder(t *testing.T) {
	api := &fakeAPI{}
	c, slept := newTestClient(t, api, Config{BatchSize: 2})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := c.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("len = %d, want %d", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if int(v[0]) != len(texts[i]) {
			t.Errorf("vecs[%d] = %v, want first component %d", i, v, len(texts[i]))
		}
	}
	if len(api.batches) != 3 {
		t.Errorf("batches = %d, want 3", len(api.batches))
	}
	if len(*slept) != 2 || (*slept)[0] != defaultBatchPause {
		t.Errorf("pauses = %v, want two of %v", *slept, defaultBatchPause)
	}
}

func TestEmbed_RetriesRateLimit(t *testing.T) {
	api := &fakeAPI{rateLimited: 2}
	c, slept := newTestClient(t, api, Config{})

	vecs, err := c.Embed(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 1 {
		t.Fatalf("len = %d, want 1", len(vecs))
	}
	if api.calls != 3 {
		t.Errorf("calls = %d, want 3", api.calls)
	}
	want := 5 * time.Second
	if len(*slept) != 2 || (*slept)[0] != want {
		t.Errorf("waits = %v, want two of %v", *slept, want)
	}
}

func TestEmbed_GivesUpAfterMaxRetries(t *testing.T) {
	api := &fakeAPI{rateLimited: 10}
	c, _ := newTestClient(t, api, Config{MaxRetries: 2})

	if _, err := c.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if api.calls != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", api.calls)
	}
}

type memCache struct {
	data map[string][]float32
	err  error
}

func (m *memCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(ctx context.Context, key string, value []float32) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Close() error { return nil }

func TestEmbed_UsesCache(t *testing.T) {
	api := &fakeAPI{}
	mc := &memCache{data: map[string][]float32{}}
	c, _ := newTestClient(t, api, Config{Cache: mc})

	if _, err := c.Embed(context.Background(), []string{"a", "bb"}); err != nil {
		t.Fatalf("first Embed: %v", err)
	}
	vecs, err := c.Embed(context.Background(), []string{"bb", "ccc", "a"})
	if err != nil {
		t.Fatalf("second Embed: %v", err)
	}
	if api.calls != 2 {
		t.Errorf("calls = %d, want 2", api.calls)
	}
	if len(api.batches[1]) != 1 || api.batches[1][0] != "ccc" {
		t.Errorf("second batch = %v, want [ccc]", api.batches[1])
	}
	if int(vecs[0][0]) != 2 || int(vecs[1][0]) != 3 || int(vecs[2][0]) != 1 {
		t.Errorf("vecs = %v", vecs)
	}
}

func TestEmbed_CacheErrorsFallThrough(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newTestClient(t, api, Config{Cache: &memCache{err: errors.New("down")}})
	if _, err := c.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
}

func TestRetryDelay(t *testing.T) {
	if got := retryDelay(errors.New("Please retry after 10 seconds")); got != 12*time.Second {
		t.Errorf("retryDelay = %v, want 12s", got)
	}
	if got := retryDelay(errors.New("slow down")); got != defaultRetryWait {
		t.Errorf("retryDelay = %v, want %v", got, defaultRetryWait)
	}
}
