package embed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hetulpatel/crossarb/internal/cache"
	"github.com/hetulpatel/crossarb/internal/logging"
)

const defaultModel = "Qwen/Qwen3-Embedding-8B"
const defaultBaseURL = "https://api.tokenfactory.nebius.com/v1/"

const (
	defaultBatchSize  = 80
	defaultBatchPause = 1600 * time.Millisecond
	defaultMaxRetries = 5
	defaultRetryWait  = 30 * time.Second
	retryWaitHeadroom = 2 * time.Second
)

// Client wraps an OpenAI-compatible embedding API (Nebius by default).
type Client struct {
	api        *openai.Client
	model      string
	batchSize  int
	batchPause time.Duration
	maxRetries int
	cache      cache.EmbeddingCache
	sleep      func(ctx context.Context, d time.Duration) error
}

// Config controls how the embedding client is constructed.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	BatchSize  int
	BatchPause time.Duration
	MaxRetries int
	// Cache is optional; misses and cache errors fall through to the API.
	Cache cache.EmbeddingCache
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("NEBIUS_API_KEY not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchPause < 0 {
		cfg.BatchPause = 0
	} else if cfg.BatchPause == 0 {
		cfg.BatchPause = defaultBatchPause
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	conf := openai.DefaultConfig(cfg.APIKey)
	conf.BaseURL = cfg.BaseURL

	return &Client{
		api:        openai.NewClientWithConfig(conf),
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		batchPause: cfg.BatchPause,
		maxRetries: cfg.MaxRetries,
		cache:      cfg.Cache,
		sleep:      sleepCtx,
	}, nil
}

func (c *Client) Model() string {
	return c.model
}

// Embed returns one vector per text, in input order. Cached vectors are
// reused; the rest are requested in batches with a pause between batches.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []int
	for i, text := range texts {
		if vec, ok := c.cached(ctx, text); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) > 0 {
		logging.Debugf("[embed] %d/%d texts cached, embedding %d", len(texts)-len(missing), len(texts), len(missing))
	}

	for start := 0; start < len(missing); start += c.batchSize {
		end := start + c.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		idx := missing[start:end]
		batch := make([]string, len(idx))
		for k, i := range idx {
			batch[k] = texts[i]
		}

		vectors, err := c.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		for k, i := range idx {
			out[i] = vectors[k]
			c.store(ctx, texts[i], vectors[k])
		}

		if end < len(missing) && c.batchPause > 0 {
			if err := c.sleep(ctx, c.batchPause); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// embedBatch calls the API, retrying rate-limit responses up to maxRetries
// times with the wait the server suggests.
func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: batch,
	}
	for attempt := 0; ; attempt++ {
		resp, err := c.api.CreateEmbeddings(ctx, req)
		if err == nil {
			return orderedVectors(resp, len(batch))
		}
		if !isRateLimited(err) || attempt >= c.maxRetries {
			return nil, fmt.Errorf("embed batch of %d: %w", len(batch), err)
		}
		wait := retryDelay(err)
		logging.Warnf("[embed] rate limited (attempt %d/%d), retrying in %s", attempt+1, c.maxRetries, wait)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func orderedVectors(resp openai.EmbeddingResponse, want int) ([][]float32, error) {
	if len(resp.Data) != want {
		return nil, fmt.Errorf("embedding response has %d vectors, want %d", len(resp.Data), want)
	}
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Index < data[j].Index
	})
	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

func (c *Client) cached(ctx context.Context, text string) ([]float32, bool) {
	if c.cache == nil {
		return nil, false
	}
	vec, ok, err := c.cache.Get(ctx, cache.EmbeddingKey(c.model, text))
	if err != nil {
		logging.Errorf("[embed] cache get error: %v", err)
		return nil, false
	}
	return vec, ok
}

func (c *Client) store(ctx context.Context, text string, vec []float32) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, cache.EmbeddingKey(c.model, text), vec); err != nil {
		logging.Errorf("[embed] cache set error: %v", err)
	}
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

var retryHintRe = regexp.MustCompile(`(?i)retry[^\d]*(\d+)`)

// retryDelay reads a "retry ... N" seconds hint from the error text and adds
// headroom; without a hint it waits defaultRetryWait.
func retryDelay(err error) time.Duration {
	m := retryHintRe.FindStringSubmatch(err.Error())
	if len(m) < 2 {
		return defaultRetryWait
	}
	secs, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return defaultRetryWait
	}
	return time.Duration(secs)*time.Second + retryWaitHeadroom
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
