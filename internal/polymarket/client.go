package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hetulpatel/crossarb/internal/collectors"
	"github.com/hetulpatel/crossarb/internal/logging"
	"github.com/hetulpatel/crossarb/internal/similarity"
)

const (
	defaultBaseURL  = "https://gamma-api.polymarket.com"
	defaultEventURL = "https://polymarket.com/event"
	defaultLimit    = 100
	maxPageSize     = 100
	maxAttempts     = 5
)

// Client fetches open Polymarket events from the gamma API.
type Client struct {
	baseURL    string
	eventURL   string
	httpClient *http.Client
	sleep      func(attempt int)
}

// Config controls optional overrides for the client.
type Config struct {
	BaseURL  string
	EventURL string
	Timeout  time.Duration
}

// NewClient builds a Polymarket client with sane defaults.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	eventURL := cfg.EventURL
	if eventURL == "" {
		eventURL = defaultEventURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(base, "/"),
		eventURL: strings.TrimRight(eventURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		sleep: backoff,
	}
}

func (c *Client) Name() string {
	return string(collectors.VenuePolymarket)
}

// Fetch pages through open events ordered by 24h volume until opts.Limit
// events are collected or the API runs out.
func (c *Client) Fetch(ctx context.Context, opts collectors.FetchOptions) ([]collectors.Event, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	pageSize := limit
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var events []collectors.Event
	offset := 0
	for len(events) < limit {
		page, err := c.listEvents(ctx, pageSize, offset, opts.Category)
		if err != nil {
			return nil, fmt.Errorf("polymarket API error: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for i := range page {
			events = append(events, c.normalizeEvent(&page[i]))
			if len(events) >= limit {
				break
			}
		}
		if len(page) < pageSize {
			break
		}
		offset += pageSize
	}
	logging.Debugf("[polymarket] fetched %d events", len(events))
	return events, nil
}

func (c *Client) listEvents(ctx context.Context, limit, offset int, category string) ([]event, error) {
	u, err := url.Parse(c.baseURL + "/events")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("order", "volume24hr")
	q.Set("ascending", "false")
	if category != "" {
		q.Set("category", category)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	var events []event
	if err := c.do(req, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) do(req *http.Request, dst any) error {
	var attempt int
	for {
		attempt++
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if req.Context().Err() == nil && shouldRetry(attempt, 0) {
				c.sleep(attempt)
				continue
			}
			return err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			defer resp.Body.Close()
			return json.NewDecoder(resp.Body).Decode(dst)
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()

		if shouldRetry(attempt, resp.StatusCode) {
			logging.Warnf("[polymarket] %s (attempt %d), retrying", resp.Status, attempt)
			c.sleep(attempt)
			continue
		}
		return fmt.Errorf("%s: %s", resp.Status, string(body))
	}
}

func (c *Client) normalizeEvent(ev *event) collectors.Event {
	eventURL := fmt.Sprintf("%s/%s", c.eventURL, ev.Slug)

	norm := collectors.Event{
		Venue:     collectors.VenuePolymarket,
		ID:        ev.ID,
		Title:     ev.Title,
		Category:  ev.category(),
		Volume:    float64(ev.Volume),
		Liquidity: float64(ev.Liquidity),
		EndDate:   datePrefix(ev.EndDate),
		URL:       eventURL,
	}
	for i := range ev.Markets {
		m := &ev.Markets[i]
		if m.Closed {
			continue
		}
		nm := normalizeMarket(m, &norm)
		if isSettled(nm) {
			continue
		}
		norm.Markets = append(norm.Markets, nm)
	}
	return norm
}

// normalizeMarket prefers lastTradePrice for the yes price and falls back to
// outcomePrices; the no price is the second outcome or 1 - yes.
func normalizeMarket(m *market, parent *collectors.Event) collectors.Market {
	prices := parseOutcomePrices(m.OutcomePrices)

	var yes float64
	switch {
	case m.LastTradePrice != nil:
		yes = float64(*m.LastTradePrice)
	case len(prices) > 0:
		yes = prices[0]
	}
	no := similarity.Round4(1 - yes)
	if len(prices) > 1 {
		no = prices[1]
	}

	return collectors.Market{
		Question:         m.Question,
		YesPrice:         yes,
		NoPrice:          no,
		Volume:           float64(m.Volume),
		Venue:            collectors.VenuePolymarket,
		MarketID:         m.ID,
		ParentEventID:    parent.ID,
		ParentEventTitle: parent.Title,
		CloseTime:        datePrefix(m.EndDate),
		URL:              parent.URL,
	}
}

// isSettled reports markets already resolved to 0 or 1.
func isSettled(m collectors.Market) bool {
	return (m.YesPrice <= 0.001 && m.NoPrice >= 0.999) ||
		(m.YesPrice >= 0.999 && m.NoPrice <= 0.001)
}

// parseOutcomePrices decodes the JSON-encoded string list gamma returns,
// e.g. "[\"0.65\", \"0.35\"]". Malformed input yields no prices.
func parseOutcomePrices(raw string) []float64 {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var vals []string
	if err := json.Unmarshal([]byte(raw), &vals); err != nil {
		return nil
	}
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		f, _ := strconv.ParseFloat(v, 64)
		out = append(out, f)
	}
	return out
}

func datePrefix(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func shouldRetry(attempt int, status int) bool {
	if attempt >= maxAttempts {
		return false
	}
	if status == 0 {
		return true
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return true
	}
	return false
}

func backoff(attempt int) {
	d := time.Duration(1<<uint(attempt-1)) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	time.Sleep(d)
}
