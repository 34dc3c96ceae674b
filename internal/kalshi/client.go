package kalshi

import (
	"context"
	"encoding/json"
	"errors"
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
	defaultBaseURL   = "https://api.elections.kalshi.com/trade-api/v2"
	defaultMarketURL = "https://kalshi.com/markets"
	defaultLimit     = 100
	maxPageSize      = 200
	maxAttempts      = 5
)

var (
	ErrUnauthorized = errors.New("kalshi requires authentication: set KALSHI_API_KEY in your .env file")
	ErrForbidden    = errors.New("kalshi access forbidden: check your KALSHI_API_KEY permissions")
)

// Client talks to the Kalshi Trade API.
type Client struct {
	baseURL    string
	marketURL  string
	apiKey     string
	httpClient *http.Client
	slugs      *SlugCache
	sleep      func(attempt int)
}

// Config provides optional overrides.
type Config struct {
	BaseURL   string
	MarketURL string
	// APIKey is sent as a bearer token when set; public endpoints work without it.
	APIKey  string
	Timeout time.Duration
	// Slugs is shared across clients of one run; nil gets a private cache.
	Slugs *SlugCache
}

// NewClient builds a configured Kalshi API client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	marketURL := cfg.MarketURL
	if marketURL == "" {
		marketURL = defaultMarketURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	slugs := cfg.Slugs
	if slugs == nil {
		slugs = NewSlugCache()
	}
	return &Client{
		baseURL:   strings.TrimRight(base, "/"),
		marketURL: strings.TrimRight(marketURL, "/"),
		apiKey:    cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		slugs: slugs,
		sleep: backoff,
	}
}

func (c *Client) Name() string {
	return string(collectors.VenueKalshi)
}

// Fetch follows the events cursor with nested markets until opts.Limit events
// are collected. opts.Category is passed as a series ticker filter.
func (c *Client) Fetch(ctx context.Context, opts collectors.FetchOptions) ([]collectors.Event, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	pageSize := limit
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var (
		events []collectors.Event
		cursor string
	)
	for len(events) < limit {
		page, err := c.listEvents(ctx, pageSize, cursor, opts.Category)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden) {
				return nil, err
			}
			return nil, fmt.Errorf("kalshi API error: %w", err)
		}
		if len(page.Events) == 0 {
			break
		}
		for i := range page.Events {
			events = append(events, c.normalizeEvent(ctx, &page.Events[i]))
			if len(events) >= limit {
				break
			}
		}
		cursor = page.Cursor
		if cursor == "" || len(page.Events) < pageSize {
			break
		}
	}
	logging.Debugf("[kalshi] fetched %d events", len(events))
	return events, nil
}

func (c *Client) listEvents(ctx context.Context, limit int, cursor, seriesTicker string) (*eventsResponse, error) {
	u, err := url.Parse(c.baseURL + "/events")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("status", "open")
	q.Set("with_nested_markets", "true")
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if seriesTicker != "" {
		q.Set("series_ticker", seriesTicker)
	}
	u.RawQuery = q.Encode()

	req, err := c.newRequest(ctx, u.String())
	if err != nil {
		return nil, err
	}
	var out eventsResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// seriesSlug resolves the URL slug of a series: its title lowercased with
// spaces turned into hyphens, or the lowercased ticker if the lookup fails.
func (c *Client) seriesSlug(ctx context.Context, seriesTicker string) string {
	if slug, ok := c.slugs.Get(seriesTicker); ok {
		return slug
	}
	slug := strings.ToLower(seriesTicker)
	if title, err := c.fetchSeriesTitle(ctx, seriesTicker); err != nil {
		logging.Debugf("[kalshi] series %s lookup failed: %v", seriesTicker, err)
	} else if title != "" {
		slug = strings.ReplaceAll(strings.ToLower(title), " ", "-")
	}
	c.slugs.Put(seriesTicker, slug)
	return slug
}

func (c *Client) fetchSeriesTitle(ctx context.Context, seriesTicker string) (string, error) {
	req, err := c.newRequest(ctx, fmt.Sprintf("%s/series/%s", c.baseURL, url.PathEscape(seriesTicker)))
	if err != nil {
		return "", err
	}
	var out seriesResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.Series.Title, nil
}

func (c *Client) newRequest(ctx context.Context, u string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
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

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return ErrUnauthorized
		case http.StatusForbidden:
			return ErrForbidden
		}
		if shouldRetry(attempt, resp.StatusCode) {
			logging.Warnf("[kalshi] %s (attempt %d), retrying", resp.Status, attempt)
			c.sleep(attempt)
			continue
		}
		return fmt.Errorf("%s: %s", resp.Status, string(body))
	}
}

func (c *Client) normalizeEvent(ctx context.Context, ev *event) collectors.Event {
	ticker := ev.EventTicker
	if ticker == "" {
		ticker = ev.Ticker
	}
	series := ev.SeriesTicker
	if series == "" {
		series = ticker
	}
	eventURL := fmt.Sprintf("%s/%s/%s/%s", c.marketURL, strings.ToLower(series), c.seriesSlug(ctx, series), strings.ToLower(ticker))

	category := ev.Category
	if category == "" {
		category = "Other"
	}
	norm := collectors.Event{
		Venue:     collectors.VenueKalshi,
		ID:        ticker,
		Title:     ev.Title,
		Category:  category,
		Liquidity: ev.Liquidity,
		URL:       eventURL,
	}
	if len(ev.Markets) > 0 {
		norm.EndDate = datePrefix(ev.Markets[0].CloseTime)
	}
	for i := range ev.Markets {
		m := &ev.Markets[i]
		if m.Status != "active" {
			continue
		}
		nm := normalizeMarket(m, &norm)
		norm.Volume += nm.Volume
		norm.Markets = append(norm.Markets, nm)
	}
	return norm
}

// normalizeMarket converts cent prices to probabilities. A missing no bid
// falls back to 1 - yes.
func normalizeMarket(m *market, parent *collectors.Event) collectors.Market {
	yes := m.LastPrice / 100
	no := m.NoBid / 100
	if no == 0 && yes > 0 {
		no = similarity.Round4(1 - yes)
	}
	return collectors.Market{
		Question:         buildQuestion(m, parent.Title),
		YesPrice:         yes,
		NoPrice:          no,
		Volume:           m.Volume,
		Venue:            collectors.VenueKalshi,
		MarketID:         m.Ticker,
		ParentEventID:    parent.ID,
		ParentEventTitle: parent.Title,
		CloseTime:        datePrefix(m.CloseTime),
		URL:              parent.URL,
	}
}

// buildQuestion appends no_sub_title to the market title when it names the
// specific option; every market of a multi-market event shares one title.
func buildQuestion(m *market, eventTitle string) string {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		title = strings.TrimSpace(eventTitle)
	}
	sub := strings.TrimSpace(m.NoSubTitle)
	if sub != "" && !strings.Contains(strings.ToLower(title), strings.ToLower(sub)) {
		return title + ": " + sub
	}
	return title
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
