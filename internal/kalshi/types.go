package kalshi

type eventsResponse struct {
	Events []event `json:"events"`
	Cursor string  `json:"cursor"`
}

type event struct {
	EventTicker  string   `json:"event_ticker"`
	Ticker       string   `json:"ticker"`
	SeriesTicker string   `json:"series_ticker"`
	Title        string   `json:"title"`
	Category     string   `json:"category"`
	Liquidity    float64  `json:"liquidity"`
	Markets      []market `json:"markets"`
}

// market prices are in cents.
type market struct {
	Ticker     string  `json:"ticker"`
	Title      string  `json:"title"`
	NoSubTitle string  `json:"no_sub_title"`
	Status     string  `json:"status"`
	LastPrice  float64 `json:"last_price"`
	NoBid      float64 `json:"no_bid"`
	Volume     float64 `json:"volume"`
	CloseTime  string  `json:"close_time"`
}

type seriesResponse struct {
	Series struct {
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	} `json:"series"`
}
