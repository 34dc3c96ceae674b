package polymarket

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Category  string    `json:"category"`
	Volume    flexFloat `json:"volume"`
	Liquidity flexFloat `json:"liquidity"`
	EndDate   string    `json:"endDate"`
	Tags      []tag     `json:"tags"`
	Markets   []market  `json:"markets"`
}

// category falls back to the first tag label, then "Other".
func (e *event) category() string {
	if e.Category != "" {
		return e.Category
	}
	if len(e.Tags) > 0 && e.Tags[0].Label != "" {
		return e.Tags[0].Label
	}
	return "Other"
}

type tag struct {
	Label string `json:"label"`
}

type market struct {
	ID             string     `json:"id"`
	Question       string     `json:"question"`
	OutcomePrices  string     `json:"outcomePrices"`
	LastTradePrice *flexFloat `json:"lastTradePrice"`
	Volume         flexFloat  `json:"volume"`
	EndDate        string     `json:"endDate"`
	Closed         bool       `json:"closed"`
}

// flexFloat accepts gamma numbers sent either as JSON numbers or strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}
