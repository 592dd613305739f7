package finnhub

import (
	"encoding/json"
	"strconv"
)

// Wire formats for the Finnhub endpoints this client consumes.

type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
}

type candleResponse struct {
	Open      []float64 `json:"o"`
	High      []float64 `json:"h"`
	Low       []float64 `json:"l"`
	Close     []float64 `json:"c"`
	Volume    []float64 `json:"v"`
	Timestamp []int64   `json:"t"`
	Status    string    `json:"s"`
}

type newsItem struct {
	ID       int64  `json:"id"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"`
	Image    string `json:"image"`
	Related  string `json:"related"`
}

type calendarResponse struct {
	EconomicCalendar []calendarEvent `json:"economicCalendar"`
}

type calendarEvent struct {
	Time     string     `json:"time"`
	Country  string     `json:"country"`
	Event    string     `json:"event"`
	Impact   string     `json:"impact"`
	Actual   flexString `json:"actual"`
	Estimate flexString `json:"estimate"`
	Previous flexString `json:"previous"`
}

// flexString absorbs fields Finnhub serves as either numbers, strings
// or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

func (f flexString) String() string { return string(f) }
