package model

import (
	"math"
	"time"
)

// Asset is an entry of the configured asset catalogue.
type Asset struct {
	ID   string `yaml:"id" json:"id" validate:"required"`
	Name string `yaml:"name" json:"name"`
}

// Sample is a raw (timestamp, price) pair as delivered by the provider.
type Sample struct {
	Timestamp time.Time
	Price     float64
}

// Valid reports whether the sample can be stored. Non-finite or non-positive
// prices and zero timestamps are malformed.
func (s Sample) Valid() bool {
	if s.Timestamp.IsZero() {
		return false
	}
	if math.IsNaN(s.Price) || math.IsInf(s.Price, 0) || s.Price <= 0 {
		return false
	}
	return true
}

// NormalizeTime truncates t to the millisecond resolution used as part of the
// deduplication key and converts it to UTC.
func NormalizeTime(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}

// PricePoint is a single stored observation.
type PricePoint struct {
	Asset     string    `json:"asset"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// PriceSeries holds the stored points of one asset in ascending timestamp order.
type PriceSeries struct {
	Asset  string       `json:"asset"`
	Points []PricePoint `json:"points"`
}

// Len returns the number of points.
func (s PriceSeries) Len() int { return len(s.Points) }

// Prices extracts the price column.
func (s PriceSeries) Prices() []float64 {
	prices := make([]float64, len(s.Points))
	for i, p := range s.Points {
		prices[i] = p.Price
	}
	return prices
}

// Last returns the most recent point.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Tail returns the series restricted to its last n points. n <= 0 returns s.
func (s PriceSeries) Tail(n int) PriceSeries {
	if n <= 0 || n >= len(s.Points) {
		return s
	}
	return PriceSeries{Asset: s.Asset, Points: s.Points[len(s.Points)-n:]}
}

// Quote is the current price snapshot of an asset.
type Quote struct {
	Asset     string    `json:"asset"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change_24h"`
	FetchedAt time.Time `json:"fetched_at"`
}
