package domain

import (
	"context"
	"time"
)

type AQIClient interface {
	Feed(ctx context.Context, city string) (Document, error)
}

// LookupLog persists one audit row per lookup. Optional.
type LookupLog interface {
	RecordLookup(ctx context.Context, rec LookupRecord) error
	RecentLookups(ctx context.Context, limit int) ([]LookupRecord, error)
}

// Popularity counts successful lookups per city. Optional.
type Popularity interface {
	Incr(ctx context.Context, city string) error
	Top(ctx context.Context, n int) ([]CityCount, error)
}

type LookupRecord struct {
	ID             int64     `json:"id,omitempty"`
	City           string    `json:"city"`
	Outcome        string    `json:"outcome"`
	HTTPStatus     int       `json:"http_status"`
	UpstreamStatus string    `json:"upstream_status,omitempty"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

type CityCount struct {
	City  string `json:"city"`
	Count int64  `json:"count"`
}
