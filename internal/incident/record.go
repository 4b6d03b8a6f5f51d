// Package incident holds the immutable incident batch and answers weighted
// spatial density queries against it.
package incident

import (
	"strconv"
	"strings"
	"time"
)

// Record is a single geocoded crime/complaint incident. Immutable once loaded.
type Record struct {
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Category   string     `json:"category"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
	Borough    string     `json:"borough,omitempty"`
	Zip        string     `json:"zip,omitempty"`
}

// RawRecord is an incident as delivered by the feed, coordinates still in
// string form. Validation happens here, not in the feed client, so every
// ingest path shares the same skip rules.
type RawRecord struct {
	Latitude   string `json:"latitude"`
	Longitude  string `json:"longitude"`
	Category   string `json:"complaint_type"`
	OccurredAt string `json:"created_date"`
	Borough    string `json:"borough"`
	Zip        string `json:"incident_zip"`
}

// feedTimeLayouts are the timestamp formats seen in Socrata-style feeds.
var feedTimeLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// parseRecord converts a raw record, returning ok=false for records with
// missing or non-numeric coordinates. Those are dropped, never mutated.
func parseRecord(raw RawRecord) (Record, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(raw.Latitude), 64)
	if err != nil {
		return Record{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(raw.Longitude), 64)
	if err != nil {
		return Record{}, false
	}

	rec := Record{
		Latitude:  lat,
		Longitude: lon,
		Category:  strings.TrimSpace(raw.Category),
		Borough:   strings.TrimSpace(raw.Borough),
		Zip:       strings.TrimSpace(raw.Zip),
	}

	if ts := strings.TrimSpace(raw.OccurredAt); ts != "" {
		for _, layout := range feedTimeLayouts {
			if t, err := time.Parse(layout, ts); err == nil {
				rec.OccurredAt = &t
				break
			}
		}
	}

	return rec, true
}
