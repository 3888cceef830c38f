package entity

import (
	"encoding/json"
	"time"
)

// isoLayout matches the millisecond UTC form browsers produce for Date.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Route is the origin/destination airport pair of a scrape job.
type Route struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// Instant is an absolute point in time encoded as an ISO-8601 UTC string.
type Instant time.Time

func (i Instant) Time() time.Time { return time.Time(i) }

func (i Instant) String() string { return time.Time(i).UTC().Format(isoLayout) }

func (i Instant) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

func (i *Instant) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*i = Instant(t)
	return nil
}

// ScrapeRequest is the job submission payload for POST /scrape.
// It is built once by the request builder and never mutated afterwards.
type ScrapeRequest struct {
	Route    Route   `json:"route"`
	Outbound Instant `json:"outbound"`
	Airline  string  `json:"airline"`
	Retries  int     `json:"retries"`
	Proxy    *string `json:"proxy"` // nil is sent as null, never ""
}

// FormInput holds the raw, unvalidated field values of a scrape form.
type FormInput struct {
	Origin      string
	Destination string
	Date        string // YYYY-MM-DD
	Airline     string
	Retries     string
	Proxy       string
}
