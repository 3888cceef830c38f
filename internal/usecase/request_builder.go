package usecase

import (
	"strconv"
	"strings"
	"time"

	"github.com/notttired/aire-frontend/internal/entity"
	"github.com/notttired/aire-frontend/internal/repository"
)

const dateLayout = "2006-01-02"

// RequestBuilder turns raw form values into a ScrapeRequest.
// It has no side effects; the location decides what "midnight" means.
type RequestBuilder struct {
	loc *time.Location
}

// NewRequestBuilder creates a builder for dates in loc. A nil loc means time.Local.
func NewRequestBuilder(loc *time.Location) *RequestBuilder {
	if loc == nil {
		loc = time.Local
	}
	return &RequestBuilder{loc: loc}
}

// Build validates and normalizes in. Codes are upper-cased, the date becomes
// the UTC instant of local midnight, and an empty proxy becomes nil.
// Errors unwrap to repository.ErrInvalidInput.
func (b *RequestBuilder) Build(in entity.FormInput) (*entity.ScrapeRequest, error) {
	origin, err := requiredCode("origin", in.Origin)
	if err != nil {
		return nil, err
	}
	destination, err := requiredCode("destination", in.Destination)
	if err != nil {
		return nil, err
	}
	airline, err := requiredCode("airline", in.Airline)
	if err != nil {
		return nil, err
	}

	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(in.Date), b.loc)
	if err != nil {
		return nil, &repository.InputError{Field: "outbound", Reason: "expected a YYYY-MM-DD date"}
	}

	// Empty or non-numeric retries is rejected rather than sent as zero.
	retries, err := strconv.Atoi(strings.TrimSpace(in.Retries))
	if err != nil {
		return nil, &repository.InputError{Field: "retries", Reason: "must be an integer"}
	}
	if retries < 0 {
		return nil, &repository.InputError{Field: "retries", Reason: "must not be negative"}
	}

	var proxy *string
	if p := strings.TrimSpace(in.Proxy); p != "" {
		proxy = &p
	}

	return &entity.ScrapeRequest{
		Route:    entity.Route{Origin: origin, Destination: destination},
		Outbound: entity.Instant(day.UTC()),
		Airline:  airline,
		Retries:  retries,
		Proxy:    proxy,
	}, nil
}

// DefaultOutboundDate is tomorrow's date in now's location, formatted for FormInput.Date.
func DefaultOutboundDate(now time.Time) string {
	return now.AddDate(0, 0, 1).Format(dateLayout)
}

func requiredCode(field, v string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(v))
	if code == "" {
		return "", &repository.InputError{Field: field, Reason: "is required"}
	}
	return code, nil
}
