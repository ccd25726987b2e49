package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
	// Containers often ship without a zoneinfo database.
	_ "time/tzdata"

	"glowUpAPI/internal/progress"
)

// TimezoneHeader carries the caller's IANA zone so day boundaries follow the
// user's local midnight.
const TimezoneHeader = "X-Timezone"

// DayClock resolves "today" for a request.
type DayClock struct {
	DefaultLocation *time.Location
	Now             func() time.Time
}

func NewDayClock(defaultLocation *time.Location) *DayClock {
	if defaultLocation == nil {
		defaultLocation = time.UTC
	}
	return &DayClock{DefaultLocation: defaultLocation, Now: time.Now}
}

func (c *DayClock) location(r *http.Request) (*time.Location, error) {
	tz := r.Header.Get(TimezoneHeader)
	if tz == "" {
		return c.DefaultLocation, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", progress.ErrInvalidInput, tz)
	}
	return loc, nil
}

// Today is the caller's current calendar day.
func (c *DayClock) Today(r *http.Request) (progress.Day, error) {
	loc, err := c.location(r)
	if err != nil {
		return "", err
	}
	return progress.DayOf(c.Now(), loc), nil
}

// DayParam reads ?day=YYYY-MM-DD for read-only views, defaulting to today.
func (c *DayClock) DayParam(r *http.Request) (progress.Day, error) {
	if raw := r.URL.Query().Get("day"); raw != "" {
		return progress.ParseDay(raw)
	}
	return c.Today(r)
}

func intQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", progress.ErrInvalidInput, key)
	}
	return n, nil
}
