package progress

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a user-local calendar day key in YYYY-MM-DD form.
type Day string

// DayOf returns the calendar day t falls on in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	return Day(t.In(loc).Format(dayLayout))
}

// ParseDay validates s as a calendar day key.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: day %q must be YYYY-MM-DD", ErrInvalidInput, s)
	}
	return Day(t.Format(dayLayout)), nil
}

// Time returns midnight UTC of the day, used as the storage representation.
func (d Day) Time() time.Time {
	t, _ := time.Parse(dayLayout, string(d))
	return t
}

func (d Day) Next() Day { return d.AddDays(1) }

func (d Day) Prev() Day { return d.AddDays(-1) }

func (d Day) AddDays(n int) Day {
	return Day(d.Time().AddDate(0, 0, n).Format(dayLayout))
}

func (d Day) String() string { return string(d) }
