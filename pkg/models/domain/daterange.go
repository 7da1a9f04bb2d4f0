package domain

import (
	"fmt"
	"time"
)

const (
	// DayKeyLayout is the fixed-width token addressing one day's remote directory.
	DayKeyLayout = "20060102"
	// DateLayout is the ISO calendar date used in configuration and provenance columns.
	DateLayout = "2006-01-02"

	secondsPerDay = 24 * 60 * 60
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both ends to UTC midnight.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: civil(start), End: civil(end)}
}

// ParseDateRange parses two YYYY-MM-DD dates.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return NewDateRange(s, e), nil
}

// PreviousWeek returns the Monday to Sunday week before the one containing now.
func PreviousWeek(now time.Time) DateRange {
	today := civil(now)
	sinceMonday := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -sinceMonday-7)
	return DateRange{Start: monday, End: monday.AddDate(0, 0, 6)}
}

// Days is the number of calendar days in the range, 0 when End is before Start.
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int((r.End.Unix()-r.Start.Unix())/secondsPerDay) + 1
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s to %s", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

// ISODate converts a YYYYMMDD day key to YYYY-MM-DD. Malformed keys are returned unchanged.
func ISODate(dayKey string) string {
	if len(dayKey) != len(DayKeyLayout) {
		return dayKey
	}
	return dayKey[0:4] + "-" + dayKey[4:6] + "-" + dayKey[6:8]
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
