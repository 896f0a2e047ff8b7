package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Granularity selects the bucket size of a completion series.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// ParseGranularity reports whether raw names a known granularity.
func ParseGranularity(raw string) (Granularity, bool) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(raw))); g {
	case Day, Week, Month:
		return g, true
	default:
		return "", false
	}
}

// ISOWeek returns the ISO-8601 week number (1-53) of t.
// The week's number is the week of the Thursday in the same Monday-based week.
func ISOWeek(t time.Time) int {
	thursday := thursdayOf(t)
	return (thursday.YearDay()-1)/7 + 1
}

// ISOWeekYear returns the year that owns the ISO week containing t.
func ISOWeekYear(t time.Time) int {
	return thursdayOf(t).Year()
}

func thursdayOf(t time.Time) time.Time {
	day := StartOfDay(t)
	// Monday=0 ... Sunday=6
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, 3-offset)
}

// DayLabel formats t as an ISO calendar date.
func DayLabel(t time.Time) string {
	return t.Format("2006-01-02")
}

// WeekLabel formats t as "W32 2025" using ISO week numbering.
func WeekLabel(t time.Time) string {
	return fmt.Sprintf("W%d %d", ISOWeek(t), ISOWeekYear(t))
}

// MonthLabel formats t as "Aug 2025".
func MonthLabel(t time.Time) string {
	return t.Format("Jan 2006")
}

// Label returns the bucket label of t for g.
func Label(g Granularity, t time.Time) string {
	switch g {
	case Day:
		return DayLabel(t)
	case Month:
		return MonthLabel(t)
	default:
		return WeekLabel(t)
	}
}

// Key identifies the bucket a timestamp falls into.
type Key struct {
	Year  int
	Month int
	Week  int
	Day   int
}

// BucketKey returns the grouping key of t: (ISO year, ISO week) for weeks,
// (year, month) for months and (year, month, day) for days.
func BucketKey(g Granularity, t time.Time) Key {
	switch g {
	case Day:
		return Key{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
	case Month:
		return Key{Year: t.Year(), Month: int(t.Month())}
	default:
		return Key{Year: ISOWeekYear(t), Week: ISOWeek(t)}
	}
}

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// BucketStart returns the first instant of the bucket containing t.
func BucketStart(g Granularity, t time.Time) time.Time {
	day := StartOfDay(t)
	switch g {
	case Day:
		return day
	case Month:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	default:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	}
}

// Next returns the start of the bucket following the one that starts at start.
func Next(g Granularity, start time.Time) time.Time {
	switch g {
	case Day:
		return start.AddDate(0, 0, 1)
	case Month:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 7)
	}
}

// WindowStart returns the start of the oldest bucket of a window of length
// buckets that ends with the bucket containing now.
func WindowStart(g Granularity, now time.Time, length int) time.Time {
	start := BucketStart(g, now)
	back := length - 1
	if back < 0 {
		back = 0
	}
	switch g {
	case Day:
		return start.AddDate(0, 0, -back)
	case Month:
		return start.AddDate(0, -back, 0)
	default:
		return start.AddDate(0, 0, -7*back)
	}
}

// Buckets returns the start of every bucket in the window, oldest first.
func Buckets(g Granularity, now time.Time, length int) []time.Time {
	if length <= 0 {
		return nil
	}
	starts := make([]time.Time, 0, length)
	for t := WindowStart(g, now, length); len(starts) < length; t = Next(g, t) {
		starts = append(starts, t)
	}
	return starts
}
