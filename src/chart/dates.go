package chart

import (
	"strings"
	"time"
	"unicode"
)

// DateLayout is the ISO-8601 calendar date format used for every label.
const DateLayout = "2006-01-02"

// NextDates returns the count calendar dates following last, formatted as
// YYYY-MM-DD. Only last's calendar date matters: the arithmetic is done on
// day numbers in UTC so month ends, leap days and DST shifts never skip or
// repeat a date.
func NextDates(last time.Time, count int) []string {
	if count <= 0 {
		return []string{}
	}

	y, m, d := last.Date()
	dates := make([]string, count)
	for i := range dates {
		dates[i] = time.Date(y, m, d+i+1, 0, 0, 0, 0, time.UTC).Format(DateLayout)
	}
	return dates
}

// DateLabel strips the time-of-day part of a wire date: everything from the
// first whitespace on is dropped.
func DateLabel(date string) string {
	if i := strings.IndexFunc(date, unicode.IsSpace); i >= 0 {
		return date[:i]
	}
	return date
}

// ParseCalendarDate extracts the calendar date from a wire date such as
// "2024-01-02", "2024-01-02 00:00:00-05:00" or "2024-01-02T00:00:00Z".
// The date is taken as written, never shifted to another timezone.
func ParseCalendarDate(date string) (time.Time, bool) {
	token := DateLabel(date)
	if len(token) < len(DateLayout) {
		return time.Time{}, false
	}
	if len(token) > len(DateLayout) && token[len(DateLayout)] != 'T' {
		return time.Time{}, false
	}

	t, err := time.Parse(DateLayout, token[:len(DateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
