// Package normalize converts loosely formatted listing text into typed values.
// Every function here is total: bad input yields a best-effort value, never an error.
package normalize

import (
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// isoDatePattern matches YYYY-MM-DD; "/" and "." are accepted as separators
	// because the agent's output example uses "2025/09/07 19:00".
	isoDatePattern = regexp.MustCompile(`(20\d{2})[-/.](0?[1-9]|1[0-2])[-/.](0?[1-9]|[12]\d|3[01])`)

	// monthDayPattern matches M月D日 with no year.
	monthDayPattern = regexp.MustCompile(`(0?[1-9]|1[0-2])\s*月\s*(0?[1-9]|[12]\d|3[01])\s*日`)

	pricePattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)
)

// DateResult is the outcome of ParseDate.
type DateResult struct {
	Date time.Time
	// Fallback is true when no pattern matched and Date is today.
	Fallback bool
}

// ParseDate extracts a calendar date from free-form text.
// YYYY-MM-DD is tried first, then M月D日 in now's year. When neither matches,
// or the match is not a real calendar date, it returns today with Fallback set.
func ParseDate(text string, now time.Time) DateResult {
	loc := now.Location()

	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		if d, ok := calendarDate(year, m[2], m[3], loc); ok {
			return DateResult{Date: d}
		}
	}

	if m := monthDayPattern.FindStringSubmatch(text); m != nil {
		if d, ok := calendarDate(now.Year(), m[1], m[2], loc); ok {
			return DateResult{Date: d}
		}
	}

	return DateResult{Date: Today(now), Fallback: true}
}

// Today truncates now to midnight in its own location.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// calendarDate builds a date and rejects values time.Date would normalize (e.g. 02-30).
func calendarDate(year int, month, day string, loc *time.Location) (time.Time, bool) {
	mm, err := strconv.Atoi(month)
	if err != nil {
		return time.Time{}, false
	}
	dd, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, loc)
	if t.Year() != year || int(t.Month()) != mm || t.Day() != dd {
		return time.Time{}, false
	}
	return t, true
}

// ParsePrice returns the first number found in text, rounded to cents.
// Currency symbols and qualifiers such as "起" are ignored. The result is
// invalid when the text contains no digits.
func ParsePrice(text string) decimal.NullDecimal {
	match := pricePattern.FindString(text)
	if match == "" {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d.Round(2))
}
