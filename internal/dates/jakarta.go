// Package dates resolves user-facing date input for the bot: embedded local
// timestamps on transaction messages and the free-form range expressions used
// by report commands.
//
// All local input is interpreted in Jakarta time, a fixed UTC+7 offset with no
// daylight-saving adjustment.
package dates

import (
	"errors"
	"fmt"
	"time"
)

// Jakarta is a fixed UTC+7 zone.
var Jakarta = time.FixedZone("Asia/Jakarta", 7*60*60)

const localLayout = "2006-01-02 15:04"

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidRange = errors.New("invalid range")
)

// ParseJakartaLocal converts a "YYYY-MM-DD HH:MM" literal in Jakarta time to
// the corresponding UTC instant. Invalid calendar values (month 13, minute 61)
// fail instead of wrapping.
func ParseJakartaLocal(s string) (time.Time, error) {
	t, err := time.ParseInLocation(localLayout, s, Jakarta)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q does not match YYYY-MM-DD HH:MM", ErrInvalidDate, s)
	}
	return t.UTC(), nil
}

// MonthWindow returns the [start, end) UTC window covering one Jakarta-local
// calendar month.
func MonthWindow(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, Jakarta)
	return start.UTC(), start.AddDate(0, 1, 0).UTC()
}

// YearWindow returns the [start, end) UTC window covering one Jakarta-local
// calendar year.
func YearWindow(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, Jakarta)
	return start.UTC(), start.AddDate(1, 0, 0).UTC()
}

// FormatLocalDate renders an instant as a Jakarta-local DD/MM/YYYY date.
func FormatLocalDate(t time.Time) string {
	return t.In(Jakarta).Format("02/01/2006")
}
