package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AcceptedRangeForms names the range shapes the bot understands; error replies
// quote it back to the user.
const AcceptedRangeForms = `"today", "YYYY-MM", "YYYY", "<month> <year>" or "<month> <year> - <month> <year>"`

const (
	minYear = 2000
	maxYear = 2100

	// maxRangeMonths bounds the number of months a single range can expand to.
	maxRangeMonths = 24
)

type (
	// Period is the query window of an outcome report: a single month, or a
	// full year when Month is zero.
	Period struct {
		Year  int
		Month int // 1-12, or 0 for the full year
	}

	// YearMonth is one month of a summary range.
	YearMonth struct {
		Year  int
		Month int // 1-12
	}
)

func (p Period) String() string {
	if p.Month == 0 {
		return strconv.Itoa(p.Year)
	}
	return fmt.Sprintf("%02d/%d", p.Month, p.Year)
}

// Window returns the [start, end) UTC instants the period covers, using
// Jakarta-local month boundaries.
func (p Period) Window() (time.Time, time.Time) {
	if p.Month == 0 {
		return YearWindow(p.Year)
	}
	return MonthWindow(p.Year, p.Month)
}

// monthNames maps lowercase English and Indonesian month names, full and
// abbreviated, to month numbers.
var monthNames = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6, "jul": 7, "aug": 8,
	"sep": 9, "sept": 9, "oct": 10, "nov": 11, "dec": 12,
	"januari": 1, "februari": 2, "maret": 3, "mei": 5, "juni": 6, "juli": 7,
	"agustus": 8, "oktober": 10, "desember": 12,
	"peb": 2, "agu": 8, "ags": 8, "agt": 8, "okt": 10, "des": 12,
}

// ParseReportPeriod resolves the argument of an outcome report command.
// Empty input and "today" mean the current Jakarta month; "YYYY" means the
// whole year; "YYYY-MM" and "<month> <year>" mean that single month.
func ParseReportPeriod(s string, now time.Time) (Period, error) {
	s = collapse(s)
	if s == "" || strings.EqualFold(s, "today") {
		local := now.In(Jakarta)
		return Period{Year: local.Year(), Month: int(local.Month())}, nil
	}
	if year, ok := parseBareYear(s); ok {
		if err := checkYear(year); err != nil {
			return Period{}, err
		}
		return Period{Year: year}, nil
	}
	ym, err := parseMonthExpr(s)
	if err != nil {
		return Period{}, err
	}
	return Period{Year: ym.Year, Month: ym.Month}, nil
}

// ParseSummaryRange resolves the argument of a summary command into an
// inclusive ordered month sequence. A bare year expands to its 12 months; a
// "<from> - <to>" range expands to consecutive months, truncated at 24.
func ParseSummaryRange(s string, now time.Time) ([]YearMonth, error) {
	s = collapse(s)
	if s == "" || strings.EqualFold(s, "today") {
		local := now.In(Jakarta)
		return []YearMonth{{Year: local.Year(), Month: int(local.Month())}}, nil
	}
	if year, ok := parseBareYear(s); ok {
		if err := checkYear(year); err != nil {
			return nil, err
		}
		months := make([]YearMonth, 0, 12)
		for m := 1; m <= 12; m++ {
			months = append(months, YearMonth{Year: year, Month: m})
		}
		return months, nil
	}
	if from, to, ok := splitRange(s); ok {
		start, err := parseMonthExpr(from)
		if err != nil {
			return nil, err
		}
		end, err := parseMonthExpr(to)
		if err != nil {
			return nil, err
		}
		return expandRange(start, end)
	}
	ym, err := parseMonthExpr(s)
	if err != nil {
		return nil, err
	}
	return []YearMonth{ym}, nil
}

// parseMonthExpr accepts "YYYY-MM" or "<month name> <year>".
func parseMonthExpr(s string) (YearMonth, error) {
	s = strings.TrimSpace(s)

	if year, monthStr, ok := splitNumericMonth(s); ok {
		month, err := strconv.Atoi(monthStr)
		if err != nil || month < 1 || month > 12 {
			return YearMonth{}, fmt.Errorf("%w: month %q out of range", ErrInvalidDate, monthStr)
		}
		if err := checkYear(year); err != nil {
			return YearMonth{}, err
		}
		return YearMonth{Year: year, Month: month}, nil
	}

	fields := strings.Fields(s)
	if len(fields) == 2 {
		name := strings.TrimSuffix(strings.ToLower(fields[0]), ".")
		month, ok := monthNames[name]
		if !ok {
			return YearMonth{}, fmt.Errorf("%w: unknown month %q, expected %s", ErrInvalidRange, fields[0], AcceptedRangeForms)
		}
		year, err := strconv.Atoi(fields[1])
		if err != nil {
			return YearMonth{}, fmt.Errorf("%w: bad year %q, expected %s", ErrInvalidRange, fields[1], AcceptedRangeForms)
		}
		if err := checkYear(year); err != nil {
			return YearMonth{}, err
		}
		return YearMonth{Year: year, Month: month}, nil
	}

	return YearMonth{}, fmt.Errorf("%w: %q is not a recognized period, expected %s", ErrInvalidRange, s, AcceptedRangeForms)
}

// splitNumericMonth matches the "YYYY-MM" shape without deciding whether the
// month value itself is valid.
func splitNumericMonth(s string) (year int, month string, ok bool) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) < 1 || len(parts[1]) > 2 {
		return 0, "", false
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", false
	}
	if _, err := strconv.Atoi(parts[1]); err != nil {
		return 0, "", false
	}
	return y, parts[1], true
}

func parseBareYear(s string) (int, bool) {
	if len(s) != 4 {
		return 0, false
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return year, true
}

// splitRange splits "from - to" on a spaced hyphen or an en-dash. The spaced
// form keeps "YYYY-MM" unambiguous on either side.
func splitRange(s string) (from, to string, ok bool) {
	for _, sep := range []string{" - ", " – ", "–"} {
		if idx := strings.Index(s, sep); idx > 0 {
			return s[:idx], s[idx+len(sep):], true
		}
	}
	return "", "", false
}

func expandRange(start, end YearMonth) ([]YearMonth, error) {
	if end.Year < start.Year || (end.Year == start.Year && end.Month < start.Month) {
		return nil, fmt.Errorf("%w: range end %02d/%d is before start %02d/%d",
			ErrInvalidRange, end.Month, end.Year, start.Month, start.Year)
	}
	var months []YearMonth
	y, m := start.Year, start.Month
	for len(months) < maxRangeMonths {
		months = append(months, YearMonth{Year: y, Month: m})
		if y == end.Year && m == end.Month {
			break
		}
		m++
		if m > 12 {
			m = 1
			y++
		}
	}
	return months, nil
}

func checkYear(year int) error {
	if year < minYear || year > maxYear {
		return fmt.Errorf("%w: year %d out of range [%d, %d]", ErrInvalidDate, year, minYear, maxYear)
	}
	return nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
