package entities

import (
	"fmt"
	"strings"
	"time"
)

// DatePrecision says how much of a FuzzyDate can be trusted.
type DatePrecision string

const (
	PrecisionExact       DatePrecision = "exact"
	PrecisionApproximate DatePrecision = "approximate"
)

// dateLayout is the storage and display layout for dates.
const dateLayout = "2006-01-02"

// FuzzyDate is a calendar date with a precision marker.
type FuzzyDate struct {
	Date      time.Time     `json:"date"`
	Precision DatePrecision `json:"precision"`
}

// String renders exact dates as YYYY-MM-DD and approximate ones as "~YYYY".
func (d FuzzyDate) String() string {
	if d.Precision == PrecisionApproximate {
		return fmt.Sprintf("~%d", d.Date.Year())
	}
	return d.Date.Format(dateLayout)
}

// ParseFuzzyDate parses "YYYY-MM-DD", "YYYY", "~YYYY" or "~YYYY-MM-DD".
// A leading "~" or a bare year marks the date approximate. Empty input yields nil.
func ParseFuzzyDate(s string) (*FuzzyDate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	precision := PrecisionExact
	if strings.HasPrefix(s, "~") {
		precision = PrecisionApproximate
		s = strings.TrimSpace(strings.TrimPrefix(s, "~"))
	}

	if t, err := time.Parse(dateLayout, s); err == nil {
		return &FuzzyDate{Date: t, Precision: precision}, nil
	}
	if t, err := time.Parse("2006", s); err == nil {
		return &FuzzyDate{Date: t, Precision: PrecisionApproximate}, nil
	}
	return nil, fmt.Errorf("invalid date %q (use YYYY-MM-DD, YYYY or ~YYYY)", s)
}

// FormatDate returns the storage form of a date (YYYY-MM-DD).
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseStoredDate parses a date in storage form.
func ParseStoredDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
