package payroll

import (
	"time"
)

const DateLayout = "2006-01-02"

// MonthPeriod returns the calendar-month pay period.
func MonthPeriod(year int, month time.Month) PayPeriod {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return PayPeriod{Start: start.Format(DateLayout), End: end.Format(DateLayout)}
}

// RollingPeriod returns the window of the given number of days ending on the pay date.
func RollingPeriod(payDate time.Time, days int) PayPeriod {
	if days < 1 {
		days = 1
	}
	end := time.Date(payDate.Year(), payDate.Month(), payDate.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -(days - 1))
	return PayPeriod{Start: start.Format(DateLayout), End: end.Format(DateLayout)}
}

// NewPayPeriod parses and validates the bounds.
func NewPayPeriod(start, end string) (PayPeriod, error) {
	if errs := validatePeriod(start, end); len(errs) > 0 {
		return PayPeriod{}, errs
	}
	return PayPeriod{Start: start, End: end}, nil
}

// Contains reports whether the local date key lies within the period.
// YYYY-MM-DD keys order lexically.
func (p PayPeriod) Contains(date string) bool {
	return date >= p.Start && date <= p.End
}

// Bounds returns the period as UTC midnights.
func (p PayPeriod) Bounds() (time.Time, time.Time) {
	start, _ := time.Parse(DateLayout, p.Start)
	end, _ := time.Parse(DateLayout, p.End)
	return start, end
}

func (p PayPeriod) String() string {
	return "[" + p.Start + ", " + p.End + "]"
}
