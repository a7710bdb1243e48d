package payroll

import (
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// Engine prices attendance snapshots. It holds only policy constants, so one
// instance is safe to share between concurrent computations.
type Engine struct {
	rates payroll.StatutoryRates
}

func NewEngine(rates payroll.StatutoryRates) *Engine {
	return &Engine{rates: rates}
}

// Compute produces the payslip of one employee for one period. The records
// are not modified and nothing is persisted; the same inputs always give the
// same payslip, except for ComputedAt which the caller stamps.
func (e *Engine) Compute(employeeID string, period payroll.PayPeriod, profile *payroll.CompensationProfile, records []attendance.Record) (payroll.Payslip, error) {
	if profile == nil {
		return payroll.Payslip{}, &payroll.ConfigurationError{EmployeeID: employeeID, Reason: "no compensation profile"}
	}
	if !profile.BasicSalary.IsPositive() {
		return payroll.Payslip{}, &payroll.ConfigurationError{EmployeeID: employeeID, Reason: "basic salary is not configured"}
	}
	settings := profile.Settings
	if !settings.ExpectedMonthlyHours.IsPositive() {
		return payroll.Payslip{}, &payroll.ConfigurationError{EmployeeID: employeeID, Reason: "expected monthly hours must be positive"}
	}

	hours := ComputeHours(employeeID, period, settings, records)

	expected := settings.ExpectedMonthlyHours
	actual := hours.TotalHours()

	payable := actual
	overtime := decimal.Zero
	if actual.GreaterThan(expected) {
		overtime = actual.Sub(expected)
		if !settings.OvertimePaid {
			payable = expected
		}
	}
	notWorked := expected.Sub(actual)
	if notWorked.IsNegative() {
		notWorked = decimal.Zero
	}

	hourlyRate := profile.BasicSalary.Div(expected)
	gross := hourlyRate.Mul(payable).Round(2)
	ssnitEmployee := percentOf(gross, e.rates.SSNITEmployeeRate).Round(2)
	paye := PAYE(gross, e.rates.PAYEBrackets).Round(2)

	other := decimal.Zero
	detail := make(map[string]decimal.Decimal, len(profile.Deductions))
	for _, d := range profile.Deductions {
		other = other.Add(d.Amount)
		detail[d.Name] = detail[d.Name].Add(d.Amount)
	}

	net := gross.Sub(ssnitEmployee).Sub(paye).Sub(other).Round(2)

	return payroll.Payslip{
		EmployeeID:        employeeID,
		CompanyID:         profile.CompanyID,
		PeriodStart:       period.Start,
		PeriodEnd:         period.End,
		BasicSalary:       profile.BasicSalary.Round(2),
		ExpectedHours:     expected,
		ActualHoursWorked: actual,
		PayableHours:      payable,
		OvertimeHours:     overtime,
		HoursNotWorked:    notWorked,
		HourlyRate:        hourlyRate.Round(4),
		GrossPay:          gross,
		SSNITEmployee:     ssnitEmployee,
		PAYE:              paye,
		OtherDeductions:   other.Round(2),
		DeductionsDetail:  detail,
		NetPay:            net,
		EmployerSSNIT:     percentOf(gross, e.rates.SSNITEmployerRate).Round(2),
		Tier1:             percentOf(gross, e.rates.Tier1Rate).Round(2),
		Tier2:             percentOf(gross, e.rates.Tier2Rate).Round(2),
		SkippedRecords:    hours.SkippedRecords,
		ExcludedDates:     emptyIfNil(hours.ExcludedDates),
		Warnings:          emptyIfNil(hours.Warnings),
		Days:              hours.Days,
	}, nil
}

// Hours exposes steps 1-5 alone, for breakdown screens that do not price.
func (e *Engine) Hours(employeeID string, period payroll.PayPeriod, settings payroll.PayrollSettings, records []attendance.Record) HoursResult {
	return ComputeHours(employeeID, period, settings, records)
}

// FetchRange widens the period by a day on both sides, so records whose
// stored date is a UTC day differing from the local day are still read.
func FetchRange(period payroll.PayPeriod) (time.Time, time.Time) {
	start, end := period.Bounds()
	return start.AddDate(0, 0, -1), end.AddDate(0, 0, 1)
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
