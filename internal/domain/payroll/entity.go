package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayrollSettings - Company payroll policy used to price attendance
type PayrollSettings struct {
	ID                   string
	CompanyID            string
	ExpectedMonthlyHours decimal.Decimal
	ExpectedDailyHours   decimal.Decimal
	BreakThreshold       time.Duration
	BreakDuration        time.Duration
	Tolerance            time.Duration
	OvertimePaid         bool
	Timezone             string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Location resolves the employer timezone, falling back to UTC.
func (s PayrollSettings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Deduction is a fixed monthly deduction taken from net pay.
type Deduction struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// CompensationProfile - what an employee is paid and under which policy
type CompensationProfile struct {
	EmployeeID  string
	CompanyID   string
	BasicSalary decimal.Decimal
	Deductions  []Deduction
	Settings    PayrollSettings
	UpdatedAt   time.Time
}

// Bracket is one band of the progressive PAYE table. A nil Width marks the
// open-ended top band.
type Bracket struct {
	Width *decimal.Decimal
	Rate  decimal.Decimal // percent, e.g. 17.5
}

// StatutoryRates holds the SSNIT and PAYE policy constants (percentages).
type StatutoryRates struct {
	SSNITEmployeeRate decimal.Decimal
	SSNITEmployerRate decimal.Decimal
	Tier1Rate         decimal.Decimal
	Tier2Rate         decimal.Decimal
	PAYEBrackets      []Bracket
}

// PayPeriod is an inclusive range of local calendar dates (YYYY-MM-DD).
type PayPeriod struct {
	Start string
	End   string
}

// DaySource enum - which data decided the hours of a date
type DaySource string

const (
	SourceAdjustment DaySource = "adjustment"
	SourcePunches    DaySource = "punches"
	SourceSessions   DaySource = "sessions"
	SourceNone       DaySource = "none"
)

// DayBreakdown - per-date result of the hours engine
type DayBreakdown struct {
	Date              string          `json:"date"`
	Source            DaySource       `json:"source"`
	Records           int             `json:"records"`
	DuplicatesDropped int             `json:"duplicates_dropped"`
	RawHours          decimal.Decimal `json:"raw_hours"`
	BreakDeducted     bool            `json:"break_deducted"`
	Hours             decimal.Decimal `json:"hours"`
	Included          bool            `json:"included"`
}

// ExcludedDate - a date left out of the total pending human resolution
type ExcludedDate struct {
	Date   string          `json:"date"`
	Hours  decimal.Decimal `json:"hours"`
	Reason string          `json:"reason"`
}

// WarningKind enum
type WarningKind string

const (
	WarningMalformedTimestamp WarningKind = "malformed_timestamp"
	WarningMissingDate        WarningKind = "missing_date"
	WarningNegativeDuration   WarningKind = "negative_duration"
	WarningUnmatchedPunch     WarningKind = "unmatched_punch"
)

// DataQualityWarning - something the engine ignored while computing
type DataQualityWarning struct {
	RecordID string      `json:"record_id"`
	Date     string      `json:"date,omitempty"`
	Kind     WarningKind `json:"kind"`
	Detail   string      `json:"detail"`
}

// Payslip - computed pay for one employee and one pay period
type Payslip struct {
	ID                string
	EmployeeID        string
	CompanyID         string
	PeriodStart       string
	PeriodEnd         string
	BasicSalary       decimal.Decimal
	ExpectedHours     decimal.Decimal
	ActualHoursWorked decimal.Decimal
	PayableHours      decimal.Decimal
	OvertimeHours     decimal.Decimal
	HoursNotWorked    decimal.Decimal
	HourlyRate        decimal.Decimal
	GrossPay          decimal.Decimal
	SSNITEmployee     decimal.Decimal
	PAYE              decimal.Decimal
	OtherDeductions   decimal.Decimal
	DeductionsDetail  map[string]decimal.Decimal
	NetPay            decimal.Decimal
	EmployerSSNIT     decimal.Decimal
	Tier1             decimal.Decimal
	Tier2             decimal.Decimal
	SkippedRecords    int
	ExcludedDates     []ExcludedDate
	Warnings          []DataQualityWarning
	Days              []DayBreakdown
	ComputedAt        time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Key returns the cache key of the payslip.
func (p Payslip) Key() PayslipKey {
	return PayslipKey{EmployeeID: p.EmployeeID, PeriodStart: p.PeriodStart, PeriodEnd: p.PeriodEnd}
}

// PayslipKey identifies a payslip: one per employee and period.
type PayslipKey struct {
	EmployeeID  string
	PeriodStart string
	PeriodEnd   string
}
