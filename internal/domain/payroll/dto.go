package payroll

import (
	"github.com/cmlabs-hris/payslip-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== SETTINGS DTOs ==========

type PayrollSettingsResponse struct {
	ID                    string          `json:"id,omitempty"`
	CompanyID             string          `json:"company_id"`
	ExpectedMonthlyHours  decimal.Decimal `json:"expected_monthly_hours"`
	ExpectedDailyHours    decimal.Decimal `json:"expected_daily_hours"`
	BreakThresholdMinutes int             `json:"break_threshold_minutes"`
	BreakDurationMinutes  int             `json:"break_duration_minutes"`
	ToleranceMinutes      int             `json:"tolerance_minutes"`
	OvertimePaid          bool            `json:"overtime_paid"`
	Timezone              string          `json:"timezone"`
}

type UpdatePayrollSettingsRequest struct {
	ExpectedMonthlyHours  *decimal.Decimal `json:"expected_monthly_hours,omitempty"`
	ExpectedDailyHours    *decimal.Decimal `json:"expected_daily_hours,omitempty"`
	BreakThresholdMinutes *int             `json:"break_threshold_minutes,omitempty"`
	BreakDurationMinutes  *int             `json:"break_duration_minutes,omitempty"`
	ToleranceMinutes      *int             `json:"tolerance_minutes,omitempty"`
	OvertimePaid          *bool            `json:"overtime_paid,omitempty"`
	Timezone              *string          `json:"timezone,omitempty"`
}

func (r *UpdatePayrollSettingsRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.ExpectedMonthlyHours != nil && !r.ExpectedMonthlyHours.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "expected_monthly_hours", Message: "must be positive"})
	}
	if r.ExpectedDailyHours != nil && !r.ExpectedDailyHours.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "expected_daily_hours", Message: "must be positive"})
	}
	if r.BreakThresholdMinutes != nil && *r.BreakThresholdMinutes < 0 {
		errs = append(errs, validator.ValidationError{Field: "break_threshold_minutes", Message: "must be non-negative"})
	}
	if r.BreakDurationMinutes != nil && *r.BreakDurationMinutes < 0 {
		errs = append(errs, validator.ValidationError{Field: "break_duration_minutes", Message: "must be non-negative"})
	}
	if r.ToleranceMinutes != nil && *r.ToleranceMinutes < 0 {
		errs = append(errs, validator.ValidationError{Field: "tolerance_minutes", Message: "must be non-negative"})
	}
	if r.Timezone != nil {
		if !validator.IsValidTimezone(*r.Timezone) {
			errs = append(errs, validator.ValidationError{Field: "timezone", Message: "unknown timezone"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== PROFILE DTOs ==========

type UpsertProfileRequest struct {
	EmployeeID  string          `json:"-"`
	BasicSalary decimal.Decimal `json:"basic_salary"`
	Deductions  []Deduction     `json:"deductions,omitempty"`
}

func (r *UpsertProfileRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	if !r.BasicSalary.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "basic_salary", Message: "must be positive"})
	}
	for _, d := range r.Deductions {
		if validator.IsEmpty(d.Name) {
			errs = append(errs, validator.ValidationError{Field: "deductions", Message: "every deduction needs a name"})
			break
		}
		if d.Amount.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: "deductions", Message: "amounts must be non-negative"})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ProfileResponse struct {
	EmployeeID  string                  `json:"employee_id"`
	CompanyID   string                  `json:"company_id"`
	BasicSalary decimal.Decimal         `json:"basic_salary"`
	Deductions  []Deduction             `json:"deductions"`
	Settings    PayrollSettingsResponse `json:"settings"`
}

// ========== PAYSLIP DTOs ==========

type ComputePayslipRequest struct {
	EmployeeID     string `json:"employee_id"`
	PeriodStart    string `json:"period_start"`
	PeriodEnd      string `json:"period_end"`
	ForceRecompute bool   `json:"force"`
}

func (r *ComputePayslipRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "is required"})
	}
	errs = append(errs, validatePeriod(r.PeriodStart, r.PeriodEnd)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validatePeriod(start, end string) validator.ValidationErrors {
	var errs validator.ValidationErrors

	startDate, startOK := validator.IsValidDate(start)
	if !startOK {
		errs = append(errs, validator.ValidationError{Field: "period_start", Message: "must be a YYYY-MM-DD date"})
	}
	endDate, endOK := validator.IsValidDate(end)
	if !endOK {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must be a YYYY-MM-DD date"})
	}
	if startOK && endOK && endDate.Before(startDate) {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must not be before period_start"})
	}
	return errs
}

type PayslipFilter struct {
	EmployeeID  *string `json:"employee_id,omitempty"`
	PeriodStart *string `json:"period_start,omitempty"`
	PeriodEnd   *string `json:"period_end,omitempty"`
	Page        int     `json:"page"`
	Limit       int     `json:"limit"`
}

func (f *PayslipFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.PeriodStart != nil {
		if _, ok := validator.IsValidDate(*f.PeriodStart); !ok {
			errs = append(errs, validator.ValidationError{Field: "period_start", Message: "must be a YYYY-MM-DD date"})
		}
	}
	if f.PeriodEnd != nil {
		if _, ok := validator.IsValidDate(*f.PeriodEnd); !ok {
			errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must be a YYYY-MM-DD date"})
		}
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PayslipResponse struct {
	ID                string                     `json:"id"`
	EmployeeID        string                     `json:"employee_id"`
	PeriodStart       string                     `json:"period_start"`
	PeriodEnd         string                     `json:"period_end"`
	BasicSalary       decimal.Decimal            `json:"basic_salary"`
	ExpectedHours     decimal.Decimal            `json:"expected_hours"`
	ActualHoursWorked decimal.Decimal            `json:"actual_hours_worked"`
	PayableHours      decimal.Decimal            `json:"payable_hours"`
	OvertimeHours     decimal.Decimal            `json:"overtime_hours"`
	HoursNotWorked    decimal.Decimal            `json:"hours_not_worked"`
	HourlyRate        decimal.Decimal            `json:"hourly_rate"`
	GrossPay          decimal.Decimal            `json:"gross_pay"`
	SSNITEmployee     decimal.Decimal            `json:"ssnit_employee"`
	PAYE              decimal.Decimal            `json:"paye"`
	OtherDeductions   decimal.Decimal            `json:"other_deductions"`
	DeductionsDetail  map[string]decimal.Decimal `json:"deductions_detail,omitempty"`
	NetPay            decimal.Decimal            `json:"net_pay"`
	EmployerSSNIT     decimal.Decimal            `json:"employer_ssnit"`
	Tier1             decimal.Decimal            `json:"tier1"`
	Tier2             decimal.Decimal            `json:"tier2"`
	SkippedRecords    int                        `json:"skipped_records"`
	ExcludedDates     []ExcludedDate             `json:"excluded_dates"`
	Warnings          []DataQualityWarning       `json:"warnings"`
	Days              []DayBreakdown             `json:"days,omitempty"`
	ComputedAt        string                     `json:"computed_at"`
	Cached            bool                       `json:"cached"`
}

type ListPayslipResponse struct {
	Data       []PayslipResponse `json:"data"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
}
