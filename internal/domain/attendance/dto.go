package attendance

import (
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type RecordFilter struct {
	EmployeeID  string `json:"employee_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

func (f *RecordFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	start, startOK := validator.IsValidDate(f.PeriodStart)
	if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "period_start",
			Message: "period_start must be in YYYY-MM-DD format",
		})
	}

	end, endOK := validator.IsValidDate(f.PeriodEnd)
	if !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "period_end",
			Message: "period_end must be in YYYY-MM-DD format",
		})
	}

	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "period_end",
			Message: "period_end must not be before period_start",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type RecordResponse struct {
	ID         string      `json:"id"`
	EmployeeID string      `json:"employee_id"`
	Date       string      `json:"date"`
	Primary    *Session    `json:"primary_session,omitempty"`
	Secondary  *Session    `json:"secondary_session,omitempty"`
	Punches    []Punch     `json:"punches,omitempty"`
	Adjustment *Adjustment `json:"adjustment,omitempty"`
	UpdatedAt  string      `json:"updated_at"`
}

type ListRecordResponse struct {
	Data       []RecordResponse `json:"data"`
	TotalCount int64            `json:"total_count"`
}

// BreakdownDay mirrors the engine's per-date result for investigation screens.
type BreakdownDay struct {
	Date              string          `json:"date"`
	Source            string          `json:"source"`
	Records           int             `json:"records"`
	DuplicatesDropped int             `json:"duplicates_dropped"`
	RawHours          decimal.Decimal `json:"raw_hours"`
	BreakDeducted     bool            `json:"break_deducted"`
	Hours             decimal.Decimal `json:"hours"`
	Included          bool            `json:"included"`
}

type BreakdownWarning struct {
	RecordID string `json:"record_id"`
	Date     string `json:"date,omitempty"`
	Kind     string `json:"kind"`
	Detail   string `json:"detail"`
}

type BreakdownResponse struct {
	EmployeeID     string             `json:"employee_id"`
	PeriodStart    string             `json:"period_start"`
	PeriodEnd      string             `json:"period_end"`
	TotalHours     decimal.Decimal    `json:"total_hours"`
	Days           []BreakdownDay     `json:"days"`
	ExcludedDates  []string           `json:"excluded_dates"`
	SkippedRecords int                `json:"skipped_records"`
	Warnings       []BreakdownWarning `json:"warnings"`
}

func ToRecordResponse(r Record) RecordResponse {
	return RecordResponse{
		ID:         r.ID,
		EmployeeID: r.EmployeeID,
		Date:       r.Date,
		Primary:    r.Primary,
		Secondary:  r.Secondary,
		Punches:    r.Punches,
		Adjustment: r.Adjustment,
		UpdatedAt:  r.UpdatedAt.Format(time.RFC3339),
	}
}
