package attendance

import (
	"context"
	"errors"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/auth"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	payrollservice "github.com/cmlabs-hris/payslip-engine/internal/service/payroll"
)

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	payrollRepo payroll.PayrollRepository
	engine      *payrollservice.Engine
	defaults    payroll.PayrollSettings
}

func NewAttendanceService(
	attendanceRepo attendance.AttendanceRepository,
	payrollRepo payroll.PayrollRepository,
	engine *payrollservice.Engine,
	defaults payroll.PayrollSettings,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		AttendanceRepository: attendanceRepo,
		payrollRepo:          payrollRepo,
		engine:               engine,
		defaults:             defaults,
	}
}

func authorize(ctx context.Context, employeeID string) (auth.Claims, error) {
	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return auth.Claims{}, err
	}
	if !claims.CanAccessEmployee(employeeID) {
		return auth.Claims{}, attendance.ErrUnauthorized
	}
	return claims, nil
}

// ListRecords implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListRecords(ctx context.Context, filter attendance.RecordFilter) (attendance.ListRecordResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListRecordResponse{}, err
	}
	claims, err := authorize(ctx, filter.EmployeeID)
	if err != nil {
		return attendance.ListRecordResponse{}, err
	}

	period := payroll.PayPeriod{Start: filter.PeriodStart, End: filter.PeriodEnd}
	from, to := period.Bounds()
	records, err := a.ListByEmployeeAndRange(ctx, filter.EmployeeID, from, to, claims.CompanyID)
	if err != nil {
		return attendance.ListRecordResponse{}, err
	}

	data := make([]attendance.RecordResponse, 0, len(records))
	for _, rec := range records {
		data = append(data, attendance.ToRecordResponse(rec))
	}
	return attendance.ListRecordResponse{Data: data, TotalCount: int64(len(data))}, nil
}

// GetBreakdown implements attendance.AttendanceService. It runs the hours
// engine without pricing, so it works for employees with no profile yet.
func (a *AttendanceServiceImpl) GetBreakdown(ctx context.Context, filter attendance.RecordFilter) (attendance.BreakdownResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.BreakdownResponse{}, err
	}
	claims, err := authorize(ctx, filter.EmployeeID)
	if err != nil {
		return attendance.BreakdownResponse{}, err
	}

	settings, err := a.payrollRepo.GetSettings(ctx, claims.CompanyID)
	if err != nil {
		if !errors.Is(err, payroll.ErrPayrollSettingsNotFound) {
			return attendance.BreakdownResponse{}, err
		}
		settings = a.defaults
		settings.CompanyID = claims.CompanyID
	}

	period := payroll.PayPeriod{Start: filter.PeriodStart, End: filter.PeriodEnd}
	from, to := payrollservice.FetchRange(period)
	records, err := a.ListByEmployeeAndRange(ctx, filter.EmployeeID, from, to, claims.CompanyID)
	if err != nil {
		return attendance.BreakdownResponse{}, err
	}

	result := a.engine.Hours(filter.EmployeeID, period, settings, records)

	resp := attendance.BreakdownResponse{
		EmployeeID:     filter.EmployeeID,
		PeriodStart:    period.Start,
		PeriodEnd:      period.End,
		TotalHours:     result.TotalHours(),
		Days:           make([]attendance.BreakdownDay, 0, len(result.Days)),
		ExcludedDates:  make([]string, 0, len(result.ExcludedDates)),
		SkippedRecords: result.SkippedRecords,
		Warnings:       make([]attendance.BreakdownWarning, 0, len(result.Warnings)),
	}
	for _, d := range result.Days {
		resp.Days = append(resp.Days, attendance.BreakdownDay{
			Date:              d.Date,
			Source:            string(d.Source),
			Records:           d.Records,
			DuplicatesDropped: d.DuplicatesDropped,
			RawHours:          d.RawHours,
			BreakDeducted:     d.BreakDeducted,
			Hours:             d.Hours,
			Included:          d.Included,
		})
	}
	for _, ex := range result.ExcludedDates {
		resp.ExcludedDates = append(resp.ExcludedDates, ex.Date)
	}
	for _, w := range result.Warnings {
		resp.Warnings = append(resp.Warnings, attendance.BreakdownWarning{
			RecordID: w.RecordID,
			Date:     w.Date,
			Kind:     string(w.Kind),
			Detail:   w.Detail,
		})
	}
	return resp, nil
}
