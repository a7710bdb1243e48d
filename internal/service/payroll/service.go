package payroll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/auth"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payslip-engine/internal/pkg/export"
	"github.com/cmlabs-hris/payslip-engine/internal/pkg/validator"
	"github.com/google/uuid"
)

const exportPageSize = 100

type PayrollServiceImpl struct {
	payrollRepo    payroll.PayrollRepository
	attendanceRepo attendance.AttendanceRepository
	engine         *Engine
	defaults       payroll.PayrollSettings
	now            func() time.Time
}

// NewPayrollService wires the payslip service. defaults is the policy used for
// companies that never saved payroll settings.
func NewPayrollService(
	payrollRepo payroll.PayrollRepository,
	attendanceRepo attendance.AttendanceRepository,
	engine *Engine,
	defaults payroll.PayrollSettings,
) payroll.PayrollService {
	return &PayrollServiceImpl{
		payrollRepo:    payrollRepo,
		attendanceRepo: attendanceRepo,
		engine:         engine,
		defaults:       defaults,
		now:            time.Now,
	}
}

// ========== SETTINGS ==========

func (s *PayrollServiceImpl) settingsFor(ctx context.Context, companyID string) (payroll.PayrollSettings, error) {
	settings, err := s.payrollRepo.GetSettings(ctx, companyID)
	if err != nil {
		if errors.Is(err, payroll.ErrPayrollSettingsNotFound) {
			defaults := s.defaults
			defaults.CompanyID = companyID
			return defaults, nil
		}
		return payroll.PayrollSettings{}, err
	}
	return settings, nil
}

func (s *PayrollServiceImpl) GetSettings(ctx context.Context) (payroll.PayrollSettingsResponse, error) {
	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollSettingsResponse{}, err
	}

	settings, err := s.settingsFor(ctx, claims.CompanyID)
	if err != nil {
		return payroll.PayrollSettingsResponse{}, err
	}
	return mapToSettingsResponse(settings), nil
}

func (s *PayrollServiceImpl) UpdateSettings(ctx context.Context, req payroll.UpdatePayrollSettingsRequest) (payroll.PayrollSettingsResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollSettingsResponse{}, err
	}

	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayrollSettingsResponse{}, err
	}
	if !claims.Role.IsAdmin() {
		return payroll.PayrollSettingsResponse{}, auth.ErrAdminPrivilegeRequired
	}

	current, err := s.settingsFor(ctx, claims.CompanyID)
	if err != nil {
		return payroll.PayrollSettingsResponse{}, err
	}

	// Apply updates
	if req.ExpectedMonthlyHours != nil {
		current.ExpectedMonthlyHours = *req.ExpectedMonthlyHours
	}
	if req.ExpectedDailyHours != nil {
		current.ExpectedDailyHours = *req.ExpectedDailyHours
	}
	if req.BreakThresholdMinutes != nil {
		current.BreakThreshold = time.Duration(*req.BreakThresholdMinutes) * time.Minute
	}
	if req.BreakDurationMinutes != nil {
		current.BreakDuration = time.Duration(*req.BreakDurationMinutes) * time.Minute
	}
	if req.ToleranceMinutes != nil {
		current.Tolerance = time.Duration(*req.ToleranceMinutes) * time.Minute
	}
	if req.OvertimePaid != nil {
		current.OvertimePaid = *req.OvertimePaid
	}
	if req.Timezone != nil {
		current.Timezone = *req.Timezone
	}

	updated, err := s.payrollRepo.UpsertSettings(ctx, current)
	if err != nil {
		return payroll.PayrollSettingsResponse{}, err
	}
	return mapToSettingsResponse(updated), nil
}

// ========== PROFILES ==========

func (s *PayrollServiceImpl) GetProfile(ctx context.Context, employeeID string) (payroll.ProfileResponse, error) {
	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return payroll.ProfileResponse{}, err
	}
	if !claims.CanAccessEmployee(employeeID) {
		return payroll.ProfileResponse{}, payroll.ErrForbidden
	}

	profile, err := s.payrollRepo.GetProfile(ctx, employeeID, claims.CompanyID)
	if err != nil {
		return payroll.ProfileResponse{}, err
	}
	if profile.Settings, err = s.settingsFor(ctx, claims.CompanyID); err != nil {
		return payroll.ProfileResponse{}, err
	}
	return mapToProfileResponse(profile), nil
}

func (s *PayrollServiceImpl) UpsertProfile(ctx context.Context, req payroll.UpsertProfileRequest) (payroll.ProfileResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.ProfileResponse{}, err
	}

	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return payroll.ProfileResponse{}, err
	}
	if !claims.Role.IsAdmin() {
		return payroll.ProfileResponse{}, auth.ErrAdminPrivilegeRequired
	}

	saved, err := s.payrollRepo.UpsertProfile(ctx, payroll.CompensationProfile{
		EmployeeID:  req.EmployeeID,
		CompanyID:   claims.CompanyID,
		BasicSalary: req.BasicSalary,
		Deductions:  req.Deductions,
	})
	if err != nil {
		return payroll.ProfileResponse{}, err
	}
	if saved.Settings, err = s.settingsFor(ctx, claims.CompanyID); err != nil {
		return payroll.ProfileResponse{}, err
	}
	return mapToProfileResponse(saved), nil
}

// ========== PAYSLIPS ==========

func (s *PayrollServiceImpl) ComputePayslip(ctx context.Context, req payroll.ComputePayslipRequest) (payroll.PayslipResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayslipResponse{}, err
	}

	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	if !claims.CanAccessEmployee(req.EmployeeID) {
		return payroll.PayslipResponse{}, payroll.ErrForbidden
	}

	period, err := payroll.NewPayPeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}

	if !req.ForceRecompute {
		key := payroll.PayslipKey{EmployeeID: req.EmployeeID, PeriodStart: period.Start, PeriodEnd: period.End}
		cached, err := s.payrollRepo.GetPayslip(ctx, key, claims.CompanyID)
		if err == nil {
			resp := mapToPayslipResponse(cached)
			resp.Cached = true
			return resp, nil
		}
		if !errors.Is(err, payroll.ErrPayslipNotFound) {
			return payroll.PayslipResponse{}, err
		}
	}

	slip, err := s.recompute(ctx, claims.CompanyID, req.EmployeeID, period)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	return mapToPayslipResponse(slip), nil
}

// recompute runs the engine on a fresh snapshot and overwrites the stored
// payslip for the key. Nothing is persisted when the engine refuses.
func (s *PayrollServiceImpl) recompute(ctx context.Context, companyID, employeeID string, period payroll.PayPeriod) (payroll.Payslip, error) {
	profile, err := s.payrollRepo.GetProfile(ctx, employeeID, companyID)
	if err != nil {
		if errors.Is(err, payroll.ErrCompensationProfileNotFound) {
			return payroll.Payslip{}, &payroll.ConfigurationError{EmployeeID: employeeID, Reason: "no compensation profile"}
		}
		return payroll.Payslip{}, fmt.Errorf("load compensation profile: %w", err)
	}
	if profile.Settings, err = s.settingsFor(ctx, companyID); err != nil {
		return payroll.Payslip{}, fmt.Errorf("load payroll settings: %w", err)
	}

	from, to := FetchRange(period)
	records, err := s.attendanceRepo.ListByEmployeeAndRange(ctx, employeeID, from, to, companyID)
	if err != nil {
		return payroll.Payslip{}, fmt.Errorf("load attendance: %w", err)
	}

	slip, err := s.engine.Compute(employeeID, period, &profile, records)
	if err != nil {
		return payroll.Payslip{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return payroll.Payslip{}, fmt.Errorf("generate payslip id: %w", err)
	}
	slip.ID = id.String()
	slip.CompanyID = companyID
	slip.ComputedAt = s.now().UTC()

	saved, err := s.payrollRepo.UpsertPayslip(ctx, slip)
	if err != nil {
		return payroll.Payslip{}, fmt.Errorf("store payslip: %w", err)
	}

	slog.InfoContext(ctx, "payslip computed",
		"company_id", companyID,
		"employee_id", employeeID,
		"period", period.String(),
		"actual_hours", saved.ActualHoursWorked.String(),
		"excluded_dates", len(saved.ExcludedDates),
		"skipped_records", saved.SkippedRecords,
	)
	return saved, nil
}

func (s *PayrollServiceImpl) GetPayslip(ctx context.Context, employeeID, periodStart, periodEnd string) (payroll.PayslipResponse, error) {
	if errs := validatePayslipKey(employeeID, periodStart, periodEnd); errs != nil {
		return payroll.PayslipResponse{}, errs
	}

	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	if !claims.CanAccessEmployee(employeeID) {
		return payroll.PayslipResponse{}, payroll.ErrForbidden
	}

	slip, err := s.payrollRepo.GetPayslip(ctx, payroll.PayslipKey{
		EmployeeID:  employeeID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}, claims.CompanyID)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}

	resp := mapToPayslipResponse(slip)
	resp.Cached = true
	return resp, nil
}

func (s *PayrollServiceImpl) ListPayslips(ctx context.Context, filter payroll.PayslipFilter) (payroll.ListPayslipResponse, error) {
	if err := filter.Validate(); err != nil {
		return payroll.ListPayslipResponse{}, err
	}

	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return payroll.ListPayslipResponse{}, err
	}

	// Employees only ever see their own payslips
	if !claims.Role.IsAdmin() {
		if claims.EmployeeID == "" {
			return payroll.ListPayslipResponse{}, payroll.ErrForbidden
		}
		if filter.EmployeeID != nil && *filter.EmployeeID != claims.EmployeeID {
			return payroll.ListPayslipResponse{}, payroll.ErrForbidden
		}
		filter.EmployeeID = &claims.EmployeeID
	}

	slips, total, err := s.payrollRepo.ListPayslips(ctx, claims.CompanyID, filter)
	if err != nil {
		return payroll.ListPayslipResponse{}, err
	}

	data := make([]payroll.PayslipResponse, 0, len(slips))
	for _, slip := range slips {
		resp := mapToPayslipResponse(slip)
		resp.Cached = true
		// Per-day detail is only returned for a single payslip
		resp.Days = nil
		data = append(data, resp)
	}

	return payroll.ListPayslipResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func (s *PayrollServiceImpl) ExportPayslips(ctx context.Context, periodStart, periodEnd string, w io.Writer) error {
	period, err := payroll.NewPayPeriod(periodStart, periodEnd)
	if err != nil {
		return err
	}

	claims, err := auth.ClaimsFromContext(ctx)
	if err != nil {
		return err
	}
	if !claims.Role.IsAdmin() {
		return auth.ErrAdminPrivilegeRequired
	}

	filter := payroll.PayslipFilter{
		PeriodStart: &period.Start,
		PeriodEnd:   &period.End,
		Page:        1,
		Limit:       exportPageSize,
	}

	var all []payroll.Payslip
	for {
		slips, total, err := s.payrollRepo.ListPayslips(ctx, claims.CompanyID, filter)
		if err != nil {
			return err
		}
		all = append(all, slips...)
		if len(slips) == 0 || int64(len(all)) >= total {
			break
		}
		filter.Page++
	}

	slog.InfoContext(ctx, "exporting payslips", "company_id", claims.CompanyID, "period", period.String(), "count", len(all))
	return export.WritePayslips(w, all)
}

// ========== RECOMPUTE ==========

func (s *PayrollServiceImpl) RecomputeForDate(ctx context.Context, companyID, employeeID, date string) (int, error) {
	if validator.IsEmpty(companyID) || validator.IsEmpty(employeeID) {
		return 0, payroll.ErrEmployeeNotFound
	}
	if _, ok := validator.IsValidDate(date); !ok {
		return 0, payroll.ErrInvalidPeriod
	}

	slips, err := s.payrollRepo.ListPayslipsCovering(ctx, employeeID, date, companyID)
	if err != nil {
		return 0, err
	}
	return s.recomputeAll(ctx, slips)
}

func (s *PayrollServiceImpl) RecomputeStale(ctx context.Context, since time.Time) (int, error) {
	refs, err := s.attendanceRepo.ListEmployeesUpdatedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("list updated employees: %w", err)
	}

	var total int
	var errs []error
	for _, ref := range refs {
		slips, err := s.payrollRepo.ListPayslipsComputedBefore(ctx, ref.EmployeeID, ref.UpdatedAt, ref.CompanyID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n, err := s.recomputeAll(ctx, slips)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

func (s *PayrollServiceImpl) recomputeAll(ctx context.Context, slips []payroll.Payslip) (int, error) {
	var count int
	var errs []error
	for _, slip := range slips {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		period := payroll.PayPeriod{Start: slip.PeriodStart, End: slip.PeriodEnd}
		if _, err := s.recompute(ctx, slip.CompanyID, slip.EmployeeID, period); err != nil {
			slog.WarnContext(ctx, "payslip recompute failed",
				"company_id", slip.CompanyID,
				"employee_id", slip.EmployeeID,
				"period", period.String(),
				"error", err,
			)
			errs = append(errs, err)
			continue
		}
		count++
	}
	return count, errors.Join(errs...)
}

func validatePayslipKey(employeeID, periodStart, periodEnd string) error {
	req := payroll.ComputePayslipRequest{EmployeeID: employeeID, PeriodStart: periodStart, PeriodEnd: periodEnd}
	return req.Validate()
}

// ========== MAPPERS ==========

func mapToSettingsResponse(s payroll.PayrollSettings) payroll.PayrollSettingsResponse {
	return payroll.PayrollSettingsResponse{
		ID:                    s.ID,
		CompanyID:             s.CompanyID,
		ExpectedMonthlyHours:  s.ExpectedMonthlyHours,
		ExpectedDailyHours:    s.ExpectedDailyHours,
		BreakThresholdMinutes: int(s.BreakThreshold / time.Minute),
		BreakDurationMinutes:  int(s.BreakDuration / time.Minute),
		ToleranceMinutes:      int(s.Tolerance / time.Minute),
		OvertimePaid:          s.OvertimePaid,
		Timezone:              s.Timezone,
	}
}

func mapToProfileResponse(p payroll.CompensationProfile) payroll.ProfileResponse {
	deductions := p.Deductions
	if deductions == nil {
		deductions = []payroll.Deduction{}
	}
	return payroll.ProfileResponse{
		EmployeeID:  p.EmployeeID,
		CompanyID:   p.CompanyID,
		BasicSalary: p.BasicSalary,
		Deductions:  deductions,
		Settings:    mapToSettingsResponse(p.Settings),
	}
}

func mapToPayslipResponse(p payroll.Payslip) payroll.PayslipResponse {
	return payroll.PayslipResponse{
		ID:                p.ID,
		EmployeeID:        p.EmployeeID,
		PeriodStart:       p.PeriodStart,
		PeriodEnd:         p.PeriodEnd,
		BasicSalary:       p.BasicSalary,
		ExpectedHours:     p.ExpectedHours,
		ActualHoursWorked: p.ActualHoursWorked,
		PayableHours:      p.PayableHours,
		OvertimeHours:     p.OvertimeHours,
		HoursNotWorked:    p.HoursNotWorked,
		HourlyRate:        p.HourlyRate,
		GrossPay:          p.GrossPay,
		SSNITEmployee:     p.SSNITEmployee,
		PAYE:              p.PAYE,
		OtherDeductions:   p.OtherDeductions,
		DeductionsDetail:  p.DeductionsDetail,
		NetPay:            p.NetPay,
		EmployerSSNIT:     p.EmployerSSNIT,
		Tier1:             p.Tier1,
		Tier2:             p.Tier2,
		SkippedRecords:    p.SkippedRecords,
		ExcludedDates:     emptyIfNil(p.ExcludedDates),
		Warnings:          emptyIfNil(p.Warnings),
		Days:              p.Days,
		ComputedAt:        p.ComputedAt.UTC().Format(time.RFC3339),
	}
}
