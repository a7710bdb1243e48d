package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ========== SETTINGS ==========

func (s *Store) GetSettings(ctx context.Context, companyID string) (payroll.PayrollSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSettings(ctx, companyID)
}

func (s *Store) getSettings(ctx context.Context, companyID string) (payroll.PayrollSettings, error) {
	var (
		st                                   payroll.PayrollSettings
		monthly, daily                       string
		thresholdSec, breakSec, toleranceSec int64
		createdAt, updatedAt                 string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, expected_monthly_hours, expected_daily_hours,
			   break_threshold_seconds, break_duration_seconds, tolerance_seconds,
			   overtime_paid, timezone, created_at, updated_at
		FROM payroll_settings
		WHERE company_id = ?
	`, companyID).Scan(
		&st.ID, &st.CompanyID, &monthly, &daily,
		&thresholdSec, &breakSec, &toleranceSec,
		&st.OvertimePaid, &st.Timezone, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return payroll.PayrollSettings{}, payroll.ErrPayrollSettingsNotFound
		}
		return payroll.PayrollSettings{}, fmt.Errorf("failed to get payroll settings: %w", err)
	}

	if st.ExpectedMonthlyHours, err = decimal.NewFromString(monthly); err != nil {
		return payroll.PayrollSettings{}, fmt.Errorf("invalid expected_monthly_hours: %w", err)
	}
	if st.ExpectedDailyHours, err = decimal.NewFromString(daily); err != nil {
		return payroll.PayrollSettings{}, fmt.Errorf("invalid expected_daily_hours: %w", err)
	}
	st.BreakThreshold = time.Duration(thresholdSec) * time.Second
	st.BreakDuration = time.Duration(breakSec) * time.Second
	st.Tolerance = time.Duration(toleranceSec) * time.Second
	st.CreatedAt = parseTime(createdAt)
	st.UpdatedAt = parseTime(updatedAt)
	return st, nil
}

func (s *Store) UpsertSettings(ctx context.Context, settings payroll.PayrollSettings) (payroll.PayrollSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payroll_settings (
			id, company_id, expected_monthly_hours, expected_daily_hours,
			break_threshold_seconds, break_duration_seconds, tolerance_seconds,
			overtime_paid, timezone, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id) DO UPDATE SET
			expected_monthly_hours = excluded.expected_monthly_hours,
			expected_daily_hours = excluded.expected_daily_hours,
			break_threshold_seconds = excluded.break_threshold_seconds,
			break_duration_seconds = excluded.break_duration_seconds,
			tolerance_seconds = excluded.tolerance_seconds,
			overtime_paid = excluded.overtime_paid,
			timezone = excluded.timezone,
			updated_at = excluded.updated_at
	`,
		uuid.NewString(), settings.CompanyID, settings.ExpectedMonthlyHours.String(), settings.ExpectedDailyHours.String(),
		int64(settings.BreakThreshold/time.Second), int64(settings.BreakDuration/time.Second), int64(settings.Tolerance/time.Second),
		settings.OvertimePaid, settings.Timezone, now, now,
	)
	if err != nil {
		return payroll.PayrollSettings{}, fmt.Errorf("failed to upsert payroll settings: %w", err)
	}
	return s.getSettings(ctx, settings.CompanyID)
}

// ========== PROFILES ==========

func (s *Store) GetProfile(ctx context.Context, employeeID string, companyID string) (payroll.CompensationProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p                      payroll.CompensationProfile
		salary, deductionsJSON string
		updatedAt              string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT company_id, employee_id, basic_salary, deductions_json, updated_at
		FROM compensation_profiles
		WHERE company_id = ? AND employee_id = ?
	`, companyID, employeeID).Scan(&p.CompanyID, &p.EmployeeID, &salary, &deductionsJSON, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return payroll.CompensationProfile{}, payroll.ErrCompensationProfileNotFound
		}
		return payroll.CompensationProfile{}, fmt.Errorf("failed to get compensation profile: %w", err)
	}

	if p.BasicSalary, err = decimal.NewFromString(salary); err != nil {
		return payroll.CompensationProfile{}, fmt.Errorf("invalid basic_salary: %w", err)
	}
	if err := json.Unmarshal([]byte(deductionsJSON), &p.Deductions); err != nil {
		return payroll.CompensationProfile{}, fmt.Errorf("invalid deductions: %w", err)
	}
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, profile payroll.CompensationProfile) (payroll.CompensationProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deductions := profile.Deductions
	if deductions == nil {
		deductions = []payroll.Deduction{}
	}
	deductionsJSON, err := json.Marshal(deductions)
	if err != nil {
		return payroll.CompensationProfile{}, fmt.Errorf("failed to encode deductions: %w", err)
	}

	profile.UpdatedAt = s.now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO compensation_profiles (company_id, employee_id, basic_salary, deductions_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(company_id, employee_id) DO UPDATE SET
			basic_salary = excluded.basic_salary,
			deductions_json = excluded.deductions_json,
			updated_at = excluded.updated_at
	`, profile.CompanyID, profile.EmployeeID, profile.BasicSalary.String(), string(deductionsJSON), formatTime(profile.UpdatedAt))
	if err != nil {
		return payroll.CompensationProfile{}, fmt.Errorf("failed to upsert compensation profile: %w", err)
	}
	profile.Deductions = deductions
	return profile, nil
}

// ========== PAYSLIPS ==========

const payslipColumns = `id, data_json, computed_at, created_at, updated_at`

// UpsertPayslip stores the payslip under its key; a recompute keeps the
// original ID and creation time.
func (s *Store) UpsertPayslip(ctx context.Context, p payroll.Payslip) (payroll.Payslip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return payroll.Payslip{}, fmt.Errorf("failed to encode payslip: %w", err)
	}

	now := formatTime(s.now())
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO payslips (
			id, company_id, employee_id, period_start, period_end,
			data_json, computed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, employee_id, period_start, period_end) DO UPDATE SET
			data_json = excluded.data_json,
			computed_at = excluded.computed_at,
			updated_at = excluded.updated_at
		RETURNING `+payslipColumns,
		p.ID, p.CompanyID, p.EmployeeID, p.PeriodStart, p.PeriodEnd,
		string(data), formatTime(p.ComputedAt), now, now,
	)
	saved, err := scanPayslip(row)
	if err != nil {
		return payroll.Payslip{}, fmt.Errorf("failed to upsert payslip: %w", err)
	}
	return saved, nil
}

func (s *Store) GetPayslip(ctx context.Context, key payroll.PayslipKey, companyID string) (payroll.Payslip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+payslipColumns+`
		FROM payslips
		WHERE company_id = ? AND employee_id = ? AND period_start = ? AND period_end = ?
	`, companyID, key.EmployeeID, key.PeriodStart, key.PeriodEnd)

	p, err := scanPayslip(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return payroll.Payslip{}, payroll.ErrPayslipNotFound
		}
		return payroll.Payslip{}, fmt.Errorf("failed to get payslip: %w", err)
	}
	return p, nil
}

func (s *Store) ListPayslips(ctx context.Context, companyID string, filter payroll.PayslipFilter) ([]payroll.Payslip, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := []string{"company_id = ?"}
	args := []any{companyID}
	if filter.EmployeeID != nil {
		where = append(where, "employee_id = ?")
		args = append(args, *filter.EmployeeID)
	}
	if filter.PeriodStart != nil {
		where = append(where, "period_start = ?")
		args = append(args, *filter.PeriodStart)
	}
	if filter.PeriodEnd != nil {
		where = append(where, "period_end = ?")
		args = append(args, *filter.PeriodEnd)
	}
	whereClause := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM payslips"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payslips: %w", err)
	}

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	query := "SELECT " + payslipColumns + " FROM payslips" + whereClause +
		" ORDER BY period_start DESC, employee_id, period_end LIMIT ? OFFSET ?"
	slips, err := s.queryPayslips(ctx, query, append(args, filter.Limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return slips, total, nil
}

func (s *Store) ListPayslipsCovering(ctx context.Context, employeeID string, date string, companyID string) ([]payroll.Payslip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayslips(ctx, `
		SELECT `+payslipColumns+`
		FROM payslips
		WHERE company_id = ? AND employee_id = ? AND period_start <= ? AND period_end >= ?
		ORDER BY period_start
	`, companyID, employeeID, date, date)
}

func (s *Store) ListPayslipsComputedBefore(ctx context.Context, employeeID string, before time.Time, companyID string) ([]payroll.Payslip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayslips(ctx, `
		SELECT `+payslipColumns+`
		FROM payslips
		WHERE company_id = ? AND employee_id = ? AND computed_at < ?
		ORDER BY period_start
	`, companyID, employeeID, formatTime(before))
}

func (s *Store) queryPayslips(ctx context.Context, query string, args ...any) ([]payroll.Payslip, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslips: %w", err)
	}
	defer rows.Close()

	slips := []payroll.Payslip{}
	for rows.Next() {
		p, err := scanPayslip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payslip: %w", err)
		}
		slips = append(slips, p)
	}
	return slips, rows.Err()
}

func scanPayslip(row scanner) (payroll.Payslip, error) {
	var (
		id, data                         string
		computedAt, createdAt, updatedAt string
	)
	if err := row.Scan(&id, &data, &computedAt, &createdAt, &updatedAt); err != nil {
		return payroll.Payslip{}, err
	}

	var p payroll.Payslip
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return payroll.Payslip{}, fmt.Errorf("invalid payslip data: %w", err)
	}
	p.ID = id
	p.ComputedAt = parseTime(computedAt)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}
