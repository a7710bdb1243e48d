package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payslip-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

// ========== SETTINGS ==========

const settingsColumns = `id, company_id, expected_monthly_hours, expected_daily_hours,
	break_threshold_seconds, break_duration_seconds, tolerance_seconds,
	overtime_paid, timezone, created_at, updated_at`

func (r *payrollRepository) GetSettings(ctx context.Context, companyID string) (payroll.PayrollSettings, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + settingsColumns + ` FROM payroll_settings WHERE company_id = $1`

	s, err := scanSettings(q.QueryRow(ctx, query, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.PayrollSettings{}, payroll.ErrPayrollSettingsNotFound
		}
		return payroll.PayrollSettings{}, fmt.Errorf("failed to get payroll settings: %w", err)
	}

	return s, nil
}

func (r *payrollRepository) UpsertSettings(ctx context.Context, settings payroll.PayrollSettings) (payroll.PayrollSettings, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_settings (
			company_id, expected_monthly_hours, expected_daily_hours,
			break_threshold_seconds, break_duration_seconds, tolerance_seconds,
			overtime_paid, timezone
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id) DO UPDATE SET
			expected_monthly_hours = EXCLUDED.expected_monthly_hours,
			expected_daily_hours = EXCLUDED.expected_daily_hours,
			break_threshold_seconds = EXCLUDED.break_threshold_seconds,
			break_duration_seconds = EXCLUDED.break_duration_seconds,
			tolerance_seconds = EXCLUDED.tolerance_seconds,
			overtime_paid = EXCLUDED.overtime_paid,
			timezone = EXCLUDED.timezone,
			updated_at = NOW()
		RETURNING ` + settingsColumns

	s, err := scanSettings(q.QueryRow(ctx, query,
		settings.CompanyID, settings.ExpectedMonthlyHours, settings.ExpectedDailyHours,
		int64(settings.BreakThreshold/time.Second), int64(settings.BreakDuration/time.Second),
		int64(settings.Tolerance/time.Second), settings.OvertimePaid, settings.Timezone,
	))
	if err != nil {
		return payroll.PayrollSettings{}, fmt.Errorf("failed to upsert payroll settings: %w", err)
	}

	return s, nil
}

func scanSettings(row pgx.Row) (payroll.PayrollSettings, error) {
	var (
		s                                    payroll.PayrollSettings
		thresholdSec, breakSec, toleranceSec int64
	)
	err := row.Scan(
		&s.ID, &s.CompanyID, &s.ExpectedMonthlyHours, &s.ExpectedDailyHours,
		&thresholdSec, &breakSec, &toleranceSec,
		&s.OvertimePaid, &s.Timezone, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return payroll.PayrollSettings{}, err
	}
	s.BreakThreshold = time.Duration(thresholdSec) * time.Second
	s.BreakDuration = time.Duration(breakSec) * time.Second
	s.Tolerance = time.Duration(toleranceSec) * time.Second
	return s, nil
}

// ========== COMPENSATION PROFILES ==========

// GetProfile composes the profile from the employee's base salary and the
// deduction components currently assigned to them.
func (r *payrollRepository) GetProfile(ctx context.Context, employeeID string, companyID string) (payroll.CompensationProfile, error) {
	q := GetQuerier(ctx, r.db)

	var (
		p      payroll.CompensationProfile
		salary *decimal.Decimal
	)
	err := q.QueryRow(ctx, `
		SELECT id, company_id, base_salary, updated_at
		FROM employees
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
	`, employeeID, companyID).Scan(&p.EmployeeID, &p.CompanyID, &salary, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.CompensationProfile{}, payroll.ErrCompensationProfileNotFound
		}
		return payroll.CompensationProfile{}, fmt.Errorf("failed to get employee salary: %w", err)
	}
	if salary == nil {
		return payroll.CompensationProfile{}, payroll.ErrCompensationProfileNotFound
	}
	p.BasicSalary = *salary

	rows, err := q.Query(ctx, `
		SELECT pc.name, epc.amount
		FROM employee_payroll_components epc
		JOIN payroll_components pc ON epc.payroll_component_id = pc.id
		WHERE epc.employee_id = $1 AND pc.company_id = $2
		  AND pc.type = 'deduction' AND pc.is_active
		  AND epc.effective_date <= CURRENT_DATE
		  AND (epc.end_date IS NULL OR epc.end_date >= CURRENT_DATE)
		ORDER BY pc.name
	`, employeeID, companyID)
	if err != nil {
		return payroll.CompensationProfile{}, fmt.Errorf("failed to get employee deductions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d payroll.Deduction
		if err := rows.Scan(&d.Name, &d.Amount); err != nil {
			return payroll.CompensationProfile{}, fmt.Errorf("failed to scan deduction: %w", err)
		}
		p.Deductions = append(p.Deductions, d)
	}
	if err := rows.Err(); err != nil {
		return payroll.CompensationProfile{}, fmt.Errorf("failed to iterate deductions: %w", err)
	}

	return p, nil
}

// UpsertProfile sets the base salary and replaces the employee's deduction
// assignments in one transaction. Deduction components are created on first use.
func (r *payrollRepository) UpsertProfile(ctx context.Context, profile payroll.CompensationProfile) (payroll.CompensationProfile, error) {
	err := WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE employees SET base_salary = $1, updated_at = NOW()
			WHERE id = $2 AND company_id = $3 AND deleted_at IS NULL
		`, profile.BasicSalary, profile.EmployeeID, profile.CompanyID)
		if err != nil {
			return fmt.Errorf("failed to update base salary: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return payroll.ErrEmployeeNotFound
		}

		_, err = tx.Exec(ctx, `
			DELETE FROM employee_payroll_components epc
			USING payroll_components pc
			WHERE epc.payroll_component_id = pc.id
			  AND epc.employee_id = $1 AND pc.company_id = $2 AND pc.type = 'deduction'
		`, profile.EmployeeID, profile.CompanyID)
		if err != nil {
			return fmt.Errorf("failed to clear deductions: %w", err)
		}

		for _, d := range profile.Deductions {
			var componentID string
			err := tx.QueryRow(ctx, `
				INSERT INTO payroll_components (company_id, name, type, is_taxable, is_active)
				VALUES ($1, $2, 'deduction', false, true)
				ON CONFLICT (company_id, name) DO UPDATE SET is_active = true, updated_at = NOW()
				RETURNING id
			`, profile.CompanyID, d.Name).Scan(&componentID)
			if err != nil {
				return fmt.Errorf("failed to upsert deduction component %q: %w", d.Name, err)
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO employee_payroll_components (employee_id, payroll_component_id, amount, effective_date)
				VALUES ($1, $2, $3, CURRENT_DATE)
			`, profile.EmployeeID, componentID, d.Amount)
			if err != nil {
				return fmt.Errorf("failed to assign deduction %q: %w", d.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return payroll.CompensationProfile{}, err
	}

	return r.GetProfile(ctx, profile.EmployeeID, profile.CompanyID)
}

// ========== PAYSLIPS ==========

const payslipColumns = `id, employee_id, company_id, period_start::text, period_end::text,
	basic_salary, expected_hours, actual_hours_worked, payable_hours, overtime_hours,
	hours_not_worked, hourly_rate, gross_pay, ssnit_employee, paye, other_deductions,
	deductions_detail, net_pay, employer_ssnit, tier1, tier2, skipped_records,
	excluded_dates, warnings, days, computed_at, created_at, updated_at`

func (r *payrollRepository) UpsertPayslip(ctx context.Context, p payroll.Payslip) (payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	deductionsJSON, _ := json.Marshal(p.DeductionsDetail)
	excludedJSON, _ := json.Marshal(p.ExcludedDates)
	warningsJSON, _ := json.Marshal(p.Warnings)
	daysJSON, _ := json.Marshal(p.Days)

	periodStart, err := time.Parse(payroll.DateLayout, p.PeriodStart)
	if err != nil {
		return payroll.Payslip{}, payroll.ErrInvalidPeriod
	}
	periodEnd, err := time.Parse(payroll.DateLayout, p.PeriodEnd)
	if err != nil {
		return payroll.Payslip{}, payroll.ErrInvalidPeriod
	}

	query := `
		INSERT INTO payslips (
			id, employee_id, company_id, period_start, period_end,
			basic_salary, expected_hours, actual_hours_worked, payable_hours, overtime_hours,
			hours_not_worked, hourly_rate, gross_pay, ssnit_employee, paye, other_deductions,
			deductions_detail, net_pay, employer_ssnit, tier1, tier2, skipped_records,
			excluded_dates, warnings, days, computed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26
		)
		ON CONFLICT (company_id, employee_id, period_start, period_end) DO UPDATE SET
			basic_salary = EXCLUDED.basic_salary,
			expected_hours = EXCLUDED.expected_hours,
			actual_hours_worked = EXCLUDED.actual_hours_worked,
			payable_hours = EXCLUDED.payable_hours,
			overtime_hours = EXCLUDED.overtime_hours,
			hours_not_worked = EXCLUDED.hours_not_worked,
			hourly_rate = EXCLUDED.hourly_rate,
			gross_pay = EXCLUDED.gross_pay,
			ssnit_employee = EXCLUDED.ssnit_employee,
			paye = EXCLUDED.paye,
			other_deductions = EXCLUDED.other_deductions,
			deductions_detail = EXCLUDED.deductions_detail,
			net_pay = EXCLUDED.net_pay,
			employer_ssnit = EXCLUDED.employer_ssnit,
			tier1 = EXCLUDED.tier1,
			tier2 = EXCLUDED.tier2,
			skipped_records = EXCLUDED.skipped_records,
			excluded_dates = EXCLUDED.excluded_dates,
			warnings = EXCLUDED.warnings,
			days = EXCLUDED.days,
			computed_at = EXCLUDED.computed_at,
			updated_at = NOW()
		RETURNING ` + payslipColumns

	saved, err := scanPayslip(q.QueryRow(ctx, query,
		p.ID, p.EmployeeID, p.CompanyID, periodStart, periodEnd,
		p.BasicSalary, p.ExpectedHours, p.ActualHoursWorked, p.PayableHours, p.OvertimeHours,
		p.HoursNotWorked, p.HourlyRate, p.GrossPay, p.SSNITEmployee, p.PAYE, p.OtherDeductions,
		deductionsJSON, p.NetPay, p.EmployerSSNIT, p.Tier1, p.Tier2, p.SkippedRecords,
		excludedJSON, warningsJSON, daysJSON, p.ComputedAt,
	))
	if err != nil {
		return payroll.Payslip{}, fmt.Errorf("failed to upsert payslip: %w", err)
	}

	return saved, nil
}

func (r *payrollRepository) GetPayslip(ctx context.Context, key payroll.PayslipKey, companyID string) (payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + payslipColumns + `
		FROM payslips
		WHERE company_id = $1 AND employee_id = $2
		  AND period_start = $3::date AND period_end = $4::date
	`

	p, err := scanPayslip(q.QueryRow(ctx, query, companyID, key.EmployeeID, key.PeriodStart, key.PeriodEnd))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.Payslip{}, payroll.ErrPayslipNotFound
		}
		return payroll.Payslip{}, fmt.Errorf("failed to get payslip: %w", err)
	}

	return p, nil
}

func (r *payrollRepository) ListPayslips(ctx context.Context, companyID string, filter payroll.PayslipFilter) ([]payroll.Payslip, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := `FROM payslips WHERE company_id = $1`
	args := []interface{}{companyID}
	argIdx := 2

	if filter.EmployeeID != nil {
		baseQuery += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.PeriodStart != nil {
		baseQuery += fmt.Sprintf(" AND period_start >= $%d::date", argIdx)
		args = append(args, *filter.PeriodStart)
		argIdx++
	}
	if filter.PeriodEnd != nil {
		baseQuery += fmt.Sprintf(" AND period_end <= $%d::date", argIdx)
		args = append(args, *filter.PeriodEnd)
		argIdx++
	}

	// Count query
	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payslips: %w", err)
	}

	// Pagination
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	selectQuery := fmt.Sprintf(`
		SELECT %s
		%s
		ORDER BY period_start DESC, employee_id, period_end
		LIMIT $%d OFFSET $%d
	`, payslipColumns, baseQuery, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	payslips, err := r.queryPayslips(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, err
	}

	return payslips, totalCount, nil
}

func (r *payrollRepository) ListPayslipsCovering(ctx context.Context, employeeID string, date string, companyID string) ([]payroll.Payslip, error) {
	query := `
		SELECT ` + payslipColumns + `
		FROM payslips
		WHERE company_id = $1 AND employee_id = $2
		  AND period_start <= $3::date AND period_end >= $3::date
		ORDER BY period_start
	`
	return r.queryPayslips(ctx, query, companyID, employeeID, date)
}

func (r *payrollRepository) ListPayslipsComputedBefore(ctx context.Context, employeeID string, before time.Time, companyID string) ([]payroll.Payslip, error) {
	query := `
		SELECT ` + payslipColumns + `
		FROM payslips
		WHERE company_id = $1 AND employee_id = $2 AND computed_at < $3
		ORDER BY period_start
	`
	return r.queryPayslips(ctx, query, companyID, employeeID, before)
}

func (r *payrollRepository) queryPayslips(ctx context.Context, query string, args ...interface{}) ([]payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslips: %w", err)
	}
	defer rows.Close()

	var payslips []payroll.Payslip
	for rows.Next() {
		p, err := scanPayslip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payslip: %w", err)
		}
		payslips = append(payslips, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payslips: %w", err)
	}

	return payslips, nil
}

func scanPayslip(row pgx.Row) (payroll.Payslip, error) {
	var (
		p                                       payroll.Payslip
		deductions, excluded, warnings, dayRows []byte
	)
	err := row.Scan(
		&p.ID, &p.EmployeeID, &p.CompanyID, &p.PeriodStart, &p.PeriodEnd,
		&p.BasicSalary, &p.ExpectedHours, &p.ActualHoursWorked, &p.PayableHours, &p.OvertimeHours,
		&p.HoursNotWorked, &p.HourlyRate, &p.GrossPay, &p.SSNITEmployee, &p.PAYE, &p.OtherDeductions,
		&deductions, &p.NetPay, &p.EmployerSSNIT, &p.Tier1, &p.Tier2, &p.SkippedRecords,
		&excluded, &warnings, &dayRows, &p.ComputedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return payroll.Payslip{}, err
	}

	_ = json.Unmarshal(deductions, &p.DeductionsDetail)
	_ = json.Unmarshal(excluded, &p.ExcludedDates)
	_ = json.Unmarshal(warnings, &p.Warnings)
	_ = json.Unmarshal(dayRows, &p.Days)
	if p.ExcludedDates == nil {
		p.ExcludedDates = []payroll.ExcludedDate{}
	}
	if p.Warnings == nil {
		p.Warnings = []payroll.DataQualityWarning{}
	}

	return p, nil
}
