package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payslip-engine/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCompanyID = "0192a2b4-7c3d-7000-8000-000000000001"

func TestAttendanceRepository_ListByEmployeeAndRange(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewAttendanceRepository(setup.DB)
	employeeID := createTestEmployee(t, ctx, setup.DB, testCompanyID)

	_, err := setup.DB.Exec(ctx, `
		INSERT INTO attendance_records (company_id, employee_id, date, primary_session, punches, adjustment)
		VALUES
			($1, $2, '2025-01-08', NULL,
			 '[{"kind":"IN","time":"2025-01-08T08:00:00Z"},{"kind":"OUT","time":"2025-01-08T12:00:00Z"}]',
			 '{"status":"PENDING","applied":false}'),
			($1, $2, '', '{"start":"2025-01-09T08:00:00Z","end":"2025-01-09T12:00:00Z"}', NULL, NULL),
			($1, $2, 'garbage', NULL, NULL, NULL),
			($1, $2, '2025-03-01', NULL, NULL, NULL)
	`, testCompanyID, employeeID)
	require.NoError(t, err)

	from := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	records, err := repo.ListByEmployeeAndRange(ctx, employeeID, from, to, testCompanyID)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	var punched, sessioned int
	for _, rec := range records {
		if len(rec.Punches) == 2 {
			punched++
			require.NotNil(t, rec.Adjustment)
			assert.Equal(t, attendance.AdjustmentPending, rec.Adjustment.Status)
		}
		if rec.Primary != nil {
			sessioned++
			assert.Equal(t, attendance.Timestamp("2025-01-09T08:00:00Z"), rec.Primary.Start)
		}
	}
	assert.Equal(t, 1, punched)
	assert.Equal(t, 1, sessioned)

	other, err := repo.ListByEmployeeAndRange(ctx, employeeID, from, to, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, other)

	refs, err := repo.ListEmployeesUpdatedSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, employeeID, refs[0].EmployeeID)
}

func TestPayrollRepository_SettingsAndProfile(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(setup.DB)
	employeeID := createTestEmployee(t, ctx, setup.DB, testCompanyID)

	_, err := repo.GetSettings(ctx, testCompanyID)
	assert.ErrorIs(t, err, payroll.ErrPayrollSettingsNotFound)

	saved, err := repo.UpsertSettings(ctx, payroll.PayrollSettings{
		CompanyID:            testCompanyID,
		ExpectedMonthlyHours: decimal.NewFromInt(160),
		ExpectedDailyHours:   decimal.NewFromInt(8),
		BreakThreshold:       7 * time.Hour,
		BreakDuration:        30 * time.Minute,
		Tolerance:            10 * time.Minute,
		Timezone:             "Africa/Accra",
	})
	require.NoError(t, err)
	assert.True(t, saved.ExpectedMonthlyHours.Equal(decimal.NewFromInt(160)))
	assert.Equal(t, 30*time.Minute, saved.BreakDuration)

	// No salary yet
	_, err = repo.GetProfile(ctx, employeeID, testCompanyID)
	assert.ErrorIs(t, err, payroll.ErrCompensationProfileNotFound)

	profile, err := repo.UpsertProfile(ctx, payroll.CompensationProfile{
		EmployeeID:  employeeID,
		CompanyID:   testCompanyID,
		BasicSalary: decimal.NewFromInt(3520),
		Deductions:  []payroll.Deduction{{Name: "welfare", Amount: decimal.NewFromInt(10)}},
	})
	require.NoError(t, err)
	assert.True(t, profile.BasicSalary.Equal(decimal.NewFromInt(3520)))
	require.Len(t, profile.Deductions, 1)

	// Replacing the deductions drops the old assignment
	profile, err = repo.UpsertProfile(ctx, payroll.CompensationProfile{
		EmployeeID:  employeeID,
		CompanyID:   testCompanyID,
		BasicSalary: decimal.NewFromInt(4000),
	})
	require.NoError(t, err)
	assert.Empty(t, profile.Deductions)

	_, err = repo.UpsertProfile(ctx, payroll.CompensationProfile{
		EmployeeID:  uuid.NewString(),
		CompanyID:   testCompanyID,
		BasicSalary: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)
}

func TestPayrollRepository_Payslips(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPayrollRepository(setup.DB)
	employeeID := createTestEmployee(t, ctx, setup.DB, testCompanyID)
	computed := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	slip := payroll.Payslip{
		ID:               uuid.NewString(),
		EmployeeID:       employeeID,
		CompanyID:        testCompanyID,
		PeriodStart:      "2025-01-01",
		PeriodEnd:        "2025-01-31",
		BasicSalary:      decimal.NewFromInt(3520),
		GrossPay:         decimal.NewFromInt(320),
		NetPay:           decimal.RequireFromString("292.4"),
		DeductionsDetail: map[string]decimal.Decimal{"welfare": decimal.NewFromInt(10)},
		ExcludedDates:    []payroll.ExcludedDate{{Date: "2025-01-08", Hours: decimal.RequireFromString("6.4417"), Reason: "pending"}},
		ComputedAt:       computed,
	}
	first, err := repo.UpsertPayslip(ctx, slip)
	require.NoError(t, err)
	assert.Equal(t, slip.ID, first.ID)
	assert.Equal(t, "2025-01-01", first.PeriodStart)

	recomputed := slip
	recomputed.ID = uuid.NewString()
	recomputed.GrossPay = decimal.NewFromInt(400)
	recomputed.ComputedAt = computed.Add(time.Hour)
	second, err := repo.UpsertPayslip(ctx, recomputed)
	require.NoError(t, err)
	assert.Equal(t, slip.ID, second.ID, "upsert keeps the original id")

	got, err := repo.GetPayslip(ctx, slip.Key(), testCompanyID)
	require.NoError(t, err)
	assert.True(t, got.GrossPay.Equal(decimal.NewFromInt(400)))
	require.Len(t, got.ExcludedDates, 1)
	assert.True(t, got.DeductionsDetail["welfare"].Equal(decimal.NewFromInt(10)))

	_, err = repo.GetPayslip(ctx, slip.Key(), uuid.NewString())
	assert.ErrorIs(t, err, payroll.ErrPayslipNotFound)

	list, total, err := repo.ListPayslips(ctx, testCompanyID, payroll.PayslipFilter{EmployeeID: &employeeID, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)

	covering, err := repo.ListPayslipsCovering(ctx, employeeID, "2025-01-15", testCompanyID)
	require.NoError(t, err)
	assert.Len(t, covering, 1)

	stale, err := repo.ListPayslipsComputedBefore(ctx, employeeID, computed.Add(30*time.Minute), testCompanyID)
	require.NoError(t, err)
	assert.Empty(t, stale)
}
